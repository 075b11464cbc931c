package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/cities"
	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/config"
	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/database"
	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/events"
	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/extractor"
	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/fetch"
	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/parser"
	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/ratelimit"
	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/scraper"
)

func main() {
	var (
		cityFile = flag.String("file", "data/cities.csv", "path to the postal code reference CSV")
		limit    = flag.Int("limit", 0, "process at most N targets (0 = all)")
		notes    = flag.String("notes", "", "free-form note stored with the run session")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	targets, err := cities.LoadCSV(*cityFile, logger)
	if err != nil {
		logger.Error("failed to load city list", "file", *cityFile, "error", err)
		os.Exit(1)
	}

	max := cfg.Scraper.MaxTargets
	if *limit > 0 && (max == 0 || *limit < max) {
		max = *limit
	}
	if max > 0 && max < len(targets) {
		targets = targets[:max]
	}
	logger.Info("targets loaded", "file", *cityFile, "count", len(targets))

	rotation, err := fetch.NewRotation(cfg.Scraper.UserAgents, cfg.Scraper.Proxies, cfg.Scraper.TorProxy, cfg.Scraper.ProxyFailLimit)
	if err != nil {
		logger.Error("failed to build identity rotation", "error", err)
		os.Exit(1)
	}
	controller := fetch.NewController(rotation, fetch.Options{
		Timeout:    cfg.Scraper.RequestTimeout,
		MaxRetries: cfg.Scraper.MaxRetries,
		RetryBase:  cfg.Scraper.DelayBase,
		MinBytes:   cfg.Scraper.MinResponseBytes,
	}, logger)

	prices := parser.NewPriceParser(cfg.Scraper.PriceMin, cfg.Scraper.PriceMax)
	orchestrator := extractor.NewOrchestrator(prices, cfg.Scraper.OutlierHigh, logger)
	outliers := extractor.NewOutlierValidator(cfg.Scraper.OutlierHigh, cfg.Scraper.OutlierVeryHigh, cfg.Scraper.OutlierExtreme)
	limiter := ratelimit.NewJitteredLimiter(cfg.Scraper.DelayBase, cfg.Scraper.DelayJitter)
	publisher := events.NewPublisher(db, cfg.Redis.Stream, logger)

	coordinator := scraper.NewCoordinator(
		scraper.NewDBStore(db, cfg.Redis.Stream),
		controller,
		orchestrator,
		outliers,
		limiter,
		publisher,
		scraper.Options{
			BaseURL:   cfg.Source.BaseURL,
			URLSuffix: cfg.Source.URLSuffix,
			Notes:     *notes,
		},
		logger,
	)

	stats, err := coordinator.Run(ctx, targets)
	if err != nil {
		logger.Error("run aborted",
			"error", err,
			"processed", stats.Processed,
			"succeeded", stats.Succeeded,
			"failed", stats.Failed)
		os.Exit(1)
	}

	logger.Info("run finished",
		"planned", stats.Planned,
		"processed", stats.Processed,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
		"outliers", stats.Outliers)
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
