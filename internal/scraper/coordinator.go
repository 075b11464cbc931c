package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/cities"
	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/database"
	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/extractor"
	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/fetch"
	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/models"
	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/parser"
	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/ratelimit"
)

// Store is the persistence surface the coordinator needs.
type Store interface {
	ProcessedPostalCodes(ctx context.Context, period string) (map[string]bool, error)
	InsertRecord(ctx context.Context, rec *models.PriceRecord) error
	StartSession(ctx context.Context, period string, plannedCount int, notes string) (string, error)
	CompleteSession(ctx context.Context, id string, stats models.RunStats) error
	FailSession(ctx context.Context, id string, cause string, stats models.RunStats) error
}

// Fetcher retrieves one city page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Result, error)
}

// Notifier publishes the run-level event after session finalization.
// Per-record events are written by the store, atomically with the
// record; the session event is best effort and never fails the run.
type Notifier interface {
	PublishSessionCompleted(ctx context.Context, session *models.RunSession, stats models.RunStats) error
}

// Options carries the per-run knobs the coordinator does not derive itself.
type Options struct {
	BaseURL   string
	URLSuffix string
	Notes     string
}

// Coordinator drives one scrape run: it filters already-processed
// postal codes, walks the remaining targets one at a time behind the
// rate limiter, and records the outcome per target and per session.
type Coordinator struct {
	store     Store
	fetcher   Fetcher
	extractor *extractor.Orchestrator
	outliers  *extractor.OutlierValidator
	limiter   ratelimit.Limiter
	notifier  Notifier
	opts      Options
	logger    *slog.Logger
}

func NewCoordinator(store Store, fetcher Fetcher, ex *extractor.Orchestrator, ov *extractor.OutlierValidator, limiter ratelimit.Limiter, notifier Notifier, opts Options, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		store:     store,
		fetcher:   fetcher,
		extractor: ex,
		outliers:  ov,
		limiter:   limiter,
		notifier:  notifier,
		opts:      opts,
		logger:    logger.With("component", "coordinator"),
	}
}

// Run processes the given targets for the current period. Individual
// target failures are logged and counted but never abort the run; only
// cancellation or a failure to talk to the store ends it early.
func (c *Coordinator) Run(ctx context.Context, targets []models.Target) (models.RunStats, error) {
	period := models.Period(time.Now())
	stats := models.RunStats{}

	processed, err := c.store.ProcessedPostalCodes(ctx, period)
	if err != nil {
		return stats, fmt.Errorf("failed to load processed postal codes: %w", err)
	}

	remaining := make([]models.Target, 0, len(targets))
	for _, t := range targets {
		if processed[t.PostalCode] {
			stats.Skipped++
			continue
		}
		remaining = append(remaining, t)
	}
	stats.Planned = len(remaining)

	sessionID, err := c.store.StartSession(ctx, period, len(remaining), c.opts.Notes)
	if err != nil {
		return stats, fmt.Errorf("failed to start session: %w", err)
	}

	c.logger.Info("run started",
		"session_id", sessionID,
		"period", period,
		"planned", len(remaining),
		"already_processed", stats.Skipped)

	for _, target := range remaining {
		if err := c.limiter.Wait(ctx); err != nil {
			c.logger.Warn("run cancelled", "session_id", sessionID, "processed", stats.Processed)
			if failErr := c.store.FailSession(ctx, sessionID, "cancelled", stats); failErr != nil {
				c.logger.Error("failed to mark session failed", "session_id", sessionID, "error", failErr)
			}
			return stats, err
		}

		stats.Processed++
		record, err := c.processTarget(ctx, period, target)
		if err != nil {
			stats.Failed++
			c.logger.Warn("target failed",
				"session_id", sessionID,
				"postal_code", target.PostalCode,
				"city", target.CityName,
				"kind", errorKind(err),
				"error", err)
			continue
		}

		if err := c.store.InsertRecord(ctx, record); err != nil {
			if errors.Is(err, database.ErrDuplicateRecord) {
				stats.Skipped++
				c.logger.Info("duplicate record skipped",
					"session_id", sessionID,
					"postal_code", target.PostalCode,
					"period", period)
				continue
			}
			stats.Failed++
			c.logger.Error("failed to persist record",
				"session_id", sessionID,
				"postal_code", target.PostalCode,
				"error", err)
			continue
		}

		stats.Succeeded++
		if record.IsOutlier {
			stats.Outliers++
		}
	}

	if err := c.store.CompleteSession(ctx, sessionID, stats); err != nil {
		return stats, fmt.Errorf("failed to complete session: %w", err)
	}

	if c.notifier != nil {
		session := &models.RunSession{ID: sessionID, Period: period, Status: models.SessionCompleted}
		if err := c.notifier.PublishSessionCompleted(ctx, session, stats); err != nil {
			c.logger.Warn("failed to publish session event", "session_id", sessionID, "error", err)
		}
	}

	c.logger.Info("run completed",
		"session_id", sessionID,
		"period", period,
		"processed", stats.Processed,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
		"outliers", stats.Outliers)

	return stats, nil
}

func (c *Coordinator) processTarget(ctx context.Context, period string, target models.Target) (*models.PriceRecord, error) {
	url := cities.PageURL(c.opts.BaseURL, c.opts.URLSuffix, target.CityName)
	start := time.Now()

	res, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	// The name-based class picks the strategy list; the structural
	// class is only recorded alongside the result for diagnostics.
	nameClass := parser.ClassifyName(target.CityName)
	structure := parser.ClassifyStructure(res.Document)
	if nameClass != structure.Class {
		c.logger.Debug("class mismatch",
			"postal_code", target.PostalCode,
			"city", target.CityName,
			"by_name", nameClass,
			"by_structure", structure.Class,
			"tables", structure.TableCount,
			"rows", structure.RowCount)
	}

	result, err := c.extractor.Extract(res.Document, res.RawText, nameClass)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", url, err)
	}

	verdict := c.outliers.Evaluate(result.LocalPrice, result.GreenPrice)
	if verdict.HasOutlier {
		c.logger.Warn("outlier price recorded",
			"postal_code", target.PostalCode,
			"city", target.CityName,
			"severity", verdict.Severity,
			"reasons", verdict.Reasons)
	}

	record := &models.PriceRecord{
		Period:          period,
		PostalCode:      target.PostalCode,
		CityName:        target.CityName,
		Latitude:        target.Latitude,
		Longitude:       target.Longitude,
		LocalPrice:      result.LocalPrice,
		GreenPrice:      result.GreenPrice,
		AveragePrice:    models.AverageOf(result.LocalPrice, result.GreenPrice),
		IsOutlier:       verdict.HasOutlier,
		OutlierSeverity: verdict.Severity,
		SourceURL:       url,
		Method:          result.Method,
		StructureClass:  structure.Class,
		ElapsedMs:       time.Since(start).Milliseconds(),
	}

	c.logger.Info("target scraped",
		"postal_code", target.PostalCode,
		"city", target.CityName,
		"method", record.Method,
		"class", record.StructureClass,
		"attempts", res.Attempts,
		"elapsed_ms", record.ElapsedMs)

	return record, nil
}

// errorKind maps an error to a short diagnostic label for log lines.
func errorKind(err error) string {
	switch {
	case errors.Is(err, fetch.ErrNotFound):
		return "not_found"
	case errors.Is(err, fetch.ErrBlockedExhausted):
		return "blocked"
	case errors.Is(err, fetch.ErrTransport):
		return "transport"
	case errors.Is(err, extractor.ErrNoPriceFound):
		return "no_price"
	default:
		return "other"
	}
}
