package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of the redis client the relay needs
type RedisClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// OutboxReader is the subset of the outbox repository the relay needs
type OutboxReader interface {
	GetPending(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, processErr error) error
}

// Relay polls the outbox table and publishes pending events to Redis
// streams. It is the second half of the transactional outbox: writes
// commit atomically with their events, and the relay delivers them
// at-least-once afterwards.
type Relay struct {
	redis        RedisClient
	outbox       OutboxReader
	logger       *slog.Logger
	batchSize    int
	pollInterval time.Duration
}

// RelayConfig configures the outbox relay
type RelayConfig struct {
	BatchSize    int
	PollInterval time.Duration
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		BatchSize:    50,
		PollInterval: 2 * time.Second,
	}
}

func NewRelay(redisClient RedisClient, outbox OutboxReader, logger *slog.Logger, cfg RelayConfig) *Relay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return &Relay{
		redis:        redisClient,
		outbox:       outbox,
		logger:       logger.With("component", "outbox_relay"),
		batchSize:    cfg.BatchSize,
		pollInterval: cfg.PollInterval,
	}
}

// Run polls for pending events until the context is cancelled
func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info("outbox relay started",
		"batch_size", r.batchSize,
		"poll_interval", r.pollInterval)

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := r.ProcessBatch(ctx); err != nil {
				r.logger.Error("batch processing failed", "error", err)
			}
		}
	}
}

// ProcessBatch fetches and publishes one batch of pending events
func (r *Relay) ProcessBatch(ctx context.Context) error {
	events, err := r.outbox.GetPending(ctx, r.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending events: %w", err)
	}

	if len(events) == 0 {
		return nil
	}

	r.logger.Debug("processing outbox batch", "count", len(events))

	for _, event := range events {
		if err := r.processEvent(ctx, event); err != nil {
			r.logger.Error("failed to process event",
				"event_id", event.ID,
				"event_type", event.EventType,
				"error", err)

			if markErr := r.outbox.MarkFailed(ctx, event.ID, err); markErr != nil {
				r.logger.Error("failed to mark event as failed",
					"event_id", event.ID,
					"error", markErr)
			}
			continue
		}

		if err := r.outbox.MarkProcessed(ctx, event.ID); err != nil {
			r.logger.Error("failed to mark event as processed",
				"event_id", event.ID,
				"error", err)
		}
	}

	return nil
}

func (r *Relay) processEvent(ctx context.Context, event *OutboxEvent) error {
	if err := r.publishToRedis(ctx, event); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	r.logger.Info("event published",
		"event_id", event.ID,
		"event_type", event.EventType,
		"aggregate_id", event.AggregateID,
		"stream", event.TargetStream)

	return nil
}

func (r *Relay) publishToRedis(ctx context.Context, event *OutboxEvent) error {
	streamData := map[string]interface{}{
		"event_id":       event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID,
		"payload":        string(event.Payload),
		"created_at":     event.CreatedAt.Format(time.RFC3339),
		"source":         "energy-price-scraper",
	}

	args := &redis.XAddArgs{
		Stream: event.TargetStream,
		Values: streamData,
	}

	if err := r.redis.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("XADD to %s failed: %w", event.TargetStream, err)
	}

	return nil
}
