package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/database"
	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/models"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypePriceRecorded is published when a price record is persisted
	EventTypePriceRecorded EventType = "PRICE_RECORDED"
	// EventTypeSessionCompleted is published when a scrape run finishes
	EventTypeSessionCompleted EventType = "SESSION_COMPLETED"
)

// PriceRecordedPayload carries one persisted price record
type PriceRecordedPayload struct {
	EventID      string    `json:"event_id"`
	EventType    string    `json:"event_type"`
	Timestamp    time.Time `json:"timestamp"`
	Period       string    `json:"period"`
	PostalCode   string    `json:"postal_code"`
	CityName     string    `json:"city_name"`
	LocalPrice   *float64  `json:"local_price,omitempty"`
	GreenPrice   *float64  `json:"green_price,omitempty"`
	AveragePrice *float64  `json:"average_price,omitempty"`
	Method       string    `json:"extraction_method"`
	IsOutlier    bool      `json:"is_outlier"`
	SourceURL    string    `json:"source_url"`
	Source       string    `json:"source"`
}

// SessionCompletedPayload summarizes a finished scrape run
type SessionCompletedPayload struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	Period    string    `json:"period"`
	Status    string    `json:"status"`
	Planned   int       `json:"planned"`
	Processed int       `json:"processed"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped"`
	Outliers  int       `json:"outliers"`
	Source    string    `json:"source"`
}

// NewPriceRecordedEvent builds the outbox event for a persisted record.
// The caller inserts it with InsertWithTx in the same transaction as
// the record itself, so neither exists without the other.
func NewPriceRecordedEvent(record *models.PriceRecord, stream string) (*database.OutboxEvent, error) {
	payload := &PriceRecordedPayload{
		EventID:      uuid.New().String(),
		EventType:    string(EventTypePriceRecorded),
		Timestamp:    time.Now(),
		Period:       record.Period,
		PostalCode:   record.PostalCode,
		CityName:     record.CityName,
		LocalPrice:   record.LocalPrice,
		GreenPrice:   record.GreenPrice,
		AveragePrice: record.AveragePrice,
		Method:       record.Method,
		IsOutlier:    record.IsOutlier,
		SourceURL:    record.SourceURL,
		Source:       "scraper",
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	return &database.OutboxEvent{
		AggregateType: "price_record",
		AggregateID:   fmt.Sprintf("%s/%s", record.Period, record.PostalCode),
		EventType:     payload.EventType,
		Payload:       data,
		TargetStream:  stream,
	}, nil
}

// Publisher handles event publishing using the transactional outbox pattern
type Publisher struct {
	db     *database.DB
	outbox *database.OutboxRepository
	stream string
	logger *slog.Logger
}

// NewPublisher creates a new event publisher with database connection.
// An empty stream falls back to the outbox default.
func NewPublisher(db *database.DB, stream string, logger *slog.Logger) *Publisher {
	return &Publisher{
		db:     db,
		outbox: database.NewOutboxRepository(db),
		stream: stream,
		logger: logger.With("component", "event_publisher"),
	}
}

// PublishSessionCompleted publishes a SESSION_COMPLETED event for a finished run
func (p *Publisher) PublishSessionCompleted(ctx context.Context, session *models.RunSession, stats models.RunStats) error {
	payload := &SessionCompletedPayload{
		EventID:   uuid.New().String(),
		EventType: string(EventTypeSessionCompleted),
		Timestamp: time.Now(),
		SessionID: session.ID,
		Period:    session.Period,
		Status:    string(session.Status),
		Planned:   stats.Planned,
		Processed: stats.Processed,
		Succeeded: stats.Succeeded,
		Failed:    stats.Failed,
		Skipped:   stats.Skipped,
		Outliers:  stats.Outliers,
		Source:    "scraper",
	}

	return p.publish(ctx, "scrape_session", session.ID, payload.EventType, payload, payload.EventID)
}

func (p *Publisher) publish(ctx context.Context, aggregateType, aggregateID, eventType string, payload interface{}, eventID string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	outboxEvent := &database.OutboxEvent{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       data,
		TargetStream:  p.stream,
	}

	err = p.db.Transaction(ctx, func(tx pgx.Tx) error {
		if err := p.outbox.InsertWithTx(ctx, tx, outboxEvent); err != nil {
			return fmt.Errorf("failed to insert outbox event: %w", err)
		}
		return nil
	})

	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Info("event published to outbox",
		"type", eventType,
		"event_id", eventID,
		"aggregate_id", aggregateID,
		"outbox_id", outboxEvent.ID,
	)

	return nil
}
