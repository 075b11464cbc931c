package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/models"
)

// SessionRepository tracks scrape-run bookkeeping. Status transitions
// are append-only: running -> completed or running -> failed.
type SessionRepository struct {
	db *DB
}

func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Start creates a running session and returns its id.
func (r *SessionRepository) Start(ctx context.Context, period string, plannedCount int, notes string) (string, error) {
	id := uuid.New().String()

	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO scrape_sessions (
			id, period, planned_count, processed_count, success_count,
			failure_count, status, notes, started_at
		) VALUES ($1, $2, $3, 0, 0, 0, $4, $5, $6)`,
		id, period, plannedCount, models.SessionRunning, notes, time.Now(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to start session: %w", err)
	}

	return id, nil
}

// Complete finalizes a session as completed with its counters.
func (r *SessionRepository) Complete(ctx context.Context, id string, stats models.RunStats) error {
	return r.finalize(ctx, id, models.SessionCompleted, "", stats)
}

// Fail finalizes a session as failed, recording the cause.
func (r *SessionRepository) Fail(ctx context.Context, id string, cause string, stats models.RunStats) error {
	return r.finalize(ctx, id, models.SessionFailed, cause, stats)
}

func (r *SessionRepository) finalize(ctx context.Context, id string, status models.SessionStatus, cause string, stats models.RunStats) error {
	query := `
		UPDATE scrape_sessions SET
			processed_count = $2,
			success_count = $3,
			failure_count = $4,
			status = $5,
			notes = CASE WHEN $6 = '' THEN notes ELSE $6 END,
			finished_at = $7
		WHERE id = $1 AND status = $8`

	tag, err := r.db.pool.Exec(ctx, query,
		id, stats.Processed, stats.Succeeded, stats.Failed,
		status, cause, time.Now(), models.SessionRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s not found or already finalized", id)
	}

	return nil
}

// List returns recent sessions, newest first.
func (r *SessionRepository) List(ctx context.Context, limit int) ([]*models.RunSession, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := r.db.pool.Query(ctx, `
		SELECT id, period, planned_count, processed_count, success_count,
			failure_count, status, notes, started_at, finished_at
		FROM scrape_sessions
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.RunSession
	for rows.Next() {
		s := &models.RunSession{}
		err := rows.Scan(
			&s.ID, &s.Period, &s.PlannedCount, &s.Processed, &s.Succeeded,
			&s.Failed, &s.Status, &s.Notes, &s.StartedAt, &s.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}
