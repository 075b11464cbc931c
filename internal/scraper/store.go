package scraper

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/database"
	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/events"
	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/models"
)

// DBStore adapts the database repositories to the Store interface. A
// record insert commits in one transaction with its outbox event, so a
// persisted record always has its event and vice versa.
type DBStore struct {
	db       *database.DB
	records  *database.RecordRepository
	sessions *database.SessionRepository
	outbox   *database.OutboxRepository
	stream   string
}

func NewDBStore(db *database.DB, stream string) *DBStore {
	return &DBStore{
		db:       db,
		records:  database.NewRecordRepository(db),
		sessions: database.NewSessionRepository(db),
		outbox:   database.NewOutboxRepository(db),
		stream:   stream,
	}
}

func (s *DBStore) ProcessedPostalCodes(ctx context.Context, period string) (map[string]bool, error) {
	return s.records.ProcessedPostalCodes(ctx, period)
}

func (s *DBStore) InsertRecord(ctx context.Context, rec *models.PriceRecord) error {
	event, err := events.NewPriceRecordedEvent(rec, s.stream)
	if err != nil {
		return err
	}

	return s.db.Transaction(ctx, func(tx pgx.Tx) error {
		if err := s.records.InsertWithTx(ctx, tx, rec); err != nil {
			return err
		}
		return s.outbox.InsertWithTx(ctx, tx, event)
	})
}

func (s *DBStore) StartSession(ctx context.Context, period string, plannedCount int, notes string) (string, error) {
	return s.sessions.Start(ctx, period, plannedCount, notes)
}

func (s *DBStore) CompleteSession(ctx context.Context, id string, stats models.RunStats) error {
	return s.sessions.Complete(ctx, id, stats)
}

func (s *DBStore) FailSession(ctx context.Context, id string, cause string, stats models.RunStats) error {
	return s.sessions.Fail(ctx, id, cause, stats)
}
