package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/models"
)

// ErrDuplicateRecord is returned when a record for the same
// (period, postal_code) pair already exists. Callers treat it as a
// benign skip, not a failure.
var ErrDuplicateRecord = errors.New("price record already exists for period and postal code")

const uniqueViolation = "23505"

// RecordRepository persists monthly price records.
type RecordRepository struct {
	db *DB
}

func NewRecordRepository(db *DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// Insert stores one record. A duplicate (period, postal_code) pair maps
// to ErrDuplicateRecord.
func (r *RecordRepository) Insert(ctx context.Context, rec *models.PriceRecord) error {
	return r.db.Transaction(ctx, func(tx pgx.Tx) error {
		return r.InsertWithTx(ctx, tx, rec)
	})
}

// InsertWithTx inserts within a caller-owned transaction, so an outbox
// event can commit atomically with the record.
func (r *RecordRepository) InsertWithTx(ctx context.Context, tx pgx.Tx, rec *models.PriceRecord) error {
	query := `
		INSERT INTO price_records (
			period, postal_code, city_name, latitude, longitude,
			local_price, green_price, average_price,
			is_outlier, outlier_severity, source_url,
			extraction_method, structure_class, elapsed_ms
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
		RETURNING id, created_at`

	err := tx.QueryRow(ctx, query,
		rec.Period, rec.PostalCode, rec.CityName, rec.Latitude, rec.Longitude,
		rec.LocalPrice, rec.GreenPrice, rec.AveragePrice,
		rec.IsOutlier, rec.OutlierSeverity, rec.SourceURL,
		rec.Method, rec.StructureClass, rec.ElapsedMs,
	).Scan(&rec.ID, &rec.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateRecord
		}
		return fmt.Errorf("failed to insert price record: %w", err)
	}

	return nil
}

// Exists reports whether a record is already stored for the pair.
func (r *RecordRepository) Exists(ctx context.Context, period, postalCode string) (bool, error) {
	var exists bool
	err := r.db.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM price_records WHERE period = $1 AND postal_code = $2)`,
		period, postalCode,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check record existence: %w", err)
	}
	return exists, nil
}

// ProcessedPostalCodes returns the postal codes already covered in a
// period, used to pre-filter the work queue.
func (r *RecordRepository) ProcessedPostalCodes(ctx context.Context, period string) (map[string]bool, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT postal_code FROM price_records WHERE period = $1`, period)
	if err != nil {
		return nil, fmt.Errorf("failed to query processed postal codes: %w", err)
	}
	defer rows.Close()

	processed := make(map[string]bool)
	for rows.Next() {
		var plz string
		if err := rows.Scan(&plz); err != nil {
			return nil, fmt.Errorf("failed to scan postal code: %w", err)
		}
		processed[plz] = true
	}

	return processed, rows.Err()
}

// ListByPeriod returns records for a period, newest first.
func (r *RecordRepository) ListByPeriod(ctx context.Context, period string, limit int) ([]*models.PriceRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	rows, err := r.db.pool.Query(ctx, `
		SELECT id, period, postal_code, city_name, latitude, longitude,
			local_price, green_price, average_price,
			is_outlier, outlier_severity, source_url,
			extraction_method, structure_class, elapsed_ms, created_at
		FROM price_records
		WHERE period = $1
		ORDER BY created_at DESC
		LIMIT $2`, period, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query price records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// GetByPostalCode returns the most recent record for a postal code.
func (r *RecordRepository) GetByPostalCode(ctx context.Context, postalCode string) (*models.PriceRecord, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, period, postal_code, city_name, latitude, longitude,
			local_price, green_price, average_price,
			is_outlier, outlier_severity, source_url,
			extraction_method, structure_class, elapsed_ms, created_at
		FROM price_records
		WHERE postal_code = $1
		ORDER BY period DESC
		LIMIT 1`, postalCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query price record: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// PeriodStats summarizes a period for the API.
type PeriodStats struct {
	Period       string   `json:"period"`
	RecordCount  int      `json:"record_count"`
	AveragePrice *float64 `json:"average_price,omitempty"`
	OutlierCount int      `json:"outlier_count"`
}

func (r *RecordRepository) StatsByPeriod(ctx context.Context, period string) (*PeriodStats, error) {
	stats := &PeriodStats{Period: period}

	err := r.db.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			AVG(average_price),
			COUNT(*) FILTER (WHERE is_outlier)
		FROM price_records
		WHERE period = $1`, period,
	).Scan(&stats.RecordCount, &stats.AveragePrice, &stats.OutlierCount)
	if err != nil {
		return nil, fmt.Errorf("failed to query period stats: %w", err)
	}

	return stats, nil
}

func scanRecords(rows pgx.Rows) ([]*models.PriceRecord, error) {
	var records []*models.PriceRecord
	for rows.Next() {
		rec := &models.PriceRecord{}
		err := rows.Scan(
			&rec.ID, &rec.Period, &rec.PostalCode, &rec.CityName,
			&rec.Latitude, &rec.Longitude,
			&rec.LocalPrice, &rec.GreenPrice, &rec.AveragePrice,
			&rec.IsOutlier, &rec.OutlierSeverity, &rec.SourceURL,
			&rec.Method, &rec.StructureClass, &rec.ElapsedMs, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
