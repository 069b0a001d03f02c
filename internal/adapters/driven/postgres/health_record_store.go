package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/feldspar-labs/vitalsync/internal/core/domain"
	"github.com/feldspar-labs/vitalsync/internal/core/ports/driven"
)

// Ensure HealthRecordStore implements the interface.
var _ driven.HealthRecordStore = (*HealthRecordStore)(nil)

// uniqueViolation is the Postgres error code for a unique constraint breach.
const uniqueViolation = "23505"

// HealthRecordStore implements driven.HealthRecordStore using PostgreSQL.
type HealthRecordStore struct {
	db *DB
}

// NewHealthRecordStore creates a new PostgreSQL-backed health record store.
func NewHealthRecordStore(db *DB) *HealthRecordStore {
	return &HealthRecordStore{db: db}
}

const recordColumns = `id, date, steps, calories, source, created_at, updated_at`

// UpsertDaily writes the day's totals in a single conditional statement.
// Concurrent calls for the same day race on the UNIQUE(date) constraint and
// both land on the same row; last writer wins on values.
func (s *HealthRecordStore) UpsertDaily(ctx context.Context, day time.Time, steps, calories int) (*domain.HealthRecord, error) {
	query := `
		INSERT INTO health_records (id, date, steps, calories, source, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (date) DO UPDATE SET
			steps = EXCLUDED.steps,
			calories = EXCLUDED.calories,
			updated_at = NOW()
		RETURNING ` + recordColumns

	row := s.db.QueryRowContext(ctx, query,
		uuid.NewString(),
		domain.DayOf(day),
		steps,
		calories,
		domain.RecordSourceSync,
	)
	record, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("upsert daily record: %w", err)
	}
	return record, nil
}

// GetByDate retrieves the record for a calendar day.
func (s *HealthRecordStore) GetByDate(ctx context.Context, day time.Time) (*domain.HealthRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM health_records WHERE date = $1`

	record, err := scanRecord(s.db.QueryRowContext(ctx, query, domain.DayOf(day)))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record by date: %w", err)
	}
	return record, nil
}

// List returns records newest first. A zero since means no lower bound.
func (s *HealthRecordStore) List(ctx context.Context, since time.Time, limit int) ([]*domain.HealthRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM health_records`
	args := []any{}
	if !since.IsZero() {
		query += ` WHERE date >= $1`
		args = append(args, domain.DayOf(since))
	}
	query += ` ORDER BY date DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []*domain.HealthRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// Create inserts a record, failing if the day is already taken.
func (s *HealthRecordStore) Create(ctx context.Context, record *domain.HealthRecord) error {
	query := `
		INSERT INTO health_records (id, date, steps, calories, source, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		domain.DayOf(record.Date),
		record.Steps,
		record.Calories,
		record.Source,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: record exists for %s", domain.ErrAlreadyExists, record.Date.Format("2006-01-02"))
		}
		return fmt.Errorf("create record: %w", err)
	}
	return nil
}

// Delete removes a record by ID.
func (s *HealthRecordStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM health_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for scanRecord.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*domain.HealthRecord, error) {
	var record domain.HealthRecord
	err := row.Scan(
		&record.ID,
		&record.Date,
		&record.Steps,
		&record.Calories,
		&record.Source,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	record.Date = localDay(record.Date)
	return &record, nil
}
