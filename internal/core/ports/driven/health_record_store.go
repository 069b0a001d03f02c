package driven

import (
	"context"
	"time"

	"github.com/feldspar-labs/vitalsync/internal/core/domain"
)

// HealthRecordStore persists per-day activity aggregates.
// It is shared with the rest of the application: the sync engine writes
// through UpsertDaily, dashboards and admin screens consume the rest.
type HealthRecordStore interface {
	// UpsertDaily writes the aggregates for a day in one atomic conditional
	// write keyed by the date uniqueness constraint. Last write wins; the
	// day must already be normalized with domain.DayOf.
	UpsertDaily(ctx context.Context, day time.Time, steps, calories int) (*domain.HealthRecord, error)

	// GetByDate returns the record for a normalized day, or ErrNotFound.
	GetByDate(ctx context.Context, day time.Time) (*domain.HealthRecord, error)

	// List returns records newest first. A zero since means no lower
	// bound; limit <= 0 means no limit.
	List(ctx context.Context, since time.Time, limit int) ([]*domain.HealthRecord, error)

	// Create inserts a manual record. Returns ErrAlreadyExists when a
	// record for the day is already present.
	Create(ctx context.Context, record *domain.HealthRecord) error

	// Delete removes a record by ID. Returns ErrNotFound when absent.
	Delete(ctx context.Context, id string) error
}
