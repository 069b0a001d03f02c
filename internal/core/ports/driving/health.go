package driving

import (
	"context"
	"time"

	"github.com/feldspar-labs/vitalsync/internal/core/domain"
)

// HealthRecordService is the collaborator interface consumed by dashboards
// and admin screens. It shares the record store with the sync engine.
type HealthRecordService interface {
	// ListRecords returns records for the trailing window. days <= 0 means
	// all records.
	ListRecords(ctx context.Context, days int) ([]*domain.HealthRecord, error)

	// CreateManualRecord inserts a manually entered record for a day.
	CreateManualRecord(ctx context.Context, date time.Time, steps, calories int) (*domain.HealthRecord, error)

	// DeleteRecord removes a record by ID.
	DeleteRecord(ctx context.Context, id string) error
}
