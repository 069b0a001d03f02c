package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/feldspar-labs/vitalsync/internal/core/domain"
	"github.com/feldspar-labs/vitalsync/internal/core/ports/driven"
	"github.com/feldspar-labs/vitalsync/internal/core/ports/driving"
)

// Ensure healthRecordService implements HealthRecordService
var _ driving.HealthRecordService = (*healthRecordService)(nil)

// defaultListLimit caps unbounded listings.
const defaultListLimit = 1000

// HealthRecordServiceConfig holds dependencies for the health record service.
type HealthRecordServiceConfig struct {
	RecordStore driven.HealthRecordStore
	Logger      *slog.Logger
}

// healthRecordService implements the HealthRecordService interface.
type healthRecordService struct {
	recordStore driven.HealthRecordStore
	logger      *slog.Logger
}

// NewHealthRecordService creates a new health record service.
func NewHealthRecordService(cfg HealthRecordServiceConfig) driving.HealthRecordService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &healthRecordService{
		recordStore: cfg.RecordStore,
		logger:      logger,
	}
}

// ListRecords returns records for the trailing window, newest first.
// days <= 0 returns everything.
func (s *healthRecordService) ListRecords(ctx context.Context, days int) ([]*domain.HealthRecord, error) {
	var since time.Time
	if days > 0 {
		since = domain.DayOf(time.Now()).AddDate(0, 0, -(days - 1))
	}
	records, err := s.recordStore.List(ctx, since, defaultListLimit)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// CreateManualRecord inserts a manually entered record. A record already
// present for that day is a conflict, not an overwrite.
func (s *healthRecordService) CreateManualRecord(ctx context.Context, date time.Time, steps, calories int) (*domain.HealthRecord, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", domain.ErrInvalidInput)
	}
	if steps < 0 || calories < 0 {
		return nil, fmt.Errorf("%w: steps and calories must be non-negative", domain.ErrInvalidInput)
	}

	now := time.Now()
	record := &domain.HealthRecord{
		ID:        uuid.New().String(),
		Date:      domain.DayOf(date),
		Steps:     steps,
		Calories:  calories,
		Source:    domain.RecordSourceManual,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.recordStore.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}

	s.logger.Info("manual record created", "id", record.ID, "date", record.Date.Format("2006-01-02"))
	return record, nil
}

// DeleteRecord removes a record by ID.
func (s *healthRecordService) DeleteRecord(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", domain.ErrInvalidInput)
	}
	if err := s.recordStore.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	s.logger.Info("record deleted", "id", id)
	return nil
}
