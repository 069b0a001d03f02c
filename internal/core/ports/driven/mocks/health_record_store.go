package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/feldspar-labs/vitalsync/internal/core/domain"
)

// MockHealthRecordStore is an in-memory HealthRecordStore for testing.
// UpsertDaily is atomic under an internal mutex, mirroring the single
// conditional write the Postgres adapter performs.
type MockHealthRecordStore struct {
	mu      sync.Mutex
	byDate  map[time.Time]*domain.HealthRecord
	Upserts int
}

// NewMockHealthRecordStore creates a new MockHealthRecordStore
func NewMockHealthRecordStore() *MockHealthRecordStore {
	return &MockHealthRecordStore{
		byDate: make(map[time.Time]*domain.HealthRecord),
	}
}

func (m *MockHealthRecordStore) UpsertDaily(ctx context.Context, day time.Time, steps, calories int) (*domain.HealthRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Upserts++

	now := time.Now()
	if existing, ok := m.byDate[day]; ok {
		existing.Steps = steps
		existing.Calories = calories
		existing.UpdatedAt = now
		copied := *existing
		return &copied, nil
	}

	record := &domain.HealthRecord{
		ID:        uuid.NewString(),
		Date:      day,
		Steps:     steps,
		Calories:  calories,
		Source:    domain.RecordSourceSync,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.byDate[day] = record
	copied := *record
	return &copied, nil
}

func (m *MockHealthRecordStore) GetByDate(ctx context.Context, day time.Time) (*domain.HealthRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.byDate[day]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (m *MockHealthRecordStore) List(ctx context.Context, since time.Time, limit int) ([]*domain.HealthRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var records []*domain.HealthRecord
	for _, record := range m.byDate {
		if !since.IsZero() && record.Date.Before(since) {
			continue
		}
		copied := *record
		records = append(records, &copied)
	}
	// Newest first, matching the SQL adapter's ordering.
	sort.Slice(records, func(i, j int) bool { return records[i].Date.After(records[j].Date) })
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (m *MockHealthRecordStore) Create(ctx context.Context, record *domain.HealthRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byDate[record.Date]; ok {
		return domain.ErrAlreadyExists
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	copied := *record
	m.byDate[record.Date] = &copied
	return nil
}

func (m *MockHealthRecordStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for day, record := range m.byDate {
		if record.ID == id {
			delete(m.byDate, day)
			return nil
		}
	}
	return domain.ErrNotFound
}

// Count returns the number of stored records.
func (m *MockHealthRecordStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byDate)
}
