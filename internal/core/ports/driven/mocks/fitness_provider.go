package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/feldspar-labs/vitalsync/internal/core/domain"
	"github.com/feldspar-labs/vitalsync/internal/core/ports/driven"
)

// MockFitnessProvider is a scriptable FitnessProvider for testing.
// Authorization codes are single-use, matching the real provider.
type MockFitnessProvider struct {
	mu sync.Mutex

	Activity    domain.DailyActivity
	FetchErr    error
	RefreshErr  error
	ExchangeErr error

	RefreshPair *driven.TokenPair
	codesUsed   map[string]bool

	FetchCalls    int
	RefreshCalls  int
	ExchangeCalls int
	LastFetchDay  time.Time
	LastFetchTok  string
}

// NewMockFitnessProvider creates a new MockFitnessProvider
func NewMockFitnessProvider() *MockFitnessProvider {
	return &MockFitnessProvider{
		codesUsed: make(map[string]bool),
	}
}

func (m *MockFitnessProvider) ConsentURL(state string) string {
	return "https://provider.example/consent?state=" + state
}

func (m *MockFitnessProvider) ExchangeCode(ctx context.Context, code string) (*driven.TokenPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExchangeCalls++
	if m.ExchangeErr != nil {
		return nil, m.ExchangeErr
	}
	if m.codesUsed[code] {
		return nil, domain.ErrExchangeFailed
	}
	m.codesUsed[code] = true
	return &driven.TokenPair{
		AccessToken:  "access-" + code,
		RefreshToken: "refresh-" + code,
		ExpiresIn:    3600,
	}, nil
}

func (m *MockFitnessProvider) Refresh(ctx context.Context, refreshToken string) (*driven.TokenPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RefreshCalls++
	if m.RefreshErr != nil {
		return nil, m.RefreshErr
	}
	if m.RefreshPair != nil {
		return m.RefreshPair, nil
	}
	return &driven.TokenPair{AccessToken: "refreshed-access", ExpiresIn: 3600}, nil
}

func (m *MockFitnessProvider) FetchDailyActivity(ctx context.Context, accessToken string, day time.Time) (*domain.DailyActivity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchCalls++
	m.LastFetchDay = day
	m.LastFetchTok = accessToken
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	activity := m.Activity
	return &activity, nil
}
