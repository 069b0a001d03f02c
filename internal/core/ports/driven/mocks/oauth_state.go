package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/feldspar-labs/vitalsync/internal/core/ports/driven"
)

// MockOAuthStateStore is an in-memory OAuthStateStore for testing
type MockOAuthStateStore struct {
	mu     sync.Mutex
	states map[string]*driven.OAuthState
}

// NewMockOAuthStateStore creates a new MockOAuthStateStore
func NewMockOAuthStateStore() *MockOAuthStateStore {
	return &MockOAuthStateStore{states: make(map[string]*driven.OAuthState)}
}

func (m *MockOAuthStateStore) Save(ctx context.Context, state *driven.OAuthState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.State] = state
	return nil
}

func (m *MockOAuthStateStore) GetAndDelete(ctx context.Context, state string) (*driven.OAuthState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.states[state]
	if !ok {
		return nil, nil
	}
	delete(m.states, state)
	if time.Now().After(stored.ExpiresAt) {
		return nil, nil
	}
	return stored, nil
}

func (m *MockOAuthStateStore) Cleanup(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for key, stored := range m.states {
		if now.After(stored.ExpiresAt) {
			delete(m.states, key)
		}
	}
	return nil
}

// Count returns the number of pending states.
func (m *MockOAuthStateStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}
