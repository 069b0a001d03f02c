package mocks

import (
	"context"
	"sync"

	"github.com/feldspar-labs/vitalsync/internal/core/domain"
)

// MockCredentialStore is an in-memory CredentialStore for testing
type MockCredentialStore struct {
	mu          sync.RWMutex
	creds       map[string]*domain.Credential
	invalidated map[string]bool

	SaveCalls       int
	InvalidateCalls int
	GetErr          error
	SaveErr         error
}

// NewMockCredentialStore creates a new MockCredentialStore
func NewMockCredentialStore() *MockCredentialStore {
	return &MockCredentialStore{
		creds:       make(map[string]*domain.Credential),
		invalidated: make(map[string]bool),
	}
}

func (m *MockCredentialStore) Get(ctx context.Context, identity string) (*domain.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if m.invalidated[identity] {
		return nil, nil
	}
	cred, ok := m.creds[identity]
	if !ok {
		return nil, nil
	}
	copied := *cred
	return &copied, nil
}

func (m *MockCredentialStore) Save(ctx context.Context, identity string, cred *domain.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	copied := *cred
	m.creds[identity] = &copied
	delete(m.invalidated, identity)
	return nil
}

func (m *MockCredentialStore) Invalidate(ctx context.Context, identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InvalidateCalls++
	m.invalidated[identity] = true
	return nil
}

// Helper methods for testing

func (m *MockCredentialStore) Stored(identity string) *domain.Credential {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds[identity]
}

func (m *MockCredentialStore) Invalidated(identity string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.invalidated[identity]
}
