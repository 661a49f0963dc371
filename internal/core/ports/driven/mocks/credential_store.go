package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/oauth-broker/internal/core/domain"
)

// MockCredentialStore is an in-memory CredentialStore
type MockCredentialStore struct {
	mu          sync.RWMutex
	credentials map[domain.CredentialKey]*domain.Credential
	puts        int

	// Custom behavior hooks (optional)
	PutFn    func(cred *domain.Credential) error
	GetFn    func(key domain.CredentialKey) (*domain.Credential, error)
	DeleteFn func(key domain.CredentialKey) error
}

// NewMockCredentialStore creates an empty store
func NewMockCredentialStore() *MockCredentialStore {
	return &MockCredentialStore{
		credentials: make(map[domain.CredentialKey]*domain.Credential),
	}
}

func (m *MockCredentialStore) Put(ctx context.Context, cred *domain.Credential) error {
	if m.PutFn != nil {
		return m.PutFn(cred)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *cred
	m.credentials[cred.Key()] = &cp
	m.puts++
	return nil
}

func (m *MockCredentialStore) Get(ctx context.Context, key domain.CredentialKey) (*domain.Credential, error) {
	if m.GetFn != nil {
		return m.GetFn(key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	cred, ok := m.credentials[key]
	if !ok {
		return nil, domain.ErrCredentialNotFound
	}
	cp := *cred
	return &cp, nil
}

func (m *MockCredentialStore) Delete(ctx context.Context, key domain.CredentialKey) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.credentials, key)
	return nil
}

func (m *MockCredentialStore) Cleanup(ctx context.Context) error {
	return nil
}

// Len returns the number of stored credentials
func (m *MockCredentialStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.credentials)
}

// Puts returns how many successful writes the store received
func (m *MockCredentialStore) Puts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}
