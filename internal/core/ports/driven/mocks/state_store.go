package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/oauth-broker/internal/core/domain"
)

// MockStateStore is an in-memory StateStore. GetAndDelete is atomic under
// a single mutex, matching the single-use contract of real backends.
type MockStateStore struct {
	mu     sync.Mutex
	states map[string]*domain.AuthorizationState
	now    func() time.Time

	// Custom behavior hooks (optional)
	SaveFn         func(state *domain.AuthorizationState) error
	GetAndDeleteFn func(token string) (*domain.AuthorizationState, error)
}

// NewMockStateStore creates an empty store
func NewMockStateStore() *MockStateStore {
	return &MockStateStore{
		states: make(map[string]*domain.AuthorizationState),
		now:    time.Now,
	}
}

// SetClock replaces the clock used to decide expiry
func (m *MockStateStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MockStateStore) Save(ctx context.Context, state *domain.AuthorizationState) error {
	if m.SaveFn != nil {
		return m.SaveFn(state)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *state
	m.states[state.Token] = &cp
	return nil
}

func (m *MockStateStore) GetAndDelete(ctx context.Context, token string) (*domain.AuthorizationState, error) {
	if m.GetAndDeleteFn != nil {
		return m.GetAndDeleteFn(token)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[token]
	if !ok {
		return nil, nil
	}
	delete(m.states, token)
	if state.IsExpired(m.now()) {
		return nil, nil
	}
	return state, nil
}

func (m *MockStateStore) Cleanup(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for token, state := range m.states {
		if state.IsExpired(now) {
			delete(m.states, token)
		}
	}
	return nil
}

func (m *MockStateStore) Ping(ctx context.Context) error {
	return nil
}

// Len returns the number of stored states, expired or not
func (m *MockStateStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}

// Peek returns a stored state without consuming it
func (m *MockStateStore) Peek(token string) *domain.AuthorizationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[token]
}
