package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockDistributedLock simulates a TTL lock in memory and records how it
// was used, so tests can assert that work ran under the lock.
type MockDistributedLock struct {
	mu      sync.Mutex
	expiry  map[string]time.Time
	history []string

	// Custom behavior hooks (optional)
	AcquireFn func(name string, ttl time.Duration) (bool, error)
	PingFn    func() error
}

// NewMockDistributedLock creates a new mock distributed lock.
func NewMockDistributedLock() *MockDistributedLock {
	return &MockDistributedLock{
		expiry: make(map[string]time.Time),
	}
}

func (m *MockDistributedLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if m.AcquireFn != nil {
		return m.AcquireFn(name, ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if exp, ok := m.expiry[name]; ok && time.Now().Before(exp) {
		m.history = append(m.history, "busy:"+name)
		return false, nil
	}
	m.expiry[name] = time.Now().Add(ttl)
	m.history = append(m.history, "acquire:"+name)
	return true, nil
}

func (m *MockDistributedLock) Release(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.expiry, name)
	m.history = append(m.history, "release:"+name)
	return nil
}

func (m *MockDistributedLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.expiry[name]
	if !ok || time.Now().After(exp) {
		return fmt.Errorf("lock %s not held", name)
	}
	m.expiry[name] = time.Now().Add(ttl)
	return nil
}

func (m *MockDistributedLock) Ping(ctx context.Context) error {
	if m.PingFn != nil {
		return m.PingFn()
	}
	return nil
}

// IsHeld reports whether name is currently locked
func (m *MockDistributedLock) IsHeld(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.expiry[name]
	return ok && time.Now().Before(exp)
}

// HoldElsewhere marks name as taken by another instance for ttl
func (m *MockDistributedLock) HoldElsewhere(name string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expiry[name] = time.Now().Add(ttl)
}

// History returns the recorded acquire, busy and release events in order
func (m *MockDistributedLock) History() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.history...)
}
