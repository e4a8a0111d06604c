package mocks

import (
	"context"
	"sync"

	"github.com/headless-cms-admin/internal/kvstore"
)

// MockStore is an in-memory kvstore.Store whose writes can be made to fail
type MockStore struct {
	*kvstore.MemoryStore

	mu       sync.Mutex
	SetCalls map[string]int
	// FailKeys makes Set fail for the listed keys
	FailKeys map[string]error
	// SetFunc, when set, runs before every Set; a non-nil result fails the write
	SetFunc func(key string, value []byte) error
}

func NewMockStore() *MockStore {
	return &MockStore{
		MemoryStore: kvstore.NewMemoryStore(),
		SetCalls:    make(map[string]int),
		FailKeys:    make(map[string]error),
	}
}

// FailOn makes every subsequent Set of key return err
func (m *MockStore) FailOn(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailKeys[key] = err
}

// Heal clears all injected failures
func (m *MockStore) Heal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailKeys = make(map[string]error)
	m.SetFunc = nil
}

func (m *MockStore) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.SetCalls[key]++
	failErr := m.FailKeys[key]
	fn := m.SetFunc
	m.mu.Unlock()

	if failErr != nil {
		return failErr
	}
	if fn != nil {
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return m.MemoryStore.Set(ctx, key, value)
}

// Calls returns how many times key was written
func (m *MockStore) Calls(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.SetCalls[key]
}

var _ kvstore.Store = (*MockStore)(nil)
