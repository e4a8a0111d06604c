package mocks

import (
	"context"
	"sync"

	"github.com/headless-cms-admin/internal/service"
)

// MockSchedulerService is a mock implementation of SchedulerService
type MockSchedulerService struct {
	PublishDueFunc func(ctx context.Context) (int, error)

	mu       sync.Mutex
	Started  bool
	Stopped  bool
	DueCalls int
}

// Verify interface compliance
var _ service.SchedulerService = (*MockSchedulerService)(nil)

func NewMockSchedulerService() *MockSchedulerService {
	return &MockSchedulerService{}
}

// StartProcessor records the call and returns at once
func (m *MockSchedulerService) StartProcessor(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Started = true
}

func (m *MockSchedulerService) StopProcessor() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Stopped = true
}

func (m *MockSchedulerService) PublishDue(ctx context.Context) (int, error) {
	m.mu.Lock()
	m.DueCalls++
	fn := m.PublishDueFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return 0, nil
}
