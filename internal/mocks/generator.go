package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/cardforge/internal/domain"
	"github.com/phrazzld/cardforge/internal/orchestrator"
)

// MockGenerator runs generation requests for task tests. It matches the
// Run method of *orchestrator.Orchestrator.
type MockGenerator struct {
	// RunFn allows test cases to mock the Run behavior
	RunFn func(ctx context.Context, req domain.GenerationRequest, progress orchestrator.ProgressFunc) (orchestrator.Result, error)

	// Default response values
	Result orchestrator.Result
	Err    error

	mu sync.Mutex

	// Requests records every request passed to Run
	Requests []domain.GenerationRequest
}

// Run records req and delegates to RunFn, or returns Result and Err.
func (m *MockGenerator) Run(
	ctx context.Context,
	req domain.GenerationRequest,
	progress orchestrator.ProgressFunc,
) (orchestrator.Result, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()

	if m.RunFn != nil {
		return m.RunFn(ctx, req, progress)
	}
	return m.Result, m.Err
}

// RunCalls returns how many times Run was called.
func (m *MockGenerator) RunCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
