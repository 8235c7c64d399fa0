package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/cardforge/internal/websearch"
)

// MockSearcher implements websearch.Searcher for testing.
type MockSearcher struct {
	// SearchFn allows test cases to mock the Search behavior
	SearchFn func(ctx context.Context, query string, maxResults int) ([]websearch.Result, error)

	mu sync.Mutex

	// Queries records every query passed to Search
	Queries []string
}

var _ websearch.Searcher = (*MockSearcher)(nil)

// Search implements websearch.Searcher.
func (m *MockSearcher) Search(ctx context.Context, query string, maxResults int) ([]websearch.Result, error) {
	m.mu.Lock()
	m.Queries = append(m.Queries, query)
	m.mu.Unlock()

	if m.SearchFn != nil {
		return m.SearchFn(ctx, query, maxResults)
	}
	return nil, nil
}

// SearchQueries returns a copy of the recorded queries.
func (m *MockSearcher) SearchQueries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Queries...)
}
