package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/cardforge/internal/retrieval"
)

// MockVectorIndex implements retrieval.VectorIndex for testing. Methods
// without a function field succeed with zero values.
type MockVectorIndex struct {
	CreateOrGetCollectionFn func(ctx context.Context, subjectID uuid.UUID, subjectName string) (retrieval.Collection, error)
	IsIndexedFn             func(ctx context.Context, c retrieval.Collection, documentID string) (bool, error)
	IndexFn                 func(ctx context.Context, c retrieval.Collection, documentID, documentName, content string) error
	SearchFn                func(ctx context.Context, c retrieval.Collection, query string, k int) ([]retrieval.SearchResult, error)
	RemoveFn                func(ctx context.Context, c retrieval.Collection, documentID string) error
	AllChunkTextsFn         func(ctx context.Context, c retrieval.Collection) ([]string, error)

	mu sync.Mutex

	// IndexedDocuments records the document IDs passed to Index
	IndexedDocuments []string

	// Queries records the queries passed to Search
	Queries []string
}

var _ retrieval.VectorIndex = (*MockVectorIndex)(nil)

// CreateOrGetCollection implements retrieval.VectorIndex.
func (m *MockVectorIndex) CreateOrGetCollection(
	ctx context.Context,
	subjectID uuid.UUID,
	subjectName string,
) (retrieval.Collection, error) {
	if m.CreateOrGetCollectionFn != nil {
		return m.CreateOrGetCollectionFn(ctx, subjectID, subjectName)
	}
	return retrieval.Collection{ID: retrieval.CollectionID(subjectID), SubjectID: subjectID, Name: subjectName}, nil
}

// IsIndexed implements retrieval.VectorIndex.
func (m *MockVectorIndex) IsIndexed(ctx context.Context, c retrieval.Collection, documentID string) (bool, error) {
	if m.IsIndexedFn != nil {
		return m.IsIndexedFn(ctx, c, documentID)
	}
	return false, nil
}

// Index implements retrieval.VectorIndex.
func (m *MockVectorIndex) Index(ctx context.Context, c retrieval.Collection, documentID, documentName, content string) error {
	m.mu.Lock()
	m.IndexedDocuments = append(m.IndexedDocuments, documentID)
	m.mu.Unlock()

	if m.IndexFn != nil {
		return m.IndexFn(ctx, c, documentID, documentName, content)
	}
	return nil
}

// Search implements retrieval.VectorIndex.
func (m *MockVectorIndex) Search(
	ctx context.Context,
	c retrieval.Collection,
	query string,
	k int,
) ([]retrieval.SearchResult, error) {
	m.mu.Lock()
	m.Queries = append(m.Queries, query)
	m.mu.Unlock()

	if m.SearchFn != nil {
		return m.SearchFn(ctx, c, query, k)
	}
	return []retrieval.SearchResult{}, nil
}

// Remove implements retrieval.VectorIndex.
func (m *MockVectorIndex) Remove(ctx context.Context, c retrieval.Collection, documentID string) error {
	if m.RemoveFn != nil {
		return m.RemoveFn(ctx, c, documentID)
	}
	return nil
}

// AllChunkTexts implements retrieval.VectorIndex.
func (m *MockVectorIndex) AllChunkTexts(ctx context.Context, c retrieval.Collection) ([]string, error) {
	if m.AllChunkTextsFn != nil {
		return m.AllChunkTextsFn(ctx, c)
	}
	return nil, nil
}

// SearchQueries returns a copy of the recorded search queries.
func (m *MockVectorIndex) SearchQueries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Queries...)
}

// IndexedDocumentIDs returns a copy of the recorded indexed document IDs.
func (m *MockVectorIndex) IndexedDocumentIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.IndexedDocuments...)
}
