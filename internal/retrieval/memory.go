package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/cardforge/internal/domain"
)

// MemoryIndex is an in-memory VectorIndex using brute-force cosine
// similarity over L2-normalized embeddings.
type MemoryIndex struct {
	mu          sync.RWMutex
	embedder    Embedder
	chunker     *Chunker
	logger      *slog.Logger
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	handle  Collection
	chunks  []storedChunk
	indexed map[string]bool
}

type storedChunk struct {
	chunk  domain.Chunk
	vector []float32
}

var _ VectorIndex = (*MemoryIndex)(nil)

// NewMemoryIndex creates an empty index.
func NewMemoryIndex(embedder Embedder, chunker *Chunker, logger *slog.Logger) (*MemoryIndex, error) {
	if embedder == nil {
		return nil, errors.New("embedder cannot be nil")
	}
	if chunker == nil {
		return nil, errors.New("chunker cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &MemoryIndex{
		embedder:    embedder,
		chunker:     chunker,
		logger:      logger.With("component", "memory_index"),
		collections: make(map[string]*memoryCollection),
	}, nil
}

// CreateOrGetCollection implements VectorIndex.
func (m *MemoryIndex) CreateOrGetCollection(
	ctx context.Context,
	subjectID uuid.UUID,
	subjectName string,
) (Collection, error) {
	if subjectID == uuid.Nil {
		return Collection{}, fmt.Errorf("%w: subject ID cannot be nil", domain.ErrValidation)
	}

	id := CollectionID(subjectID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if col, ok := m.collections[id]; ok {
		return col.handle, nil
	}

	handle := Collection{ID: id, SubjectID: subjectID, Name: subjectName}
	m.collections[id] = &memoryCollection{handle: handle, indexed: make(map[string]bool)}
	m.logger.InfoContext(ctx, "created collection", "collection_id", id, "subject_name", subjectName)
	return handle, nil
}

// IsIndexed implements VectorIndex.
func (m *MemoryIndex) IsIndexed(_ context.Context, c Collection, documentID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	col, ok := m.collections[c.ID]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrCollectionNotFound, c.ID)
	}
	return col.indexed[documentID], nil
}

// Index implements VectorIndex. Embedding happens outside the lock; the
// document's chunks are swapped in atomically once every vector is ready.
func (m *MemoryIndex) Index(ctx context.Context, c Collection, documentID, documentName, content string) error {
	if documentID == "" {
		return fmt.Errorf("%w: document ID cannot be empty", domain.ErrValidation)
	}
	if err := m.checkCollection(c); err != nil {
		return err
	}

	texts := m.chunker.Split(content)
	chunks := make([]storedChunk, 0, len(texts))
	if len(texts) > 0 {
		vectors, err := m.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed document %s: %w", documentID, err)
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("%w: got %d vectors for %d chunks", ErrEmbeddingMismatch, len(vectors), len(texts))
		}
		for i, text := range texts {
			chunks = append(chunks, storedChunk{
				chunk: domain.Chunk{
					ID:         documentID + ":" + strconv.Itoa(i),
					DocumentID: documentID,
					Content:    text,
					Metadata:   domain.ChunkMetadata{DocumentName: documentName},
				},
				vector: normalize(vectors[i]),
			})
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	col, ok := m.collections[c.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, c.ID)
	}
	col.chunks = append(withoutDocument(col.chunks, documentID), chunks...)
	col.indexed[documentID] = true

	m.logger.InfoContext(ctx, "indexed document",
		"collection_id", c.ID,
		"document_id", documentID,
		"chunk_count", len(chunks))
	return nil
}

// Search implements VectorIndex.
func (m *MemoryIndex) Search(ctx context.Context, c Collection, query string, k int) ([]SearchResult, error) {
	if err := m.checkCollection(c); err != nil {
		return nil, err
	}
	if k <= 0 || strings.TrimSpace(query) == "" || m.chunkCount(c.ID) == 0 {
		return []SearchResult{}, nil
	}

	vectors, err := m.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: got %d vectors for 1 query", ErrEmbeddingMismatch, len(vectors))
	}
	queryVector := normalize(vectors[0])

	m.mu.RLock()
	defer m.mu.RUnlock()

	col, ok := m.collections[c.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, c.ID)
	}

	results := make([]SearchResult, 0, len(col.chunks))
	for _, sc := range col.chunks {
		results = append(results, SearchResult{
			ChunkID:    sc.chunk.ID,
			DocumentID: sc.chunk.DocumentID,
			Content:    sc.chunk.Content,
			Metadata:   sc.chunk.Metadata,
			Score:      dot(queryVector, sc.vector),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Remove implements VectorIndex.
func (m *MemoryIndex) Remove(ctx context.Context, c Collection, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	col, ok := m.collections[c.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, c.ID)
	}
	col.chunks = withoutDocument(col.chunks, documentID)
	delete(col.indexed, documentID)

	m.logger.DebugContext(ctx, "removed document", "collection_id", c.ID, "document_id", documentID)
	return nil
}

// AllChunkTexts implements VectorIndex.
func (m *MemoryIndex) AllChunkTexts(_ context.Context, c Collection) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	col, ok := m.collections[c.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, c.ID)
	}
	texts := make([]string, len(col.chunks))
	for i, sc := range col.chunks {
		texts[i] = sc.chunk.Content
	}
	return texts, nil
}

func (m *MemoryIndex) checkCollection(c Collection) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.collections[c.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, c.ID)
	}
	return nil
}

func (m *MemoryIndex) chunkCount(id string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if col, ok := m.collections[id]; ok {
		return len(col.chunks)
	}
	return 0
}

func withoutDocument(chunks []storedChunk, documentID string) []storedChunk {
	kept := chunks[:0:0]
	for _, sc := range chunks {
		if sc.chunk.DocumentID != documentID {
			kept = append(kept, sc)
		}
	}
	return kept
}

// normalize returns an L2-normalized copy of v.
func normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	var sum float64
	for _, x := range out {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return out
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range out {
		out[i] *= inv
	}
	return out
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
