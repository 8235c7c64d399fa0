package retrieval

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/cardforge/internal/domain"
)

// Embedder turns texts into embedding vectors, one per text, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Collection is the handle of a subject-scoped group of indexed chunks.
type Collection struct {
	ID        string
	SubjectID uuid.UUID
	Name      string
}

// SearchResult is one chunk returned by a similarity search.
type SearchResult struct {
	ChunkID    string
	DocumentID string
	Content    string
	Metadata   domain.ChunkMetadata
	Score      float32
}

// VectorIndex is the retrieval capability the generation pipeline depends on.
type VectorIndex interface {
	// CreateOrGetCollection resolves the collection of a subject, creating
	// it on first use. The same subject always resolves to the same handle.
	CreateOrGetCollection(ctx context.Context, subjectID uuid.UUID, subjectName string) (Collection, error)

	// IsIndexed reports whether the document already has chunks in the collection.
	IsIndexed(ctx context.Context, c Collection, documentID string) (bool, error)

	// Index chunks and embeds content and stores the chunks for documentID,
	// replacing any chunks previously stored for it.
	Index(ctx context.Context, c Collection, documentID, documentName, content string) error

	// Search returns up to k chunks ranked by relevance to query. An empty
	// result is not an error.
	Search(ctx context.Context, c Collection, query string, k int) ([]SearchResult, error)

	// Remove deletes every chunk of documentID.
	Remove(ctx context.Context, c Collection, documentID string) error

	// AllChunkTexts returns the content of every chunk in the collection in
	// indexing order.
	AllChunkTexts(ctx context.Context, c Collection) ([]string, error)
}

// Reindex fully replaces the chunk set of a document.
func Reindex(ctx context.Context, idx VectorIndex, c Collection, documentID, documentName, content string) error {
	if err := idx.Remove(ctx, c, documentID); err != nil {
		return err
	}
	return idx.Index(ctx, c, documentID, documentName, content)
}

// CollectionID returns the collection identifier used for a subject.
func CollectionID(subjectID uuid.UUID) string {
	return "subject_" + subjectID.String()
}
