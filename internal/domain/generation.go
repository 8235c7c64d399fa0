package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Topic is a short phrase naming one concept to be covered by exactly one
// flashcard. It has no identity beyond a single run.
type Topic string

// Document is a source document whose text has already been extracted.
type Document struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Chunk is a bounded substring of a document, the unit of retrieval.
type Chunk struct {
	ID         string        `json:"id"`
	DocumentID string        `json:"document_id"`
	Content    string        `json:"content"`
	Metadata   ChunkMetadata `json:"metadata"`
}

// ChunkMetadata carries the fields returned alongside chunk content on search.
type ChunkMetadata struct {
	DocumentName string `json:"document_name"`
}

// EvaluationReport summarizes the quality of one batch in the batch
// reflection loop. It is recomputed every iteration.
type EvaluationReport struct {
	TotalCards   int      `json:"total_cards"`
	ValidCards   int      `json:"valid_cards"`
	QualityScore float64  `json:"quality_score"`
	Issues       []string `json:"issues"`
}

// GenerationRequest is the working configuration of one run. It is not
// modified while the run executes.
type GenerationRequest struct {
	SubjectID     uuid.UUID  `json:"subject_id"`
	SubjectName   string     `json:"subject_name"`
	Documents     []Document `json:"documents"`
	NumCards      int        `json:"num_cards"`
	UseWebSearch  bool       `json:"use_web_search"`
	UseRAG        bool       `json:"use_rag"`
	UseReflection bool       `json:"use_reflection"`
	UserQuery     string     `json:"user_query,omitempty"`
}

// HasQuery reports whether the user supplied a non-blank query.
func (r GenerationRequest) HasQuery() bool {
	return strings.TrimSpace(r.UserQuery) != ""
}

// Validate checks the request before a run starts.
func (r GenerationRequest) Validate() error {
	if r.SubjectID == uuid.Nil {
		return fmt.Errorf("%w: subject ID cannot be empty", ErrInvalidRequest)
	}
	if r.NumCards <= 0 {
		return fmt.Errorf("%w: num_cards must be positive, got %d", ErrInvalidRequest, r.NumCards)
	}
	if len(r.Documents) == 0 && !r.HasQuery() {
		return fmt.Errorf("%w: at least one document or a user query is required", ErrInvalidRequest)
	}
	for i, doc := range r.Documents {
		if strings.TrimSpace(doc.ID) == "" {
			return fmt.Errorf("%w: document %d has no ID", ErrInvalidRequest, i)
		}
	}
	return nil
}
