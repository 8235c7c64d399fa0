package generation

import (
	"context"

	"github.com/phrazzld/cardforge/internal/domain"
)

// Completer is the single free-text completion capability of a backend.
type Completer interface {
	// Complete sends prompt to the model and returns its text answer.
	// Provider failures are returned wrapping ErrTransientFailure; an empty
	// answer is reported as ErrEmptyResponse, never as "" with a nil error.
	// Implementations do not retry; callers apply a RetryPolicy.
	Complete(ctx context.Context, prompt string) (string, error)
}

// Backend is the capability contract shared by the cloud and the local
// language model backends. It serves as the boundary between the pipeline
// and external LLM services.
type Backend interface {
	Completer

	// GenerateFlashcardBatch prompts for a JSON array of flashcards built from
	// content and returns at most numCards validated cards. When
	// useExternalKnowledge is false the model is told to stay strictly within
	// content. It fails with ErrValidation when no candidate survives.
	GenerateFlashcardBatch(
		ctx context.Context,
		content string,
		numCards int,
		useExternalKnowledge bool,
	) ([]domain.Flashcard, error)

	// Name identifies the backend in logs and metrics.
	Name() string
}
