package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/phrazzld/cardforge/internal/domain"
	"github.com/phrazzld/cardforge/internal/generation"
	"github.com/phrazzld/cardforge/internal/retrieval"
)

var (
	// ErrNoFlashcards is returned when a run finishes without a single card.
	ErrNoFlashcards = errors.New("no flashcards were generated")

	// ErrRetrievalUnavailable is returned for a RAG request when no vector
	// index is configured.
	ErrRetrievalUnavailable = errors.New("retrieval is not configured")
)

// TopicError wraps a failure confined to one topic. It is logged and the
// topic is skipped.
type TopicError struct {
	Topic domain.Topic
	Err   error
}

func (e *TopicError) Error() string {
	return fmt.Sprintf("topic %q: %v", e.Topic, e.Err)
}

func (e *TopicError) Unwrap() error {
	return e.Err
}

// UserMessage maps a run failure to a human-readable explanation that
// points at the remediation.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "Generation was cancelled."
	case errors.Is(err, retrieval.ErrConnectivity):
		return "The embedding service could not be reached. Start the embedding server configured for retrieval and try again."
	case errors.Is(err, ErrRetrievalUnavailable):
		return "Retrieval is not available on this server. Disable RAG for this request or configure an embedding service."
	case errors.Is(err, domain.ErrInvalidRequest):
		return fmt.Sprintf("The generation request is invalid: %v.", err)
	case errors.Is(err, generation.ErrInvalidConfig):
		return "The language model backend is misconfigured. Check the model name, endpoint and API key settings."
	case errors.Is(err, generation.ErrContentBlocked):
		return "The language model refused the content because of its safety filters. Try different source material."
	case errors.Is(err, generation.ErrValidation), errors.Is(err, ErrNoFlashcards):
		return "The language model did not produce any usable flashcards. Try again, or switch to a more capable model."
	case errors.Is(err, generation.ErrTransientFailure):
		return "The language model provider could not be reached or rejected the request. Check the network, API key and quota, then retry."
	default:
		return "Flashcard generation failed unexpectedly. Please retry."
	}
}
