package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/cardforge/internal/domain"
)

// BatchGenerator implements the flashcard batch capability on top of any
// Completer. Both backends delegate GenerateFlashcardBatch to it so that
// prompting, parsing and validation are identical whichever provider runs.
type BatchGenerator struct {
	completer Completer
	prompts   *Prompts
	retry     RetryPolicy
	logger    *slog.Logger
}

// NewBatchGenerator creates a BatchGenerator.
func NewBatchGenerator(completer Completer, prompts *Prompts, retry RetryPolicy, logger *slog.Logger) (*BatchGenerator, error) {
	if completer == nil {
		return nil, errors.New("completer cannot be nil")
	}
	if prompts == nil {
		return nil, errors.New("prompts cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &BatchGenerator{completer: completer, prompts: prompts, retry: retry, logger: logger}, nil
}

// Generate prompts for numCards flashcards built from content, then parses
// and validates the answer. Garbage output fails with an error wrapping both
// ErrValidation and ErrParse.
func (g *BatchGenerator) Generate(
	ctx context.Context,
	content string,
	numCards int,
	useExternalKnowledge bool,
) ([]domain.Flashcard, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, domain.ErrEmptyContent)
	}
	if numCards <= 0 {
		return nil, fmt.Errorf("%w: num_cards must be positive, got %d", ErrGenerationFailed, numCards)
	}

	prompt, err := g.prompts.Batch(BatchPromptData{
		Content:              content,
		NumCards:             numCards,
		UseExternalKnowledge: useExternalKnowledge,
	})
	if err != nil {
		return nil, err
	}

	g.logger.DebugContext(ctx, "requesting flashcard batch",
		"num_cards", numCards,
		"content_length", len(content),
		"use_external_knowledge", useExternalKnowledge)

	text, err := g.retry.Complete(ctx, g.logger, g.completer, prompt)
	if err != nil {
		return nil, fmt.Errorf("flashcard batch completion failed: %w", err)
	}

	candidates, err := ExtractBatchCandidates(text)
	if err != nil {
		g.logger.WarnContext(ctx, "batch response contained no parseable flashcards",
			"response_length", len(text))
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	cards, err := ValidateBatch(candidates, numCards)
	if err != nil {
		return nil, err
	}

	g.logger.InfoContext(ctx, "flashcard batch validated",
		"candidates", len(candidates),
		"accepted", len(cards),
		"requested", numCards)
	return cards, nil
}
