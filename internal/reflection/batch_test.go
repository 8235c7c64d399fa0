package reflection_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/phrazzld/cardforge/internal/domain"
	"github.com/phrazzld/cardforge/internal/generation"
	"github.com/phrazzld/cardforge/internal/mocks"
	"github.com/phrazzld/cardforge/internal/reflection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func card(front, back string) domain.Flashcard {
	return domain.Flashcard{Front: front, Back: back, Difficulty: domain.DifficultyMedium, Tags: []string{}}
}

func goodBatch(n int, variant string) []domain.Flashcard {
	cards := make([]domain.Flashcard, n)
	for i := range cards {
		cards[i] = card(fmt.Sprintf("Question number %d about %s?", i+1, variant), fmt.Sprintf("Answer %d", i+1))
	}
	return cards
}

func newBatchReflector(t *testing.T, backend *mocks.MockBackend) *reflection.BatchReflector {
	t.Helper()
	prompts, err := generation.LoadPrompts()
	require.NoError(t, err)
	r, err := reflection.NewBatchReflector(backend, prompts, generation.RetryPolicy{MaxAttempts: 1}, discardLogger(), reflection.BatchSettings{})
	require.NoError(t, err)
	return r
}

// scriptedBatches returns the given batches in order, repeating the last one.
func scriptedBatches(batches ...[]domain.Flashcard) func(context.Context, string, int, bool) ([]domain.Flashcard, error) {
	i := 0
	return func(context.Context, string, int, bool) ([]domain.Flashcard, error) {
		b := batches[min(i, len(batches)-1)]
		i++
		return b, nil
	}
}

func TestBatchReflectorStopsOnQuality(t *testing.T) {
	backend := &mocks.MockBackend{GenerateFlashcardBatchFn: scriptedBatches(goodBatch(3, "go"))}
	r := newBatchReflector(t, backend)

	outcome, err := r.Run(context.Background(), "content", 3, false)

	require.NoError(t, err)
	assert.Equal(t, reflection.StopQuality, outcome.Reason)
	assert.Equal(t, 1, outcome.Iterations)
	assert.InDelta(t, 100.0, outcome.Report.QualityScore, 0.001)
	assert.Equal(t, 1, backend.BatchCalls())
	assert.Zero(t, backend.CompleteCalls())
}

func TestBatchReflectorConverges(t *testing.T) {
	weak := append(goodBatch(9, "sql"), card("Q1", "A1"))
	backend := &mocks.MockBackend{
		GenerateFlashcardBatchFn: scriptedBatches(weak, weak, goodBatch(10, "other")),
		CompleteFn: func(ctx context.Context, prompt string) (string, error) {
			return "Card 10 is too short.", nil
		},
	}
	r := newBatchReflector(t, backend)

	outcome, err := r.Run(context.Background(), "SQL content", 10, false)

	require.NoError(t, err)
	assert.Equal(t, reflection.StopConverged, outcome.Reason)
	assert.Equal(t, 1, outcome.Iterations)
	assert.Equal(t, 2, backend.BatchCalls(), "converged loop must not run a third generation")
	assert.Equal(t, weak, outcome.Cards)

	contents := backend.BatchContents
	require.Len(t, contents, 2)
	assert.Contains(t, contents[1], "SQL content")
	assert.Contains(t, contents[1], "Card 10 is too short.")
	assert.Contains(t, contents[1], "[PREVIOUS FLASHCARDS]")
}

func TestBatchReflectorImprovesThenStops(t *testing.T) {
	weak := []domain.Flashcard{card("Q1", "A1"), card("Q2", "A2")}
	backend := &mocks.MockBackend{
		GenerateFlashcardBatchFn: scriptedBatches(weak, goodBatch(2, "go")),
		CompleteFn: func(ctx context.Context, prompt string) (string, error) {
			return "Questions are too short.", nil
		},
	}
	r := newBatchReflector(t, backend)

	outcome, err := r.Run(context.Background(), "content", 2, false)

	require.NoError(t, err)
	assert.Equal(t, reflection.StopQuality, outcome.Reason)
	assert.Equal(t, 2, outcome.Iterations)
	assert.Equal(t, goodBatch(2, "go"), outcome.Cards)
}

func TestBatchReflectorExhausts(t *testing.T) {
	calls := 0
	backend := &mocks.MockBackend{
		GenerateFlashcardBatchFn: func(context.Context, string, int, bool) ([]domain.Flashcard, error) {
			calls++
			return []domain.Flashcard{card(fmt.Sprintf("Q%d", calls), "A")}, nil
		},
		CompleteFn: func(ctx context.Context, prompt string) (string, error) {
			return "Still weak.", nil
		},
	}
	r := newBatchReflector(t, backend)

	outcome, err := r.Run(context.Background(), "content", 1, false)

	require.NoError(t, err)
	assert.Equal(t, reflection.StopExhausted, outcome.Reason)
	assert.Equal(t, reflection.DefaultBatchMaxIterations, outcome.Iterations)
	assert.Equal(t, reflection.DefaultBatchMaxIterations+1, backend.BatchCalls())
}

func TestBatchReflectorInitialFailure(t *testing.T) {
	backend := &mocks.MockBackend{
		GenerateFlashcardBatchFn: func(context.Context, string, int, bool) ([]domain.Flashcard, error) {
			return nil, generation.ErrValidation
		},
	}
	r := newBatchReflector(t, backend)

	_, err := r.Run(context.Background(), "content", 3, false)

	assert.ErrorIs(t, err, generation.ErrValidation)
}

func TestBatchReflectorCritiqueFailureKeepsBatch(t *testing.T) {
	weak := []domain.Flashcard{card("Q1", "A1")}
	backend := &mocks.MockBackend{
		GenerateFlashcardBatchFn: scriptedBatches(weak),
		CompleteFn: func(ctx context.Context, prompt string) (string, error) {
			return "", errors.New("provider down")
		},
	}
	r := newBatchReflector(t, backend)

	outcome, err := r.Run(context.Background(), "content", 1, false)

	require.NoError(t, err)
	assert.Equal(t, reflection.StopFailed, outcome.Reason)
	assert.Equal(t, weak, outcome.Cards)
}

func TestBatchReflectorCancelledDuringCritique(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := &mocks.MockBackend{
		GenerateFlashcardBatchFn: scriptedBatches([]domain.Flashcard{card("Q1", "A1")}),
		CompleteFn: func(c context.Context, prompt string) (string, error) {
			cancel()
			return "", c.Err()
		},
	}
	r := newBatchReflector(t, backend)

	outcome, err := r.Run(ctx, "content", 1, false)

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, outcome.Cards)
	assert.Equal(t, 1, backend.BatchCalls(), "no regeneration after cancellation")
}

func TestEvaluate(t *testing.T) {
	cards := []domain.Flashcard{
		card("What does an index speed up?", "Lookups"),
		card("Q?", "A"),
		{Front: "Which difficulty is this card?", Back: "Unknown", Difficulty: "extreme", Tags: []string{}},
		card("What does an index speed up?", "Lookups"),
	}

	report := reflection.Evaluate(cards, 5)

	assert.Equal(t, 4, report.TotalCards)
	assert.Equal(t, 2, report.ValidCards)
	assert.InDelta(t, 50.0, report.QualityScore, 0.001)
	assert.Contains(t, report.Issues, "card 2: question is too short")
	assert.Contains(t, report.Issues, "card 2: answer is too short")
	assert.Contains(t, report.Issues, `card 3: invalid difficulty "extreme"`)
	assert.Contains(t, report.Issues, "card 4 duplicates card 1")
	assert.Contains(t, report.Issues, "expected 5 cards, got 4")

	empty := reflection.Evaluate(nil, 3)
	assert.Zero(t, empty.QualityScore)
	assert.Equal(t, []string{"batch is empty"}, empty.Issues)
}

func TestSimilarity(t *testing.T) {
	a := []domain.Flashcard{card("What is SQL?", "A query language"), card("What is an index?", "A lookup structure")}
	b := []domain.Flashcard{card("what is sql?", "A QUERY LANGUAGE"), card("What is a view?", "A stored query")}

	assert.InDelta(t, 1.0, reflection.Similarity(a, a), 0.001)
	assert.InDelta(t, 0.5, reflection.Similarity(a, b), 0.001)
	assert.InDelta(t, 0.5, reflection.Similarity(a, a[:1]), 0.001)
	assert.InDelta(t, 1.0, reflection.Similarity(nil, nil), 0.001)
}
