package reflection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/phrazzld/cardforge/internal/domain"
	"github.com/phrazzld/cardforge/internal/generation"
)

// Batch reflection defaults.
const (
	DefaultBatchMaxIterations = 3
	DefaultQualityThreshold   = 95.0
	DefaultConvergenceRatio   = 0.9
	MinFrontLength            = 10
	MinBackLength             = 3
)

// BatchSettings tunes BatchReflector.
type BatchSettings struct {
	MaxIterations    int
	QualityThreshold float64
	ConvergenceRatio float64
}

// StopReason says why the batch loop ended.
type StopReason string

// Stop reasons reported in BatchOutcome.
const (
	StopQuality   StopReason = "quality_threshold"
	StopConverged StopReason = "converged"
	StopExhausted StopReason = "max_iterations"
	StopFailed    StopReason = "improvement_failed"
)

// BatchOutcome is the result of a batch reflection run.
type BatchOutcome struct {
	Cards      []domain.Flashcard
	Report     domain.EvaluationReport
	Iterations int
	Reason     StopReason
}

// BatchReflector generates a whole batch and improves it as a unit.
type BatchReflector struct {
	backend  generation.Backend
	prompts  *generation.Prompts
	retry    generation.RetryPolicy
	logger   *slog.Logger
	settings BatchSettings
}

// NewBatchReflector creates a BatchReflector. Zero settings take defaults.
func NewBatchReflector(
	backend generation.Backend,
	prompts *generation.Prompts,
	retry generation.RetryPolicy,
	logger *slog.Logger,
	settings BatchSettings,
) (*BatchReflector, error) {
	if backend == nil {
		return nil, errors.New("backend cannot be nil")
	}
	if prompts == nil {
		return nil, errors.New("prompts cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if settings.MaxIterations <= 0 {
		settings.MaxIterations = DefaultBatchMaxIterations
	}
	if settings.QualityThreshold <= 0 {
		settings.QualityThreshold = DefaultQualityThreshold
	}
	if settings.ConvergenceRatio <= 0 {
		settings.ConvergenceRatio = DefaultConvergenceRatio
	}
	return &BatchReflector{
		backend:  backend,
		prompts:  prompts,
		retry:    retry,
		logger:   logger.With("component", "batch_reflector"),
		settings: settings,
	}, nil
}

// Run generates numCards cards from content and improves the batch. Only a
// failure of the first generation or a cancelled context is returned as an
// error; later failures end the loop with the best batch so far.
func (r *BatchReflector) Run(
	ctx context.Context,
	content string,
	numCards int,
	useExternalKnowledge bool,
) (BatchOutcome, error) {
	cards, err := r.backend.GenerateFlashcardBatch(ctx, content, numCards, useExternalKnowledge)
	if err != nil {
		return BatchOutcome{}, err
	}

	for i := 1; i <= r.settings.MaxIterations; i++ {
		report := Evaluate(cards, numCards)
		r.logger.DebugContext(ctx, "evaluated batch",
			"iteration", i,
			"quality_score", report.QualityScore,
			"issue_count", len(report.Issues))

		if report.QualityScore >= r.settings.QualityThreshold && len(report.Issues) == 0 {
			return BatchOutcome{Cards: cards, Report: report, Iterations: i, Reason: StopQuality}, nil
		}
		if err := ctx.Err(); err != nil {
			return BatchOutcome{}, err
		}

		next, err := r.improve(ctx, content, cards, report, numCards, useExternalKnowledge)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return BatchOutcome{}, ctxErr
			}
			r.logger.WarnContext(ctx, "batch improvement failed, keeping current batch",
				"iteration", i,
				"error", err)
			return BatchOutcome{Cards: cards, Report: report, Iterations: i, Reason: StopFailed}, nil
		}

		similarity := Similarity(cards, next)
		cards = next
		if similarity >= r.settings.ConvergenceRatio {
			r.logger.DebugContext(ctx, "batch converged", "iteration", i, "similarity", similarity)
			return BatchOutcome{Cards: cards, Report: Evaluate(cards, numCards), Iterations: i, Reason: StopConverged}, nil
		}
	}

	return BatchOutcome{
		Cards:      cards,
		Report:     Evaluate(cards, numCards),
		Iterations: r.settings.MaxIterations,
		Reason:     StopExhausted,
	}, nil
}

func (r *BatchReflector) improve(
	ctx context.Context,
	content string,
	cards []domain.Flashcard,
	report domain.EvaluationReport,
	numCards int,
	useExternalKnowledge bool,
) ([]domain.Flashcard, error) {
	prompt, err := r.prompts.BatchCritique(cards, report.Issues)
	if err != nil {
		return nil, err
	}
	critique, err := r.retry.Complete(ctx, r.logger, r.backend, prompt)
	if err != nil {
		return nil, fmt.Errorf("batch critique: %w", err)
	}

	enriched, err := r.prompts.BatchContext(content, cards, critique)
	if err != nil {
		return nil, err
	}
	next, err := r.backend.GenerateFlashcardBatch(ctx, enriched, numCards, useExternalKnowledge)
	if err != nil {
		return nil, fmt.Errorf("batch regeneration: %w", err)
	}
	return next, nil
}

// Evaluate scores a batch. A card is valid when both sides have a
// non-trivial length, its difficulty is allowed and its tags are a list.
// Issues also cover duplicates and a short batch.
func Evaluate(cards []domain.Flashcard, numCards int) domain.EvaluationReport {
	report := domain.EvaluationReport{TotalCards: len(cards), Issues: []string{}}
	if len(cards) == 0 {
		report.Issues = append(report.Issues, "batch is empty")
		return report
	}

	seen := make(map[string]int, len(cards))
	for i, card := range cards {
		n := i + 1
		valid := true
		if utf8.RuneCountInString(strings.TrimSpace(card.Front)) < MinFrontLength {
			report.Issues = append(report.Issues, fmt.Sprintf("card %d: question is too short", n))
			valid = false
		}
		if utf8.RuneCountInString(strings.TrimSpace(card.Back)) < MinBackLength {
			report.Issues = append(report.Issues, fmt.Sprintf("card %d: answer is too short", n))
			valid = false
		}
		if !card.Difficulty.IsValid() {
			report.Issues = append(report.Issues, fmt.Sprintf("card %d: invalid difficulty %q", n, card.Difficulty))
			valid = false
		}
		if card.Tags == nil {
			report.Issues = append(report.Issues, fmt.Sprintf("card %d: tags are not a list", n))
			valid = false
		}
		if first, ok := seen[card.Key()]; ok {
			report.Issues = append(report.Issues, fmt.Sprintf("card %d duplicates card %d", n, first))
		} else {
			seen[card.Key()] = n
		}
		if valid {
			report.ValidCards++
		}
	}

	if numCards > 0 && len(cards) < numCards {
		report.Issues = append(report.Issues, fmt.Sprintf("expected %d cards, got %d", numCards, len(cards)))
	}

	report.QualityScore = float64(report.ValidCards) / float64(report.TotalCards) * 100
	return report
}

// Similarity is the share of cards whose front and back match between two
// batches, ignoring case, relative to the larger batch.
func Similarity(previous, next []domain.Flashcard) float64 {
	total := max(len(previous), len(next))
	if total == 0 {
		return 1
	}

	remaining := make(map[string]int, len(previous))
	for _, card := range previous {
		remaining[card.Key()]++
	}
	matches := 0
	for _, card := range next {
		if remaining[card.Key()] > 0 {
			remaining[card.Key()]--
			matches++
		}
	}
	return float64(matches) / float64(total)
}
