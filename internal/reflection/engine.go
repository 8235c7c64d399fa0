package reflection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/cardforge/internal/domain"
	"github.com/phrazzld/cardforge/internal/generation"
)

// DefaultMaxIterations bounds the critique and refine rounds per topic.
const DefaultMaxIterations = 2

// acceptMarkers are the phrases that make a critique an acceptance.
var acceptMarkers = []string{
	"excellent",
	"already good",
	"respects all principles",
}

// Outcome is the result of reflecting on one topic.
type Outcome struct {
	Card domain.Flashcard
	// Iterations counts the critiques performed.
	Iterations int
	// Accepted is false when the loop ran out of iterations.
	Accepted bool
	// Fallback is true when the card is the synthesized diagnostic card.
	Fallback bool
}

// Engine runs the per-topic draft, critique and refine loop.
type Engine struct {
	completer     generation.Completer
	prompts       *generation.Prompts
	retry         generation.RetryPolicy
	logger        *slog.Logger
	maxIterations int
}

// NewEngine creates an Engine. A non-positive maxIterations uses
// DefaultMaxIterations.
func NewEngine(
	completer generation.Completer,
	prompts *generation.Prompts,
	retry generation.RetryPolicy,
	logger *slog.Logger,
	maxIterations int,
) (*Engine, error) {
	if completer == nil {
		return nil, errors.New("completer cannot be nil")
	}
	if prompts == nil {
		return nil, errors.New("prompts cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &Engine{
		completer:     completer,
		prompts:       prompts,
		retry:         retry,
		logger:        logger.With("component", "reflection_engine"),
		maxIterations: maxIterations,
	}, nil
}

// Reflect drafts a card for topic from source and improves it until a
// critique accepts it or the iteration budget is spent. Model failures are
// absorbed; the only error returned is the context's.
func (e *Engine) Reflect(ctx context.Context, topic domain.Topic, source string) (Outcome, error) {
	card, fallback, err := e.draft(ctx, topic, source)
	if err != nil {
		return Outcome{}, err
	}
	if fallback {
		return Outcome{Card: card, Fallback: true}, nil
	}
	if Declined(card) {
		e.logger.InfoContext(ctx, "draft declined for lack of context", "topic", string(topic))
		return Outcome{Card: card, Accepted: true}, nil
	}

	for i := 1; i <= e.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}

		critique, err := e.critique(ctx, card, source)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Outcome{}, ctxErr
			}
			e.logger.WarnContext(ctx, "critique failed, keeping current card",
				"topic", string(topic),
				"iteration", i,
				"error", err)
			return Outcome{Card: card, Iterations: i - 1}, nil
		}

		if IsAccepted(critique) {
			e.logger.DebugContext(ctx, "card accepted", "topic", string(topic), "iteration", i)
			return Outcome{Card: card, Iterations: i, Accepted: true}, nil
		}

		refined, ok, err := e.refine(ctx, topic, card, critique, source)
		if err != nil {
			return Outcome{}, err
		}
		if ok {
			card = refined
		}
	}

	e.logger.DebugContext(ctx, "reflection budget exhausted",
		"topic", string(topic),
		"iterations", e.maxIterations)
	return Outcome{Card: card, Iterations: e.maxIterations}, nil
}

// Draft produces the first card for topic, substituting a diagnostic card
// when the model fails. It is the whole pipeline step when reflection is
// disabled. A cancelled context is returned as an error rather than
// turned into a fallback card.
func (e *Engine) Draft(ctx context.Context, topic domain.Topic, source string) (Outcome, error) {
	card, fallback, err := e.draft(ctx, topic, source)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Card: card, Fallback: fallback, Accepted: !fallback}, nil
}

func (e *Engine) draft(ctx context.Context, topic domain.Topic, source string) (domain.Flashcard, bool, error) {
	prompt, err := e.prompts.Draft(string(topic), source)
	if err != nil {
		return FallbackCard(topic, err), true, nil
	}

	text, err := e.retry.Complete(ctx, e.logger, e.completer, prompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Flashcard{}, false, ctxErr
		}
		e.logger.WarnContext(ctx, "draft failed, using fallback card", "topic", string(topic), "error", err)
		return FallbackCard(topic, err), true, nil
	}

	card, err := generation.ParseFlashcard(text)
	if err != nil {
		e.logger.WarnContext(ctx, "draft unparseable, using fallback card",
			"topic", string(topic),
			"error", err,
			"response_length", len(text))
		return FallbackCard(topic, err), true, nil
	}
	return card, false, nil
}

func (e *Engine) critique(ctx context.Context, card domain.Flashcard, source string) (string, error) {
	prompt, err := e.prompts.Critique(card, source)
	if err != nil {
		return "", err
	}
	return e.retry.Complete(ctx, e.logger, e.completer, prompt)
}

func (e *Engine) refine(
	ctx context.Context,
	topic domain.Topic,
	card domain.Flashcard,
	critique, source string,
) (domain.Flashcard, bool, error) {
	prompt, err := e.prompts.Refine(string(topic), card, critique, source)
	if err != nil {
		return card, false, nil
	}

	text, err := e.retry.Complete(ctx, e.logger, e.completer, prompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return card, false, ctxErr
		}
		e.logger.WarnContext(ctx, "refine failed, keeping current card", "topic", string(topic), "error", err)
		return card, false, nil
	}

	refined, err := generation.ParseFlashcard(text)
	if err != nil {
		e.logger.WarnContext(ctx, "refine unparseable, keeping current card", "topic", string(topic), "error", err)
		return card, false, nil
	}
	return refined, true, nil
}

// IsAccepted reports whether a critique contains a positive marker.
func IsAccepted(critique string) bool {
	lower := strings.ToLower(critique)
	for _, marker := range acceptMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// Declined reports whether card is the model's explicit refusal for a topic
// the context does not cover.
func Declined(card domain.Flashcard) bool {
	return strings.Contains(strings.ToLower(card.Back), strings.ToLower(generation.InsufficientInformation))
}

// FallbackCard is the card used when no draft could be produced.
func FallbackCard(topic domain.Topic, cause error) domain.Flashcard {
	back := "No flashcard could be generated for this topic."
	if cause != nil {
		back = fmt.Sprintf("No flashcard could be generated for this topic: %v", cause)
	}
	return domain.Flashcard{
		Front:      fmt.Sprintf("What is %s?", topic),
		Back:       back,
		Difficulty: domain.DifficultyMedium,
		Tags:       []string{},
	}
}
