package metrics

import (
	"context"
	"time"

	"github.com/phrazzld/cardforge/internal/domain"
	"github.com/phrazzld/cardforge/internal/generation"
)

// LLM operation label values.
const (
	OperationComplete = "complete"
	OperationBatch    = "batch"
)

type instrumentedBackend struct {
	next      generation.Backend
	collector *Collector
}

// InstrumentBackend wraps b so every call is counted and timed.
func InstrumentBackend(b generation.Backend, c *Collector) generation.Backend {
	if c == nil {
		return b
	}
	return &instrumentedBackend{next: b, collector: c}
}

func (b *instrumentedBackend) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := b.next.Complete(ctx, prompt)
	b.collector.ObserveLLMCall(b.next.Name(), OperationComplete, time.Since(start), err)
	return text, err
}

func (b *instrumentedBackend) GenerateFlashcardBatch(
	ctx context.Context,
	content string,
	numCards int,
	useExternalKnowledge bool,
) ([]domain.Flashcard, error) {
	start := time.Now()
	cards, err := b.next.GenerateFlashcardBatch(ctx, content, numCards, useExternalKnowledge)
	b.collector.ObserveLLMCall(b.next.Name(), OperationBatch, time.Since(start), err)
	return cards, err
}

func (b *instrumentedBackend) Name() string {
	return b.next.Name()
}
