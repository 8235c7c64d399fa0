package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/phrazzld/cardforge/internal/domain"
	"github.com/phrazzld/cardforge/internal/generation"
)

// ErrNoScriptedResponse is returned by MockBackend when its script is exhausted.
var ErrNoScriptedResponse = errors.New("mock backend: no scripted response left")

// MockBackend implements generation.Backend for testing.
//
// Complete resolves in this order: CompleteFn when set, then the next entry
// of Responses (with the matching entry of Errors, if any), then
// ErrNoScriptedResponse.
type MockBackend struct {
	// CompleteFn allows test cases to mock the Complete behavior
	CompleteFn func(ctx context.Context, prompt string) (string, error)

	// GenerateFlashcardBatchFn allows test cases to mock GenerateFlashcardBatch
	GenerateFlashcardBatchFn func(ctx context.Context, content string, numCards int, useExternalKnowledge bool) ([]domain.Flashcard, error)

	// Responses is a script of completion answers consumed in order
	Responses []string

	// Errors is consumed alongside Responses; a nil entry means success
	Errors []error

	mu sync.Mutex

	// Prompts records every prompt passed to Complete
	Prompts []string

	// BatchContents records every content passed to GenerateFlashcardBatch
	BatchContents []string
}

var _ generation.Backend = (*MockBackend)(nil)

// Complete implements generation.Completer.
func (m *MockBackend) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	idx := len(m.Prompts) - 1
	m.mu.Unlock()

	if m.CompleteFn != nil {
		return m.CompleteFn(ctx, prompt)
	}

	var err error
	if idx < len(m.Errors) {
		err = m.Errors[idx]
	}
	if idx < len(m.Responses) {
		return m.Responses[idx], err
	}
	if err != nil {
		return "", err
	}
	return "", ErrNoScriptedResponse
}

// GenerateFlashcardBatch implements generation.Backend.
func (m *MockBackend) GenerateFlashcardBatch(
	ctx context.Context,
	content string,
	numCards int,
	useExternalKnowledge bool,
) ([]domain.Flashcard, error) {
	m.mu.Lock()
	m.BatchContents = append(m.BatchContents, content)
	m.mu.Unlock()

	if m.GenerateFlashcardBatchFn != nil {
		return m.GenerateFlashcardBatchFn(ctx, content, numCards, useExternalKnowledge)
	}
	return nil, ErrNoScriptedResponse
}

// Name implements generation.Backend.
func (m *MockBackend) Name() string {
	return "mock"
}

// CompleteCalls returns how many times Complete was called.
func (m *MockBackend) CompleteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

// CompletePrompts returns a copy of the prompts passed to Complete.
func (m *MockBackend) CompletePrompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Prompts...)
}

// BatchCalls returns how many times GenerateFlashcardBatch was called.
func (m *MockBackend) BatchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.BatchContents)
}
