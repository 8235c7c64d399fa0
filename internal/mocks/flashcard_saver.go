package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/cardforge/internal/domain"
)

// SavedBatch is one call to MockFlashcardSaver.SaveFlashcards.
type SavedBatch struct {
	SubjectID uuid.UUID
	TaskID    uuid.UUID
	Cards     []domain.Flashcard
}

// MockFlashcardSaver records persisted batches.
type MockFlashcardSaver struct {
	// SaveFn allows test cases to mock the SaveFlashcards behavior
	SaveFn func(ctx context.Context, subjectID, taskID uuid.UUID, cards []domain.Flashcard) error

	mu      sync.Mutex
	batches []SavedBatch
}

// SaveFlashcards records the batch and delegates to SaveFn when set.
func (m *MockFlashcardSaver) SaveFlashcards(ctx context.Context, subjectID, taskID uuid.UUID, cards []domain.Flashcard) error {
	m.mu.Lock()
	m.batches = append(m.batches, SavedBatch{SubjectID: subjectID, TaskID: taskID, Cards: cards})
	m.mu.Unlock()

	if m.SaveFn != nil {
		return m.SaveFn(ctx, subjectID, taskID, cards)
	}
	return nil
}

// Batches returns a copy of the recorded batches.
func (m *MockFlashcardSaver) Batches() []SavedBatch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SavedBatch(nil), m.batches...)
}
