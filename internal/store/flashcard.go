package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cardforge/internal/domain"
)

// StoredFlashcard is a flashcard persisted for a subject.
type StoredFlashcard struct {
	ID        uuid.UUID `json:"id"`
	SubjectID uuid.UUID `json:"subject_id"`
	TaskID    uuid.UUID `json:"task_id"`
	domain.Flashcard
	CreatedAt time.Time `json:"created_at"`
}

// FlashcardStore persists generated flashcards grouped by subject.
type FlashcardStore interface {
	// CreateMultiple stores cards produced by one generation task. It fails
	// with ErrInvalidEntity if any card does not validate.
	CreateMultiple(ctx context.Context, subjectID, taskID uuid.UUID, cards []domain.Flashcard) ([]StoredFlashcard, error)

	// ListBySubject returns the subject's flashcards, oldest first.
	ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]StoredFlashcard, error)

	// DeleteBySubject removes every flashcard of a subject and returns how
	// many were deleted.
	DeleteBySubject(ctx context.Context, subjectID uuid.UUID) (int64, error)

	// WithTx returns a FlashcardStore bound to tx.
	WithTx(tx *sql.Tx) FlashcardStore
}

// BatchWriter stores a finished generation batch atomically.
type BatchWriter struct {
	db         *sql.DB
	flashcards FlashcardStore
}

// NewBatchWriter creates a BatchWriter.
func NewBatchWriter(db *sql.DB, flashcards FlashcardStore) (*BatchWriter, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if flashcards == nil {
		return nil, errors.New("flashcard store cannot be nil")
	}
	return &BatchWriter{db: db, flashcards: flashcards}, nil
}

// SaveFlashcards writes cards in a single transaction, so a failed batch
// leaves nothing behind.
func (w *BatchWriter) SaveFlashcards(ctx context.Context, subjectID, taskID uuid.UUID, cards []domain.Flashcard) error {
	return RunInTransaction(ctx, w.db, func(ctx context.Context, tx *sql.Tx) error {
		_, err := w.flashcards.WithTx(tx).CreateMultiple(ctx, subjectID, taskID, cards)
		return err
	})
}
