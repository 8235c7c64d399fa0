package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/cardforge/internal/domain"
	"github.com/phrazzld/cardforge/internal/platform/postgres"
	"github.com/phrazzld/cardforge/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func sampleCards() []domain.Flashcard {
	return []domain.Flashcard{
		{Front: "What is a goroutine?", Back: "A lightweight thread", Difficulty: domain.DifficultyEasy, Tags: []string{"go"}},
		{Front: "What does select do?", Back: "Waits on channel operations", Difficulty: domain.DifficultyMedium},
	}
}

func TestNewPostgresFlashcardStore_NilDB(t *testing.T) {
	assert.Panics(t, func() { postgres.NewPostgresFlashcardStore(nil, nil) })
}

func TestFlashcardStore_CreateMultiple(t *testing.T) {
	db, mock := newMockDB(t)
	s := postgres.NewPostgresFlashcardStore(db, nil)
	subjectID, taskID := uuid.New(), uuid.New()

	mock.ExpectExec("INSERT INTO flashcards").
		WithArgs(sqlmock.AnyArg(), subjectID, taskID, 0, "What is a goroutine?", "A lightweight thread", "easy", []byte(`["go"]`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO flashcards").
		WithArgs(sqlmock.AnyArg(), subjectID, taskID, 1, "What does select do?", "Waits on channel operations", "medium", []byte(`[]`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	stored, err := s.CreateMultiple(context.Background(), subjectID, taskID, sampleCards())
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.NotEqual(t, uuid.Nil, stored[0].ID)
	assert.NotEqual(t, stored[0].ID, stored[1].ID)
	assert.Equal(t, subjectID, stored[1].SubjectID)
	assert.Equal(t, taskID, stored[1].TaskID)
	assert.Equal(t, []string{}, stored[1].Tags)
	assert.Equal(t, stored[0].CreatedAt, stored[1].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFlashcardStore_CreateMultiple_InvalidCardWritesNothing(t *testing.T) {
	db, mock := newMockDB(t)
	s := postgres.NewPostgresFlashcardStore(db, nil)

	cards := sampleCards()
	cards = append(cards, domain.Flashcard{Front: "  ", Back: "orphan", Difficulty: domain.DifficultyHard})

	_, err := s.CreateMultiple(context.Background(), uuid.New(), uuid.New(), cards)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
	assert.Contains(t, err.Error(), "card 2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFlashcardStore_CreateMultiple_RequiresSubject(t *testing.T) {
	db, _ := newMockDB(t)
	s := postgres.NewPostgresFlashcardStore(db, nil)

	_, err := s.CreateMultiple(context.Background(), uuid.Nil, uuid.New(), sampleCards())
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestFlashcardStore_CreateMultiple_Empty(t *testing.T) {
	db, mock := newMockDB(t)
	s := postgres.NewPostgresFlashcardStore(db, nil)

	stored, err := s.CreateMultiple(context.Background(), uuid.New(), uuid.New(), nil)
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFlashcardStore_CreateMultiple_MapsDatabaseErrors(t *testing.T) {
	db, mock := newMockDB(t)
	s := postgres.NewPostgresFlashcardStore(db, nil)

	mock.ExpectExec("INSERT INTO flashcards").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "flashcards_pkey"})

	_, err := s.CreateMultiple(context.Background(), uuid.New(), uuid.New(), sampleCards())
	assert.ErrorIs(t, err, store.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFlashcardStore_ListBySubject(t *testing.T) {
	db, mock := newMockDB(t)
	s := postgres.NewPostgresFlashcardStore(db, nil)
	subjectID, taskID := uuid.New(), uuid.New()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "subject_id", "task_id", "front", "back", "difficulty", "tags", "created_at"}).
		AddRow(uuid.New().String(), subjectID.String(), taskID.String(), "Q1", "A1", "hard", []byte(`["sql","joins"]`), created).
		AddRow(uuid.New().String(), subjectID.String(), taskID.String(), "Q2", "A2", "easy", []byte(`[]`), created)
	mock.ExpectQuery("SELECT (.+) FROM flashcards").WithArgs(subjectID).WillReturnRows(rows)

	cards, err := s.ListBySubject(context.Background(), subjectID)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "Q1", cards[0].Front)
	assert.Equal(t, domain.DifficultyHard, cards[0].Difficulty)
	assert.Equal(t, []string{"sql", "joins"}, cards[0].Tags)
	assert.Equal(t, subjectID, cards[1].SubjectID)
	assert.Equal(t, created, cards[1].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFlashcardStore_ListBySubject_Empty(t *testing.T) {
	db, mock := newMockDB(t)
	s := postgres.NewPostgresFlashcardStore(db, nil)
	subjectID := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM flashcards").WithArgs(subjectID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "subject_id", "task_id", "front", "back", "difficulty", "tags", "created_at"}))

	cards, err := s.ListBySubject(context.Background(), subjectID)
	require.NoError(t, err)
	assert.NotNil(t, cards)
	assert.Empty(t, cards)
}

func TestFlashcardStore_DeleteBySubject(t *testing.T) {
	db, mock := newMockDB(t)
	s := postgres.NewPostgresFlashcardStore(db, nil)
	subjectID := uuid.New()

	mock.ExpectExec("DELETE FROM flashcards").WithArgs(subjectID).WillReturnResult(sqlmock.NewResult(0, 3))

	deleted, err := s.DeleteBySubject(context.Background(), subjectID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchWriter_WithPostgresStore(t *testing.T) {
	t.Run("commits all cards", func(t *testing.T) {
		db, mock := newMockDB(t)
		writer, err := store.NewBatchWriter(db, postgres.NewPostgresFlashcardStore(db, nil))
		require.NoError(t, err)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO flashcards").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO flashcards").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err = writer.SaveFlashcards(context.Background(), uuid.New(), uuid.New(), sampleCards())
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on insert failure", func(t *testing.T) {
		db, mock := newMockDB(t)
		writer, err := store.NewBatchWriter(db, postgres.NewPostgresFlashcardStore(db, nil))
		require.NoError(t, err)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO flashcards").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO flashcards").WillReturnError(errors.New("connection lost"))
		mock.ExpectRollback()

		err = writer.SaveFlashcards(context.Background(), uuid.New(), uuid.New(), sampleCards())
		assert.ErrorContains(t, err, "connection lost")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
