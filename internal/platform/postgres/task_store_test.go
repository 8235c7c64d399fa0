package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/cardforge/internal/platform/postgres"
	"github.com/phrazzld/cardforge/internal/store"
	"github.com/phrazzld/cardforge/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTask struct {
	id      uuid.UUID
	payload []byte
}

func (f *fakeTask) ID() uuid.UUID                     { return f.id }
func (f *fakeTask) Type() string                      { return task.TaskTypeGeneration }
func (f *fakeTask) Payload() []byte                   { return f.payload }
func (f *fakeTask) Status() task.TaskStatus           { return task.TaskStatusPending }
func (f *fakeTask) Execute(ctx context.Context) error { return nil }

func TestTaskStore_SaveTask(t *testing.T) {
	db, mock := newMockDB(t)
	s := postgres.NewPostgresTaskStore(db, nil)
	ft := &fakeTask{id: uuid.New(), payload: []byte(`{"subject_name":"Go"}`)}

	mock.ExpectExec("INSERT INTO tasks").
		WithArgs(ft.id, task.TaskTypeGeneration, ft.payload, "pending", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.SaveTask(context.Background(), ft))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStore_SaveTask_EmptyPayload(t *testing.T) {
	db, mock := newMockDB(t)
	s := postgres.NewPostgresTaskStore(db, nil)
	ft := &fakeTask{id: uuid.New()}

	mock.ExpectExec("INSERT INTO tasks").
		WithArgs(ft.id, task.TaskTypeGeneration, []byte("{}"), "pending", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.SaveTask(context.Background(), ft))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStore_SaveTask_Error(t *testing.T) {
	db, mock := newMockDB(t)
	s := postgres.NewPostgresTaskStore(db, nil)

	mock.ExpectExec("INSERT INTO tasks").WillReturnError(errors.New("disk full"))

	err := s.SaveTask(context.Background(), &fakeTask{id: uuid.New(), payload: []byte("{}")})
	assert.ErrorContains(t, err, "failed to save task to database")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStore_UpdateTaskStatus(t *testing.T) {
	t.Run("records error message", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := postgres.NewPostgresTaskStore(db, nil)
		id := uuid.New()

		mock.ExpectExec("UPDATE tasks").
			WithArgs("failed", sql.NullString{String: "model offline", Valid: true}, sqlmock.AnyArg(), id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.UpdateTaskStatus(context.Background(), id, task.TaskStatusFailed, "model offline"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stores null without message", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := postgres.NewPostgresTaskStore(db, nil)
		id := uuid.New()

		mock.ExpectExec("UPDATE tasks").
			WithArgs("completed", nil, sqlmock.AnyArg(), id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.UpdateTaskStatus(context.Background(), id, task.TaskStatusCompleted, ""))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown task", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := postgres.NewPostgresTaskStore(db, nil)

		mock.ExpectExec("UPDATE tasks").WillReturnResult(sqlmock.NewResult(0, 0))

		err := s.UpdateTaskStatus(context.Background(), uuid.New(), task.TaskStatusCompleted, "")
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestTaskStore_GetTask(t *testing.T) {
	db, mock := newMockDB(t)
	s := postgres.NewPostgresTaskStore(db, nil)
	id := uuid.New()
	created := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)
	updated := created.Add(time.Minute)

	rows := sqlmock.NewRows([]string{"id", "type", "payload", "status", "error_message", "created_at", "updated_at"}).
		AddRow(id.String(), task.TaskTypeGeneration, []byte(`{}`), "failed", "model offline", created, updated)
	mock.ExpectQuery("SELECT (.+) FROM tasks").WithArgs(id).WillReturnRows(rows)

	record, err := s.GetTask(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, record.ID)
	assert.Equal(t, task.TaskStatusFailed, record.Status)
	assert.Equal(t, "model offline", record.ErrorMessage)
	assert.Equal(t, []byte(`{}`), record.Payload)
	assert.Equal(t, updated, record.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStore_GetTask_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := postgres.NewPostgresTaskStore(db, nil)

	mock.ExpectQuery("SELECT (.+) FROM tasks").WillReturnError(sql.ErrNoRows)

	_, err := s.GetTask(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}
