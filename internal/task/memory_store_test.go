package task

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cardforge/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTaskStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryTaskStore()
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	task := newMockTask()
	require.NoError(t, s.SaveTask(ctx, task))
	assert.ErrorIs(t, s.SaveTask(ctx, task), store.ErrDuplicate)

	record, err := s.GetTask(ctx, task.ID())
	require.NoError(t, err)
	assert.Equal(t, TaskStatusPending, record.Status)
	assert.Equal(t, "mock", record.Type)
	assert.Equal(t, []byte("test payload"), record.Payload)

	clock = clock.Add(time.Minute)
	require.NoError(t, s.UpdateTaskStatus(ctx, task.ID(), TaskStatusFailed, "boom"))

	record, err = s.GetTask(ctx, task.ID())
	require.NoError(t, err)
	assert.Equal(t, TaskStatusFailed, record.Status)
	assert.Equal(t, "boom", record.ErrorMessage)
	assert.True(t, record.UpdatedAt.After(record.CreatedAt))

	unknown := uuid.New()
	assert.ErrorIs(t, s.UpdateTaskStatus(ctx, unknown, TaskStatusCompleted, ""), store.ErrTaskNotFound)
	_, err = s.GetTask(ctx, unknown)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTaskStatusIsTerminal(t *testing.T) {
	assert.False(t, TaskStatusPending.IsTerminal())
	assert.False(t, TaskStatusProcessing.IsTerminal())
	assert.True(t, TaskStatusCompleted.IsTerminal())
	assert.True(t, TaskStatusFailed.IsTerminal())
	assert.True(t, TaskStatusCancelled.IsTerminal())
}
