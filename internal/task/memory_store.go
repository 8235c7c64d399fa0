package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cardforge/internal/store"
)

// MemoryTaskStore is a TaskStore kept in process memory, used when no
// database is configured.
type MemoryTaskStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]TaskRecord
	now     func() time.Time
}

var _ TaskStore = (*MemoryTaskStore)(nil)

// NewMemoryTaskStore creates an empty MemoryTaskStore.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{
		records: make(map[uuid.UUID]TaskRecord),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SaveTask stores a new record for task. Saving an ID twice fails with
// store.ErrDuplicate.
func (s *MemoryTaskStore) SaveTask(ctx context.Context, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[task.ID()]; exists {
		return fmt.Errorf("%w: task %s", store.ErrDuplicate, task.ID())
	}
	now := s.now()
	s.records[task.ID()] = TaskRecord{
		ID:        task.ID(),
		Type:      task.Type(),
		Payload:   task.Payload(),
		Status:    task.Status(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// UpdateTaskStatus updates a stored record. Unknown IDs fail with
// store.ErrTaskNotFound.
func (s *MemoryTaskStore) UpdateTaskStatus(
	ctx context.Context,
	taskID uuid.UUID,
	status TaskStatus,
	errorMsg string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.records[taskID]
	if !exists {
		return fmt.Errorf("%w: %s", store.ErrTaskNotFound, taskID)
	}
	record.Status = status
	record.ErrorMessage = errorMsg
	record.UpdatedAt = s.now()
	s.records[taskID] = record
	return nil
}

// GetTask returns the stored record of a task.
func (s *MemoryTaskStore) GetTask(ctx context.Context, taskID uuid.UUID) (TaskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.records[taskID]
	if !exists {
		return TaskRecord{}, fmt.Errorf("%w: %s", store.ErrTaskNotFound, taskID)
	}
	return record, nil
}
