package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/cardforge/internal/domain"
	"github.com/phrazzld/cardforge/internal/events"
)

// TaskFactoryEventHandler turns generation request events into queued
// tasks.
type TaskFactoryEventHandler struct {
	taskFactory interface {
		CreateTask(id uuid.UUID, req domain.GenerationRequest) (*GenerationTask, error)
	}
	taskRunner interface {
		Submit(ctx context.Context, task Task) error
	}
	logger *slog.Logger
}

// NewTaskFactoryEventHandler creates a new event handler that uses the given task factory
// to create tasks, and submits them to the provided task runner.
func NewTaskFactoryEventHandler(
	taskFactory interface {
		CreateTask(id uuid.UUID, req domain.GenerationRequest) (*GenerationTask, error)
	},
	taskRunner interface {
		Submit(ctx context.Context, task Task) error
	},
	logger *slog.Logger,
) *TaskFactoryEventHandler {
	return &TaskFactoryEventHandler{
		taskFactory: taskFactory,
		taskRunner:  taskRunner,
		logger:      logger.With("component", "task_factory_event_handler"),
	}
}

// HandleEvent creates and submits a task for a generation request event.
// Other event types are ignored.
func (h *TaskFactoryEventHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.TypeGenerationRequested {
		h.logger.DebugContext(ctx, "ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload events.GenerationRequested
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.ErrorContext(ctx, "failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	task, err := h.taskFactory.CreateTask(payload.TaskID, payload.Request)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to create task",
			"error", err,
			"task_id", payload.TaskID,
			"event_id", event.ID)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.taskRunner.Submit(ctx, task); err != nil {
		h.logger.ErrorContext(ctx, "failed to submit task",
			"error", err,
			"task_id", task.ID(),
			"event_id", event.ID)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.InfoContext(ctx, "task created and submitted successfully",
		"task_id", task.ID(),
		"subject_id", payload.Request.SubjectID,
		"event_id", event.ID)
	return nil
}

var _ events.EventHandler = (*TaskFactoryEventHandler)(nil)
