package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cardforge/internal/events"
	"github.com/phrazzld/cardforge/internal/redact"
	"github.com/phrazzld/cardforge/internal/store"
)

// ErrNotCancellable is returned by Cancel for tasks that cannot be stopped.
var ErrNotCancellable = errors.New("task cannot be cancelled")

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount: 2,
		QueueSize:   32,
	}
}

// TaskRunner manages background task processing. It keeps every submitted
// task addressable by ID until the process exits.
type TaskRunner struct {
	store      TaskStore
	queue      *TaskQueue
	emitter    events.EventEmitter
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     TaskRunnerConfig
	logger     *slog.Logger
	errHandler func(task Task, err error)

	mu    sync.RWMutex
	tasks map[uuid.UUID]Task
}

// NewTaskRunner creates a new TaskRunner
func NewTaskRunner(store TaskStore, config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if config.WorkerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
		config.WorkerCount = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	logger = logger.With("component", "task_runner")

	return &TaskRunner{
		store:      store,
		queue:      NewTaskQueue(config.QueueSize, logger),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger,
		errHandler: func(task Task, err error) {
			logger.Error("task execution failed",
				"task_id", task.ID(),
				"task_type", task.Type(),
				"error", err)
		},
		tasks: make(map[uuid.UUID]Task),
	}
}

// SetErrorHandler allows setting a custom error handler function
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.errHandler = handler
}

// SetEmitter makes the runner publish a finished event for every task.
func (r *TaskRunner) SetEmitter(emitter events.EventEmitter) {
	r.emitter = emitter
}

// Submit saves task and queues it. A full queue marks the task failed and
// returns ErrQueueFull.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	if err := r.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	if err := r.queue.Enqueue(task); err != nil {
		if updateErr := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusFailed, err.Error()); updateErr != nil {
			r.logger.ErrorContext(ctx, "failed to mark rejected task as failed",
				"task_id", task.ID(),
				"error", updateErr)
		}
		return err
	}

	r.mu.Lock()
	r.tasks[task.ID()] = task
	r.mu.Unlock()
	return nil
}

// Get returns a submitted task.
func (r *TaskRunner) Get(id uuid.UUID) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[id]
	return task, ok
}

// Cancel stops a submitted task. Unknown IDs fail with
// store.ErrTaskNotFound.
func (r *TaskRunner) Cancel(id uuid.UUID) error {
	task, ok := r.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrTaskNotFound, id)
	}
	canceller, ok := task.(Canceller)
	if !ok {
		return ErrNotCancellable
	}
	canceller.Cancel()
	return nil
}

// Start launches the workers.
func (r *TaskRunner) Start() {
	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	r.logger.Info("task runner started", "worker_count", r.config.WorkerCount)
}

// Stop rejects new tasks, cancels the running ones and waits for the
// workers to exit. Tasks still queued are not run; they are recorded as
// cancelled, and cancellable ones are finished so their waiters return.
func (r *TaskRunner) Stop() {
	r.queue.Close()
	r.cancelFunc()
	r.wg.Wait()

	abandoned := 0
	for task := range r.queue.GetChannel() {
		r.abandon(task)
		abandoned++
	}
	r.logger.Info("task runner stopped", "abandoned_tasks", abandoned)
}

// abandon settles a task that was dequeued after the runner stopped.
func (r *TaskRunner) abandon(task Task) {
	ctx := context.WithoutCancel(r.ctx)
	logger := r.logger.With("task_id", task.ID(), "task_type", task.Type())

	if canceller, ok := task.(Canceller); ok {
		canceller.Cancel()
		if err := task.Execute(r.ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.WarnContext(ctx, "abandoned task did not settle as cancelled", "error", err)
		}
	}

	if err := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusCancelled, "task runner stopped"); err != nil {
		logger.ErrorContext(ctx, "failed to mark abandoned task as cancelled", "error", err)
	}
	logger.InfoContext(ctx, "queued task abandoned")
	r.emitFinished(ctx, task, TaskStatusCancelled, 0)
}

// worker processes tasks from the queue
func (r *TaskRunner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)
	tasks := r.queue.GetChannel()

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return

		case task, ok := <-tasks:
			if !ok {
				r.logger.Debug("task channel closed, stopping worker", "worker_id", id)
				return
			}
			if r.ctx.Err() != nil {
				r.abandon(task)
				return
			}
			r.processTask(task, id)
		}
	}
}

// processTask handles execution of a single task
func (r *TaskRunner) processTask(task Task, workerID int) {
	ctx := r.ctx
	logger := r.logger.With(
		"task_id", task.ID(),
		"task_type", task.Type(),
		"worker_id", workerID,
	)

	if err := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusProcessing, ""); err != nil {
		logger.ErrorContext(ctx, "failed to update task status to processing", "error", err)
	}

	logger.InfoContext(ctx, "processing task")
	start := time.Now()

	err := task.Execute(ctx)

	status := task.Status()
	if !status.IsTerminal() {
		status = TaskStatusCompleted
		if err != nil {
			status = TaskStatusFailed
		}
	}

	errorMsg := ""
	if err != nil {
		errorMsg = redact.Error(err)
		logger.ErrorContext(ctx, "task execution failed", "status", string(status), redact.ErrorAttr(err))
		r.errHandler(task, err)
	} else {
		logger.InfoContext(ctx, "task completed successfully")
	}

	// The run context may already be cancelled by Stop; the final status
	// is still recorded.
	storeCtx := context.WithoutCancel(ctx)
	if updateErr := r.store.UpdateTaskStatus(storeCtx, task.ID(), status, errorMsg); updateErr != nil {
		logger.ErrorContext(ctx, "failed to update final task status", "error", updateErr)
	}

	r.emitFinished(storeCtx, task, status, time.Since(start))
}

func (r *TaskRunner) emitFinished(ctx context.Context, task Task, status TaskStatus, elapsed time.Duration) {
	if r.emitter == nil {
		return
	}

	payload := events.GenerationFinished{
		TaskID:   task.ID(),
		Status:   string(status),
		Duration: elapsed.Seconds(),
	}
	if gt, ok := task.(*GenerationTask); ok {
		snap := gt.Snapshot()
		payload.SubjectID = snap.SubjectID
		if snap.Result != nil {
			payload.CardCount = len(snap.Result.Cards)
		}
	}

	event, err := events.NewEvent(events.TypeGenerationFinished, payload)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to create finished event", "task_id", task.ID(), "error", err)
		return
	}
	if err := r.emitter.EmitEvent(ctx, event); err != nil {
		r.logger.WarnContext(ctx, "finished event handler failed", "task_id", task.ID(), "error", err)
	}
}
