package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cardforge/internal/domain"
	"github.com/phrazzld/cardforge/internal/orchestrator"
)

// Common errors
var (
	ErrNilGenerator = errors.New("generator cannot be nil")
	ErrNilLogger    = errors.New("logger cannot be nil")
	ErrEmptyTaskID  = errors.New("task ID cannot be empty")
)

// DefaultMessageBuffer is the capacity of a task's message channel.
const DefaultMessageBuffer = 64

// Generator runs one generation request. *orchestrator.Orchestrator
// satisfies it.
type Generator interface {
	Run(ctx context.Context, req domain.GenerationRequest, progress orchestrator.ProgressFunc) (orchestrator.Result, error)
}

// FlashcardSaver persists the cards of a finished run.
type FlashcardSaver interface {
	SaveFlashcards(ctx context.Context, subjectID, taskID uuid.UUID, cards []domain.Flashcard) error
}

// MessageKind distinguishes the messages a task publishes.
type MessageKind string

// Message kinds. Every task publishes zero or more progress messages and
// then exactly one result or error message.
const (
	MessageProgress MessageKind = "progress"
	MessageResult   MessageKind = "result"
	MessageError    MessageKind = "error"
)

// Message is published on a task's message channel. For failures Error is
// the user-facing explanation and Err the underlying error.
type Message struct {
	TaskID   uuid.UUID             `json:"task_id"`
	Kind     MessageKind           `json:"kind"`
	Progress orchestrator.Progress `json:"progress"`
	Result   *orchestrator.Result  `json:"result,omitempty"`
	Error    string                `json:"error,omitempty"`
	Err      error                 `json:"-"`
}

// Snapshot is a point-in-time view of a task.
type Snapshot struct {
	ID        uuid.UUID             `json:"id"`
	SubjectID uuid.UUID             `json:"subject_id"`
	Status    TaskStatus            `json:"status"`
	Progress  orchestrator.Progress `json:"progress"`
	Result    *orchestrator.Result  `json:"result,omitempty"`
	Error     string                `json:"error,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// GenerationTask runs one generation request in the background. Progress,
// the result and failures are published on Messages and also kept for
// Snapshot.
type GenerationTask struct {
	id        uuid.UUID
	request   domain.GenerationRequest
	generator Generator
	saver     FlashcardSaver
	logger    *slog.Logger
	messages  chan Message
	done      chan struct{}
	createdAt time.Time

	mu        sync.Mutex
	status    TaskStatus
	progress  orchestrator.Progress
	result    *orchestrator.Result
	err       error
	cancel    context.CancelFunc
	cancelled bool
	updatedAt time.Time
}

var (
	_ Task      = (*GenerationTask)(nil)
	_ Canceller = (*GenerationTask)(nil)
)

// NewGenerationTask creates a pending task for req. saver may be nil when
// storage is disabled. An invalid request fails with
// domain.ErrInvalidRequest.
func NewGenerationTask(
	id uuid.UUID,
	req domain.GenerationRequest,
	generator Generator,
	saver FlashcardSaver,
	logger *slog.Logger,
	bufferSize int,
) (*GenerationTask, error) {
	if id == uuid.Nil {
		return nil, ErrEmptyTaskID
	}
	if generator == nil {
		return nil, ErrNilGenerator
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	// One slot is always kept free for the final message.
	if bufferSize < 2 {
		bufferSize = DefaultMessageBuffer
	}

	now := time.Now().UTC()
	return &GenerationTask{
		id:        id,
		request:   req,
		generator: generator,
		saver:     saver,
		logger:    logger.With("task_type", TaskTypeGeneration, "task_id", id, "subject_id", req.SubjectID),
		messages:  make(chan Message, bufferSize),
		done:      make(chan struct{}),
		createdAt: now,
		status:    TaskStatusPending,
		updatedAt: now,
	}, nil
}

// ID returns the task's unique identifier
func (t *GenerationTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *GenerationTask) Type() string {
	return TaskTypeGeneration
}

// Payload returns the request with document contents omitted, which is
// what the task store keeps.
func (t *GenerationTask) Payload() []byte {
	summary := t.request
	summary.Documents = make([]domain.Document, len(t.request.Documents))
	for i, doc := range t.request.Documents {
		summary.Documents[i] = domain.Document{ID: doc.ID, Name: doc.Name}
	}

	data, err := json.Marshal(summary)
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}
	return data
}

// Status returns the current task status
func (t *GenerationTask) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Messages returns the channel the task publishes on. It is closed after
// the final result or error message.
func (t *GenerationTask) Messages() <-chan Message {
	return t.messages
}

// Done is closed once the task reaches a terminal status.
func (t *GenerationTask) Done() <-chan struct{} {
	return t.done
}

// Snapshot returns the task's current state.
func (t *GenerationTask) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		ID:        t.id,
		SubjectID: t.request.SubjectID,
		Status:    t.status,
		Progress:  t.progress,
		Result:    t.result,
		CreatedAt: t.createdAt,
		UpdatedAt: t.updatedAt,
	}
	if t.err != nil {
		snap.Error = orchestrator.UserMessage(t.err)
	}
	return snap
}

// Cancel stops the task. A pending task will not run; a running task has
// its context cancelled and stops at the next document or topic.
func (t *GenerationTask) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status.IsTerminal() || t.cancelled {
		return
	}
	t.cancelled = true
	if t.cancel != nil {
		t.cancel()
	}
	t.logger.Info("generation task cancellation requested", "status", string(t.status))
}

// Execute runs the generation and, on success, persists the cards. The
// cards are saved only after the whole run has finished.
func (t *GenerationTask) Execute(ctx context.Context) error {
	t.mu.Lock()
	if t.status != TaskStatusPending {
		t.mu.Unlock()
		return fmt.Errorf("task %s already %s", t.id, t.status)
	}
	if t.cancelled {
		t.mu.Unlock()
		t.finish(orchestrator.Result{}, context.Canceled)
		return context.Canceled
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	t.cancel = cancel
	t.status = TaskStatusProcessing
	t.updatedAt = time.Now().UTC()
	t.mu.Unlock()

	t.logger.InfoContext(ctx, "starting generation task",
		"num_cards", t.request.NumCards,
		"use_rag", t.request.UseRAG)

	result, err := t.generator.Run(runCtx, t.request, t.onProgress)
	if err == nil && t.saver != nil {
		if saveErr := t.saver.SaveFlashcards(ctx, t.request.SubjectID, t.id, result.Cards); saveErr != nil {
			err = fmt.Errorf("failed to save flashcards: %w", saveErr)
		}
	}

	t.finish(result, err)
	return err
}

func (t *GenerationTask) onProgress(p orchestrator.Progress) {
	t.mu.Lock()
	t.progress = p
	t.updatedAt = time.Now().UTC()
	t.mu.Unlock()

	// Progress is dropped rather than blocking the run when nobody reads;
	// the last slot stays free for the final message.
	if len(t.messages) < cap(t.messages)-1 {
		t.messages <- Message{TaskID: t.id, Kind: MessageProgress, Progress: p}
	}
}

func (t *GenerationTask) finish(result orchestrator.Result, err error) {
	t.mu.Lock()
	t.updatedAt = time.Now().UTC()
	var msg Message
	switch {
	case err == nil:
		t.status = TaskStatusCompleted
		t.result = &result
		msg = Message{TaskID: t.id, Kind: MessageResult, Progress: t.progress, Result: t.result}
	case errors.Is(err, context.Canceled) && t.cancelled:
		t.status = TaskStatusCancelled
		t.err = err
		msg = Message{TaskID: t.id, Kind: MessageError, Progress: t.progress, Error: orchestrator.UserMessage(err), Err: err}
	default:
		t.status = TaskStatusFailed
		t.err = err
		msg = Message{TaskID: t.id, Kind: MessageError, Progress: t.progress, Error: orchestrator.UserMessage(err), Err: err}
	}
	status := t.status
	t.mu.Unlock()

	t.messages <- msg
	close(t.messages)
	close(t.done)

	if err != nil {
		t.logger.Warn("generation task finished with error", "status", string(status), "error", err)
		return
	}
	t.logger.Info("generation task completed", "card_count", len(result.Cards))
}
