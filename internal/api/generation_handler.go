package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/phrazzld/cardforge/internal/api/shared"
	"github.com/phrazzld/cardforge/internal/events"
	"github.com/phrazzld/cardforge/internal/platform/logger"
	"github.com/phrazzld/cardforge/internal/store"
	"github.com/phrazzld/cardforge/internal/task"
)

// TaskRegistry exposes the in-process tasks. *task.TaskRunner satisfies it.
type TaskRegistry interface {
	Get(id uuid.UUID) (task.Task, bool)
	Cancel(id uuid.UUID) error
}

// TaskRecordReader reads persisted task records.
type TaskRecordReader interface {
	GetTask(ctx context.Context, taskID uuid.UUID) (task.TaskRecord, error)
}

type snapshotter interface {
	Snapshot() task.Snapshot
}

// GenerationHandler serves the /api/generations endpoints.
type GenerationHandler struct {
	emitter events.EventEmitter
	tasks   TaskRegistry
	records TaskRecordReader
	logger  *slog.Logger
}

// NewGenerationHandler creates a GenerationHandler. records may be nil; it
// is consulted for tasks no longer held in memory.
func NewGenerationHandler(
	emitter events.EventEmitter,
	tasks TaskRegistry,
	records TaskRecordReader,
	logger *slog.Logger,
) *GenerationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerationHandler{
		emitter: emitter,
		tasks:   tasks,
		records: records,
		logger:  logger.With("component", "generation_handler"),
	}
}

// CreateGeneration handles POST /api/generations. The run is queued through
// a generation requested event and processed asynchronously, so the
// response is 202 Accepted with the task ID to poll.
func (h *GenerationHandler) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContextOrDefault(ctx, h.logger)

	var body CreateGenerationRequest
	if err := shared.DecodeJSON(w, r, &body); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			shared.RespondWithErrorAndLog(w, r, http.StatusRequestEntityTooLarge, "Request body is too large", err)
			return
		}
		if errors.Is(err, shared.ErrEmptyBody) {
			HandleAPIError(w, r, err, "")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := shared.ValidateRequest(body); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	req := body.toDomain()
	if err := req.Validate(); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	taskID := uuid.New()
	event, err := events.NewEvent(events.TypeGenerationRequested, events.GenerationRequested{
		TaskID:  taskID,
		Request: req,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to start generation")
		return
	}

	if err := h.emitter.EmitEvent(ctx, event); err != nil {
		HandleAPIError(w, r, err, "Failed to start generation")
		return
	}

	if _, ok := h.tasks.Get(taskID); !ok {
		HandleAPIError(w, r, ErrWorkersUnavailable, "")
		return
	}

	log.InfoContext(ctx, "generation accepted",
		"task_id", taskID,
		"subject_id", req.SubjectID,
		"documents", len(req.Documents),
		"num_cards", req.NumCards,
		"use_rag", req.UseRAG)

	statusURL := "/api/generations/" + taskID.String()
	w.Header().Set("Location", statusURL)
	shared.RespondWithJSON(w, r, http.StatusAccepted, GenerationAcceptedResponse{
		TaskID:    taskID.String(),
		SubjectID: req.SubjectID.String(),
		Status:    string(task.TaskStatusPending),
		StatusURL: statusURL,
	})
}

// GetGeneration handles GET /api/generations/{id}.
func (h *GenerationHandler) GetGeneration(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if t, ok := h.tasks.Get(id); ok {
		shared.RespondWithJSON(w, r, http.StatusOK, h.describe(t))
		return
	}

	if h.records == nil {
		HandleAPIError(w, r, store.ErrTaskNotFound, "")
		return
	}

	record, err := h.records.GetTask(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load generation")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, recordToResponse(record))
}

// CancelGeneration handles DELETE /api/generations/{id}. Cancellation is
// asynchronous for running tasks: the response reflects the state at the
// time of the request.
func (h *GenerationHandler) CancelGeneration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContextOrDefault(ctx, h.logger)

	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.tasks.Cancel(id); err != nil {
		HandleAPIError(w, r, err, "Failed to cancel generation")
		return
	}
	log.InfoContext(ctx, "generation cancellation requested", "task_id", id)

	t, ok := h.tasks.Get(id)
	if !ok {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, h.describe(t))
}

func (h *GenerationHandler) describe(t task.Task) GenerationResponse {
	if s, ok := t.(snapshotter); ok {
		return snapshotToResponse(s.Snapshot())
	}
	return GenerationResponse{
		ID:     t.ID().String(),
		Status: string(t.Status()),
	}
}
