package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cardforge/internal/domain"
)

// Event types.
const (
	// TypeGenerationRequested asks for a generation task to be created.
	TypeGenerationRequested = "generation.requested"
	// TypeGenerationFinished reports that a generation task reached a
	// terminal status.
	TypeGenerationFinished = "generation.finished"
)

// Event is a message passed between loosely coupled components. The
// payload is JSON so handlers do not depend on the emitter's types.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// GenerationRequested is the payload of TypeGenerationRequested. TaskID is
// chosen by the requester so it can poll the task right away.
type GenerationRequested struct {
	TaskID  uuid.UUID                `json:"task_id"`
	Request domain.GenerationRequest `json:"request"`
}

// GenerationFinished is the payload of TypeGenerationFinished.
type GenerationFinished struct {
	TaskID    uuid.UUID `json:"task_id"`
	SubjectID uuid.UUID `json:"subject_id"`
	Status    string    `json:"status"`
	CardCount int       `json:"card_count"`
	Duration  float64   `json:"duration_seconds"`
}

// NewEvent creates an Event with the given type and JSON-encoded payload.
func NewEvent(eventType string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   data,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// UnmarshalPayload decodes the event payload into v.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// EventHandler processes events. Handlers ignore types they do not know.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *Event) error
}

// EventEmitter publishes events to registered handlers.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *Event) error
}
