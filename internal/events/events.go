package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventTypeImageGeneration requests dispatch of a batch of image
// generation tasks to the runner.
const EventTypeImageGeneration = "image_generation"

// DispatchEvent represents a request to dispatch background work after a
// batch has been committed. It carries the dispatch plan as an opaque
// payload so that services emitting events do not depend on the task
// package.
type DispatchEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type indicates the kind of work being requested
	Type string `json:"type"`

	// BatchID identifies the generation batch the event belongs to
	BatchID uuid.UUID `json:"batch_id"`

	// Payload contains the dispatch plan serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *DispatchEvent) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewDispatchEvent creates a new DispatchEvent with the given type,
// batch reference, and payload.
func NewDispatchEvent(eventType string, batchID uuid.UUID, payload interface{}) (*DispatchEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &DispatchEvent{
		ID:        uuid.New(),
		Type:      eventType,
		BatchID:   batchID,
		Payload:   payloadBytes,
		CreatedAt: time.Now(),
	}, nil
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *DispatchEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of
// handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *DispatchEvent) error
}
