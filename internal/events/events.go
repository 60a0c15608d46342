package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Generation event types
const (
	// TypeSubmitted is emitted when a new generation task is accepted.
	TypeSubmitted = "generation.submitted"
	// TypeDuplicate is emitted when a submission is answered with an existing record.
	TypeDuplicate = "generation.duplicate"
	// TypeRecovered is emitted when an incomplete record left by a previous
	// process is queued again.
	TypeRecovered = "generation.recovered"
	// TypeCompleted is emitted when an image was written successfully.
	TypeCompleted = "generation.completed"
	// TypeCancelled is emitted when a task stopped because its token was set.
	TypeCancelled = "generation.cancelled"
	// TypeFailed is emitted when a task could not produce its image.
	TypeFailed = "generation.failed"
	// TypeInterrupted is emitted when shutdown stopped a task. Its record is
	// left incomplete and is recovered on the next start.
	TypeInterrupted = "generation.interrupted"
)

// GenerationEvent describes a change in the lifecycle of one generation record.
// It carries plain values so handlers do not depend on the task package.
type GenerationEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type* constants
	Type string `json:"type"`

	RecordID int64  `json:"record_id"`
	Kind     string `json:"kind"`
	Key      string `json:"key,omitempty"`

	// Duration is the time from submission to completion; zero until the task finishes.
	Duration time.Duration `json:"duration"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// NewGenerationEvent creates a GenerationEvent with a fresh ID and timestamp.
func NewGenerationEvent(eventType string, recordID int64, kind, key string) *GenerationEvent {
	return &GenerationEvent{
		ID:        uuid.New(),
		Type:      eventType,
		RecordID:  recordID,
		Kind:      kind,
		Key:       key,
		CreatedAt: time.Now(),
	}
}

// Terminal reports whether the event marks the end of a task in this process.
func (e *GenerationEvent) Terminal() bool {
	switch e.Type {
	case TypeCompleted, TypeCancelled, TypeFailed, TypeInterrupted:
		return true
	default:
		return false
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *GenerationEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows the runner to publish events without knowing the handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *GenerationEvent) error
}

// EventHandlerFunc adapts a function to the EventHandler interface.
type EventHandlerFunc func(ctx context.Context, event *GenerationEvent) error

// HandleEvent calls f(ctx, event).
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *GenerationEvent) error {
	return f(ctx, event)
}
