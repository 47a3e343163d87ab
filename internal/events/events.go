package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mediaflow-api/internal/domain"
)

// EventType names what happened to a task.
type EventType string

// Task event types
const (
	// EventStatusChanged is emitted after a task moves to a new status.
	EventStatusChanged EventType = "task.status_changed"

	// EventRemoved is emitted after a task leaves the registry.
	EventRemoved EventType = "task.removed"
)

// TaskEvent describes a change to a single task.
type TaskEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	Type   EventType     `json:"type"`
	TaskID string        `json:"task_id"`
	Kind   domain.Kind   `json:"kind"`
	Status domain.Status `json:"status"`

	// Previous is the status before the change; empty for removals
	Previous domain.Status `json:"previous_status,omitempty"`

	Error *domain.TaskError `json:"error,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

// NewStatusChangedEvent builds the event for a task that moved from previous
// to its current status.
func NewStatusChangedEvent(task domain.Task, previous domain.Status, at time.Time) *TaskEvent {
	return &TaskEvent{
		ID:         uuid.New(),
		Type:       EventStatusChanged,
		TaskID:     task.ID,
		Kind:       task.Kind,
		Status:     task.Status,
		Previous:   previous,
		Error:      task.Error,
		OccurredAt: at,
	}
}

// NewRemovedEvent builds the event for a task that left the registry.
func NewRemovedEvent(task domain.Task, at time.Time) *TaskEvent {
	return &TaskEvent{
		ID:         uuid.New(),
		Type:       EventRemoved,
		TaskID:     task.ID,
		Kind:       task.Kind,
		Status:     task.Status,
		OccurredAt: at,
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// EventEmitter defines an interface for components that can emit events.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *TaskEvent) error
}

// HandlerFunc adapts a function to the EventHandler interface.
type HandlerFunc func(ctx context.Context, event *TaskEvent) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *TaskEvent) error {
	return f(ctx, event)
}

// NopEmitter drops every event.
type NopEmitter struct{}

// EmitEvent implements EventEmitter.
func (NopEmitter) EmitEvent(context.Context, *TaskEvent) error { return nil }
