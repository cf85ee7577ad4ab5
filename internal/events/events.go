package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/relay-api/internal/domain"
)

// Event types
const (
	// TypeDeliverySucceeded is emitted after every accepted message
	TypeDeliverySucceeded = "delivery.succeeded"

	// TypeStatusChanged is emitted after every persisted status transition
	TypeStatusChanged = "status.changed"
)

// TaskEvent describes something that happened to one task.
type TaskEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	Type   string            `json:"type"`
	TaskID uuid.UUID         `json:"task_id"`
	Status domain.TaskStatus `json:"status"`

	MessagesSent int64 `json:"messages_sent"`
	FailedCount  int64 `json:"failed_count"`

	At time.Time `json:"at"`
}

// NewTaskEvent creates a TaskEvent stamped with a fresh ID and the current time.
func NewTaskEvent(eventType string, taskID uuid.UUID, status domain.TaskStatus, counters domain.Counters) *TaskEvent {
	return &TaskEvent{
		ID:           uuid.New(),
		Type:         eventType,
		TaskID:       taskID,
		Status:       status,
		MessagesSent: counters.MessagesSent,
		FailedCount:  counters.FailedCount,
		At:           time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// EventHandlerFunc adapts a function to the EventHandler interface.
type EventHandlerFunc func(ctx context.Context, event *TaskEvent) error

// HandleEvent implements EventHandler.
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *TaskEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows the task manager to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *TaskEvent) error
}
