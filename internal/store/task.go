package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/relay-api/internal/domain"
)

// TaskUpdate is a partial update of a task record. Nil fields are left
// untouched.
type TaskUpdate struct {
	// Status replaces the persisted status when set
	Status *domain.TaskStatus

	// IfStatus, when non-empty, makes the update conditional on the current
	// persisted status being one of the listed values. A mismatch returns
	// ErrStatusConflict and nothing is written.
	IfStatus []domain.TaskStatus

	// Counters are merged with the persisted counters using a component-wise
	// maximum, so counters never decrease.
	Counters *domain.Counters
}

// StatusUpdate is a convenience constructor for a status-only update.
func StatusUpdate(status domain.TaskStatus, ifStatus ...domain.TaskStatus) TaskUpdate {
	return TaskUpdate{Status: &status, IfStatus: ifStatus}
}

// CountersUpdate is a convenience constructor for a counters-only update.
func CountersUpdate(counters domain.Counters) TaskUpdate {
	return TaskUpdate{Counters: &counters}
}

// TaskStore defines the interface for persisting campaign tasks.
// Implementations must be safe for concurrent use.
// Version: 1.0
type TaskStore interface {
	// Create persists a new task.
	// Returns ErrDuplicate if a task with the same ID already exists.
	Create(ctx context.Context, task *domain.Task) error

	// Get retrieves a task by its ID.
	// Returns ErrTaskNotFound if the task does not exist.
	Get(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// List returns tasks whose status is one of the given statuses, ordered
	// by creation time. With no statuses it returns every task.
	List(ctx context.Context, statuses ...domain.TaskStatus) ([]*domain.Task, error)

	// Update applies a partial update.
	// Returns ErrTaskNotFound if the task does not exist and
	// ErrStatusConflict if an IfStatus precondition does not hold.
	Update(ctx context.Context, id uuid.UUID, update TaskUpdate) error

	// Delete removes a task record.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}
