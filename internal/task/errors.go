package task

import "errors"

var (
	// ErrNotFound is returned when no task record exists for the id.
	ErrNotFound = errors.New("task not found")

	// ErrNotRunning is returned when a control operation needs a live
	// execution unit and the task has none.
	ErrNotRunning = errors.New("task is not running")

	// ErrAlreadyRunning is returned when a task already has a registered
	// execution unit, including one that is still shutting down.
	ErrAlreadyRunning = errors.New("task is already running")

	// ErrClosed is returned by operations attempted after Shutdown.
	ErrClosed = errors.New("task manager is shut down")
)

// Internal unit exit reasons
var (
	errStopped = errors.New("execution unit stopped")
	errDeleted = errors.New("task record deleted")
)
