package store

import (
	"errors"
	"fmt"
)

// Sentinels shared by every TaskStore implementation. Callers test for them
// with errors.Is; implementations wrap them with detail.
var (
	ErrNotFound       = errors.New("entity not found")
	ErrDuplicate      = errors.New("entity already exists")
	ErrInvalidEntity  = errors.New("invalid entity")
	ErrStatusConflict = errors.New("status precondition failed")

	// ErrTaskNotFound is ErrNotFound for task lookups and writes.
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)
)

// IsNotFoundError reports whether err is, or wraps, ErrNotFound.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsStatusConflictError reports whether a conditional status write was
// rejected because the stored status did not match.
func IsStatusConflictError(err error) bool {
	return errors.Is(err, ErrStatusConflict)
}

// StoreError attaches the failing entity and operation to an error raised
// while reading or writing a record.
type StoreError struct {
	Entity    string
	Operation string
	Message   string
	Err       error
}

func (e *StoreError) Error() string {
	msg := e.Entity + " " + e.Operation + ": " + e.Message
	if e.Err == nil {
		return msg
	}
	return msg + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError builds a StoreError.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{Entity: entity, Operation: operation, Message: message, Err: err}
}
