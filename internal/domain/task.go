package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a campaign task
type TaskStatus string

// Possible task status values
const (
	TaskStatusRunning TaskStatus = "running"
	TaskStatusPaused  TaskStatus = "paused"
	TaskStatusStopped TaskStatus = "stopped"
	TaskStatusFailed  TaskStatus = "failed"
)

// ActiveStatuses lists the statuses whose tasks own a live execution unit.
var ActiveStatuses = []TaskStatus{TaskStatusRunning, TaskStatusPaused, TaskStatusFailed}

// IsValid reports whether s is one of the known task statuses.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusRunning, TaskStatusPaused, TaskStatusStopped, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// ParseTaskStatus converts a string to a TaskStatus, case-insensitively.
func ParseTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidTaskStatus, s)
	}
	return status, nil
}

// TaskConfig is the immutable campaign definition captured at creation.
type TaskConfig struct {
	// Messages are sent in order, one full pass per cycle
	Messages []string `json:"messages"`

	// Credentials are tried in order for every message
	Credentials []string `json:"credentials"`

	// Interval is the pause between consecutive messages
	Interval time.Duration `json:"interval"`

	// Prefix is prepended to every message when non-empty
	Prefix string `json:"prefix,omitempty"`

	// Target identifies the channel or chat the messages are delivered to
	Target string `json:"target"`

	// Cycles bounds the number of passes over Messages. Zero repeats forever.
	Cycles int `json:"cycles,omitempty"`
}

// Validate checks the configuration. allowZeroInterval relaxes the interval
// rule for test mode; negative intervals are always rejected.
func (c TaskConfig) Validate(allowZeroInterval bool) error {
	switch {
	case c.Interval < 0, c.Interval == 0 && !allowZeroInterval:
		return fmt.Errorf("%w: interval must be positive, got %s", ErrInvalidConfig, c.Interval)
	case len(c.Messages) == 0:
		return fmt.Errorf("%w: at least one message is required", ErrInvalidConfig)
	case len(c.Credentials) == 0:
		return fmt.Errorf("%w: at least one credential is required", ErrInvalidConfig)
	case strings.TrimSpace(c.Target) == "":
		return fmt.Errorf("%w: target is required", ErrInvalidConfig)
	case c.Cycles < 0:
		return fmt.Errorf("%w: cycles cannot be negative", ErrInvalidConfig)
	}

	for i, m := range c.Messages {
		if strings.TrimSpace(m) == "" {
			return fmt.Errorf("%w: message %d is empty", ErrInvalidConfig, i)
		}
	}
	for i, cred := range c.Credentials {
		if strings.TrimSpace(cred) == "" {
			return fmt.Errorf("%w: credential %d is empty", ErrInvalidConfig, i)
		}
	}

	return nil
}

// AttemptsPerCycle is the number of delivery attempts in one full pass.
func (c TaskConfig) AttemptsPerCycle() int {
	return len(c.Messages) * len(c.Credentials)
}

// Render builds the outgoing text for a message.
func (c TaskConfig) Render(message string) string {
	if c.Prefix == "" {
		return message
	}
	return c.Prefix + message
}

// Clone returns a deep copy so callers cannot mutate a stored config.
func (c TaskConfig) Clone() TaskConfig {
	out := c
	out.Messages = append([]string(nil), c.Messages...)
	out.Credentials = append([]string(nil), c.Credentials...)
	return out
}

// Counters are the delivery statistics of a task. They are only ever
// written by the task's own execution unit.
type Counters struct {
	MessagesSent int64 `json:"messages_sent"`
	FailedCount  int64 `json:"failed_count"`

	// Cursor is the position of the next attempt across all passes:
	// cycle*AttemptsPerCycle + message*len(Credentials) + credential.
	Cursor int64 `json:"cursor"`
}

// Attempts returns the number of delivery attempts accounted for.
func (c Counters) Attempts() int64 {
	return c.MessagesSent + c.FailedCount
}

// Merge returns the component-wise maximum of c and other, which keeps
// counters monotonic when writes are replayed.
func (c Counters) Merge(other Counters) Counters {
	return Counters{
		MessagesSent: max(c.MessagesSent, other.MessagesSent),
		FailedCount:  max(c.FailedCount, other.FailedCount),
		Cursor:       max(c.Cursor, other.Cursor),
	}
}

// Task is one durable campaign record
type Task struct {
	ID        uuid.UUID  `json:"id"`
	Config    TaskConfig `json:"config"`
	Status    TaskStatus `json:"status"`
	Counters  Counters   `json:"counters"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewTask creates a running Task with zero counters.
// Returns an error wrapping ErrInvalidConfig if validation fails.
func NewTask(cfg TaskConfig, allowZeroInterval bool) (*Task, error) {
	if err := cfg.Validate(allowZeroInterval); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Task{
		ID:        uuid.New(),
		Config:    cfg.Clone(),
		Status:    TaskStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	out := *t
	out.Config = t.Config.Clone()
	return &out
}
