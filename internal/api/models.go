package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/relay-api/internal/domain"
	"github.com/phrazzld/relay-api/internal/redact"
	"github.com/phrazzld/relay-api/internal/task"
)

// LoginRequest defines the payload for the admin login endpoint.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,max=72"`
}

// AuthResponse defines the successful response for the login endpoint.
type AuthResponse struct {
	// AccessToken is the JWT token used for API authorization
	AccessToken string `json:"token"`

	// ExpiresAt is the RFC 3339 timestamp when the access token expires
	ExpiresAt string `json:"expires_at"`
}

// CreateTaskRequest defines the payload for creating a campaign task.
type CreateTaskRequest struct {
	Messages    []string `json:"messages"    validate:"required,min=1,dive,required"`
	Credentials []string `json:"credentials" validate:"required,min=1,dive,required"`

	// IntervalSeconds is the pause between messages; fractions are allowed
	IntervalSeconds float64 `json:"interval_seconds" validate:"gte=0"`

	Prefix string `json:"prefix"`
	Target string `json:"target" validate:"required"`
	Cycles int    `json:"cycles" validate:"gte=0"`
}

// TaskConfig converts the request into a domain.TaskConfig.
func (r CreateTaskRequest) TaskConfig() domain.TaskConfig {
	return domain.TaskConfig{
		Messages:    r.Messages,
		Credentials: r.Credentials,
		Interval:    time.Duration(r.IntervalSeconds * float64(time.Second)),
		Prefix:      r.Prefix,
		Target:      r.Target,
		Cycles:      r.Cycles,
	}
}

// TaskResponse is the API view of a task. Credentials are masked.
type TaskResponse struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
	Live   bool      `json:"live"`

	Messages        []string `json:"messages"`
	Credentials     []string `json:"credentials"`
	IntervalSeconds float64  `json:"interval_seconds"`
	Prefix          string   `json:"prefix,omitempty"`
	Target          string   `json:"target"`
	Cycles          int      `json:"cycles"`

	MessagesSent int64 `json:"messages_sent"`
	FailedCount  int64 `json:"failed_count"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// TaskListResponse wraps a list of tasks.
type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
	Count int            `json:"count"`
}

// ActionResponse is returned by the task action endpoint.
type ActionResponse struct {
	OK      bool          `json:"ok"`
	Message string        `json:"msg"`
	Task    *TaskResponse `json:"task,omitempty"`
}

func taskToResponse(t *domain.Task, live bool) TaskResponse {
	return TaskResponse{
		ID:              t.ID,
		Status:          string(t.Status),
		Live:            live,
		Messages:        append([]string(nil), t.Config.Messages...),
		Credentials:     redact.Credentials(t.Config.Credentials),
		IntervalSeconds: t.Config.Interval.Seconds(),
		Prefix:          t.Config.Prefix,
		Target:          t.Config.Target,
		Cycles:          t.Config.Cycles,
		MessagesSent:    t.Counters.MessagesSent,
		FailedCount:     t.Counters.FailedCount,
		CreatedAt:       t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func stateToResponse(s task.TaskState) TaskResponse {
	return taskToResponse(s.Task, s.Live)
}
