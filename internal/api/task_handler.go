package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/relay-api/internal/api/shared"
	"github.com/phrazzld/relay-api/internal/domain"
	"github.com/phrazzld/relay-api/internal/platform/logger"
	"github.com/phrazzld/relay-api/internal/task"
)

// TaskManager is the lifecycle API the task handlers drive.
type TaskManager interface {
	CreateAndStart(ctx context.Context, cfg domain.TaskConfig) (*domain.Task, error)
	Pause(ctx context.Context, id uuid.UUID) error
	Resume(ctx context.Context, id uuid.UUID) error
	Stop(ctx context.Context, id uuid.UUID) error
	Start(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetStatus(ctx context.Context, id uuid.UUID) (*task.TaskState, error)
	ListTasks(ctx context.Context, filter ...domain.TaskStatus) ([]task.TaskState, error)
}

var _ TaskManager = (*task.Manager)(nil)

// TaskHandler handles campaign task requests.
type TaskHandler struct {
	manager TaskManager
	actions map[string]func(context.Context, uuid.UUID) error
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(manager TaskManager) *TaskHandler {
	return &TaskHandler{
		manager: manager,
		actions: map[string]func(context.Context, uuid.UUID) error{
			"pause":  manager.Pause,
			"resume": manager.Resume,
			"stop":   manager.Stop,
			"start":  manager.Start,
		},
	}
}

// CreateTask handles POST /api/tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	created, err := h.manager.CreateAndStart(r.Context(), req.TaskConfig())
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).Info("task created via API", "task_id", created.ID)
	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(created, true))
}

// ListTasks handles GET /api/tasks with an optional comma separated
// status filter.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	var filter []domain.TaskStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status, err := domain.ParseTaskStatus(part)
			if err != nil {
				respondWithServiceError(w, r, err)
				return
			}
			filter = append(filter, status)
		}
	}

	states, err := h.manager.ListTasks(r.Context(), filter...)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	resp := TaskListResponse{Tasks: make([]TaskResponse, 0, len(states)), Count: len(states)}
	for _, s := range states {
		resp.Tasks = append(resp.Tasks, stateToResponse(s))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetTask handles GET /api/tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathUUID(w, r, "id")
	if !ok {
		return
	}

	state, err := h.manager.GetStatus(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, stateToResponse(*state))
}

// TaskAction handles POST /api/tasks/{id}/{action} for pause, resume, stop
// and start.
func (h *TaskHandler) TaskAction(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathUUID(w, r, "id")
	if !ok {
		return
	}

	action := chi.URLParam(r, "action")
	fn, ok := h.actions[action]
	if !ok {
		shared.RespondWithJSON(w, r, http.StatusBadRequest, ActionResponse{OK: false, Message: "Invalid action"})
		return
	}

	if err := fn(r.Context(), id); err != nil {
		status := MapErrorToStatusCode(err)
		if status >= http.StatusInternalServerError {
			respondWithServiceError(w, r, err)
			return
		}
		shared.RespondWithJSON(w, r, status, ActionResponse{OK: false, Message: GetSafeErrorMessage(err)})
		return
	}

	logger.FromContext(r.Context()).Info("task action applied", "task_id", id, "action", action)

	resp := ActionResponse{OK: true, Message: id.String() + " → " + action}
	if state, err := h.manager.GetStatus(r.Context(), id); err == nil {
		view := stateToResponse(*state)
		resp.Task = &view
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// DeleteTask handles DELETE /api/tasks/{id}.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.manager.Delete(r.Context(), id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).Info("task deleted via API", "task_id", id)
	w.WriteHeader(http.StatusNoContent)
}
