package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/relay-api/internal/delivery"
	"github.com/phrazzld/relay-api/internal/platform/memory"
	"github.com/phrazzld/relay-api/internal/task"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestManager returns a manager over a memory store whose sender
// accepts every message.
func newTestManager(t *testing.T, testMode bool) *task.Manager {
	t.Helper()

	sender := delivery.SenderFunc(func(context.Context, string, string, string) error { return nil })
	m := task.NewManager(memory.NewTaskStore(discardLogger()), sender, nil, task.ManagerConfig{
		PollInterval:    5 * time.Millisecond,
		RecoveryBackoff: 10 * time.Millisecond,
		TestMode:        testMode,
	}, discardLogger())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, m.Shutdown(ctx))
	})
	return m
}

func newTaskRouter(h *TaskHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/tasks", h.CreateTask)
	r.Get("/api/tasks", h.ListTasks)
	r.Get("/api/tasks/{id}", h.GetTask)
	r.Post("/api/tasks/{id}/{action}", h.TaskAction)
	r.Delete("/api/tasks/{id}", h.DeleteTask)
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
