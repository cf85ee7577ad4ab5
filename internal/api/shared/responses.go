package shared

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/phrazzld/relay-api/internal/platform/logger"
	"github.com/phrazzld/relay-api/internal/redact"
)

// ErrorResponse is the body of every non-2xx reply except task actions.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// RespondWithJSON encodes data as the response body.
func RespondWithJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromContext(r.Context()).Error("failed to encode JSON response", "error", err)
	}
}

func RespondWithError(w http.ResponseWriter, r *http.Request, status int, message string) {
	RespondWithErrorAndLog(w, r, status, message, nil)
}

// RespondWithErrorAndLog replies with userMessage only. The cause is logged
// after redaction: at ERROR for 5xx, at DEBUG otherwise.
func RespondWithErrorAndLog(w http.ResponseWriter, r *http.Request, status int, userMessage string, cause error) {
	ctx := r.Context()
	traceID := GetTraceID(ctx)

	level := slog.LevelDebug
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	log := logger.FromContext(ctx).With(
		"trace_id", traceID,
		"method", r.Method,
		"path", r.URL.Path,
		"status_code", status)
	if cause != nil {
		log = log.With("error", redact.Error(cause))
	}
	log.Log(ctx, level, "API error response", "user_message", userMessage)

	RespondWithJSON(w, r, status, ErrorResponse{Error: userMessage, TraceID: traceID})
}
