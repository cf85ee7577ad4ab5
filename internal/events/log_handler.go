package events

import (
	"context"
	"log/slog"
)

// LogHandler writes every event to a structured logger.
type LogHandler struct {
	logger *slog.Logger
}

var _ EventHandler = (*LogHandler)(nil)

// NewLogHandler creates a LogHandler. If logger is nil, a default logger will be used.
func NewLogHandler(logger *slog.Logger) *LogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogHandler{logger: logger.With("component", "task_events")}
}

// HandleEvent implements EventHandler.
func (h *LogHandler) HandleEvent(ctx context.Context, event *TaskEvent) error {
	level := slog.LevelDebug
	if event.Type == TypeStatusChanged {
		level = slog.LevelInfo
	}

	h.logger.Log(ctx, level, "task event",
		slog.String("event_type", event.Type),
		slog.String("task_id", event.TaskID.String()),
		slog.String("status", string(event.Status)),
		slog.Int64("messages_sent", event.MessagesSent),
		slog.Int64("failed_count", event.FailedCount))
	return nil
}
