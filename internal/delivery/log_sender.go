package delivery

import (
	"context"
	"log/slog"

	"github.com/phrazzld/relay-api/internal/redact"
)

// LogSender is a dry-run Sender that only logs what it would deliver.
// It backs the "log" delivery driver.
type LogSender struct {
	logger *slog.Logger
}

var _ Sender = (*LogSender)(nil)

// NewLogSender creates a LogSender. If logger is nil, a default logger will be used.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger.With(slog.String("component", "log_sender"))}
}

// Send implements Sender. It fails only when ctx is already done.
func (s *LogSender) Send(ctx context.Context, credential, target, message string) error {
	if err := ctx.Err(); err != nil {
		return NetworkError(err)
	}
	s.logger.InfoContext(ctx, "message delivered",
		slog.String("credential", redact.Credential(credential)),
		slog.String("target", target),
		slog.Int("length", len(message)))
	return nil
}
