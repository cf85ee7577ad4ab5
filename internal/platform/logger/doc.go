// Package logger provides structured logging functionality for the application.
//
// It builds a log/slog JSON logger with a configurable level, optionally
// mirrored to a size-rotated log file, and carries request-scoped loggers
// through context.Context.
package logger
