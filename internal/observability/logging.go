// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
)

// ServiceLogger scopes logger to a named component.
func ServiceLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("component", component))
}

// LogAsyncOperationError logs a failure of a best-effort side operation,
// such as publishing an event after the main write committed.
func LogAsyncOperationError(ctx context.Context, logger *slog.Logger, operation string, err error, attrs ...any) {
	if logger == nil || err == nil {
		return
	}
	fields := append([]any{
		slog.String("operation", operation),
		slog.String("type", "async_error"),
		slog.String("error", err.Error()),
	}, attrs...)
	logger.ErrorContext(ctx, "async operation failed", fields...)
}
