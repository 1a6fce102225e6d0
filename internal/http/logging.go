package http

import (
	"context"
	"log/slog"

	"github.com/example/event-roster/internal/logging"
)

// ContextWithLogger attaches the request scoped logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext returns the request scoped logger, if any.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

// loggerFor prefers the request scoped logger over the handler's own.
func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	if r.logger == nil {
		return slog.Default()
	}
	return r.logger
}

// handlerLogger tags the request logger with the handler and operation.
func (r responder) handlerLogger(ctx context.Context, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := r.loggerFor(ctx).With("handler", handlerName)
	if operation != "" {
		logger = logger.With("operation", operation)
	}
	if len(attrs) > 0 {
		logger = logger.With(attrs...)
	}
	return logger
}
