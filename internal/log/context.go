package log

import (
	"context"
	"log/slog"
)

type contextKey string

const loggerContextKey contextKey = "logger"

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// FromContext extracts a logger from the context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// StructuredLogger provides structured logging methods for outbound calls and mutations
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogRequestEnd logs the completion of an outbound HTTP request
func (sl *StructuredLogger) LogRequestEnd(ctx context.Context, requestID, method, path string, statusCode int, durationMs int64) {
	level := slog.LevelDebug
	if statusCode >= 400 && statusCode < 500 {
		level = slog.LevelWarn
	} else if statusCode >= 500 || statusCode == 0 {
		level = slog.LevelError
	}

	fields := NewFields().
		WithRequestID(requestID).
		WithHTTPRequest(method, path).
		WithHTTPResponse(statusCode, durationMs, statusCode > 0 && statusCode < 400)

	sl.logger.LogContext(ctx, level, "Remote request completed", fields.ToSlice()...)
}

// LogMutation logs the final outcome of an optimistic mutation
func (sl *StructuredLogger) LogMutation(ctx context.Context, scope, id, outcome string, err error) {
	fields := NewFields().
		WithEntity(scope, id).
		WithOutcome(outcome).
		WithError(err)

	if err != nil {
		sl.logger.WarnContext(ctx, "Mutation rolled back", fields.ToSlice()...)
		return
	}
	sl.logger.InfoContext(ctx, "Mutation committed", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithOperation(operation)

	sl.logger.ErrorContext(ctx, msg, allFields.ToSlice()...)
}
