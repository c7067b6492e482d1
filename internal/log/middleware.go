package log

import (
	"context"
	"log/slog"
	"net/http"
)

// ContextKey type for context keys
type ContextKey string

// LoggerContextKey is the context key for the logger
const LoggerContextKey ContextKey = "logger"

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// StructuredLogger provides the service's recurring log lines.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogHTTPEnd logs a completed request at a level derived from the status.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	if statusCode >= 500 {
		level = slog.LevelError
	} else if statusCode >= 400 {
		level = slog.LevelWarn
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery).
		WithHTTPResponse(statusCode, durationMs).
		WithClientIP(clientIP)

	sl.logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogRecordWritten logs a successful ledger write.
func (sl *StructuredLogger) LogRecordWritten(ctx context.Context, entity, op, id string) {
	fields := NewFields().
		WithRecord(entity, id).
		WithOperation(op)

	sl.logger.InfoContext(ctx, "Ledger record written", fields.ToSlice()...)
}

// LogError logs an error with structured context. fields may be nil.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields.WithError(err).WithOperation(operation)
	sl.logger.ErrorContext(ctx, msg, fields.ToSlice()...)
}
