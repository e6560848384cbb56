package service

import (
	"context"
	"log/slog"

	"github.com/scopewise/estimation-backend/internal/api/http/middleware"
)

// Logger provides structured logging for services
type Logger struct {
	base      *slog.Logger
	requestID string
}

// NewLogger creates a logger with request context
func NewLogger(ctx context.Context, base *slog.Logger) *Logger {
	if base == nil {
		base = slog.Default()
	}
	requestID := middleware.GetRequestID(ctx)
	if requestID == "" {
		requestID = "unknown"
	}
	return &Logger{base: base, requestID: requestID}
}

func (l *Logger) with(operation string) *slog.Logger {
	return l.base.With("request_id", l.requestID, "operation", operation)
}

// LogError logs an error with context
func (l *Logger) LogError(operation string, err error, args ...any) {
	l.with(operation).Error(err.Error(), args...)
}

func (l *Logger) LogInfo(operation, message string, args ...any) {
	l.with(operation).Info(message, args...)
}

func (l *Logger) LogWarn(operation, message string, args ...any) {
	l.with(operation).Warn(message, args...)
}

func (l *Logger) LogDebug(operation, message string, args ...any) {
	l.with(operation).Debug(message, args...)
}
