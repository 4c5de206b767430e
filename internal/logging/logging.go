// Package logging provides structured logging for the service.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	// TraceIDKey is the context key of the request trace id.
	TraceIDKey contextKey = "trace_id"
	// UserIDKey is the context key of the authenticated user id.
	UserIDKey contextKey = "user_id"
)

// Logger wraps logrus with service-level defaults.
type Logger struct {
	*logrus.Logger
	service string
}

// New creates a logger for service. level is a logrus level name and format
// is "json" or "text"; unknown values fall back to info and text.
func New(service, level, format string) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return &Logger{Logger: l, service: service}
}

// NewDefault creates an info-level text logger.
func NewDefault(service string) *Logger {
	return New(service, "info", "text")
}

// NewDiscard creates a logger that drops everything. Used by tests.
func NewDiscard() *Logger {
	l := New("test", "panic", "text")
	l.SetOutput(io.Discard)
	return l
}

// Service returns the service name attached to every entry.
func (l *Logger) Service() string {
	return l.service
}

// WithContext returns an entry carrying the service name and, when present,
// the trace and user ids stored in ctx.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Logger.WithField("service", l.service)
	if ctx == nil {
		return entry
	}
	if traceID := GetTraceID(ctx); traceID != "" {
		entry = entry.WithField("trace_id", traceID)
	}
	if userID, ok := ctx.Value(UserIDKey).(int64); ok {
		entry = entry.WithField("user_id", userID)
	}
	return entry
}

// LogRequest logs a completed HTTP request.
func (l *Logger) LogRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"status":      status,
		"duration_ms": duration.Milliseconds(),
	})
	switch {
	case status >= 500:
		entry.Error("HTTP request")
	case status >= 400:
		entry.Warn("HTTP request")
	default:
		entry.Info("HTTP request")
	}
}

// LogSecurityEvent logs an event worth auditing (rate limiting, failed auth).
func (l *Logger) LogSecurityEvent(ctx context.Context, event string, fields map[string]interface{}) {
	l.WithContext(ctx).WithFields(logrus.Fields(fields)).WithField("event", event).Warn("Security event")
}

// NewTraceID returns a fresh trace id.
func NewTraceID() string {
	return uuid.NewString()
}

// WithTraceID stores traceID in ctx.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		return ctx
	}
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID returns the trace id stored in ctx, or "".
func GetTraceID(ctx context.Context) string {
	if v, ok := ctx.Value(TraceIDKey).(string); ok {
		return v
	}
	return ""
}

// WithUserID stores the authenticated user id in ctx for log correlation.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}
