// Package logger provides structured logging for the backend services.
package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type contextKey string

// Context keys for request-scoped log fields.
const (
	UserIDKey  contextKey = "user_id"
	TraceIDKey contextKey = "trace_id"
)

// LoggingConfig controls logger construction.
type LoggingConfig struct {
	Level  string
	Format string
	Output io.Writer
}

// Logger wraps a logrus entry with a component name.
type Logger struct {
	entry *logrus.Entry
}

// New creates a logger from the provided configuration.
func New(cfg LoggingConfig) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.Output != nil {
		l.SetOutput(cfg.Output)
	} else {
		l.SetOutput(os.Stdout)
	}

	return &Logger{entry: logrus.NewEntry(l)}
}

// NewDefault creates an info-level text logger tagged with a component name.
func NewDefault(component string) *Logger {
	log := New(LoggingConfig{Level: "info"})
	return log.WithField("component", component)
}

// WithField returns a logger with an extra field attached.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

// WithFields returns a logger with multiple extra fields attached.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

// WithError returns a logger with the error attached.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{entry: l.entry.WithError(err)}
}

// WithContext attaches request-scoped identifiers from the context, if set.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	entry := l.entry
	if v, ok := ctx.Value(UserIDKey).(string); ok && v != "" {
		entry = entry.WithField("user_id", v)
	}
	if v, ok := ctx.Value(TraceIDKey).(string); ok && v != "" {
		entry = entry.WithField("trace_id", v)
	}
	return &Logger{entry: entry}
}

func (l *Logger) Debug(args ...interface{})                 { l.entry.Debug(args...) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *Logger) Info(args ...interface{})                  { l.entry.Info(args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *Logger) Warn(args ...interface{})                  { l.entry.Warn(args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *Logger) Error(args ...interface{})                 { l.entry.Error(args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
func (l *Logger) Fatalf(format string, args ...interface{}) { l.entry.Fatalf(format, args...) }

// GetUserID extracts the authenticated user id from the context.
func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(UserIDKey).(string); ok {
		return v
	}
	return ""
}

// WithUserID stores the authenticated user id on the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetTraceID extracts the trace id from the context.
func GetTraceID(ctx context.Context) string {
	if v, ok := ctx.Value(TraceIDKey).(string); ok {
		return v
	}
	return ""
}

// WithTraceID stores the trace id on the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}
