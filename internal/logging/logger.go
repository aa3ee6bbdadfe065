package logging

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"subscriptions-go/internal/telemetry"
)

type ContextLogger struct {
	*logrus.Logger
	service string
}

// New builds a JSON logger tagged with the service name. The sink is chosen by
// the caller so tests can discard output.
func New(service string, level logrus.Level, out io.Writer) *ContextLogger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	logger.SetOutput(out)
	logger.SetLevel(level)

	return &ContextLogger{Logger: logger, service: service}
}

// NewTestLogger writes to stdout when TEST_LOG is set and discards everything
// otherwise.
func NewTestLogger() *ContextLogger {
	var out io.Writer = io.Discard
	if _, ok := os.LookupEnv("TEST_LOG"); ok {
		out = os.Stdout
	}
	return New("test", logrus.DebugLevel, out)
}

// ParseLevel falls back to info for an empty or unknown level.
func ParseLevel(raw string) logrus.Level {
	level, err := logrus.ParseLevel(raw)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// WithTracing returns an entry carrying the service name and, when present on
// ctx, the trace, span and request ids.
func (l *ContextLogger) WithTracing(ctx context.Context) *logrus.Entry {
	fields := logrus.Fields{}
	if l.service != "" {
		fields["service"] = l.service
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields["trace_id"] = sc.TraceID().String()
		fields["span_id"] = sc.SpanID().String()
	}
	if requestID, ok := telemetry.RequestIDFromContext(ctx); ok {
		fields["request_id"] = requestID
	}
	return l.WithContext(ctx).WithFields(fields)
}

// logrus treats nil Fields as empty.
func (l *ContextLogger) traced(ctx context.Context, fields logrus.Fields) *logrus.Entry {
	return l.WithTracing(ctx).WithFields(fields)
}

func (l *ContextLogger) DebugWithTracing(ctx context.Context, msg string, fields logrus.Fields) {
	l.traced(ctx, fields).Debug(msg)
}

func (l *ContextLogger) InfoWithTracing(ctx context.Context, msg string, fields logrus.Fields) {
	l.traced(ctx, fields).Info(msg)
}

func (l *ContextLogger) WarnWithTracing(ctx context.Context, msg string, fields logrus.Fields) {
	l.traced(ctx, fields).Warn(msg)
}

// ErrorWithTracing attaches err under logrus' "error" key when it is non-nil.
func (l *ContextLogger) ErrorWithTracing(ctx context.Context, msg string, err error, fields logrus.Fields) {
	entry := l.traced(ctx, fields)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(msg)
}
