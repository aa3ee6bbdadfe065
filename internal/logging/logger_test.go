package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subscriptions-go/internal/config"
	"subscriptions-go/internal/telemetry"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestWithTracing_AddsSpanAndRequestFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New("subscriptions-api", logrus.InfoLevel, &buf)

	recorder := telemetry.NewSpanRecorder()
	tp := telemetry.InitTestTracing("subscriptions-api", "test", recorder)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "request")
	defer span.End()
	ctx = telemetry.ContextWithRequestID(ctx, "req-42")

	logger.InfoWithTracing(ctx, "Saving new subscriber details in the database", logrus.Fields{
		"subscriber_email": "ursula@example.com",
	})

	line := decodeLine(t, &buf)
	assert.Equal(t, "Saving new subscriber details in the database", line["message"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "subscriptions-api", line["service"])
	assert.Equal(t, span.SpanContext().TraceID().String(), line["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), line["span_id"])
	assert.Equal(t, "req-42", line["request_id"])
	assert.Equal(t, "ursula@example.com", line["subscriber_email"])
	assert.Contains(t, line, "timestamp")
}

func TestWithTracing_WithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	logger := New("subscriptions-api", logrus.InfoLevel, &buf)

	logger.WarnWithTracing(context.Background(), "no span", nil)

	line := decodeLine(t, &buf)
	assert.NotContains(t, line, "trace_id")
	assert.NotContains(t, line, "request_id")
}

func TestErrorWithTracing_IncludesError(t *testing.T) {
	var buf bytes.Buffer
	logger := New("subscriptions-api", logrus.InfoLevel, &buf)

	logger.ErrorWithTracing(context.Background(), "Failed to execute query", errors.New("connection refused"), nil)

	line := decodeLine(t, &buf)
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "connection refused", line["error"])
}

func TestLoggedSettingsNeverContainPassword(t *testing.T) {
	var buf bytes.Buffer
	logger := New("subscriptions-api", logrus.InfoLevel, &buf)

	settings := config.DatabaseSettings{
		Username:     "postgres",
		Password:     config.NewSecret("hunter2"),
		Host:         "localhost",
		Port:         5432,
		DatabaseName: "newsletter",
	}
	logger.InfoWithTracing(context.Background(), "database settings", logrus.Fields{
		"database":   settings,
		"dsn":        settings.ConnectionString(),
		"server_dsn": settings.ConnectionStringWithoutDB(),
	})

	assert.NotContains(t, buf.String(), "hunter2")
	assert.Contains(t, buf.String(), "[REDACTED]")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, logrus.InfoLevel, ParseLevel(""))
	assert.Equal(t, logrus.InfoLevel, ParseLevel("chatty"))
}

func TestDebugFilteredByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New("subscriptions-api", logrus.InfoLevel, &buf)

	logger.DebugWithTracing(context.Background(), "hidden", nil)
	assert.Zero(t, buf.Len())
}
