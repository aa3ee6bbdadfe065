package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"subscriptions-go/internal/logging"
	"subscriptions-go/internal/telemetry"
)

// requestID tags every request with a fresh id: on the context, on the server
// span opened by otelgin, and in the response header.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()

		ctx := telemetry.ContextWithRequestID(c.Request.Context(), id)
		trace.SpanFromContext(ctx).SetAttributes(telemetry.AttrRequestID.String(id))
		c.Request = c.Request.WithContext(ctx)
		c.Header(telemetry.RequestIDHeader, id)

		c.Next()
	}
}

func accessLog(logger *logging.ContextLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		logger.WithTracing(c.Request.Context()).WithFields(map[string]interface{}{
			"method":     method,
			"path":       path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}).Info("HTTP request completed")
	}
}
