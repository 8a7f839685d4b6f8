package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/rawatapurva/HD-Notes-App/internal/infra/logger"
)

const (
	// TraceIDHeader carries the trace id back to the client.
	TraceIDHeader = "X-Trace-ID"
	// TraceIDKey is the gin context key for the trace id.
	TraceIDKey = "trace_id"
	// UserIDKey holds the authenticated account id.
	UserIDKey = "user_id"
	// EmailKey holds the authenticated account email.
	EmailKey = "email"

	requestIDHeader = "X-Request-ID"
)

// EnrichContext assigns a trace id to every request. An incoming X-Trace-ID
// wins, then the active OpenTelemetry span, then a fresh uuid.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
				traceID = sc.TraceID().String()
			}
		}
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		c.Next()
	}
}

// RequestID injects a correlation identifier into the request context so the
// logger can pick it up.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}

		c.Writer.Header().Set(requestIDHeader, reqID)
		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey{}, reqID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func GetTraceID(c *gin.Context) string {
	return c.GetString(TraceIDKey)
}

// GetAuthenticatedUserID returns the account id set by RequireSession.
func GetAuthenticatedUserID(c *gin.Context) (string, bool) {
	id := c.GetString(UserIDKey)
	return id, id != ""
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(logger.RequestIDKey{}).(string); ok {
		return id
	}
	return ""
}
