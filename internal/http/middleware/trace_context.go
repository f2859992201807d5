package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/riskwarning-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
	headerActorID   = "X-Actor-Id"

	maxCallerIDLen = 128
)

// AttachTraceContext carries caller supplied ids, or fresh ones, on the request
// context and echoes the trace and request ids in the response headers. An
// active span's trace id wins over a generated one. The actor id is never
// generated.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := callerID(c.GetHeader(headerRequestID))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		traceID := callerID(c.GetHeader(headerTraceID))
		if traceID == "" {
			if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
				traceID = sc.TraceID().String()
			}
		}
		if traceID == "" {
			traceID = uuid.NewString()
		}
		ctx := ctxutil.WithTraceData(c.Request.Context(), &ctxutil.TraceData{
			TraceID:   traceID,
			RequestID: reqID,
			ActorID:   callerID(c.GetHeader(headerActorID)),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(headerTraceID, traceID)
		c.Writer.Header().Set(headerRequestID, reqID)
		c.Next()
	}
}

func callerID(v string) string {
	v = strings.TrimSpace(v)
	if len(v) > maxCallerIDLen {
		return ""
	}
	return v
}
