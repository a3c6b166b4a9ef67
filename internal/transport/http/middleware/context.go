package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/StoryTeller-v2/back-end/internal/core/domain"
)

const (
	// TraceIDHeader is the HTTP header name for trace ID
	TraceIDHeader = "X-Trace-ID"
	// TraceIDKey is the context key for trace ID
	TraceIDKey = "trace_id"

	principalKey = "principal"
)

// EnrichContext assigns a trace ID to every request and echoes it back.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		c.Next()
	}
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(c *gin.Context) string {
	return c.GetString(TraceIDKey)
}

// SetPrincipal stores the authenticated principal for the rest of the request.
func SetPrincipal(c *gin.Context, p *domain.Principal) {
	c.Set(principalKey, p)
}

// GetPrincipal returns the principal installed by Authenticate, if any.
func GetPrincipal(c *gin.Context) (*domain.Principal, bool) {
	v, exists := c.Get(principalKey)
	if !exists {
		return nil, false
	}
	p, ok := v.(*domain.Principal)
	return p, ok && p != nil
}
