package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// CorrelationIDHeader carries the request's correlation ID. Webhook
	// events store the same ID, so a gateway read and the deliveries that
	// produced the row it serves can be tied together in the logs.
	CorrelationIDHeader = "X-Correlation-ID"

	// CorrelationIDKey is the gin context key holding the correlation ID
	CorrelationIDKey = "correlation_id"

	// ClientIDHeader identifies the tenant making the request
	ClientIDHeader = "X-Client-Id"
)

// CorrelationID assigns every request a correlation ID, honoring one supplied
// by the caller. The ID is echoed back in the response header.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.New().String()
		}

		c.Header(CorrelationIDHeader, id)
		c.Set(CorrelationIDKey, id)

		c.Next()
	}
}

// GetCorrelationID returns the request's correlation ID, or "" when the
// middleware has not run
func GetCorrelationID(c *gin.Context) string {
	if v, exists := c.Get(CorrelationIDKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
