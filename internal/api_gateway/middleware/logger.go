package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger emits one structured log line per request with method, path, status,
// latency and the caller's tenant. Health probes and metric scrapes are not
// logged; they fire every few seconds and drown out real traffic.
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/health" || path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		requestLogger := logger
		if correlationID := GetCorrelationID(c); correlationID != "" {
			requestLogger = logger.With("correlation_id", correlationID)
		}

		fields := []any{
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		}
		if clientID := c.GetHeader(ClientIDHeader); clientID != "" {
			fields = append(fields, "client_id", clientID)
		}

		requestLogger.Info("HTTP request", fields...)
	}
}
