package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pagstream-payments-hub/internal/api_gateway/handler"
	"github.com/pagstream-payments-hub/internal/api_gateway/middleware"
	"github.com/pagstream-payments-hub/internal/platform/metrics"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	transactionHandler *handler.TransactionHandler,
	webhookEventHandler *handler.WebhookEventHandler,
	m *metrics.Metrics,
) {
	// CorrelationID must run before the other middleware so both request logs
	// and panic responses carry the ID
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Transaction reads, scoped to one account within the caller's tenant
		accounts := v1.Group("/accounts/:accountId")
		{
			accounts.GET("/transactions", transactionHandler.List)
			accounts.GET("/transactions/:id", transactionHandler.GetByID)
		}

		// Webhook audit trail for operators
		webhookEvents := v1.Group("/webhook-events")
		{
			webhookEvents.GET("/unapplied", webhookEventHandler.ListUnapplied)
			webhookEvents.GET("/:authenticationCode", webhookEventHandler.GetHistory)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	// Prometheus exposition
	r.GET("/metrics", gin.WrapH(m.Handler()))
}
