package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pagstream-payments-hub/internal/api_gateway/service"
)

// WebhookEventHandler exposes the webhook audit trail to operators
type WebhookEventHandler struct {
	webhookEventService service.WebhookEventService
	logger              *slog.Logger
}

// NewWebhookEventHandler creates a new webhook audit handler
func NewWebhookEventHandler(logger *slog.Logger, webhookEventService service.WebhookEventService) *WebhookEventHandler {
	return &WebhookEventHandler{
		webhookEventService: webhookEventService,
		logger:              logger,
	}
}

// ListUnapplied retrieves paginated webhook events that were received but
// never applied to the ledger
func (h *WebhookEventHandler) ListUnapplied(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, total, err := h.webhookEventService.ListUnapplied(c.Request.Context(), pagination.Page, pagination.PerPage)
	if err != nil {
		h.logger.Error("Failed to list unapplied webhook events", "error", err)
		RespondInternalError(c)
		return
	}

	RespondWithPaginatedData(c, http.StatusOK, entries, pagination.Page, pagination.PerPage, int(total))
}

// GetHistory retrieves every logged delivery for one authentication code
func (h *WebhookEventHandler) GetHistory(c *gin.Context) {
	authenticationCode := c.Param("authenticationCode")
	if authenticationCode == "" {
		RespondBadRequest(c, "Missing authentication code")
		return
	}

	entries, err := h.webhookEventService.GetEventHistory(c.Request.Context(), authenticationCode)
	if err != nil {
		h.logger.Error("Failed to get webhook event history",
			"authentication_code", authenticationCode, "error", err)
		RespondInternalError(c)
		return
	}

	if len(entries) == 0 {
		RespondNotFound(c, "No webhook events recorded for this authentication code")
		return
	}

	RespondOK(c, entries)
}
