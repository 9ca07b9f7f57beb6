package service

import (
	"context"
	"log/slog"

	"github.com/pagstream-payments-hub/internal/domain/webhook"
)

// WebhookEventServiceImpl implements the WebhookEventService interface
type WebhookEventServiceImpl struct {
	eventLog webhook.EventLogRepository
	logger   *slog.Logger
}

// NewWebhookEventService creates a new webhook audit read service
func NewWebhookEventService(logger *slog.Logger, eventLog webhook.EventLogRepository) WebhookEventService {
	return &WebhookEventServiceImpl{
		eventLog: eventLog,
		logger:   logger,
	}
}

// ListUnapplied retrieves paginated events that never made it into the ledger
func (s *WebhookEventServiceImpl) ListUnapplied(ctx context.Context, page, perPage int) ([]*webhook.EventLogEntry, int64, error) {
	offset := (page - 1) * perPage

	entries, err := s.eventLog.ListUnapplied(ctx, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.eventLog.CountUnapplied(ctx)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// GetEventHistory retrieves the full delivery history for one financial event
func (s *WebhookEventServiceImpl) GetEventHistory(ctx context.Context, authenticationCode string) ([]*webhook.EventLogEntry, error) {
	entries, err := s.eventLog.GetByAuthenticationCode(ctx, authenticationCode)
	if err != nil {
		s.logger.Error("Failed to get webhook event history",
			"authentication_code", authenticationCode, "error", err)
		return nil, err
	}
	return entries, nil
}
