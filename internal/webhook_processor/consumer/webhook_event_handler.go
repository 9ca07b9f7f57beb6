// Package consumer adapts Kafka messages into webhook ingestion calls.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pagstream-payments-hub/internal/domain/webhook"
	"github.com/pagstream-payments-hub/internal/platform/messaging/producers"
	"github.com/pagstream-payments-hub/internal/webhook_processor/service"
)

// WebhookEventHandler handles incoming webhook event messages from Kafka
type WebhookEventHandler struct {
	ingestionService service.IngestionService
	retry            producers.RetryPublisher
	producer         producers.DeadLetterPublisher
	logger           *slog.Logger
}

// NewWebhookEventHandler creates a new handler
func NewWebhookEventHandler(
	logger *slog.Logger,
	ingestionService service.IngestionService,
	retry producers.RetryPublisher,
	producer producers.DeadLetterPublisher,
) *WebhookEventHandler {
	return &WebhookEventHandler{
		ingestionService: ingestionService,
		retry:            retry,
		producer:         producer,
		logger:           logger,
	}
}

// HandleMessage processes Kafka messages
func (h *WebhookEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var msg webhook.Message
	if err := json.Unmarshal(value, &msg); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal webhook event from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		// Send to DLQ if available
		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
			} else {
				h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	// Add correlation ID to logger
	logger := h.logger
	if msg.CorrelationID != "" {
		logger = h.logger.With("correlation_id", msg.CorrelationID)
	}

	// Republished events carry their own earliest processing time since Kafka
	// has no delayed delivery. The consumer loop is serial, so the wait cannot
	// be served here: park the event back on the topic untouched and keep the
	// messages behind it flowing. The attempt counter is not bumped.
	if msg.NotBefore != nil {
		if wait := time.Until(*msg.NotBefore); wait > 0 {
			if err := h.retry.Requeue(ctx, &msg); err != nil {
				logger.Error("Failed to requeue webhook event awaiting backoff",
					"authentication_code", msg.AuthenticationCode,
					"error", err,
				)
				// Offset stays uncommitted; the event comes back on the next fetch
				return fmt.Errorf("requeueing webhook event %s failed: %w", msg.AuthenticationCode, err)
			}
			logger.Debug("Requeued webhook event awaiting retry backoff",
				"authentication_code", msg.AuthenticationCode,
				"remaining", wait.String(),
			)
			return nil
		}
	}

	logger.Info("Received webhook event for processing",
		"authentication_code", msg.AuthenticationCode,
		"event_name", msg.EventName,
		"provider_status", msg.ProviderStatus,
	)

	if err := h.ingestionService.ProcessEvent(ctx, &msg); err != nil {
		logger.Error("Failed to process webhook event",
			"authentication_code", msg.AuthenticationCode,
			"event_name", msg.EventName,
			"error", err,
		)
		return fmt.Errorf("processing webhook event %s failed: %w", msg.AuthenticationCode, err)
	}

	logger.Info("Successfully processed webhook event", "authentication_code", msg.AuthenticationCode)
	return nil // Success, commit offset
}
