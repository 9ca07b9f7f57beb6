package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pagstream-payments-hub/internal/domain/transaction"
	"github.com/pagstream-payments-hub/internal/domain/webhook"
	"github.com/pagstream-payments-hub/internal/platform/messaging/producers"
	"github.com/pagstream-payments-hub/internal/platform/metrics"
	"github.com/pagstream-payments-hub/internal/webhook_processor/sequencer"
)

type IngestionServiceImpl struct {
	transactions transaction.Repository
	eventLog     webhook.EventLogRepository
	sequencer    Sequencer
	retry        producers.RetryPublisher
	dlq          producers.DeadLetterPublisher
	metrics      *metrics.Metrics
	maxAttempts  int
	logger       *slog.Logger
}

func NewIngestionService(
	logger *slog.Logger,
	transactions transaction.Repository,
	eventLog webhook.EventLogRepository,
	seq Sequencer,
	retry producers.RetryPublisher,
	dlq producers.DeadLetterPublisher,
	m *metrics.Metrics,
	maxAttempts int,
) IngestionService {
	return &IngestionServiceImpl{
		transactions: transactions,
		eventLog:     eventLog,
		sequencer:    seq,
		retry:        retry,
		dlq:          dlq,
		metrics:      m,
		maxAttempts:  maxAttempts,
		logger:       logger,
	}
}

// ProcessEvent applies one webhook event to the ledger. Returning nil
// acknowledges the Kafka message; returning an error leaves it uncommitted
// for redelivery. Events this process cannot apply yet (the creating event
// has not landed, or another event for the same code is mid-flight) are
// republished with backoff rather than blocking the partition.
func (s *IngestionServiceImpl) ProcessEvent(ctx context.Context, msg *webhook.Message) error {
	logger := s.logger
	if msg.CorrelationID != "" {
		logger = s.logger.With("correlation_id", msg.CorrelationID)
	}

	if msg.AuthenticationCode == "" {
		logger.Error("Webhook event has no authentication code", "event_name", msg.EventName)
		return s.deadLetter(ctx, msg, "missing authentication code", logger)
	}

	logger.Info("Processing webhook event",
		"authentication_code", msg.AuthenticationCode,
		"event_name", msg.EventName,
		"provider_status", msg.ProviderStatus,
		"delivery_attempt", msg.DeliveryAttempt,
	)

	// 1. Claim the per-code processing slot
	if err := s.sequencer.Acquire(ctx, msg.AuthenticationCode); err != nil {
		if errors.Is(err, sequencer.ErrEventInFlight) {
			return s.signalOutOfSequence(ctx, msg, "concurrent event in flight", logger)
		}
		return err // Redis failure; let Kafka redeliver
	}
	defer s.sequencer.Release(ctx, msg.AuthenticationCode)

	// 2. Create-or-load: first sight of the code creates the row, anything
	// else must find it or it is out of sequence
	var txn *transaction.Transaction
	var err error
	if msg.CanCreate() {
		status, known := transaction.MapProviderStatus(msg.Type.Family(), msg.ProviderStatus)
		if !known {
			logger.Warn("Unknown provider status, treating as pending",
				"provider_status", msg.ProviderStatus, "type", string(msg.Type))
		}
		txn, err = s.transactions.CreateFromEvent(ctx, s.eventFromMessage(msg, status))
		if err != nil {
			if isUnprocessable(err) {
				logger.Error("Webhook event failed aggregate validation", "error", err)
				return s.deadLetter(ctx, msg, err.Error(), logger)
			}
			return err
		}
	} else {
		txn, err = s.transactions.GetByAuthenticationCode(ctx, msg.AuthenticationCode)
		if err != nil {
			if errors.Is(err, transaction.ErrTransactionNotFound{}) {
				return s.signalOutOfSequence(ctx, msg, "transaction does not exist yet", logger)
			}
			return err
		}
	}

	// 3. Map the provider vocabulary using the authoritative type on the row
	status, known := transaction.MapProviderStatus(txn.Type.Family(), msg.ProviderStatus)
	if !known {
		logger.Warn("Unknown provider status, treating as pending",
			"provider_status", msg.ProviderStatus, "type", string(txn.Type))
	}

	// 4. Move the status through the transition table
	applied := false
	skipReason := ""
	if txn.Status() == status {
		skipReason = fmt.Sprintf("duplicate delivery: status already %s", status)
	} else {
		updated, err := s.transactions.UpdateStatus(ctx, msg.AuthenticationCode, status, &transaction.UpdateMeta{
			CorrelationID:     msg.CorrelationID,
			IdempotencyKey:    msg.IdempotencyKey,
			EntityID:          msg.EntityID,
			ProviderTimestamp: msg.ProviderTimestamp,
		})
		if err != nil {
			if errors.Is(err, transaction.ErrTransactionNotFound{}) {
				return s.signalOutOfSequence(ctx, msg, "transaction does not exist yet", logger)
			}
			return err
		}
		if updated.Status() == status {
			applied = true
		} else {
			skipReason = fmt.Sprintf("transition rejected: %s -> %s", updated.Status(), status)
		}
	}

	if applied {
		s.metrics.WebhooksApplied.WithLabelValues(string(txn.Type)).Inc()
		logger.Info("Webhook event applied",
			"authentication_code", msg.AuthenticationCode, "status", string(status))
	} else {
		s.metrics.WebhooksSkipped.WithLabelValues("stale").Inc()
		logger.Info("Webhook event absorbed without a status change",
			"authentication_code", msg.AuthenticationCode, "reason", skipReason)
	}

	s.record(ctx, msg, applied, skipReason, logger)
	return nil
}

// signalOutOfSequence republishes the event with backoff, or dead-letters it
// once the retry budget is spent. Out-of-sequence events are expected under
// concurrent delivery and resolve themselves once the creating event lands.
func (s *IngestionServiceImpl) signalOutOfSequence(ctx context.Context, msg *webhook.Message, reason string, logger *slog.Logger) error {
	s.metrics.WebhooksOutOfSequence.Inc()

	if msg.DeliveryAttempt >= s.maxAttempts {
		logger.Error("Webhook event exhausted its retries",
			"authentication_code", msg.AuthenticationCode,
			"attempts", msg.DeliveryAttempt,
			"reason", reason,
		)
		s.metrics.WebhooksExhausted.Inc()
		return s.deadLetter(ctx, msg, fmt.Sprintf("retries exhausted: %s", reason), logger)
	}

	if err := s.retry.Republish(ctx, msg, reason); err != nil {
		logger.Error("Failed to republish out-of-sequence event",
			"authentication_code", msg.AuthenticationCode, "error", err)
		return err // Leave the original message uncommitted
	}

	logger.Info("Out-of-sequence event republished",
		"authentication_code", msg.AuthenticationCode,
		"attempt", msg.DeliveryAttempt+1,
		"reason", reason,
	)
	return nil
}

// deadLetter parks the event in the DLQ and logs an unapplied audit entry.
// Returns nil on success so the offending message is committed.
func (s *IngestionServiceImpl) deadLetter(ctx context.Context, msg *webhook.Message, reason string, logger *slog.Logger) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook event for DLQ: %w", err)
	}

	if err := s.dlq.PublishToDLQ(ctx, msg.AuthenticationCode, payload, reason); err != nil {
		logger.Error("Failed to publish webhook event to DLQ",
			"authentication_code", msg.AuthenticationCode, "error", err)
		return err
	}

	s.record(ctx, msg, false, reason, logger)
	return nil
}

// record writes the audit entry. Audit failures are logged but never fail the
// pipeline; the ledger row is the source of truth.
func (s *IngestionServiceImpl) record(ctx context.Context, msg *webhook.Message, applied bool, skipReason string, logger *slog.Logger) {
	now := time.Now().UTC()
	entry := &webhook.EventLogEntry{
		AuthenticationCode: msg.AuthenticationCode,
		EntityType:         msg.EntityType,
		EntityID:           msg.EntityID,
		EventName:          msg.EventName,
		Applied:            applied,
		SkipReason:         skipReason,
		CorrelationID:      msg.CorrelationID,
		Attempts:           msg.DeliveryAttempt + 1,
		ReceivedAt:         now,
		ProcessedAt:        &now,
	}

	if err := s.eventLog.Record(ctx, entry); err != nil {
		logger.Error("Failed to record webhook audit entry",
			"authentication_code", msg.AuthenticationCode, "error", err)
	}
}

func (s *IngestionServiceImpl) eventFromMessage(msg *webhook.Message, status transaction.DetailedStatus) *transaction.Event {
	return &transaction.Event{
		AuthenticationCode: msg.AuthenticationCode,
		Type:               msg.Type,
		Status:             status,
		Amount:             msg.Amount,
		Currency:           msg.Currency,
		Description:        msg.Description,
		ClientID:           msg.ClientID,
		AccountID:          msg.AccountID,
		Source:             msg.SourceRef(),
		CorrelationID:      msg.CorrelationID,
		IdempotencyKey:     msg.IdempotencyKey,
		EntityID:           msg.EntityID,
		ProviderTimestamp:  msg.ProviderTimestamp,
	}
}

// isUnprocessable reports whether the event can never succeed regardless of
// retries
func isUnprocessable(err error) bool {
	return errors.Is(err, transaction.ErrInvalidTransactionType) ||
		errors.Is(err, transaction.ErrMissingAuthentication) ||
		errors.Is(err, transaction.ErrMissingClient) ||
		errors.Is(err, transaction.ErrSourceTypeMismatch)
}
