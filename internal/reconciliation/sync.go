// Package reconciliation repairs local transaction state against the banking
// provider. Webhooks are the primary propagation path; this is the fallback
// for deliveries that never arrived.
package reconciliation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pagstream-payments-hub/internal/domain/transaction"
	"github.com/pagstream-payments-hub/internal/platform/metrics"
	"github.com/pagstream-payments-hub/internal/platform/provider"
)

// WarningProviderUnavailable is returned alongside last-known-good local
// state when the provider could not be consulted
const WarningProviderUnavailable = "provider unavailable; returning last known status"

// Syncer reconciles single transactions on the read path
type Syncer struct {
	transactions transaction.Repository
	provider     provider.StatusClient
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// NewSyncer creates a reconciliation syncer
func NewSyncer(logger *slog.Logger, transactions transaction.Repository, client provider.StatusClient, m *metrics.Metrics) *Syncer {
	return &Syncer{
		transactions: transactions,
		provider:     client,
		metrics:      m,
		logger:       logger,
	}
}

// Sync refreshes one transaction from the provider and persists any status
// move the transition table accepts. It never fails the read: when the
// provider is unreachable or the lookup errors, the local row is returned
// with a non-empty warning instead. Stale provider state (a poll losing to a
// faster webhook) is absorbed by the same compare-and-set as webhooks.
func (s *Syncer) Sync(ctx context.Context, txn *transaction.Transaction) (*transaction.Transaction, string) {
	logger := s.logger.With("authentication_code", txn.AuthenticationCode)

	// Terminal rows other than DONE cannot move again; skip the round-trip.
	// DONE still gets polled because the refund lifecycle starts there.
	if txn.Status().IsTerminal() && txn.Status() != transaction.StatusDone {
		s.metrics.ReconciliationSyncs.WithLabelValues("terminal").Inc()
		return txn, ""
	}

	start := time.Now()
	result, err := s.provider.GetStatus(ctx, txn.Type.Family(), txn.AuthenticationCode)
	s.metrics.ProviderRequestTime.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			// The provider no longer knows the code; keep our row and flag it
			logger.Warn("Provider has no record for transaction")
			s.metrics.ReconciliationSyncs.WithLabelValues("provider_missing").Inc()
			return txn, WarningProviderUnavailable
		}
		logger.Warn("Provider status lookup failed", "error", err)
		s.metrics.ReconciliationSyncs.WithLabelValues("degraded").Inc()
		return txn, WarningProviderUnavailable
	}

	status, known := transaction.MapProviderStatus(txn.Type.Family(), result.Status)
	if !known {
		logger.Warn("Provider reported an unknown status", "provider_status", result.Status)
		s.metrics.ReconciliationSyncs.WithLabelValues("unknown_status").Inc()
		return txn, ""
	}

	if status == txn.Status() {
		s.metrics.ReconciliationSyncs.WithLabelValues("in_sync").Inc()
		return txn, ""
	}

	updated, err := s.transactions.UpdateStatus(ctx, txn.AuthenticationCode, status, &transaction.UpdateMeta{
		ProviderTimestamp: result.UpdatedAt,
	})
	if err != nil {
		logger.Error("Failed to persist reconciled status", "status", string(status), "error", err)
		s.metrics.ReconciliationSyncs.WithLabelValues("degraded").Inc()
		return txn, WarningProviderUnavailable
	}

	if updated.Status() == status {
		logger.Info("Reconciled transaction status from provider",
			"from", string(txn.Status()), "to", string(status))
		s.metrics.ReconciliationSyncs.WithLabelValues("repaired").Inc()
	} else {
		// The transition table rejected the provider's view; the local row
		// is ahead of the poll
		s.metrics.ReconciliationSyncs.WithLabelValues("stale_poll").Inc()
	}

	return updated, ""
}
