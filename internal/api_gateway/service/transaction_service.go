package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pagstream-payments-hub/internal/domain/rails"
	"github.com/pagstream-payments-hub/internal/domain/transaction"
)

// TransactionServiceImpl implements the TransactionService interface
type TransactionServiceImpl struct {
	transactions transaction.Repository
	rails        rails.Repository
	reconciler   Reconciler
	logger       *slog.Logger
}

// NewTransactionService creates a new transaction read service
func NewTransactionService(logger *slog.Logger, transactions transaction.Repository, railRepo rails.Repository, reconciler Reconciler) TransactionService {
	return &TransactionServiceImpl{
		transactions: transactions,
		rails:        railRepo,
		reconciler:   reconciler,
		logger:       logger,
	}
}

// GetTransaction retrieves one transaction, repairs its status against the
// provider, and attaches the rail record it references
func (s *TransactionServiceImpl) GetTransaction(ctx context.Context, id, accountID, clientID uuid.UUID) (*TransactionView, string, error) {
	txn, err := s.transactions.FindOne(ctx, id, accountID, clientID)
	if err != nil {
		if !errors.Is(err, transaction.ErrTransactionNotFound{}) {
			s.logger.Error("Failed to get transaction", "id", id.String(), "error", err)
		}
		return nil, "", err
	}

	txn, warning := s.reconciler.Sync(ctx, txn)

	view := &TransactionView{Transaction: txn}
	if txn.Source != nil {
		details, err := s.rails.GetDetails(ctx, *txn.Source)
		if err != nil {
			// A dangling or unreadable rail reference degrades the detail
			// view, never the transaction itself
			s.logger.Warn("Failed to load rail details",
				"id", id.String(),
				"source_kind", string(txn.Source.Kind),
				"error", err,
			)
		} else {
			view.Details = details
		}
	}

	return view, warning, nil
}

// ListTransactions retrieves a filtered page of transactions for a
// tenant/account. Listing is served from local state; per-row provider
// round-trips would make the endpoint unusable.
func (s *TransactionServiceImpl) ListTransactions(ctx context.Context, accountID, clientID uuid.UUID, filter *transaction.ListFilter) ([]*TransactionView, int64, error) {
	txns, total, err := s.transactions.FindAll(ctx, accountID, clientID, filter)
	if err != nil {
		s.logger.Error("Failed to list transactions", "account_id", accountID.String(), "error", err)
		return nil, 0, err
	}

	views := make([]*TransactionView, len(txns))
	for i, txn := range txns {
		views[i] = &TransactionView{Transaction: txn}
	}

	return views, total, nil
}
