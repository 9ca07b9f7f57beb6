package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/pagstream-payments-hub/internal/domain/rails"
	"github.com/pagstream-payments-hub/internal/domain/transaction"
	"github.com/pagstream-payments-hub/internal/domain/webhook"
)

// TransactionView is the read model served by the gateway: the ledger row
// plus the denormalized rail record it references, if any
type TransactionView struct {
	Transaction *transaction.Transaction
	Details     *rails.Details
}

// Reconciler refreshes one transaction from the banking provider on the read
// path. The returned warning is non-empty when the provider could not be
// consulted and the local row is served as-is.
type Reconciler interface {
	Sync(ctx context.Context, txn *transaction.Transaction) (*transaction.Transaction, string)
}

// TransactionService defines the read operations for the transaction ledger
type TransactionService interface {
	// GetTransaction retrieves one transaction scoped to tenant and account,
	// reconciled against the provider. The warning is non-empty when the
	// provider was unreachable. Returns ErrTransactionNotFound when the id
	// does not exist within the caller's scope.
	GetTransaction(ctx context.Context, id, accountID, clientID uuid.UUID) (*TransactionView, string, error)

	// ListTransactions retrieves a filtered, paginated page of transactions
	// together with the total match count. Listings serve local state only;
	// no provider round-trips.
	ListTransactions(ctx context.Context, accountID, clientID uuid.UUID, filter *transaction.ListFilter) ([]*TransactionView, int64, error)
}

// WebhookEventService exposes the webhook audit trail for operators
type WebhookEventService interface {
	// ListUnapplied retrieves events that were received but never applied,
	// with the total count
	ListUnapplied(ctx context.Context, page, perPage int) ([]*webhook.EventLogEntry, int64, error)

	// GetEventHistory retrieves every logged delivery for one financial event
	GetEventHistory(ctx context.Context, authenticationCode string) ([]*webhook.EventLogEntry, error)
}
