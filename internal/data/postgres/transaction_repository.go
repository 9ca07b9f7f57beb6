// Package postgres provides PostgreSQL implementations of the domain
// repositories. It handles all database operations while maintaining
// transaction safety and proper error handling for the payments hub.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/pagstream-payments-hub/internal/domain/transaction"
	"github.com/pagstream-payments-hub/internal/platform/persistence"
)

const transactionColumns = `id, authentication_code, correlation_id, idempotency_key, entity_id,
		type, status, amount, currency, description, source_kind, source_id,
		account_id, client_id, provider_timestamp, created_at, updated_at, deleted_at`

// TransactionRepository implements the transaction.Repository interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// NewTransactionRepositoryWithQuerier builds a repository on an explicit
// querier. Used by tests.
func NewTransactionRepositoryWithQuerier(logger *slog.Logger, querier persistence.Querier) transaction.Repository {
	return &TransactionRepository{
		querier: querier,
		logger:  logger,
	}
}

// CreateFromEvent persists the transaction derived from a creation event.
// The insert is idempotent by authentication code: when the code already
// exists (including when two deliveries race), the winning row is read back
// and returned unchanged.
func (r *TransactionRepository) CreateFromEvent(ctx context.Context, event *transaction.Event) (*transaction.Transaction, error) {
	txn, err := transaction.NewFromEvent(event)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO transactions (id, authentication_code, correlation_id, idempotency_key, entity_id,
			type, status, amount, currency, description, source_kind, source_id,
			account_id, client_id, provider_timestamp, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (authentication_code) DO NOTHING
	`

	var sourceKind *string
	var sourceID *uuid.UUID
	if txn.Source != nil {
		kind := string(txn.Source.Kind)
		sourceKind = &kind
		sourceID = &txn.Source.ID
	}

	result, err := r.querier.Exec(ctx, query,
		txn.ID,
		txn.AuthenticationCode,
		txn.CorrelationID,
		txn.IdempotencyKey,
		txn.EntityID,
		string(txn.Type),
		string(txn.Status()),
		txn.Amount,
		txn.Currency,
		txn.Description,
		sourceKind,
		sourceID,
		txn.AccountID,
		txn.ClientID,
		txn.ProviderTimestamp,
		txn.CreatedAt,
		txn.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create transaction", "authentication_code", txn.AuthenticationCode, "error", err)
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Lost the creation race or re-delivery; the first writer wins
		existing, err := r.GetByAuthenticationCode(ctx, txn.AuthenticationCode)
		if err != nil {
			return nil, transaction.ErrDuplicateAuthenticationCode{AuthenticationCode: txn.AuthenticationCode}
		}
		return existing, nil
	}

	return txn, nil
}

// UpdateStatus moves a transaction to the given status iff the transition
// table accepts it, carrying it out as a single compare-and-set statement so
// concurrent webhooks cannot interleave between read and write. Delivery
// metadata is last-write-wins and is persisted even when the status move is
// rejected.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, authenticationCode string, to transaction.DetailedStatus, meta *transaction.UpdateMeta) (*transaction.Transaction, error) {
	if meta == nil {
		meta = &transaction.UpdateMeta{}
	}

	allowedFrom := transaction.TransitionableFrom(to)
	fromValues := make([]string, len(allowedFrom))
	for i, s := range allowedFrom {
		fromValues[i] = string(s)
	}

	query := `
		UPDATE transactions
		SET status = $1,
			correlation_id = COALESCE(NULLIF($2, ''), correlation_id),
			idempotency_key = COALESCE(NULLIF($3, ''), idempotency_key),
			entity_id = COALESCE(NULLIF($4, ''), entity_id),
			provider_timestamp = COALESCE($5, provider_timestamp),
			updated_at = NOW()
		WHERE authentication_code = $6 AND status = ANY($7) AND deleted_at IS NULL
		RETURNING ` + transactionColumns

	row := r.querier.QueryRow(ctx, query,
		string(to),
		meta.CorrelationID,
		meta.IdempotencyKey,
		meta.EntityID,
		meta.ProviderTimestamp,
		authenticationCode,
		fromValues,
	)

	txn, err := scanTransaction(row)
	if err == nil {
		return txn, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("Failed to update transaction status",
			"authentication_code", authenticationCode, "to", string(to), "error", err)
		return nil, fmt.Errorf("failed to update transaction status: %w", err)
	}

	// Transition rejected or row absent. Record the delivery metadata on the
	// row if it exists; the status stays put.
	metaQuery := `
		UPDATE transactions
		SET correlation_id = COALESCE(NULLIF($1, ''), correlation_id),
			idempotency_key = COALESCE(NULLIF($2, ''), idempotency_key),
			entity_id = COALESCE(NULLIF($3, ''), entity_id),
			provider_timestamp = COALESCE($4, provider_timestamp),
			updated_at = NOW()
		WHERE authentication_code = $5 AND deleted_at IS NULL
		RETURNING ` + transactionColumns

	row = r.querier.QueryRow(ctx, metaQuery,
		meta.CorrelationID,
		meta.IdempotencyKey,
		meta.EntityID,
		meta.ProviderTimestamp,
		authenticationCode,
	)

	txn, err = scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{AuthenticationCode: authenticationCode}
		}
		r.logger.Error("Failed to record webhook metadata",
			"authentication_code", authenticationCode, "error", err)
		return nil, fmt.Errorf("failed to record webhook metadata: %w", err)
	}

	return txn, nil
}

// GetByAuthenticationCode fetches the row for an authentication code without
// tenant scoping. Ingestion-side use only.
func (r *TransactionRepository) GetByAuthenticationCode(ctx context.Context, authenticationCode string) (*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE authentication_code = $1 AND deleted_at IS NULL
	`

	txn, err := scanTransaction(r.querier.QueryRow(ctx, query, authenticationCode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{AuthenticationCode: authenticationCode}
		}
		r.logger.Error("Failed to get transaction", "authentication_code", authenticationCode, "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return txn, nil
}

// FindOne fetches a transaction scoped to tenant and account. A row that
// exists under another tenant returns the same not-found error as an absent
// one, so existence never leaks across tenants.
func (r *TransactionRepository) FindOne(ctx context.Context, id, accountID, clientID uuid.UUID) (*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = $1 AND account_id = $2 AND client_id = $3 AND deleted_at IS NULL
	`

	txn, err := scanTransaction(r.querier.QueryRow(ctx, query, id, accountID, clientID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{ID: id}
		}
		r.logger.Error("Failed to find transaction", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}

	return txn, nil
}

// FindAll lists transactions for a tenant/account with filtering, search and
// pagination. Returns the requested page and the total match count.
func (r *TransactionRepository) FindAll(ctx context.Context, accountID, clientID uuid.UUID, filter *transaction.ListFilter) ([]*transaction.Transaction, int64, error) {
	if filter == nil {
		filter = &transaction.ListFilter{}
	}
	filter.Normalize()

	conditions := []string{"account_id = $1", "client_id = $2", "deleted_at IS NULL"}
	args := []any{accountID, clientID}

	if filter.Type != nil {
		args = append(args, string(*filter.Type))
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.DetailedStatus != nil {
		args = append(args, string(*filter.DetailedStatus))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	} else if filter.Status != nil {
		detailed := transaction.DetailedStatusesFor(*filter.Status)
		values := make([]string, len(detailed))
		for i, s := range detailed {
			values[i] = string(s)
		}
		args = append(args, values)
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(authentication_code ILIKE $%d OR description ILIKE $%d OR entity_id ILIKE $%d)", n, n, n))
	}

	where := strings.Join(conditions, " AND ")

	var total int64
	countQuery := "SELECT COUNT(*) FROM transactions WHERE " + where
	if err := r.querier.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		r.logger.Error("Failed to count transactions", "account_id", accountID.String(), "error", err)
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	args = append(args, filter.PerPage, (filter.Page-1)*filter.PerPage)
	listQuery := fmt.Sprintf(`
		SELECT %s
		FROM transactions
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d`,
		transactionColumns, where,
		sortColumn(filter.SortBy), filter.SortDir,
		len(args)-1, len(args),
	)

	rows, err := r.querier.Query(ctx, listQuery, args...)
	if err != nil {
		r.logger.Error("Failed to list transactions", "account_id", accountID.String(), "error", err)
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []*transaction.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}

	return txns, total, nil
}

// sortColumn whitelists the sortable columns; anything else falls back to
// created_at so the ORDER BY clause can never carry caller input.
func sortColumn(requested string) string {
	switch requested {
	case "created_at", "updated_at", "amount", "status", "type":
		return requested
	default:
		return "created_at"
	}
}

// scanTransaction maps one row onto the aggregate. The status column goes
// through Rehydrate so the unexported field stays under the transition path.
func scanTransaction(row pgx.Row) (*transaction.Transaction, error) {
	var (
		txn        transaction.Transaction
		typ        string
		status     string
		amount     decimal.Decimal
		sourceKind *string
		sourceID   *uuid.UUID
	)

	err := row.Scan(
		&txn.ID,
		&txn.AuthenticationCode,
		&txn.CorrelationID,
		&txn.IdempotencyKey,
		&txn.EntityID,
		&typ,
		&status,
		&amount,
		&txn.Currency,
		&txn.Description,
		&sourceKind,
		&sourceID,
		&txn.AccountID,
		&txn.ClientID,
		&txn.ProviderTimestamp,
		&txn.CreatedAt,
		&txn.UpdatedAt,
		&txn.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	txn.Type = transaction.Type(typ)
	txn.Amount = amount
	if sourceKind != nil && sourceID != nil {
		txn.Source = &transaction.SourceRef{Kind: transaction.SourceKind(*sourceKind), ID: *sourceID}
	}

	return transaction.Rehydrate(txn, transaction.DetailedStatus(status)), nil
}
