package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SortDirection orders FindAll results
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// ListFilter narrows the FindAll query surface. Zero values mean "no filter".
// Status (semantic) expands to the corresponding set of detailed statuses;
// DetailedStatus filters on one exact value.
type ListFilter struct {
	Type           *Type
	DetailedStatus *DetailedStatus
	Status         *SemanticStatus
	Search         string
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	Page           int
	PerPage        int
	SortBy         string
	SortDir        SortDirection
}

// Normalize applies pagination and sorting defaults
func (f *ListFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = 20
	}
	if f.PerPage > 100 {
		f.PerPage = 100
	}
	if f.SortBy == "" {
		f.SortBy = "created_at"
	}
	if f.SortDir != SortAsc && f.SortDir != SortDesc {
		f.SortDir = SortDesc
	}
}

// Repository persists the transaction ledger. Every mutation goes through
// CreateFromEvent or UpdateStatus so the status transition table is enforced
// at a single choke point.
type Repository interface {
	// CreateFromEvent persists the transaction derived from a creation event.
	// It is idempotent by authentication code: re-delivery returns the
	// already-persisted row unchanged, including when two deliveries race the
	// insert.
	CreateFromEvent(ctx context.Context, event *Event) (*Transaction, error)

	// UpdateStatus moves the transaction identified by its authentication
	// code to the given status iff the transition table accepts it, updating
	// the delivery metadata either way. A rejected transition is a no-op and
	// the unchanged row is returned. Returns ErrTransactionNotFound when no
	// row exists for the code.
	UpdateStatus(ctx context.Context, authenticationCode string, to DetailedStatus, meta *UpdateMeta) (*Transaction, error)

	// GetByAuthenticationCode fetches the row for an authentication code
	// without tenant scoping. Ingestion-side use only.
	GetByAuthenticationCode(ctx context.Context, authenticationCode string) (*Transaction, error)

	// FindOne fetches a transaction scoped to tenant and account. A row that
	// exists under another tenant is indistinguishable from an absent one.
	FindOne(ctx context.Context, id, accountID, clientID uuid.UUID) (*Transaction, error)

	// FindAll lists transactions for a tenant/account with filtering,
	// search, and pagination. Returns the page and the total match count.
	FindAll(ctx context.Context, accountID, clientID uuid.UUID, filter *ListFilter) ([]*Transaction, int64, error)
}

// ErrTransactionNotFound indicates the transaction is absent within the
// caller's scope. Tenant misses return the same error as genuinely missing
// ids so existence never leaks across tenants.
type ErrTransactionNotFound struct {
	ID                 uuid.UUID
	AuthenticationCode string
}

func (e ErrTransactionNotFound) Error() string {
	if e.AuthenticationCode != "" {
		return "transaction not found: " + e.AuthenticationCode
	}
	return "transaction not found: " + e.ID.String()
}

// Is implements errors.Is; a zero-valued target matches any not-found
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil && t.AuthenticationCode == "" {
		return true
	}
	return e.ID == t.ID && e.AuthenticationCode == t.AuthenticationCode
}

// ErrDuplicateAuthenticationCode indicates an insert lost the creation race.
// Repositories resolve it internally by returning the winning row; it is
// surfaced only if the follow-up read fails.
type ErrDuplicateAuthenticationCode struct {
	AuthenticationCode string
}

func (e ErrDuplicateAuthenticationCode) Error() string {
	return "duplicate transaction: " + e.AuthenticationCode
}

// Is implements errors.Is; a zero-valued target matches any duplicate
func (e ErrDuplicateAuthenticationCode) Is(target error) bool {
	t, ok := target.(ErrDuplicateAuthenticationCode)
	if !ok {
		return false
	}
	if t.AuthenticationCode == "" {
		return true
	}
	return e.AuthenticationCode == t.AuthenticationCode
}
