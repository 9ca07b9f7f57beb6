// Package transaction defines the canonical ledger aggregate fed by every
// payment rail. One Transaction exists per financial event reported by the
// banking provider, keyed by the provider's authentication code.
package transaction

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidTransactionType  = errors.New("invalid transaction type")
	ErrMissingAuthentication   = errors.New("authentication code is required")
	ErrMissingClient           = errors.New("client id is required")
	ErrSourceTypeMismatch      = errors.New("source reference does not match transaction type")
	ErrDirectStatusWriteDenied = errors.New("status must be changed through ApplyStatus")
)

// DefaultCurrency is assumed when the provider omits the currency field
const DefaultCurrency = "BRL"

// Type identifies which payment rail produced the financial event
type Type string

const (
	TypePixCashIn    Type = "PIX_CASH_IN"
	TypePixCashOut   Type = "PIX_CASH_OUT"
	TypePixRefund    Type = "PIX_REFUND"
	TypeBoletoCashIn Type = "BOLETO_CASH_IN"
	TypeBillPayment  Type = "BILL_PAYMENT"
	TypeTedIn        Type = "TED_IN"
	TypeTedOut       Type = "TED_OUT"
)

// Types lists every transaction type value
var Types = []Type{
	TypePixCashIn,
	TypePixCashOut,
	TypePixRefund,
	TypeBoletoCashIn,
	TypeBillPayment,
	TypeTedIn,
	TypeTedOut,
}

// Valid reports whether t is a known transaction type
func (t Type) Valid() bool {
	switch t {
	case TypePixCashIn, TypePixCashOut, TypePixRefund, TypeBoletoCashIn,
		TypeBillPayment, TypeTedIn, TypeTedOut:
		return true
	}
	return false
}

// Family returns the rail family whose provider vocabulary applies to t
func (t Type) Family() RailFamily {
	switch t {
	case TypePixCashIn, TypePixCashOut, TypePixRefund:
		return RailPix
	case TypeBoletoCashIn:
		return RailBoleto
	case TypeBillPayment:
		return RailBillPayment
	case TypeTedIn, TypeTedOut:
		return RailTed
	default:
		return RailPix
	}
}

// SourceKind discriminates which rail record a transaction references.
// The relational model stores these as nine mutually exclusive nullable
// foreign keys; SourceRef is the tagged union over them.
type SourceKind string

const (
	SourcePixCashIn   SourceKind = "PIX_CASH_IN"
	SourcePixTransfer SourceKind = "PIX_TRANSFER"
	SourcePixRefund   SourceKind = "PIX_REFUND"
	SourcePixQrCode   SourceKind = "PIX_QR_CODE"
	SourceBoleto      SourceKind = "BOLETO"
	SourceBillPayment SourceKind = "BILL_PAYMENT"
	SourceTedTransfer SourceKind = "TED_TRANSFER"
	SourceTedCashIn   SourceKind = "TED_CASH_IN"
	SourceTedRefund   SourceKind = "TED_REFUND"
)

// SourceRef points at the one rail record backing a transaction
type SourceRef struct {
	Kind SourceKind
	ID   uuid.UUID
}

// KindsForType returns the source kinds a transaction type may legally
// reference. Dispatch is on the type, never on which relation happens to be
// populated.
func KindsForType(t Type) []SourceKind {
	switch t {
	case TypePixCashIn:
		return []SourceKind{SourcePixCashIn, SourcePixQrCode}
	case TypePixCashOut:
		return []SourceKind{SourcePixTransfer}
	case TypePixRefund:
		return []SourceKind{SourcePixRefund}
	case TypeBoletoCashIn:
		return []SourceKind{SourceBoleto}
	case TypeBillPayment:
		return []SourceKind{SourceBillPayment}
	case TypeTedIn:
		// An inbound TED is either a cash-in or the return leg of an
		// outbound transfer the provider undid.
		return []SourceKind{SourceTedCashIn, SourceTedRefund}
	case TypeTedOut:
		return []SourceKind{SourceTedTransfer}
	default:
		return nil
	}
}

// Event is the normalized shape rail-specific ingestion handlers hand to the
// ledger. One event either creates the transaction (first sight of the
// authentication code) or moves its status.
type Event struct {
	AuthenticationCode string
	Type               Type
	Status             DetailedStatus
	Amount             decimal.Decimal
	Currency           string
	Description        string
	ClientID           uuid.UUID
	AccountID          *uuid.UUID
	Source             *SourceRef
	CorrelationID      string
	IdempotencyKey     string
	EntityID           string
	ProviderTimestamp  *time.Time
}

// UpdateMeta carries the webhook-delivery metadata persisted alongside a
// status change. All fields are last-write-wins.
type UpdateMeta struct {
	CorrelationID     string
	IdempotencyKey    string
	EntityID          string
	ProviderTimestamp *time.Time
}

// Transaction is the ledger aggregate. The status field is unexported so all
// mutation funnels through ApplyStatus, which enforces the transition table.
type Transaction struct {
	ID                 uuid.UUID
	AuthenticationCode string
	CorrelationID      string
	IdempotencyKey     string
	EntityID           string
	Type               Type
	status             DetailedStatus
	Amount             decimal.Decimal
	Currency           string
	Description        string
	Source             *SourceRef
	AccountID          *uuid.UUID
	ClientID           uuid.UUID
	ProviderTimestamp  *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          *time.Time
}

// NewFromEvent builds a transaction from a normalized creation event,
// enforcing the aggregate invariants: required authentication code and
// client, a valid type, and a source reference consistent with that type.
func NewFromEvent(e *Event) (*Transaction, error) {
	if e.AuthenticationCode == "" {
		return nil, ErrMissingAuthentication
	}
	if e.ClientID == uuid.Nil {
		return nil, ErrMissingClient
	}
	if !e.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTransactionType, e.Type)
	}
	if e.Source != nil && !sourceAllowed(e.Type, e.Source.Kind) {
		return nil, fmt.Errorf("%w: type %s cannot reference %s", ErrSourceTypeMismatch, e.Type, e.Source.Kind)
	}

	status := e.Status
	if status == "" {
		status = StatusPending
	}
	currency := e.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	now := time.Now().UTC()
	return &Transaction{
		ID:                 uuid.New(),
		AuthenticationCode: e.AuthenticationCode,
		CorrelationID:      e.CorrelationID,
		IdempotencyKey:     e.IdempotencyKey,
		EntityID:           e.EntityID,
		Type:               e.Type,
		status:             status,
		Amount:             e.Amount.Round(2),
		Currency:           currency,
		Description:        e.Description,
		Source:             e.Source,
		AccountID:          e.AccountID,
		ClientID:           e.ClientID,
		ProviderTimestamp:  e.ProviderTimestamp,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

func sourceAllowed(t Type, kind SourceKind) bool {
	for _, k := range KindsForType(t) {
		if k == kind {
			return true
		}
	}
	return false
}

// Status returns the current detailed status
func (t *Transaction) Status() DetailedStatus {
	return t.status
}

// SemanticStatus returns the user-facing status bucket
func (t *Transaction) SemanticStatus() SemanticStatus {
	return t.status.Semantic()
}

// ApplyStatus attempts the status transition and reports whether it was
// accepted. A rejected transition leaves the aggregate untouched; late or
// duplicated webhooks are absorbed here rather than raising errors.
func (t *Transaction) ApplyStatus(to DetailedStatus) bool {
	if !CanTransition(t.status, to) {
		return false
	}
	t.status = to
	t.UpdatedAt = time.Now().UTC()
	return true
}

// Rehydrate restores an aggregate from persisted state. Repositories only;
// it bypasses the creation invariants because the row already satisfied them.
func Rehydrate(t Transaction, status DetailedStatus) *Transaction {
	t.status = status
	return &t
}
