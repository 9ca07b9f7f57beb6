// Package rails exposes the read side of the payment-rail source records.
// Each rail workflow owns the lifecycle of its records; the ledger core only
// references them and denormalizes their fields into the transaction detail
// view. Ledger-level fields (amount, currency, description, timestamps,
// authentication code) live on the transaction row and are deliberately
// absent here to avoid duplication in responses.
package rails

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pagstream-payments-hub/internal/domain/transaction"
)

// PixCashInDetails holds the sender side of an inbound Pix payment
type PixCashInDetails struct {
	EndToEndID       string
	SenderName       string
	SenderDocument   string
	SenderBankCode   string
	SenderBankBranch string
	SenderAccount    string
}

// PixTransferDetails holds the recipient side of an outbound Pix payment
type PixTransferDetails struct {
	EndToEndID        string
	AddressingKey     string
	RecipientName     string
	RecipientDocument string
	RecipientBankCode string
}

// PixRefundDetails describes a Pix devolution
type PixRefundDetails struct {
	EndToEndID         string
	ReturnID           string
	RefundReason       string
	OriginalEndToEndID string
}

// PixQrCodeDetails describes a payment collected through a Pix QR code
type PixQrCodeDetails struct {
	EndToEndID     string
	ConciliationID string
	PayerName      string
	PayerDocument  string
}

// BoletoDetails describes an issued boleto
type BoletoDetails struct {
	Barcode       string
	DigitableLine string
	OurNumber     string
	PayerName     string
	PayerDocument string
	DueDate       *time.Time
}

// BillPaymentDetails describes a utility/consumption bill settlement
type BillPaymentDetails struct {
	DigitableLine string
	Assignor      string
	DueDate       *time.Time
	SettleDate    *time.Time
}

// TedTransferDetails holds the recipient side of an outbound TED
type TedTransferDetails struct {
	RecipientName     string
	RecipientDocument string
	RecipientBankCode string
	RecipientBranch   string
	RecipientAccount  string
}

// TedCashInDetails holds the sender side of an inbound TED
type TedCashInDetails struct {
	SenderName     string
	SenderDocument string
	SenderBankCode string
	SenderBranch   string
	SenderAccount  string
}

// TedRefundDetails describes an undone TED returned by the destination bank
type TedRefundDetails struct {
	OriginalTransferID uuid.UUID
	ReturnReason       string
	ReturnCode         string
}

// Details is the denormalized view of the one rail record a transaction
// references. Exactly one of the pointers is non-nil, matching Kind; the
// repository guarantees this by dispatching on the source kind rather than
// probing which relation happens to be populated.
type Details struct {
	Kind        transaction.SourceKind
	PixCashIn   *PixCashInDetails
	PixTransfer *PixTransferDetails
	PixRefund   *PixRefundDetails
	PixQrCode   *PixQrCodeDetails
	Boleto      *BoletoDetails
	BillPayment *BillPaymentDetails
	TedTransfer *TedTransferDetails
	TedCashIn   *TedCashInDetails
	TedRefund   *TedRefundDetails
}

// Repository reads rail source records for the detail view
type Repository interface {
	// GetDetails loads the rail record behind the reference and projects it
	// into the detail view. Returns ErrRecordNotFound if the referenced row
	// is gone.
	GetDetails(ctx context.Context, ref transaction.SourceRef) (*Details, error)
}

// ErrRecordNotFound indicates a dangling rail reference
type ErrRecordNotFound struct {
	Kind transaction.SourceKind
	ID   uuid.UUID
}

func (e ErrRecordNotFound) Error() string {
	return "rail record not found: " + string(e.Kind) + "/" + e.ID.String()
}

// Is implements errors.Is; a zero-valued target matches any missing record
func (e ErrRecordNotFound) Is(target error) bool {
	t, ok := target.(ErrRecordNotFound)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil && t.Kind == "" {
		return true
	}
	return e.Kind == t.Kind && e.ID == t.ID
}
