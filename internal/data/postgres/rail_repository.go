package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/pagstream-payments-hub/internal/domain/rails"
	"github.com/pagstream-payments-hub/internal/domain/transaction"
	"github.com/pagstream-payments-hub/internal/platform/persistence"
)

// RailRepository implements the rails.Repository interface for PostgreSQL.
// Each source kind maps to its own table; dispatch happens on the kind carried
// by the reference, never on which relation happens to hold a row.
type RailRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewRailRepository creates a new PostgreSQL rail repository
func NewRailRepository(logger *slog.Logger, db *persistence.PostgresDB) rails.Repository {
	return &RailRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// GetDetails loads the rail record behind the reference and projects it into
// the detail view
func (r *RailRepository) GetDetails(ctx context.Context, ref transaction.SourceRef) (*rails.Details, error) {
	details := &rails.Details{Kind: ref.Kind}

	var err error
	switch ref.Kind {
	case transaction.SourcePixCashIn:
		details.PixCashIn, err = r.pixCashIn(ctx, ref)
	case transaction.SourcePixTransfer:
		details.PixTransfer, err = r.pixTransfer(ctx, ref)
	case transaction.SourcePixRefund:
		details.PixRefund, err = r.pixRefund(ctx, ref)
	case transaction.SourcePixQrCode:
		details.PixQrCode, err = r.pixQrCode(ctx, ref)
	case transaction.SourceBoleto:
		details.Boleto, err = r.boleto(ctx, ref)
	case transaction.SourceBillPayment:
		details.BillPayment, err = r.billPayment(ctx, ref)
	case transaction.SourceTedTransfer:
		details.TedTransfer, err = r.tedTransfer(ctx, ref)
	case transaction.SourceTedCashIn:
		details.TedCashIn, err = r.tedCashIn(ctx, ref)
	case transaction.SourceTedRefund:
		details.TedRefund, err = r.tedRefund(ctx, ref)
	default:
		return nil, fmt.Errorf("unknown source kind: %s", ref.Kind)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rails.ErrRecordNotFound{Kind: ref.Kind, ID: ref.ID}
		}
		r.logger.Error("Failed to load rail record", "kind", string(ref.Kind), "id", ref.ID.String(), "error", err)
		return nil, fmt.Errorf("failed to load rail record: %w", err)
	}

	return details, nil
}

func (r *RailRepository) pixCashIn(ctx context.Context, ref transaction.SourceRef) (*rails.PixCashInDetails, error) {
	query := `
		SELECT end_to_end_id, sender_name, sender_document, sender_bank_code, sender_bank_branch, sender_account
		FROM pix_cash_ins
		WHERE id = $1
	`
	var d rails.PixCashInDetails
	err := r.querier.QueryRow(ctx, query, ref.ID).Scan(
		&d.EndToEndID, &d.SenderName, &d.SenderDocument, &d.SenderBankCode, &d.SenderBankBranch, &d.SenderAccount,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *RailRepository) pixTransfer(ctx context.Context, ref transaction.SourceRef) (*rails.PixTransferDetails, error) {
	query := `
		SELECT end_to_end_id, addressing_key, recipient_name, recipient_document, recipient_bank_code
		FROM pix_transfers
		WHERE id = $1
	`
	var d rails.PixTransferDetails
	err := r.querier.QueryRow(ctx, query, ref.ID).Scan(
		&d.EndToEndID, &d.AddressingKey, &d.RecipientName, &d.RecipientDocument, &d.RecipientBankCode,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *RailRepository) pixRefund(ctx context.Context, ref transaction.SourceRef) (*rails.PixRefundDetails, error) {
	query := `
		SELECT end_to_end_id, return_id, refund_reason, original_end_to_end_id
		FROM pix_refunds
		WHERE id = $1
	`
	var d rails.PixRefundDetails
	err := r.querier.QueryRow(ctx, query, ref.ID).Scan(
		&d.EndToEndID, &d.ReturnID, &d.RefundReason, &d.OriginalEndToEndID,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *RailRepository) pixQrCode(ctx context.Context, ref transaction.SourceRef) (*rails.PixQrCodeDetails, error) {
	query := `
		SELECT end_to_end_id, conciliation_id, payer_name, payer_document
		FROM pix_qr_codes
		WHERE id = $1
	`
	var d rails.PixQrCodeDetails
	err := r.querier.QueryRow(ctx, query, ref.ID).Scan(
		&d.EndToEndID, &d.ConciliationID, &d.PayerName, &d.PayerDocument,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *RailRepository) boleto(ctx context.Context, ref transaction.SourceRef) (*rails.BoletoDetails, error) {
	query := `
		SELECT barcode, digitable_line, our_number, payer_name, payer_document, due_date
		FROM boletos
		WHERE id = $1
	`
	var d rails.BoletoDetails
	err := r.querier.QueryRow(ctx, query, ref.ID).Scan(
		&d.Barcode, &d.DigitableLine, &d.OurNumber, &d.PayerName, &d.PayerDocument, &d.DueDate,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *RailRepository) billPayment(ctx context.Context, ref transaction.SourceRef) (*rails.BillPaymentDetails, error) {
	query := `
		SELECT digitable_line, assignor, due_date, settle_date
		FROM bill_payments
		WHERE id = $1
	`
	var d rails.BillPaymentDetails
	err := r.querier.QueryRow(ctx, query, ref.ID).Scan(
		&d.DigitableLine, &d.Assignor, &d.DueDate, &d.SettleDate,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *RailRepository) tedTransfer(ctx context.Context, ref transaction.SourceRef) (*rails.TedTransferDetails, error) {
	query := `
		SELECT recipient_name, recipient_document, recipient_bank_code, recipient_branch, recipient_account
		FROM ted_transfers
		WHERE id = $1
	`
	var d rails.TedTransferDetails
	err := r.querier.QueryRow(ctx, query, ref.ID).Scan(
		&d.RecipientName, &d.RecipientDocument, &d.RecipientBankCode, &d.RecipientBranch, &d.RecipientAccount,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *RailRepository) tedCashIn(ctx context.Context, ref transaction.SourceRef) (*rails.TedCashInDetails, error) {
	query := `
		SELECT sender_name, sender_document, sender_bank_code, sender_branch, sender_account
		FROM ted_cash_ins
		WHERE id = $1
	`
	var d rails.TedCashInDetails
	err := r.querier.QueryRow(ctx, query, ref.ID).Scan(
		&d.SenderName, &d.SenderDocument, &d.SenderBankCode, &d.SenderBranch, &d.SenderAccount,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *RailRepository) tedRefund(ctx context.Context, ref transaction.SourceRef) (*rails.TedRefundDetails, error) {
	query := `
		SELECT original_transfer_id, return_reason, return_code
		FROM ted_refunds
		WHERE id = $1
	`
	var d rails.TedRefundDetails
	err := r.querier.QueryRow(ctx, query, ref.ID).Scan(
		&d.OriginalTransferID, &d.ReturnReason, &d.ReturnCode,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
