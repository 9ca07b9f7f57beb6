package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pagstream-payments-hub/internal/api_gateway/middleware"
	"github.com/pagstream-payments-hub/internal/api_gateway/service"
	"github.com/pagstream-payments-hub/internal/domain/rails"
	"github.com/pagstream-payments-hub/internal/domain/transaction"
)

// ClientIDHeader carries the tenant identity on every request. Rows belonging
// to another tenant are indistinguishable from absent ones.
const ClientIDHeader = middleware.ClientIDHeader

// TransactionHandler handles HTTP requests for transaction read operations
type TransactionHandler struct {
	transactionService service.TransactionService
	logger             *slog.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(logger *slog.Logger, transactionService service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		logger:             logger,
	}
}

func clientID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetHeader(ClientIDHeader)
	if raw == "" {
		RespondUnauthorized(c, "Missing "+ClientIDHeader+" header")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		RespondUnauthorized(c, "Invalid "+ClientIDHeader+" header")
		return uuid.Nil, false
	}
	return id, true
}

// GetByID retrieves one transaction, reconciled against the banking provider.
// Returns 404 both for missing ids and for rows owned by another tenant.
func (h *TransactionHandler) GetByID(c *gin.Context) {
	client, ok := clientID(c)
	if !ok {
		return
	}

	accountID, err := uuid.Parse(c.Param("accountId"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	view, warning, err := h.transactionService.GetTransaction(c.Request.Context(), id, accountID, client)
	if err != nil {
		if errors.Is(err, transaction.ErrTransactionNotFound{}) {
			RespondNotFound(c, "Transaction not found")
			return
		}
		h.logger.Error("Failed to get transaction", "id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapViewToResponse(view, warning))
}

// List retrieves a filtered, paginated transaction page for an account
func (h *TransactionHandler) List(c *gin.Context) {
	client, ok := clientID(c)
	if !ok {
		return
	}

	accountID, err := uuid.Parse(c.Param("accountId"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	var params ListTransactionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.logger.Error("Invalid listing parameters", "error", err)
		RespondBadRequest(c, "Invalid listing parameters: "+err.Error())
		return
	}

	filter, err := buildListFilter(&params)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	views, total, err := h.transactionService.ListTransactions(c.Request.Context(), accountID, client, filter)
	if err != nil {
		h.logger.Error("Failed to list transactions", "account_id", accountID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	transactions := make([]TransactionResponse, 0, len(views))
	for _, view := range views {
		transactions = append(transactions, mapViewToResponse(view, ""))
	}

	RespondWithPaginatedData(c, http.StatusOK, transactions, filter.Page, filter.PerPage, int(total))
}

// buildListFilter validates the query surface and translates it into the
// repository filter
func buildListFilter(params *ListTransactionsParams) (*transaction.ListFilter, error) {
	filter := &transaction.ListFilter{
		Search:  params.Search,
		Page:    params.Page,
		PerPage: params.PerPage,
		SortBy:  params.SortBy,
		SortDir: transaction.SortDirection(strings.ToUpper(params.SortDir)),
	}

	if params.Type != "" {
		typ := transaction.Type(params.Type)
		if !typ.Valid() {
			return nil, errors.New("invalid transaction type: " + params.Type)
		}
		filter.Type = &typ
	}

	if params.DetailedStatus != "" {
		status := transaction.DetailedStatus(params.DetailedStatus)
		valid := false
		for _, s := range transaction.DetailedStatuses {
			if s == status {
				valid = true
				break
			}
		}
		if !valid {
			return nil, errors.New("invalid detailed status: " + params.DetailedStatus)
		}
		filter.DetailedStatus = &status
	} else if params.Status != "" {
		status := transaction.SemanticStatus(params.Status)
		if len(transaction.DetailedStatusesFor(status)) == 0 {
			return nil, errors.New("invalid status: " + params.Status)
		}
		filter.Status = &status
	}

	if params.CreatedFrom != "" {
		from, err := time.Parse(time.RFC3339, params.CreatedFrom)
		if err != nil {
			return nil, errors.New("created_from must be RFC3339")
		}
		filter.CreatedFrom = &from
	}
	if params.CreatedTo != "" {
		to, err := time.Parse(time.RFC3339, params.CreatedTo)
		if err != nil {
			return nil, errors.New("created_to must be RFC3339")
		}
		filter.CreatedTo = &to
	}

	filter.Normalize()
	return filter, nil
}

// mapViewToResponse maps the read model to the transaction response DTO
func mapViewToResponse(view *service.TransactionView, warning string) TransactionResponse {
	txn := view.Transaction
	response := TransactionResponse{
		ID:                 txn.ID.String(),
		AuthenticationCode: txn.AuthenticationCode,
		Type:               string(txn.Type),
		Status:             string(txn.SemanticStatus()),
		DetailedStatus:     string(txn.Status()),
		Amount:             txn.Amount.StringFixed(2),
		Currency:           txn.Currency,
		Description:        txn.Description,
		CorrelationID:      txn.CorrelationID,
		EntityID:           txn.EntityID,
		CreatedAt:          txn.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          txn.UpdatedAt.Format(time.RFC3339),
		Warning:            warning,
	}

	if txn.AccountID != nil {
		response.AccountID = txn.AccountID.String()
	}
	if txn.ProviderTimestamp != nil {
		response.ProviderTimestamp = txn.ProviderTimestamp.Format(time.RFC3339)
	}
	if view.Details != nil {
		response.Details = mapDetailsToResponse(view.Details)
	}

	return response
}

// mapDetailsToResponse dispatches on the discriminator, never on which
// payload pointer happens to be populated.
func mapDetailsToResponse(d *rails.Details) *DetailsResponse {
	response := &DetailsResponse{Kind: string(d.Kind)}

	switch d.Kind {
	case transaction.SourcePixCashIn:
		response.PixCashIn = &PixCashInDetailsResponse{
			EndToEndID:       d.PixCashIn.EndToEndID,
			SenderName:       d.PixCashIn.SenderName,
			SenderDocument:   d.PixCashIn.SenderDocument,
			SenderBankCode:   d.PixCashIn.SenderBankCode,
			SenderBankBranch: d.PixCashIn.SenderBankBranch,
			SenderAccount:    d.PixCashIn.SenderAccount,
		}
	case transaction.SourcePixTransfer:
		response.PixTransfer = &PixTransferDetailsResponse{
			EndToEndID:        d.PixTransfer.EndToEndID,
			AddressingKey:     d.PixTransfer.AddressingKey,
			RecipientName:     d.PixTransfer.RecipientName,
			RecipientDocument: d.PixTransfer.RecipientDocument,
			RecipientBankCode: d.PixTransfer.RecipientBankCode,
		}
	case transaction.SourcePixRefund:
		response.PixRefund = &PixRefundDetailsResponse{
			EndToEndID:         d.PixRefund.EndToEndID,
			ReturnID:           d.PixRefund.ReturnID,
			RefundReason:       d.PixRefund.RefundReason,
			OriginalEndToEndID: d.PixRefund.OriginalEndToEndID,
		}
	case transaction.SourcePixQrCode:
		response.PixQrCode = &PixQrCodeDetailsResponse{
			EndToEndID:     d.PixQrCode.EndToEndID,
			ConciliationID: d.PixQrCode.ConciliationID,
			PayerName:      d.PixQrCode.PayerName,
			PayerDocument:  d.PixQrCode.PayerDocument,
		}
	case transaction.SourceBoleto:
		response.Boleto = &BoletoDetailsResponse{
			Barcode:       d.Boleto.Barcode,
			DigitableLine: d.Boleto.DigitableLine,
			OurNumber:     d.Boleto.OurNumber,
			PayerName:     d.Boleto.PayerName,
			PayerDocument: d.Boleto.PayerDocument,
		}
		if d.Boleto.DueDate != nil {
			response.Boleto.DueDate = d.Boleto.DueDate.Format(time.RFC3339)
		}
	case transaction.SourceBillPayment:
		response.BillPayment = &BillPaymentDetailsResponse{
			DigitableLine: d.BillPayment.DigitableLine,
			Assignor:      d.BillPayment.Assignor,
		}
		if d.BillPayment.DueDate != nil {
			response.BillPayment.DueDate = d.BillPayment.DueDate.Format(time.RFC3339)
		}
		if d.BillPayment.SettleDate != nil {
			response.BillPayment.SettleDate = d.BillPayment.SettleDate.Format(time.RFC3339)
		}
	case transaction.SourceTedTransfer:
		response.TedTransfer = &TedTransferDetailsResponse{
			RecipientName:     d.TedTransfer.RecipientName,
			RecipientDocument: d.TedTransfer.RecipientDocument,
			RecipientBankCode: d.TedTransfer.RecipientBankCode,
			RecipientBranch:   d.TedTransfer.RecipientBranch,
			RecipientAccount:  d.TedTransfer.RecipientAccount,
		}
	case transaction.SourceTedCashIn:
		response.TedCashIn = &TedCashInDetailsResponse{
			SenderName:     d.TedCashIn.SenderName,
			SenderDocument: d.TedCashIn.SenderDocument,
			SenderBankCode: d.TedCashIn.SenderBankCode,
			SenderBranch:   d.TedCashIn.SenderBranch,
			SenderAccount:  d.TedCashIn.SenderAccount,
		}
	case transaction.SourceTedRefund:
		response.TedRefund = &TedRefundDetailsResponse{
			OriginalTransferID: d.TedRefund.OriginalTransferID.String(),
			ReturnReason:       d.TedRefund.ReturnReason,
			ReturnCode:         d.TedRefund.ReturnCode,
		}
	}

	return response
}
