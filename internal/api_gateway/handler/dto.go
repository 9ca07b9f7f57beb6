package handler

// ListTransactionsParams represents filter and pagination parameters for the
// transaction listing endpoint
type ListTransactionsParams struct {
	Page           int    `form:"page,default=1" binding:"min=1"`
	PerPage        int    `form:"per_page,default=20" binding:"min=1,max=100"`
	Type           string `form:"type"`
	Status         string `form:"status"`
	DetailedStatus string `form:"detailed_status"`
	Search         string `form:"search"`
	CreatedFrom    string `form:"created_from"`
	CreatedTo      string `form:"created_to"`
	SortBy         string `form:"sort_by,default=created_at"`
	SortDir        string `form:"sort_dir,default=DESC" binding:"omitempty,oneof=ASC DESC asc desc"`
}

// TransactionResponse represents a transaction in API responses. Status is
// the coarse user-facing bucket; DetailedStatus the exact lifecycle state.
type TransactionResponse struct {
	ID                 string           `json:"id"`
	AuthenticationCode string           `json:"authentication_code"`
	Type               string           `json:"type"`
	Status             string           `json:"status"`
	DetailedStatus     string           `json:"detailed_status"`
	Amount             string           `json:"amount"`
	Currency           string           `json:"currency"`
	Description        string           `json:"description,omitempty"`
	AccountID          string           `json:"account_id,omitempty"`
	CorrelationID      string           `json:"correlation_id,omitempty"`
	EntityID           string           `json:"entity_id,omitempty"`
	ProviderTimestamp  string           `json:"provider_timestamp,omitempty"`
	CreatedAt          string           `json:"created_at"`
	UpdatedAt          string           `json:"updated_at"`
	Warning            string           `json:"warning,omitempty"`
	Details            *DetailsResponse `json:"details,omitempty"`
}

// DetailsResponse carries the rail record backing a transaction. Exactly one
// of the kind-specific blocks is present, matching Kind.
type DetailsResponse struct {
	Kind        string                      `json:"kind"`
	PixCashIn   *PixCashInDetailsResponse   `json:"pix_cash_in,omitempty"`
	PixTransfer *PixTransferDetailsResponse `json:"pix_transfer,omitempty"`
	PixRefund   *PixRefundDetailsResponse   `json:"pix_refund,omitempty"`
	PixQrCode   *PixQrCodeDetailsResponse   `json:"pix_qr_code,omitempty"`
	Boleto      *BoletoDetailsResponse      `json:"boleto,omitempty"`
	BillPayment *BillPaymentDetailsResponse `json:"bill_payment,omitempty"`
	TedTransfer *TedTransferDetailsResponse `json:"ted_transfer,omitempty"`
	TedCashIn   *TedCashInDetailsResponse   `json:"ted_cash_in,omitempty"`
	TedRefund   *TedRefundDetailsResponse   `json:"ted_refund,omitempty"`
}

type PixCashInDetailsResponse struct {
	EndToEndID       string `json:"end_to_end_id"`
	SenderName       string `json:"sender_name"`
	SenderDocument   string `json:"sender_document"`
	SenderBankCode   string `json:"sender_bank_code"`
	SenderBankBranch string `json:"sender_bank_branch"`
	SenderAccount    string `json:"sender_account"`
}

type PixTransferDetailsResponse struct {
	EndToEndID        string `json:"end_to_end_id"`
	AddressingKey     string `json:"addressing_key"`
	RecipientName     string `json:"recipient_name"`
	RecipientDocument string `json:"recipient_document"`
	RecipientBankCode string `json:"recipient_bank_code"`
}

type PixRefundDetailsResponse struct {
	EndToEndID         string `json:"end_to_end_id"`
	ReturnID           string `json:"return_id"`
	RefundReason       string `json:"refund_reason"`
	OriginalEndToEndID string `json:"original_end_to_end_id"`
}

type PixQrCodeDetailsResponse struct {
	EndToEndID     string `json:"end_to_end_id"`
	ConciliationID string `json:"conciliation_id"`
	PayerName      string `json:"payer_name"`
	PayerDocument  string `json:"payer_document"`
}

type BoletoDetailsResponse struct {
	Barcode       string `json:"barcode"`
	DigitableLine string `json:"digitable_line"`
	OurNumber     string `json:"our_number"`
	PayerName     string `json:"payer_name"`
	PayerDocument string `json:"payer_document"`
	DueDate       string `json:"due_date,omitempty"`
}

type BillPaymentDetailsResponse struct {
	DigitableLine string `json:"digitable_line"`
	Assignor      string `json:"assignor"`
	DueDate       string `json:"due_date,omitempty"`
	SettleDate    string `json:"settle_date,omitempty"`
}

type TedTransferDetailsResponse struct {
	RecipientName     string `json:"recipient_name"`
	RecipientDocument string `json:"recipient_document"`
	RecipientBankCode string `json:"recipient_bank_code"`
	RecipientBranch   string `json:"recipient_branch"`
	RecipientAccount  string `json:"recipient_account"`
}

type TedCashInDetailsResponse struct {
	SenderName     string `json:"sender_name"`
	SenderDocument string `json:"sender_document"`
	SenderBankCode string `json:"sender_bank_code"`
	SenderBranch   string `json:"sender_branch"`
	SenderAccount  string `json:"sender_account"`
}

type TedRefundDetailsResponse struct {
	OriginalTransferID string `json:"original_transfer_id"`
	ReturnReason       string `json:"return_reason"`
	ReturnCode         string `json:"return_code"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}
