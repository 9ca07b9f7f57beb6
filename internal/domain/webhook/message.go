// Package webhook defines the normalized webhook event shape the rail
// handlers publish for ingestion, and the audit log recorded for every
// inbound event.
package webhook

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pagstream-payments-hub/internal/domain/transaction"
)

// Message is the Kafka payload for one provider webhook event, already
// normalized by the rail-specific handler that persisted the source record.
type Message struct {
	AuthenticationCode string                  `json:"authentication_code"`
	EventName          string                  `json:"event_name"`
	EntityType         string                  `json:"entity_type"`
	EntityID           string                  `json:"entity_id,omitempty"`
	Type               transaction.Type        `json:"type,omitempty"`
	ProviderStatus     string                  `json:"provider_status"`
	Amount             decimal.Decimal         `json:"amount"`
	Currency           string                  `json:"currency,omitempty"`
	Description        string                  `json:"description,omitempty"`
	ClientID           uuid.UUID               `json:"client_id"`
	AccountID          *uuid.UUID              `json:"account_id,omitempty"`
	SourceKind         transaction.SourceKind  `json:"source_kind,omitempty"`
	SourceID           *uuid.UUID              `json:"source_id,omitempty"`
	CorrelationID      string                  `json:"correlation_id,omitempty"`
	IdempotencyKey     string                  `json:"idempotency_key,omitempty"`
	ProviderTimestamp  *time.Time              `json:"provider_timestamp,omitempty"`

	// Retry bookkeeping, set by the retry publisher on republish. Kafka has
	// no native delayed delivery, so the consumer honors NotBefore itself.
	DeliveryAttempt int        `json:"delivery_attempt,omitempty"`
	NotBefore       *time.Time `json:"not_before,omitempty"`
}

// CanCreate reports whether the message carries enough to create the ledger
// row. Status-only events for a code we have never seen are out of sequence,
// not creatable.
func (m *Message) CanCreate() bool {
	return m.Type.Valid() && m.ClientID != uuid.Nil
}

// SourceRef builds the tagged rail reference carried by the message, if any
func (m *Message) SourceRef() *transaction.SourceRef {
	if m.SourceKind == "" || m.SourceID == nil {
		return nil
	}
	return &transaction.SourceRef{Kind: m.SourceKind, ID: *m.SourceID}
}
