package service

import (
	"context"

	"github.com/pagstream-payments-hub/internal/domain/webhook"
)

// IngestionService applies one normalized webhook event to the ledger
type IngestionService interface {
	ProcessEvent(ctx context.Context, msg *webhook.Message) error
}

// Sequencer grants per-authentication-code processing slots so events for
// the same financial event never interleave
type Sequencer interface {
	Acquire(ctx context.Context, authenticationCode string) error
	Release(ctx context.Context, authenticationCode string)
}
