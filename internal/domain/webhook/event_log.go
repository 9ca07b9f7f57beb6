package webhook

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventLogEntry records the disposition of one inbound webhook event.
// Operators audit unapplied events through this log; nothing is ever
// silently dropped.
type EventLogEntry struct {
	ID                 uuid.UUID  `json:"id" bson:"id"`
	AuthenticationCode string     `json:"authentication_code" bson:"authentication_code"`
	EntityType         string     `json:"entity_type" bson:"entity_type"`
	EntityID           string     `json:"entity_id,omitempty" bson:"entity_id,omitempty"`
	EventName          string     `json:"event_name" bson:"event_name"`
	Applied            bool       `json:"applied" bson:"applied"`
	SkipReason         string     `json:"skip_reason,omitempty" bson:"skip_reason,omitempty"`
	CorrelationID      string     `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	Attempts           int        `json:"attempts" bson:"attempts"`
	ReceivedAt         time.Time  `json:"received_at" bson:"received_at"`
	ProcessedAt        *time.Time `json:"processed_at,omitempty" bson:"processed_at,omitempty"`
}

// EventLogRepository stores the webhook audit trail
type EventLogRepository interface {
	Record(ctx context.Context, entry *EventLogEntry) error
	GetByAuthenticationCode(ctx context.Context, authenticationCode string) ([]*EventLogEntry, error)
	ListUnapplied(ctx context.Context, limit, offset int) ([]*EventLogEntry, error)
	CountUnapplied(ctx context.Context) (int64, error)
}
