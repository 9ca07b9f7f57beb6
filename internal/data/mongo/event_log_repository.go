package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pagstream-payments-hub/internal/domain/webhook"
)

const (
	// EventLogCollectionName is the name of the webhook audit collection in MongoDB
	EventLogCollectionName = "webhook_event_log"
)

// EventLogRepository implements the webhook.EventLogRepository interface for
// MongoDB. Every inbound webhook leaves exactly one entry here regardless of
// whether it was applied, skipped, or exhausted its retries.
type EventLogRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewEventLogRepository creates a new MongoDB webhook event log repository
func NewEventLogRepository(logger *slog.Logger, db *mongo.Database) webhook.EventLogRepository {
	return &EventLogRepository{
		db:     db,
		logger: logger,
	}
}

// Record stores the disposition of one webhook delivery
func (r *EventLogRepository) Record(ctx context.Context, entry *webhook.EventLogEntry) error {
	collection := r.db.Collection(EventLogCollectionName)

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.ReceivedAt.IsZero() {
		entry.ReceivedAt = time.Now().UTC()
	}
	if entry.ProcessedAt == nil {
		now := time.Now().UTC()
		entry.ProcessedAt = &now
	}

	_, err := collection.InsertOne(ctx, entry)
	if err != nil {
		r.logger.Error("Failed to record webhook event",
			"authentication_code", entry.AuthenticationCode,
			"event_name", entry.EventName,
			"error", err)
		return fmt.Errorf("failed to record webhook event: %w", err)
	}

	return nil
}

// GetByAuthenticationCode retrieves every logged delivery for one financial
// event, oldest first, reconstructing the delivery history.
func (r *EventLogRepository) GetByAuthenticationCode(ctx context.Context, authenticationCode string) ([]*webhook.EventLogEntry, error) {
	collection := r.db.Collection(EventLogCollectionName)

	filter := bson.M{"authentication_code": authenticationCode}
	opts := options.Find().SetSort(bson.M{"received_at": 1})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get webhook event log",
			"authentication_code", authenticationCode,
			"error", err)
		return nil, fmt.Errorf("failed to get webhook event log: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*webhook.EventLogEntry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode webhook event log",
			"authentication_code", authenticationCode,
			"error", err)
		return nil, fmt.Errorf("failed to decode webhook event log: %w", err)
	}

	return entries, nil
}

// ListUnapplied retrieves paginated entries for events that were received but
// never applied to the ledger. Results are sorted newest first.
func (r *EventLogRepository) ListUnapplied(ctx context.Context, limit, offset int) ([]*webhook.EventLogEntry, error) {
	collection := r.db.Collection(EventLogCollectionName)

	filter := bson.M{"applied": false}
	opts := options.Find().
		SetSort(bson.M{"received_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list unapplied webhook events", "error", err)
		return nil, fmt.Errorf("failed to list unapplied webhook events: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*webhook.EventLogEntry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode unapplied webhook events", "error", err)
		return nil, fmt.Errorf("failed to decode unapplied webhook events: %w", err)
	}

	return entries, nil
}

// CountUnapplied counts events that were received but never applied
func (r *EventLogRepository) CountUnapplied(ctx context.Context) (int64, error) {
	collection := r.db.Collection(EventLogCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"applied": false})
	if err != nil {
		r.logger.Error("Failed to count unapplied webhook events", "error", err)
		return 0, fmt.Errorf("failed to count unapplied webhook events: %w", err)
	}

	return count, nil
}
