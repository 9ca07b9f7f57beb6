package producers

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/pagstream-payments-hub/internal/domain/webhook"
)

// RetryPublisher re-enqueues an out-of-sequence webhook event for another
// delivery attempt. Requeue puts a not-yet-due event back untouched, without
// consuming a retry attempt.
type RetryPublisher interface {
	Republish(ctx context.Context, msg *webhook.Message, reason string) error
	Requeue(ctx context.Context, msg *webhook.Message) error
	Close() error
}

// DeadLetterPublisher handles publishing messages to a Dead Letter Queue
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
