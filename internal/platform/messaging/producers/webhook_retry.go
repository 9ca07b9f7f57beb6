package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/pagstream-payments-hub/internal/config"
	"github.com/pagstream-payments-hub/internal/domain/webhook"
)

// WebhookRetryProducer republishes out-of-sequence webhook events back onto
// the webhook topic with an incremented attempt counter and an exponential
// backoff deadline. Kafka does not delay delivery itself, so the consumer
// honors the NotBefore stamp before reprocessing.
type WebhookRetryProducer struct {
	logger      *slog.Logger
	writer      KafkaWriter // Interface for testability
	topic       string
	backoffBase time.Duration
}

// NewWebhookRetryProducer creates the retry producer and ensures the webhook topic exists
func NewWebhookRetryProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig, backoffBase time.Duration) (*WebhookRetryProducer, error) {
	if cfg.WebhookTopic == "" {
		return nil, fmt.Errorf("kafka webhook topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for webhook retry producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.WebhookTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure webhook topic %s exists for retry producer: %w", cfg.WebhookTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.WebhookTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false, // A lost retry is a lost event; wait for the ack
		WriteTimeout: cfg.MaxWait,
	}

	return &WebhookRetryProducer{
		logger:      logger,
		writer:      writer,
		topic:       cfg.WebhookTopic,
		backoffBase: backoffBase,
	}, nil
}

// Republish puts the event back on the topic with attempt+1 and a NotBefore
// deadline of backoffBase * 2^attempt. Keyed by authentication code so all
// deliveries for one code stay on one partition.
func (p *WebhookRetryProducer) Republish(ctx context.Context, msg *webhook.Message, reason string) error {
	retried := *msg
	retried.DeliveryAttempt = msg.DeliveryAttempt + 1
	notBefore := time.Now().UTC().Add(p.backoffFor(msg.DeliveryAttempt))
	retried.NotBefore = &notBefore

	value, err := json.Marshal(&retried)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook message for retry: %w", err)
	}

	kafkaMsg := kafka.Message{
		Key:   []byte(msg.AuthenticationCode),
		Value: value,
		Headers: []kafka.Header{
			{Key: "retry-reason", Value: []byte(reason)},
		},
	}

	if err := p.writer.WriteMessages(ctx, kafkaMsg); err != nil {
		p.logger.Error("Failed to republish webhook event",
			"topic", p.topic,
			"authentication_code", msg.AuthenticationCode,
			"attempt", retried.DeliveryAttempt,
			"error", err,
		)
		return fmt.Errorf("failed to republish webhook event to %s: %w", p.topic, err)
	}

	p.logger.Info("Webhook event scheduled for retry",
		"topic", p.topic,
		"authentication_code", msg.AuthenticationCode,
		"attempt", retried.DeliveryAttempt,
		"not_before", notBefore,
		"reason", reason,
	)
	return nil
}

// Requeue puts a not-yet-due event back on the topic verbatim. The attempt
// counter and NotBefore stamp are preserved; the event keeps cycling through
// its partition until the backoff deadline passes, without holding up the
// messages behind it.
func (p *WebhookRetryProducer) Requeue(ctx context.Context, msg *webhook.Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook message for requeue: %w", err)
	}

	kafkaMsg := kafka.Message{
		Key:   []byte(msg.AuthenticationCode),
		Value: value,
		Headers: []kafka.Header{
			{Key: "requeue-reason", Value: []byte("backoff pending")},
		},
	}

	if err := p.writer.WriteMessages(ctx, kafkaMsg); err != nil {
		p.logger.Error("Failed to requeue webhook event",
			"topic", p.topic,
			"authentication_code", msg.AuthenticationCode,
			"attempt", msg.DeliveryAttempt,
			"error", err,
		)
		return fmt.Errorf("failed to requeue webhook event to %s: %w", p.topic, err)
	}
	return nil
}

func (p *WebhookRetryProducer) backoffFor(attempt int) time.Duration {
	backoff := p.backoffBase
	for i := 0; i < attempt; i++ {
		backoff *= 2
	}
	return backoff
}

func (p *WebhookRetryProducer) Close() error {
	p.logger.Info("Closing webhook retry Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close webhook retry kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
