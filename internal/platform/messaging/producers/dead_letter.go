package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/pagstream-payments-hub/internal/config"
)

// DLQProducer writes the final disposition of webhook events that could not
// be applied: malformed payloads, unprocessable events, and events that
// exhausted their retries. The DLQ message wraps the original payload so an
// operator can replay it after fixing the cause.
type DLQProducer struct {
	logger   *slog.Logger
	writer   KafkaWriter
	dlqTopic string
}

// deadLetter is the envelope written to the DLQ topic
type deadLetter struct {
	AuthenticationCode string    `json:"authentication_code"`
	OriginalPayload    string    `json:"original_payload"`
	Reason             string    `json:"reason"`
	DeadLetteredAt     time.Time `json:"dead_lettered_at"`
}

// NewDLQProducer creates the producer and ensures the DLQ topic exists.
// Returns a nil producer when no DLQ topic is configured.
func NewDLQProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*DLQProducer, error) {
	if cfg.DLQTopic == "" {
		logger.Info("DLQ topic is not configured. DLQProducer will not be initialized.")
		return nil, nil
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for dlq producer: %w", err)
	}
	defer conn.Close()

	if err := createKafkaTopicIfNotExists(conn, cfg.DLQTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure DLQ topic %s exists: %w", cfg.DLQTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.DLQTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false, // The DLQ write is the last trace of the event; wait for the ack
		WriteTimeout: cfg.MaxWait,
	}

	return &DLQProducer{
		logger:   logger,
		writer:   writer,
		dlqTopic: cfg.DLQTopic,
	}, nil
}

// PublishToDLQ records the event's final disposition. The key is the
// authentication code so all deliveries for one financial event land in the
// same partition.
func (p *DLQProducer) PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error {
	if p == nil || p.writer == nil {
		return fmt.Errorf("DLQ producer not initialized")
	}

	value, err := json.Marshal(deadLetter{
		AuthenticationCode: key,
		OriginalPayload:    string(originalMessageValue),
		Reason:             reason,
		DeadLetteredAt:     time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "dlq-reason", Value: []byte(reason)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish message to DLQ",
			"topic", p.dlqTopic,
			"authentication_code", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish message to DLQ %s: %w", p.dlqTopic, err)
	}

	p.logger.Info("Published message to DLQ",
		"topic", p.dlqTopic,
		"authentication_code", key,
		"reason", reason,
	)
	return nil
}

func (p *DLQProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	p.logger.Info("Closing DLQ Kafka message producer", "topic", p.dlqTopic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close dlq kafka writer for topic %s: %w", p.dlqTopic, err)
	}
	return nil
}
