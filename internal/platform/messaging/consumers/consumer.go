package consumers

import (
	"context"
	"log/slog"
	"time"

	"github.com/pagstream-payments-hub/internal/config"
	"github.com/segmentio/kafka-go"
)

// MessageHandler processes one message. A nil return commits the offset; an
// error leaves the message uncommitted so the group redelivers it.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Consumer defines the message queue consumer interface
type Consumer interface {
	Subscribe(ctx context.Context, topic string, groupID string, handler MessageHandler) error
	Close() error
}

// KafkaConsumer reads the webhook event topic. Messages are keyed by
// authentication code, so all deliveries for one financial event arrive on
// the same partition, in order.
type KafkaConsumer struct {
	reader *kafka.Reader
	logger *slog.Logger
}

func NewKafkaConsumer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig) *KafkaConsumer {
	return &KafkaConsumer{
		logger: logger,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     []string{cfg.Brokers},
			Topic:       cfg.WebhookTopic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    cfg.MinBytes,
			MaxBytes:    cfg.MaxBytes,
			MaxWait:     cfg.MaxWait,
			StartOffset: kafka.FirstOffset,
		}),
	}
}

// Subscribe subscribes to the specified topic and processes messages with the handler
func (c *KafkaConsumer) Subscribe(ctx context.Context, topic string, groupID string, handler MessageHandler) error {
	c.logger.Info("Subscribed to Kafka topic",
		"topic", topic,
		"group_id", groupID,
	)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Context canceled, stopping consumer",
					"topic", topic,
					"group_id", groupID,
				)
				return
			default:
				msg, err := c.reader.FetchMessage(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					c.logger.Error("Failed to fetch message from Kafka",
						"topic", topic,
						"group_id", groupID,
						"error", err,
					)
					time.Sleep(time.Second)
					continue
				}

				c.logger.Debug("Received webhook event",
					"topic", msg.Topic,
					"partition", msg.Partition,
					"offset", msg.Offset,
					"authentication_code", string(msg.Key),
				)

				processingErr := handler(ctx, msg.Key, msg.Value)
				if processingErr != nil {
					c.logger.Error("Failed to process message, will not commit offset",
						"topic", msg.Topic,
						"partition", msg.Partition,
						"offset", msg.Offset,
						"authentication_code", string(msg.Key),
						"error", processingErr,
					)
					// Uncommitted messages come back on the next fetch
					continue
				}

				if err := c.reader.CommitMessages(ctx, msg); err != nil {
					c.logger.Error("Failed to commit message after successful processing",
						"topic", msg.Topic,
						"partition", msg.Partition,
						"offset", msg.Offset,
						"authentication_code", string(msg.Key),
						"error", err,
					)
				} else {
					c.logger.Debug("Message committed",
						"topic", msg.Topic,
						"offset", msg.Offset,
						"authentication_code", string(msg.Key),
					)
				}
			}
		}
	}()

	return nil
}

func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
