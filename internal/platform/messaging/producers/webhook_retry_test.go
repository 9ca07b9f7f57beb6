package producers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pagstream-payments-hub/internal/domain/webhook"
)

// MockKafkaWriter is shared across package test files
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestWebhookRetryProducer_Republish(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := context.Background()

	msg := &webhook.Message{
		AuthenticationCode: "auth-123",
		EventName:          "PIX_CASH_IN_WAS_CLEARED",
		ProviderStatus:     "COMPLETED",
		DeliveryAttempt:    1,
	}

	t.Run("IncrementsAttemptAndSetsBackoff", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &WebhookRetryProducer{
			logger:      logger,
			writer:      mockWriter,
			topic:       "webhook-topic",
			backoffBase: time.Second,
		}

		before := time.Now().UTC()
		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 {
				return false
			}
			if string(msgs[0].Key) != "auth-123" {
				return false
			}
			var retried webhook.Message
			if err := json.Unmarshal(msgs[0].Value, &retried); err != nil {
				return false
			}
			if retried.DeliveryAttempt != 2 {
				return false
			}
			// attempt 1 backs off 2*base
			if retried.NotBefore == nil || retried.NotBefore.Before(before.Add(2*time.Second)) {
				return false
			}
			return len(msgs[0].Headers) == 1 && msgs[0].Headers[0].Key == "retry-reason"
		})).Return(nil).Once()

		err := producer.Republish(ctx, msg, "out of sequence")
		require.NoError(t, err)
		mockWriter.AssertExpectations(t)
	})

	t.Run("OriginalMessageNotMutated", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &WebhookRetryProducer{
			logger:      logger,
			writer:      mockWriter,
			topic:       "webhook-topic",
			backoffBase: time.Second,
		}

		mockWriter.On("WriteMessages", ctx, mock.AnythingOfType("[]kafka.Message")).Return(nil).Once()

		err := producer.Republish(ctx, msg, "out of sequence")
		require.NoError(t, err)
		assert.Equal(t, 1, msg.DeliveryAttempt)
		assert.Nil(t, msg.NotBefore)
	})

	t.Run("ReturnsErrorOnWriterError", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &WebhookRetryProducer{
			logger:      logger,
			writer:      mockWriter,
			topic:       "webhook-topic",
			backoffBase: time.Second,
		}

		writerErr := errors.New("kafka write error")
		mockWriter.On("WriteMessages", ctx, mock.AnythingOfType("[]kafka.Message")).Return(writerErr).Once()

		err := producer.Republish(ctx, msg, "out of sequence")
		require.Error(t, err)
		assert.ErrorIs(t, err, writerErr)
		mockWriter.AssertExpectations(t)
	})
}

func TestWebhookRetryProducer_Requeue(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := context.Background()

	notBefore := time.Now().UTC().Add(30 * time.Second)
	msg := &webhook.Message{
		AuthenticationCode: "auth-123",
		EventName:          "PIX_CASH_IN_WAS_CLEARED",
		ProviderStatus:     "COMPLETED",
		DeliveryAttempt:    3,
		NotBefore:          &notBefore,
	}

	t.Run("PreservesAttemptAndDeadline", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &WebhookRetryProducer{
			logger:      logger,
			writer:      mockWriter,
			topic:       "webhook-topic",
			backoffBase: time.Second,
		}

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 || string(msgs[0].Key) != "auth-123" {
				return false
			}
			var requeued webhook.Message
			if err := json.Unmarshal(msgs[0].Value, &requeued); err != nil {
				return false
			}
			if requeued.DeliveryAttempt != 3 {
				return false
			}
			return requeued.NotBefore != nil && requeued.NotBefore.Equal(notBefore)
		})).Return(nil).Once()

		err := producer.Requeue(ctx, msg)
		require.NoError(t, err)
		mockWriter.AssertExpectations(t)
	})

	t.Run("ReturnsErrorOnWriterError", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &WebhookRetryProducer{
			logger:      logger,
			writer:      mockWriter,
			topic:       "webhook-topic",
			backoffBase: time.Second,
		}

		writerErr := errors.New("kafka write error")
		mockWriter.On("WriteMessages", ctx, mock.AnythingOfType("[]kafka.Message")).Return(writerErr).Once()

		err := producer.Requeue(ctx, msg)
		require.Error(t, err)
		assert.ErrorIs(t, err, writerErr)
	})
}

func TestWebhookRetryProducer_BackoffDoubles(t *testing.T) {
	producer := &WebhookRetryProducer{backoffBase: time.Second}

	assert.Equal(t, time.Second, producer.backoffFor(0))
	assert.Equal(t, 2*time.Second, producer.backoffFor(1))
	assert.Equal(t, 8*time.Second, producer.backoffFor(3))
}
