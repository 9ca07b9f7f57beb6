package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/pagstream-payments-hub/internal/domain/webhook"
)

type MockEventLogRepository struct {
	mock.Mock
}

func (m *MockEventLogRepository) Record(ctx context.Context, entry *webhook.EventLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockEventLogRepository) GetByAuthenticationCode(ctx context.Context, authenticationCode string) ([]*webhook.EventLogEntry, error) {
	args := m.Called(ctx, authenticationCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*webhook.EventLogEntry), args.Error(1)
}

func (m *MockEventLogRepository) ListUnapplied(ctx context.Context, limit, offset int) ([]*webhook.EventLogEntry, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*webhook.EventLogEntry), args.Error(1)
}

func (m *MockEventLogRepository) CountUnapplied(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func TestNewEventLogRepository(t *testing.T) {
	db := &mongo.Database{}
	logger := slog.Default()

	repo := NewEventLogRepository(logger, db)

	assert.NotNil(t, repo)
	assert.IsType(t, &EventLogRepository{}, repo)
}

func TestEventLogRepository_Record(t *testing.T) {
	mockRepo := &MockEventLogRepository{}

	entry := &webhook.EventLogEntry{
		AuthenticationCode: "auth-abc-123",
		EntityType:         "Pix",
		EventName:          "PIX_CASH_IN_WAS_RECEIVED",
		Applied:            true,
		Attempts:           1,
		ReceivedAt:         time.Now(),
	}

	tests := []struct {
		name          string
		setupMocks    func()
		expectedError error
	}{
		{
			name: "successful record",
			setupMocks: func() {
				mockRepo.On("Record", mock.Anything, entry).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "database error",
			setupMocks: func() {
				mockRepo.On("Record", mock.Anything, entry).Return(errors.New("insert failed")).Once()
			},
			expectedError: errors.New("insert failed"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMocks()

			err := mockRepo.Record(context.Background(), entry)

			if tt.expectedError != nil {
				assert.EqualError(t, err, tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestEventLogRepository_ListUnapplied(t *testing.T) {
	mockRepo := &MockEventLogRepository{}

	processedAt := time.Now()
	entries := []*webhook.EventLogEntry{
		{
			AuthenticationCode: "auth-abc-123",
			EventName:          "PIX_REFUND_WAS_CONCLUDED",
			Applied:            false,
			SkipReason:         "retries exhausted: transaction not found",
			Attempts:           5,
			ReceivedAt:         processedAt.Add(-time.Minute),
			ProcessedAt:        &processedAt,
		},
	}

	mockRepo.On("ListUnapplied", mock.Anything, 20, 0).Return(entries, nil).Once()
	mockRepo.On("CountUnapplied", mock.Anything).Return(int64(1), nil).Once()

	got, err := mockRepo.ListUnapplied(context.Background(), 20, 0)
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.False(t, got[0].Applied)
	assert.Equal(t, 5, got[0].Attempts)

	count, err := mockRepo.CountUnapplied(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)

	mockRepo.AssertExpectations(t)
}
