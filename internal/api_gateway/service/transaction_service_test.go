package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pagstream-payments-hub/internal/domain/rails"
	"github.com/pagstream-payments-hub/internal/domain/transaction"
)

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) CreateFromEvent(ctx context.Context, event *transaction.Event) (*transaction.Transaction, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, authenticationCode string, to transaction.DetailedStatus, meta *transaction.UpdateMeta) (*transaction.Transaction, error) {
	args := m.Called(ctx, authenticationCode, to, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByAuthenticationCode(ctx context.Context, authenticationCode string) (*transaction.Transaction, error) {
	args := m.Called(ctx, authenticationCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindOne(ctx context.Context, id, accountID, clientID uuid.UUID) (*transaction.Transaction, error) {
	args := m.Called(ctx, id, accountID, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindAll(ctx context.Context, accountID, clientID uuid.UUID, filter *transaction.ListFilter) ([]*transaction.Transaction, int64, error) {
	args := m.Called(ctx, accountID, clientID, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*transaction.Transaction), args.Get(1).(int64), args.Error(2)
}

type MockRailRepository struct {
	mock.Mock
}

func (m *MockRailRepository) GetDetails(ctx context.Context, ref transaction.SourceRef) (*rails.Details, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rails.Details), args.Error(1)
}

type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) Sync(ctx context.Context, txn *transaction.Transaction) (*transaction.Transaction, string) {
	args := m.Called(ctx, txn)
	return args.Get(0).(*transaction.Transaction), args.String(1)
}

func testTransaction(t *testing.T, source *transaction.SourceRef) *transaction.Transaction {
	t.Helper()
	accountID := uuid.New()
	txn, err := transaction.NewFromEvent(&transaction.Event{
		AuthenticationCode: "auth-abc-123",
		Type:               transaction.TypePixCashIn,
		Status:             transaction.StatusPending,
		Amount:             decimal.NewFromFloat(99.90),
		Description:        "pix deposit",
		ClientID:           uuid.New(),
		AccountID:          &accountID,
		Source:             source,
	})
	require.NoError(t, err)
	return txn
}

func TestTransactionService_GetTransaction(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	ctx := context.Background()

	id := uuid.New()
	accountID := uuid.New()
	clientID := uuid.New()

	t.Run("ReconcilesAndAttachesDetails", func(t *testing.T) {
		mockRepo := new(MockTransactionRepository)
		mockRails := new(MockRailRepository)
		mockReconciler := new(MockReconciler)
		svc := NewTransactionService(logger, mockRepo, mockRails, mockReconciler)

		source := &transaction.SourceRef{Kind: transaction.SourcePixCashIn, ID: uuid.New()}
		txn := testTransaction(t, source)
		repaired := transaction.Rehydrate(*txn, transaction.StatusDone)
		details := &rails.Details{
			Kind:      transaction.SourcePixCashIn,
			PixCashIn: &rails.PixCashInDetails{EndToEndID: "E123"},
		}

		mockRepo.On("FindOne", ctx, id, accountID, clientID).Return(txn, nil)
		mockReconciler.On("Sync", ctx, txn).Return(repaired, "")
		mockRails.On("GetDetails", ctx, *source).Return(details, nil)

		view, warning, err := svc.GetTransaction(ctx, id, accountID, clientID)

		require.NoError(t, err)
		assert.Empty(t, warning)
		assert.Equal(t, transaction.StatusDone, view.Transaction.Status())
		require.NotNil(t, view.Details)
		assert.Equal(t, "E123", view.Details.PixCashIn.EndToEndID)

		mockRepo.AssertExpectations(t)
		mockReconciler.AssertExpectations(t)
		mockRails.AssertExpectations(t)
	})

	t.Run("WarningPassedThrough", func(t *testing.T) {
		mockRepo := new(MockTransactionRepository)
		mockRails := new(MockRailRepository)
		mockReconciler := new(MockReconciler)
		svc := NewTransactionService(logger, mockRepo, mockRails, mockReconciler)

		txn := testTransaction(t, nil)
		mockRepo.On("FindOne", ctx, id, accountID, clientID).Return(txn, nil)
		mockReconciler.On("Sync", ctx, txn).Return(txn, "provider unavailable; returning last known status")

		view, warning, err := svc.GetTransaction(ctx, id, accountID, clientID)

		require.NoError(t, err)
		assert.Equal(t, "provider unavailable; returning last known status", warning)
		assert.Nil(t, view.Details)
		mockRails.AssertNotCalled(t, "GetDetails", mock.Anything, mock.Anything)
	})

	t.Run("DanglingRailReferenceDegradesDetailView", func(t *testing.T) {
		mockRepo := new(MockTransactionRepository)
		mockRails := new(MockRailRepository)
		mockReconciler := new(MockReconciler)
		svc := NewTransactionService(logger, mockRepo, mockRails, mockReconciler)

		source := &transaction.SourceRef{Kind: transaction.SourcePixCashIn, ID: uuid.New()}
		txn := testTransaction(t, source)
		mockRepo.On("FindOne", ctx, id, accountID, clientID).Return(txn, nil)
		mockReconciler.On("Sync", ctx, txn).Return(txn, "")
		mockRails.On("GetDetails", ctx, *source).
			Return(nil, rails.ErrRecordNotFound{Kind: source.Kind, ID: source.ID})

		view, _, err := svc.GetTransaction(ctx, id, accountID, clientID)

		require.NoError(t, err)
		assert.NotNil(t, view.Transaction)
		assert.Nil(t, view.Details)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockRepo := new(MockTransactionRepository)
		mockRails := new(MockRailRepository)
		mockReconciler := new(MockReconciler)
		svc := NewTransactionService(logger, mockRepo, mockRails, mockReconciler)

		mockRepo.On("FindOne", ctx, id, accountID, clientID).
			Return(nil, transaction.ErrTransactionNotFound{ID: id})

		view, _, err := svc.GetTransaction(ctx, id, accountID, clientID)

		assert.Nil(t, view)
		assert.ErrorIs(t, err, transaction.ErrTransactionNotFound{})
		mockReconciler.AssertNotCalled(t, "Sync", mock.Anything, mock.Anything)
	})
}

func TestTransactionService_ListTransactions(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	ctx := context.Background()

	accountID := uuid.New()
	clientID := uuid.New()

	t.Run("ServesLocalStateWithoutReconciling", func(t *testing.T) {
		mockRepo := new(MockTransactionRepository)
		mockRails := new(MockRailRepository)
		mockReconciler := new(MockReconciler)
		svc := NewTransactionService(logger, mockRepo, mockRails, mockReconciler)

		txns := []*transaction.Transaction{testTransaction(t, nil), testTransaction(t, nil)}
		filter := &transaction.ListFilter{Page: 1, PerPage: 20}
		mockRepo.On("FindAll", ctx, accountID, clientID, filter).Return(txns, int64(42), nil)

		views, total, err := svc.ListTransactions(ctx, accountID, clientID, filter)

		require.NoError(t, err)
		assert.Len(t, views, 2)
		assert.Equal(t, int64(42), total)
		mockReconciler.AssertNotCalled(t, "Sync", mock.Anything, mock.Anything)
		mockRails.AssertNotCalled(t, "GetDetails", mock.Anything, mock.Anything)
	})

	t.Run("RepositoryError", func(t *testing.T) {
		mockRepo := new(MockTransactionRepository)
		mockRails := new(MockRailRepository)
		mockReconciler := new(MockReconciler)
		svc := NewTransactionService(logger, mockRepo, mockRails, mockReconciler)

		filter := &transaction.ListFilter{Page: 1, PerPage: 20}
		mockRepo.On("FindAll", ctx, accountID, clientID, filter).
			Return(nil, int64(0), errors.New("db error"))

		views, total, err := svc.ListTransactions(ctx, accountID, clientID, filter)

		assert.Error(t, err)
		assert.Nil(t, views)
		assert.Equal(t, int64(0), total)
	})
}
