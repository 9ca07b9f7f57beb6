package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pagstream-payments-hub/internal/domain/webhook"
)

type MockWebhookEventService struct {
	mock.Mock
}

func (m *MockWebhookEventService) ListUnapplied(ctx context.Context, page, perPage int) ([]*webhook.EventLogEntry, int64, error) {
	args := m.Called(ctx, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*webhook.EventLogEntry), args.Get(1).(int64), args.Error(2)
}

func (m *MockWebhookEventService) GetEventHistory(ctx context.Context, authenticationCode string) ([]*webhook.EventLogEntry, error) {
	args := m.Called(ctx, authenticationCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*webhook.EventLogEntry), args.Error(1)
}

func testLogEntry(authenticationCode string, applied bool) *webhook.EventLogEntry {
	return &webhook.EventLogEntry{
		ID:                 uuid.New(),
		AuthenticationCode: authenticationCode,
		EntityType:         "PIX_CASH_IN",
		EventName:          "PIX_CASH_IN_WAS_RECEIVED",
		Applied:            applied,
		Attempts:           1,
		ReceivedAt:         time.Now().UTC(),
	}
}

func newWebhookEventRouter(handler *WebhookEventHandler) *gin.Engine {
	router := gin.New()
	router.GET("/webhook-events/unapplied", handler.ListUnapplied)
	router.GET("/webhook-events/:authenticationCode", handler.GetHistory)
	return router
}

func TestWebhookEventHandler_ListUnapplied(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gin.SetMode(gin.TestMode)

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockWebhookEventService)
		handler := NewWebhookEventHandler(logger, mockService)
		router := newWebhookEventRouter(handler)

		entries := []*webhook.EventLogEntry{
			testLogEntry("auth-1", false),
			testLogEntry("auth-2", false),
		}
		mockService.On("ListUnapplied", mock.Anything, 1, 20).Return(entries, int64(7), nil)

		req, _ := http.NewRequest(http.MethodGet, "/webhook-events/unapplied", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var response PaginatedResponse[webhook.EventLogEntry]
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
		assert.Len(t, response.Data, 2)
		require.NotNil(t, response.Meta)
		assert.Equal(t, 7, response.Meta.TotalItems)

		mockService.AssertExpectations(t)
	})

	t.Run("ExplicitPagination", func(t *testing.T) {
		mockService := new(MockWebhookEventService)
		handler := NewWebhookEventHandler(logger, mockService)
		router := newWebhookEventRouter(handler)

		mockService.On("ListUnapplied", mock.Anything, 3, 5).
			Return([]*webhook.EventLogEntry{}, int64(11), nil)

		req, _ := http.NewRequest(http.MethodGet, "/webhook-events/unapplied?page=3&per_page=5", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("ServiceError", func(t *testing.T) {
		mockService := new(MockWebhookEventService)
		handler := NewWebhookEventHandler(logger, mockService)
		router := newWebhookEventRouter(handler)

		mockService.On("ListUnapplied", mock.Anything, 1, 20).
			Return(nil, int64(0), errors.New("mongo down"))

		req, _ := http.NewRequest(http.MethodGet, "/webhook-events/unapplied", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestWebhookEventHandler_GetHistory(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gin.SetMode(gin.TestMode)

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockWebhookEventService)
		handler := NewWebhookEventHandler(logger, mockService)
		router := newWebhookEventRouter(handler)

		entries := []*webhook.EventLogEntry{
			testLogEntry("auth-xyz", true),
			testLogEntry("auth-xyz", false),
		}
		mockService.On("GetEventHistory", mock.Anything, "auth-xyz").Return(entries, nil)

		req, _ := http.NewRequest(http.MethodGet, "/webhook-events/auth-xyz", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var topLevelResponse struct {
			Data []*webhook.EventLogEntry `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &topLevelResponse))
		assert.Len(t, topLevelResponse.Data, 2)
		assert.Equal(t, "auth-xyz", topLevelResponse.Data[0].AuthenticationCode)

		mockService.AssertExpectations(t)
	})

	t.Run("NoEventsRecorded", func(t *testing.T) {
		mockService := new(MockWebhookEventService)
		handler := NewWebhookEventHandler(logger, mockService)
		router := newWebhookEventRouter(handler)

		mockService.On("GetEventHistory", mock.Anything, "auth-unknown").
			Return([]*webhook.EventLogEntry{}, nil)

		req, _ := http.NewRequest(http.MethodGet, "/webhook-events/auth-unknown", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("ServiceError", func(t *testing.T) {
		mockService := new(MockWebhookEventService)
		handler := NewWebhookEventHandler(logger, mockService)
		router := newWebhookEventRouter(handler)

		mockService.On("GetEventHistory", mock.Anything, "auth-xyz").
			Return(nil, fmt.Errorf("mongo down"))

		req, _ := http.NewRequest(http.MethodGet, "/webhook-events/auth-xyz", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
