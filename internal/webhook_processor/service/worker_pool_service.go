package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/pagstream-payments-hub/internal/domain/webhook"
)

// WorkerPoolIngestionService implements the IngestionService interface on top
// of a bounded worker pool
type WorkerPoolIngestionService struct {
	baseService IngestionService
	pool        *ants.Pool
	logger      *slog.Logger
	// Use a mutex to protect access to the results map
	mu      sync.Mutex
	results map[string]chan error
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolIngestionService(
	baseService IngestionService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolIngestionService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolIngestionService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
		results:     make(map[string]chan error),
	}, nil
}

// ProcessEvent submits a webhook event to the worker pool for processing
func (s *WorkerPoolIngestionService) ProcessEvent(ctx context.Context, msg *webhook.Message) error {
	logger := s.logger
	if msg.CorrelationID != "" {
		logger = s.logger.With("correlation_id", msg.CorrelationID)
	}

	logger.Info("Submitting webhook event to worker pool",
		"authentication_code", msg.AuthenticationCode,
		"event_name", msg.EventName,
	)

	resultChan := make(chan error, 1)

	// Keyed by code and event so concurrent deliveries for one transaction
	// each get their own channel
	slot := msg.AuthenticationCode + "/" + msg.EventName
	s.mu.Lock()
	s.results[slot] = resultChan
	s.mu.Unlock()

	// Copy the message to avoid data races with the consumer loop
	msgCopy := *msg

	err := s.pool.Submit(func() {
		err := s.baseService.ProcessEvent(ctx, &msgCopy)

		resultChan <- err

		s.mu.Lock()
		delete(s.results, slot)
		close(resultChan)
		s.mu.Unlock()
	})

	if err != nil {
		s.mu.Lock()
		delete(s.results, slot)
		close(resultChan)
		s.mu.Unlock()

		logger.Error("Failed to submit webhook event to worker pool",
			"authentication_code", msg.AuthenticationCode,
			"error", err,
		)
		return err
	}

	// Wait for the worker so the Kafka offset is only committed after the
	// event is fully applied
	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool
func (s *WorkerPoolIngestionService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool
func (s *WorkerPoolIngestionService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool
func (s *WorkerPoolIngestionService) Capacity() int {
	return s.pool.Cap()
}
