package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pagstream-payments-hub/internal/config"
	"github.com/pagstream-payments-hub/internal/data/mongo"
	"github.com/pagstream-payments-hub/internal/data/postgres"
	"github.com/pagstream-payments-hub/internal/logger"
	"github.com/pagstream-payments-hub/internal/platform/messaging/consumers"
	"github.com/pagstream-payments-hub/internal/platform/messaging/producers"
	"github.com/pagstream-payments-hub/internal/platform/metrics"
	"github.com/pagstream-payments-hub/internal/platform/persistence"
	"github.com/pagstream-payments-hub/internal/webhook_processor/consumer"
	"github.com/pagstream-payments-hub/internal/webhook_processor/sequencer"
	"github.com/pagstream-payments-hub/internal/webhook_processor/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("webhook_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Webhook Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	redisClient, err := persistence.NewRedisClient(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	eventLogRepo := mongo.NewEventLogRepository(log, mongoDB.Database())

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka producers
	retryProducer, err := producers.NewWebhookRetryProducer(appCtx, log, &cfg.Kafka, cfg.Webhook.RetryBackoffBase)
	if err != nil {
		log.Error("Failed to initialize webhook retry Kafka producer", "error", err)
		os.Exit(1)
	}

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	if dlqProducer == nil {
		// Events that exhaust their retries have nowhere to go without a DLQ
		log.Error("DLQ topic must be configured for the webhook processor")
		os.Exit(1)
	}

	// Initialize metrics registry
	m := metrics.New()

	// Initialize per-authentication-code sequencer
	seq := sequencer.New(log, redisClient, cfg.Webhook.SequencerLockTTL)

	// Initialize ingestion service wrapped in a worker pool
	baseService := service.NewIngestionService(
		log,
		transactionRepo,
		eventLogRepo,
		seq,
		retryProducer,
		dlqProducer,
		m,
		cfg.Webhook.MaxRetryAttempts,
	)

	ingestionService, err := service.NewWorkerPoolIngestionService(
		baseService,
		service.WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		log.With("component", "worker_pool"),
	)
	if err != nil {
		log.Error("Failed to create worker pool ingestion service", "error", err)
		os.Exit(1)
	}
	log.Info("Created worker pool ingestion service", "pool_size", cfg.WorkerPool.Size)

	// Initialize webhook event handler
	webhookEventHandler := consumer.NewWebhookEventHandler(
		log,
		ingestionService,
		retryProducer,
		dlqProducer,
	)

	// Create error channel for service errors
	errChan := make(chan error, 1)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start Kafka consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.WebhookTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.WebhookTopic, cfg.Kafka.ConsumerGroup, webhookEventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Shutdown the worker pool; in-flight events finish first
	log.Info("Shutting down worker pool", "running_workers", ingestionService.Running())
	ingestionService.Shutdown()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close Kafka producers
	if err = retryProducer.Close(); err != nil {
		log.Error("Error closing webhook retry Kafka producer", "error", err)
	}
	if err = dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
	}

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Close Redis connection
	if err = redisClient.Close(); err != nil {
		log.Error("Error closing Redis connection", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Webhook Processor shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Webhook Processor shutdown completed with errors")
	} else {
		log.Info("Webhook Processor shutdown completed successfully")
	}
}
