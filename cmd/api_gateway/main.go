package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pagstream-payments-hub/internal/api_gateway"
	"github.com/pagstream-payments-hub/internal/api_gateway/service"
	"github.com/pagstream-payments-hub/internal/config"
	"github.com/pagstream-payments-hub/internal/data/mongo"
	"github.com/pagstream-payments-hub/internal/data/postgres"
	"github.com/pagstream-payments-hub/internal/logger"
	"github.com/pagstream-payments-hub/internal/platform/metrics"
	"github.com/pagstream-payments-hub/internal/platform/persistence"
	"github.com/pagstream-payments-hub/internal/platform/provider"
	"github.com/pagstream-payments-hub/internal/reconciliation"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

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

	// Initialize repositories
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	railRepo := postgres.NewRailRepository(log, postgresDB)
	eventLogRepo := mongo.NewEventLogRepository(log, mongoDB.Database())

	// Initialize metrics registry
	m := metrics.New()

	// Initialize banking provider client and read-path reconciler
	providerClient := provider.NewClient(log, &cfg.Provider)
	reconciler := reconciliation.NewSyncer(log, transactionRepo, providerClient, m)

	// Initialize services
	transactionService := service.NewTransactionService(log, transactionRepo, railRepo, reconciler)
	webhookEventService := service.NewWebhookEventService(log, eventLogRepo)

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, transactionService, webhookEventService, m)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first so in-flight reads can still hit the pools
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
