package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/spf13/pflag"

	"github.com/civicgrid/grievance-engine/internal/assignment"
	"github.com/civicgrid/grievance-engine/internal/clock"
	"github.com/civicgrid/grievance-engine/internal/config"
	"github.com/civicgrid/grievance-engine/internal/database"
	"github.com/civicgrid/grievance-engine/internal/escalation"
	"github.com/civicgrid/grievance-engine/internal/events"
	"github.com/civicgrid/grievance-engine/internal/handlers"
	"github.com/civicgrid/grievance-engine/internal/lifecycle"
	"github.com/civicgrid/grievance-engine/internal/metrics"
	"github.com/civicgrid/grievance-engine/internal/notification"
	"github.com/civicgrid/grievance-engine/internal/review"
)

const serviceName = "grievance-engine"

func main() {
	configPath := pflag.String("config", "", "path to config file")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogging(cfg)
	logger.Info("Starting Grievance Engine Service",
		"service", serviceName,
		"environment", cfg.Environment)

	// Database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", "error", err)
		}
	}()

	if err := database.RunMigrations(cfg.Database, logger); err != nil {
		logger.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	// Stores
	complaintStore := database.NewComplaintRepository(db, logger)
	rosterStore := database.NewRosterRepository(db, logger)

	// Assignment
	rosterService := assignment.NewRosterService(
		rosterStore,
		complaintStore,
		cfg.Assignment.SnapshotTTL,
		cfg.Assignment.SnapshotCleanup,
		logger,
	)

	// Collaborators
	collector := metrics.NewCollector()

	notificationManager := notification.NewManager(cfg.Notifications, logger)
	notificationManager.Start()
	defer notificationManager.Stop()

	var publisher lifecycle.EventPublisher
	if cfg.Kafka.Enabled {
		kafkaPublisher, err := events.NewKafkaPublisher(cfg.Kafka, logger)
		if err != nil {
			logger.Error("Failed to create kafka publisher", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := kafkaPublisher.Close(); err != nil {
				logger.Error("Failed to close kafka publisher", "error", err)
			}
		}()
		publisher = kafkaPublisher
	}

	// Lifecycle engine
	engineOpts := []lifecycle.Option{
		lifecycle.WithNotifier(notificationManager),
		lifecycle.WithMetrics(collector),
	}
	if publisher != nil {
		engineOpts = append(engineOpts, lifecycle.WithPublisher(publisher))
	}
	engine := lifecycle.NewEngine(complaintStore, rosterService, cfg.SLA, clock.Real{}, logger, engineOpts...)

	// Supervisor review gate
	gateOpts := []review.Option{
		review.WithNotifier(notificationManager),
		review.WithMetrics(collector),
	}
	if publisher != nil {
		gateOpts = append(gateOpts, review.WithPublisher(publisher))
	}
	gate := review.NewGate(complaintStore, clock.Real{}, logger, gateOpts...)

	// Escalation scheduler
	var scheduler *escalation.Scheduler
	if cfg.Scheduler.Enabled {
		slaScan := escalation.NewSLAScanHandler(
			complaintStore, engine, cfg.SLA, cfg.Scheduler.ScanBatchSize, clock.Real{}, logger)
		supervisorScan := escalation.NewSupervisorScanHandler(
			complaintStore, engine, cfg.Scheduler.ScanBatchSize, clock.Real{}, logger)

		scheduler, err = escalation.NewScheduler(cfg.Scheduler, logger, collector,
			escalation.Task{Schedule: cfg.Scheduler.SLAScanSchedule, Handler: slaScan},
			escalation.Task{Schedule: cfg.Scheduler.SupervisorScanSchedule, Handler: supervisorScan},
		)
		if err != nil {
			logger.Error("Failed to create scheduler", "error", err)
			os.Exit(1)
		}
		if err := scheduler.Start(); err != nil {
			logger.Error("Failed to start scheduler", "error", err)
			os.Exit(1)
		}
		defer scheduler.Stop()
	}

	// HTTP server
	httpHandlers := handlers.NewHTTPHandler(&cfg, logger, engine, gate, scheduler, notificationManager)
	httpRouter := mux.NewRouter()
	httpHandlers.RegisterRoutes(httpRouter)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "port", cfg.Server.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", "signal", sig)
	case err := <-serverErr:
		logger.Error("HTTP server failed", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown HTTP server gracefully", "error", err)
	}

	logger.Info("Service shutdown complete")
}

// setupLogging configures structured logging
func setupLogging(cfg config.Config) *slog.Logger {
	logLevel := slog.LevelInfo
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}

	handlerOptions := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: cfg.Debug,
	}

	var handler slog.Handler
	if cfg.Logging.Format == "json" || cfg.Environment == "production" {
		handler = slog.NewJSONHandler(os.Stdout, handlerOptions)
	} else {
		handler = slog.NewTextHandler(os.Stdout, handlerOptions)
	}

	logger := slog.New(handler)
	logger = logger.With(
		"service", serviceName,
		"environment", cfg.Environment,
	)

	slog.SetDefault(logger)
	return logger
}
