package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"dorm-occupancy-backend/config"
	"dorm-occupancy-backend/internal/api"
	"dorm-occupancy-backend/internal/db"
	"dorm-occupancy-backend/internal/metrics"
	"dorm-occupancy-backend/internal/notification"
	"dorm-occupancy-backend/internal/occupancy"
	"dorm-occupancy-backend/internal/store"
	"dorm-occupancy-backend/internal/sweeper"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "dorm-occupancy ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	loc, err := time.LoadLocation(cfg.Occupancy.Timezone)
	if err != nil {
		logger.Fatalf("invalid occupancy.timezone %q: %v", cfg.Occupancy.Timezone, err)
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Printf("database initialized successfully (driver=%s)", cfg.Database.Driver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	notifier := notification.NewWorkerPool(cfg.Notification.WorkerPoolSize, cfg.Notification.QueueSize, gormDB)
	notifier.Start(ctx)

	svc := occupancy.NewService(appStore,
		occupancy.WithNotifier(notifier),
		occupancy.WithMetrics(m),
		occupancy.WithLocation(loc),
		occupancy.WithConflictRetries(cfg.Occupancy.ConflictRetries),
	)
	logger.Println("occupancy engine initialized")

	// Shared with the sweeper so no-shows it writes are not served stale.
	responses := api.NewResponseCache(cfg.Server)

	noShows := sweeper.NewService(cfg.Sweeper, svc, m, sweeper.WithAfterMark(responses.Flush))
	go func() {
		if err := noShows.Run(ctx); err != nil {
			logger.Printf("no-show sweeper stopped: %v", err)
		}
	}()

	// Initialize router
	router := api.NewRouter(api.NewHandler(svc), cfg.Server, registry, responses)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}
	cancel()

	logger.Println("Server gracefully stopped")
}
