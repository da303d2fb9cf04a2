package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/adboard/internal/config"
	"github.com/Dan9191/adboard/internal/handler"
	"github.com/Dan9191/adboard/internal/repository"
	"github.com/Dan9191/adboard/internal/repository/memory"
	"github.com/Dan9191/adboard/internal/repository/mongodb"
	"github.com/Dan9191/adboard/internal/scheduler"
	"github.com/Dan9191/adboard/internal/service"
	"github.com/Dan9191/adboard/internal/storage"
	"github.com/Dan9191/adboard/internal/utils/email"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warnf("Failed to load .env: %v", err)
	}

	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if err := run(logger); err != nil {
		logger.Fatal(err)
	}
	logger.Info("Server stopped")
}

// run wires the service and blocks until the server stops
func run(logger *logrus.Logger) error {
	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	files, err := openFileStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open file store: %w", err)
	}

	// Initialize layers
	svc := service.NewService(store, files, email.NewSender(cfg, logger), logger, cfg)
	h := handler.NewHandler(svc, cfg, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	housekeeper, err := scheduler.NewHousekeeper(store, cfg.HousekeepingSchedule, logger)
	if err != nil {
		return fmt.Errorf("failed to create housekeeper: %w", err)
	}
	housekeeper.Start()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           h.Routes(reg),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{"addr": addr, "db": cfg.DBDriver, "storage": cfg.StorageDriver}).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
	}
	housekeeper.Stop(shutdownCtx)
	return runErr
}

func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (repository.Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	switch cfg.DBDriver {
	case "postgres":
		return repository.OpenPostgres(connectCtx, cfg.DBConn)
	case "mongo":
		return mongodb.Open(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
	case "memory":
		logger.Warn("Using in-memory store; data is lost on restart")
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
}

func openFileStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (storage.FileStore, error) {
	if cfg.StorageDriver == "s3" {
		return storage.NewS3Store(ctx, cfg, logger)
	}
	return storage.NewLocalStore(cfg.UploadDir, cfg.UploadURLPrefix, logger)
}
