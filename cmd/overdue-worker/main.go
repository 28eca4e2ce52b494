package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"contas/internal/config"
	"contas/internal/log"
	"contas/internal/services"
	"contas/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig()).WithComponent(log.ComponentWorker)
	log.SetDefault(logger)

	logger.Info("Starting overdue-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	sqliteRepo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer sqliteRepo.Close()

	refresher := services.NewOverdueRefresher(sqliteRepo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Overdue refresher configured",
		"interval", cfg.OverdueInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	// Run an initial sweep on startup.
	if count, err := refresher.ProcessOverdue(ctx); err != nil {
		logger.Error("Initial overdue sweep failed", "error", err)
	} else {
		logger.Info("Initial overdue sweep complete", "transactions_updated", count)
	}

	ticker := time.NewTicker(cfg.OverdueInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Overdue-worker shutdown complete")
			return
		case <-ticker.C:
			count, err := refresher.ProcessOverdue(ctx)
			if err != nil {
				logger.Error("Overdue sweep failed", "error", err)
				continue
			}
			if count > 0 {
				logger.Info("Overdue sweep complete", "transactions_updated", count)
			}
		}
	}
}
