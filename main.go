package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/agrimet-io/telemetry-api/config"
	"github.com/agrimet-io/telemetry-api/db"
	httpserver "github.com/agrimet-io/telemetry-api/http"
	"github.com/agrimet-io/telemetry-api/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := db.New(ctx, cfg.DatabaseURL, cfg.Connect)
	if err != nil {
		logger.Error("db connection error", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		logger.Error("migrate error", "error", err)
		os.Exit(1)
	}
	if err := store.EnsureAdminUser(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		logger.Error("seed operator error", "error", err)
		os.Exit(1)
	}

	srv := httpserver.New(cfg, store, logger)
	logger.Info("telemetry API listening", "addr", cfg.ListenAddr())

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
