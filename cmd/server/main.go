// Package main implements the entry point for the taskd server, a REST
// backend for per-user task lists with account management, avatars and
// lifecycle email.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/phrazzld/taskd/internal/config"
	"github.com/phrazzld/taskd/internal/platform/logger"
	"github.com/phrazzld/taskd/internal/platform/postgres"
)

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatalf("taskd: %v", err)
	}
}

// run loads configuration, migrates the database, wires the application and
// serves until a shutdown signal arrives.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"sendgrid_enabled", cfg.Mail.SendGridAPIKey != "")

	db, err := setupAppDatabase(ctx, cfg, appLogger)
	if err != nil {
		return err
	}

	if err := postgres.Migrate(ctx, db, appLogger); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	app, err := newApplication(cfg, appLogger, db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	slog.Debug("application initialized")
	return app.startHTTPServer(ctx)
}
