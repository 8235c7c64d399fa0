package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/cardforge/internal/config"
	"github.com/phrazzld/cardforge/internal/platform/postgres"
	"github.com/phrazzld/cardforge/internal/redact"
)

// setupDatabase opens the configured database. It returns a nil *sql.DB
// when no database URL is set; the server then keeps task records in
// memory and does not persist flashcards.
func setupDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	if !cfg.Database.Enabled() {
		logger.Warn("no database configured, flashcards will not be persisted")
		return nil, nil
	}

	db, err := postgres.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", redact.URL(cfg.Database.URL), err)
	}

	logger.Info("database connection established", "url", redact.URL(cfg.Database.URL))
	return db, nil
}

// runMigrations opens the database, runs one migration command and closes
// the connection.
func runMigrations(ctx context.Context, cfg *config.Config, logger *slog.Logger, command string) error {
	if !cfg.Database.Enabled() {
		return errors.New("database.url must be set to run migrations")
	}

	db, err := postgres.Open(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", redact.URL(cfg.Database.URL), err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("error closing database connection", "error", err)
		}
	}()

	return postgres.Migrate(ctx, db, logger, command)
}
