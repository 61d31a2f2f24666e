package database

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/ymori/authkit/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies pending schema migrations. It opens its own database/sql
// connection because goose does not speak the pgx pool API.
func Migrate(cfg *config.DatabaseConfig, logger *slog.Logger) error {
	return MigrateDSN(cfg.DSN(), logger)
}

// MigrateDSN applies migrations against an explicit connection string.
func MigrateDSN(dsn string, logger *slog.Logger) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	logger.Info("database migrations applied", slog.Int64("version", version))
	return nil
}
