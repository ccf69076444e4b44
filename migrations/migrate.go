package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"
)

// NewProvider returns a goose provider over the embedded migrations.
func NewProvider(db *sql.DB) (*goose.Provider, error) {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, FS)
	if err != nil {
		return nil, fmt.Errorf("migrations: create provider: %w", err)
	}
	return provider, nil
}

// Up applies every embedded migration that has not run yet and logs each
// one it applies.
func Up(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	provider, err := NewProvider(db)
	if err != nil {
		return err
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrations: apply: %w", err)
	}
	LogResults(logger, "migration applied", results)
	return nil
}

// LogResults logs one line per migration result.
func LogResults(logger *slog.Logger, msg string, results []*goose.MigrationResult) {
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		logger.Info(msg,
			"version", r.Source.Version,
			"file", r.Source.Path,
			"duration_ms", r.Duration.Milliseconds(),
		)
	}
}
