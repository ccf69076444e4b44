// Command migrate manages the risk oracle's PostgreSQL schema with goose.
//
// Usage:
//
//	go run ./cmd/migrate up               # Apply all pending migrations
//	go run ./cmd/migrate up-to <version>  # Apply up to and including version
//	go run ./cmd/migrate down             # Roll back the last migration
//	go run ./cmd/migrate down-to <version>
//	go run ./cmd/migrate status           # Show migration status
//	go run ./cmd/migrate version          # Show current schema version
//
// The server applies pending migrations on startup; this command is for
// inspecting and rolling back.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/mbd888/riskoracle/internal/logging"
	"github.com/mbd888/riskoracle/migrations"
)

const usage = "Usage: migrate <up|up-to <version>|down|down-to <version>|status|version>"

func main() {
	_ = godotenv.Load()
	logger := logging.New(os.Getenv("LOG_LEVEL"), "text")

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Error("DATABASE_URL environment variable is required")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	provider, err := migrations.NewProvider(db)
	if err != nil {
		logger.Error("failed to load migrations", "error", err)
		os.Exit(1)
	}

	command := os.Args[1]
	if err := run(ctx, logger, provider, command, os.Args[2:]); err != nil {
		logger.Error("migration command failed", "command", command, "error", err)
		os.Exit(1)
	}
	logger.Info("done", "command", command)
}

func run(ctx context.Context, logger *slog.Logger, p *goose.Provider, command string, args []string) error {
	switch command {
	case "up":
		results, err := p.Up(ctx)
		migrations.LogResults(logger, "migration applied", results)
		return err
	case "up-to":
		version, err := versionArg(args)
		if err != nil {
			return err
		}
		results, err := p.UpTo(ctx, version)
		migrations.LogResults(logger, "migration applied", results)
		return err
	case "down":
		result, err := p.Down(ctx)
		if result != nil {
			migrations.LogResults(logger, "migration rolled back", []*goose.MigrationResult{result})
		}
		return err
	case "down-to":
		version, err := versionArg(args)
		if err != nil {
			return err
		}
		results, err := p.DownTo(ctx, version)
		migrations.LogResults(logger, "migration rolled back", results)
		return err
	case "status":
		statuses, err := p.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			applied := "pending"
			if s.State == goose.StateApplied {
				applied = s.AppliedAt.Format(time.RFC3339)
			}
			fmt.Printf("%-6d %-40s %s\n", s.Source.Version, s.Source.Path, applied)
		}
		return nil
	case "version":
		version, err := p.GetDBVersion(ctx)
		if err != nil {
			return err
		}
		fmt.Println(version)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}
}

func versionArg(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected exactly one version argument")
	}
	v, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid version %q", args[0])
	}
	return v, nil
}
