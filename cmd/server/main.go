// Command server runs the riskoracle HTTP API: risk verdicts for agent
// actions, the assessment audit log, the live feed and health/metrics.
package main

import (
	"context"
	"os"

	"github.com/mbd888/riskoracle/internal/config"
	"github.com/mbd888/riskoracle/internal/logging"
	"github.com/mbd888/riskoracle/internal/server"
)

// Build info, set by ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	// Bootstrap logger until config is loaded
	logger := logging.New("info", "text")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = logging.New(cfg.LogLevel, cfg.LogFormat)
	if Version != "dev" {
		server.Version = Version
	}
	logger.Info("starting riskoracle",
		"version", server.Version,
		"commit", Commit,
		"build_time", BuildTime,
		"env", cfg.Env,
		"persistent", cfg.DatabaseURL != "",
		"tracing", cfg.OTLPEndpoint != "",
		"policy_file", cfg.PolicyFile,
		"history_capacity", cfg.HistoryCapacity,
	)

	srv, err := server.New(cfg, server.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	if err := srv.Run(context.Background()); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
