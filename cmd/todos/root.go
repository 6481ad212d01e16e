package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/todos-api/internal/config"
	"github.com/phrazzld/todos-api/internal/platform/logger"
	"github.com/spf13/cobra"
)

// appName is reported by /appinfo and used as the cobra root.
const appName = "todos"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Shared todo list service",
		Long: `Shared todo list service.

Configuration is read from .env, an optional config.yaml and environment
variables prefixed with TODOS_ (for example TODOS_DATABASE_URL).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServerCommand())
	cmd.AddCommand(newWorkerCommand())
	cmd.AddCommand(newBeatCommand())
	cmd.AddCommand(newMigrateCommand())

	return cmd
}

// loadConfig loads the configuration and installs the configured logger as
// the process default.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(logger.FromServerConfig(cfg.Server))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	return cfg, l, nil
}
