package main

import (
	"fmt"
	"strings"

	"github.com/phrazzld/todos-api/internal/platform/postgres/migrations"
	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate <" + strings.Join(migrations.Commands, "|") + ">",
		Short:     "Manage the database schema",
		Long:      "Apply, roll back or inspect the embedded database migrations.",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: migrations.Commands,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := setupAppDatabase(ctx, cfg.Database, logger)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := migrations.Run(ctx, db, args[0], logger); err != nil {
				return fmt.Errorf("migrate %s: %w", args[0], err)
			}
			return nil
		},
	}
}
