package main

import (
	"github.com/phrazzld/todos-api/internal/task"
	"github.com/spf13/cobra"
)

func newBeatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "beat",
		Short: "Publish the periodic task schedule",
		Long: `Publish a message for every schedule entry at its fixed interval. Run
exactly one beat per broker, otherwise scheduled tasks run more than once.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			broker, err := setupBroker(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = broker.Close() }()

			if broker.inProcess() {
				logger.Warn("beat with an in-process broker publishes to nobody; use worker --beat instead")
			}

			schedule := task.DefaultSchedule()
			for _, rec := range schedule.Entries() {
				logger.Info("scheduled",
					"schedule", rec.Name,
					"task", rec.Task,
					"interval", rec.Interval.String())
			}
			return task.NewBeat(schedule, broker.broker, logger).Run(ctx)
		},
	}
}
