package main

import (
	"github.com/phrazzld/todos-api/internal/task"
	"github.com/spf13/cobra"
)

func newWorkerCommand() *cobra.Command {
	var withBeat bool

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume and run queued tasks",
		Long: `Consume task messages from the broker and run them with task.worker_count
concurrent workers. Every invocation gets its own database session, released
when the invocation finishes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			app, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.cleanup(); err != nil {
					app.logger.Error("cleanup failed", "error", err)
				}
			}()

			worker := app.newWorker()
			worker.Start()
			defer worker.Stop()

			if withBeat {
				return task.NewBeat(task.DefaultSchedule(), app.broker.broker, app.logger).Run(ctx)
			}

			<-ctx.Done()
			app.logger.Info("shutting down worker")
			return nil
		},
	}

	cmd.Flags().BoolVar(&withBeat, "beat", false, "also publish the periodic schedule from this process")
	return cmd
}
