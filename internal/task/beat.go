package task

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Beat publishes a message for every schedule entry at its fixed interval.
// There is no cron syntax, jitter or drift correction.
type Beat struct {
	schedule *Schedule
	broker   Broker
	logger   *slog.Logger
}

// NewBeat creates a Beat. If logger is nil, slog.Default() is used.
func NewBeat(schedule *Schedule, broker Broker, logger *slog.Logger) *Beat {
	if logger == nil {
		logger = slog.Default()
	}
	return &Beat{
		schedule: schedule,
		broker:   broker,
		logger:   logger.With("component", "beat"),
	}
}

// Run publishes until ctx is done. The table is read once at start.
func (b *Beat) Run(ctx context.Context) error {
	entries := b.schedule.Entries()
	if len(entries) == 0 {
		b.logger.Warn("schedule is empty, nothing to publish")
	}

	b.logger.Info("beat started", "entries", len(entries))

	var wg sync.WaitGroup
	for _, rec := range entries {
		wg.Add(1)
		go func(rec Record) {
			defer wg.Done()
			b.runEntry(ctx, rec)
		}(rec)
	}

	<-ctx.Done()
	wg.Wait()
	b.logger.Info("beat stopped")
	return nil
}

func (b *Beat) runEntry(ctx context.Context, rec Record) {
	ticker := time.NewTicker(rec.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.publish(ctx, rec)
		}
	}
}

func (b *Beat) publish(ctx context.Context, rec Record) {
	msg := NewMessage(rec.Task, rec.Args)
	msg.ScheduleName = rec.Name

	if err := b.broker.Publish(ctx, msg); err != nil {
		b.logger.Error("failed to publish scheduled task",
			"schedule", rec.Name,
			"task_name", rec.Task,
			"error", err)
		return
	}

	b.logger.Info("scheduler: sending due task",
		"schedule", rec.Name,
		"task_name", rec.Task,
		"task_id", msg.ID)
}
