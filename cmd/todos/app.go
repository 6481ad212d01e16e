package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/todos-api/internal/config"
	"github.com/phrazzld/todos-api/internal/dbsession"
	"github.com/phrazzld/todos-api/internal/platform/postgres"
	"github.com/phrazzld/todos-api/internal/service/auth"
	"github.com/phrazzld/todos-api/internal/store"
	"github.com/phrazzld/todos-api/internal/task"
)

// application holds the shared dependencies of every subcommand and closes
// them on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Database sessions keyed by execution context
	sessions *dbsession.Registry

	codec auth.SessionCodec

	// Task handling
	broker  *brokerConn
	tasks   *task.Registry
	results task.ResultStore
}

// newApplication wires the session registry, the session codec and the task
// registry on top of an open database and broker.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB, broker *brokerConn) (*application, error) {
	app := &application{
		config:  cfg,
		logger:  logger,
		db:      db,
		broker:  broker,
		results: broker.results,
	}

	var err error
	app.codec, err = auth.NewSessionCodec(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session codec: %w", err)
	}
	logger.Info("session codec initialized",
		"session_lifetime_minutes", cfg.Auth.SessionLifetimeMinutes)

	app.sessions = dbsession.NewRegistry(
		dbsession.NewPoolOpener(db, cfg.Database.AcquireTimeout),
		logger,
	)

	app.tasks = task.NewRegistry()
	if err := task.RegisterDefaults(app.tasks, app.sessions, app.newTodoStore, logger); err != nil {
		return nil, fmt.Errorf("failed to register tasks: %w", err)
	}
	logger.Info("tasks registered", "tasks", app.tasks.Names())

	return app, nil
}

func (app *application) newTodoStore(db store.DBTX) store.TodoStore {
	return postgres.NewPostgresTodoStore(db, app.logger)
}

func (app *application) newUserStore(db store.DBTX) store.UserStore {
	return postgres.NewPostgresUserStore(db, app.config.Auth.BcryptCost)
}

// newWorker builds a worker pool consuming from the application's broker.
func (app *application) newWorker() *task.Worker {
	w := task.NewWorker(app.broker.broker, app.tasks, app.results,
		task.WorkerConfig{WorkerCount: app.config.Task.WorkerCount}, app.logger)
	w.SetErrorHandler(func(msg task.Message, err error) {
		app.logger.Error("task failed",
			"task_id", msg.ID,
			"task_name", msg.Task,
			"schedule", msg.ScheduleName,
			"error", err)
	})
	return w
}

// cleanup releases resources in reverse order of acquisition.
func (app *application) cleanup() error {
	var errs []error
	if app.sessions != nil {
		if err := app.sessions.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close sessions: %w", err))
		}
	}
	if app.broker != nil {
		if err := app.broker.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

// bootstrap loads configuration and opens every backing service.
func bootstrap(ctx context.Context) (*application, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := setupAppDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	broker, err := setupBroker(ctx, cfg, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	app, err := newApplication(cfg, logger, db, broker)
	if err != nil {
		_ = broker.Close()
		_ = db.Close()
		return nil, err
	}
	return app, nil
}
