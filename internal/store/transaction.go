package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/todos-api/internal/platform/logger"
)

// TxFn is the body of a transaction. Every statement it runs through db is
// part of the transaction.
type TxFn func(ctx context.Context, db DBTX) error

// UnitOfWork is a handle that owns at most one open transaction and routes
// its statements through it. dbsession.Session implements it.
type UnitOfWork interface {
	DBTX
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error
	InTransaction() bool
}

// RunInTransaction runs fn atomically on db and commits when fn returns nil.
//
// A UnitOfWork with no open transaction gets one for the duration of fn; one
// that is already in a transaction is joined, leaving commit to its owner.
// A TxBeginner (*sql.DB, *sql.Conn) starts a plain *sql.Tx. Anything else,
// such as an *sql.Tx, is assumed to be transactional already and fn runs on
// it directly. A panic in fn rolls back and re-panics.
func RunInTransaction(ctx context.Context, db DBTX, fn TxFn) error {
	switch h := db.(type) {
	case UnitOfWork:
		if h.InTransaction() {
			return fn(ctx, h)
		}
		return runUnitOfWork(ctx, h, fn)
	case TxBeginner:
		return runSQLTx(ctx, h, fn)
	default:
		return fn(ctx, db)
	}
}

func runUnitOfWork(ctx context.Context, uow UnitOfWork, fn TxFn) error {
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	return finish(ctx, fn, uow, uow.Commit, uow.Rollback)
}

func runSQLTx(ctx context.Context, db TxBeginner, fn TxFn) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		logger.FromContext(ctx).Error("failed to begin transaction",
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	return finish(ctx, fn, tx, tx.Commit, tx.Rollback)
}

// finish runs fn on db and then commits, or rolls back on error or panic.
func finish(ctx context.Context, fn TxFn, db DBTX, commit, rollback func() error) error {
	log := logger.FromContext(ctx)

	defer func() {
		if p := recover(); p != nil {
			if rbErr := rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.Error("failed to roll back transaction after panic",
					slog.String("error", rbErr.Error()),
					slog.Any("panic", p))
			}
			// ALLOW-PANIC: propagating caught panic from transaction
			panic(p)
		}
	}()

	if err := fn(ctx, db); err != nil {
		if rbErr := rollback(); rbErr != nil {
			log.Error("failed to roll back transaction",
				slog.String("rollback_error", rbErr.Error()),
				slog.String("error", err.Error()))
			return errors.Join(err, fmt.Errorf("failed to roll back transaction: %w", rbErr))
		}
		log.Debug("rolled back transaction", slog.String("error", err.Error()))
		return err
	}

	if err := commit(); err != nil {
		log.Error("failed to commit transaction", slog.String("error", err.Error()))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
