package dbsession

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ExecutionContext identifies one unit of concurrent work: a request or a
// task invocation. Identifiers are never reused.
type ExecutionContext string

// NewExecutionContext mints a fresh identifier of the form "<kind>-<uuid>".
func NewExecutionContext(kind string) ExecutionContext {
	return ExecutionContext(kind + "-" + uuid.NewString())
}

// String implements fmt.Stringer.
func (ec ExecutionContext) String() string {
	return string(ec)
}

var (
	// ErrTransactionInProgress is returned by Begin when the session already
	// has an open unit of work.
	ErrTransactionInProgress = errors.New("transaction already in progress")

	// ErrNoTransaction is returned by Commit and Rollback when no unit of work
	// is open.
	ErrNoTransaction = errors.New("no transaction in progress")
)

// Conn is the slice of *sql.Conn a Session needs.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	Close() error
}

var _ Conn = (*sql.Conn)(nil)

// Session is a connection bound to a single execution context. It satisfies
// store.DBTX; while a unit of work is open, statements run inside it.
type Session struct {
	ec   ExecutionContext
	conn Conn

	mu sync.Mutex
	tx *sql.Tx
}

func newSession(ec ExecutionContext, conn Conn) *Session {
	return &Session{ec: ec, conn: conn}
}

// ExecutionContext returns the context the session is bound to.
func (s *Session) ExecutionContext() ExecutionContext {
	return s.ec
}

// querier returns the open transaction, or the connection when there is none.
func (s *Session) querier() interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx != nil {
		return s.tx
	}
	return s.conn
}

// ExecContext implements store.DBTX.
func (s *Session) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.querier().ExecContext(ctx, query, args...)
}

// PrepareContext implements store.DBTX.
func (s *Session) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	return s.querier().PrepareContext(ctx, query)
}

// QueryContext implements store.DBTX.
func (s *Session) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.querier().QueryContext(ctx, query, args...)
}

// QueryRowContext implements store.DBTX.
func (s *Session) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.querier().QueryRowContext(ctx, query, args...)
}

// BeginTx starts a transaction the caller manages directly. It does not
// affect Begin/Commit/Rollback.
func (s *Session) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return s.conn.BeginTx(ctx, opts)
}

// Begin opens the session's unit of work.
func (s *Session) Begin(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx != nil {
		return ErrTransactionInProgress
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	s.tx = tx
	return nil
}

// Commit commits the open unit of work.
func (s *Session) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		return ErrNoTransaction
	}

	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback discards the open unit of work.
func (s *Session) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		return ErrNoTransaction
	}

	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

// InTransaction reports whether a unit of work is open.
func (s *Session) InTransaction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx != nil
}

// close rolls back any uncommitted work and returns the connection to the pool.
func (s *Session) close() error {
	s.mu.Lock()
	tx := s.tx
	s.tx = nil
	s.mu.Unlock()

	var errs []error
	if tx != nil {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			errs = append(errs, fmt.Errorf("failed to roll back uncommitted work: %w", err))
		}
	}
	if err := s.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
	}
	return errors.Join(errs...)
}
