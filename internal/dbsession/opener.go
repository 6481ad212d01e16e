package dbsession

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrResourceExhausted is returned when no connection could be acquired from
// the pool before the acquire timeout elapsed.
var ErrResourceExhausted = errors.New("database connection pool exhausted")

// Opener acquires a connection for a new session.
type Opener interface {
	Open(ctx context.Context) (Conn, error)
}

// PoolOpener acquires dedicated connections from a bounded *sql.DB pool.
type PoolOpener struct {
	db             *sql.DB
	acquireTimeout time.Duration
}

// NewPoolOpener returns an Opener over db. A non-positive acquireTimeout
// waits as long as the caller's context allows.
func NewPoolOpener(db *sql.DB, acquireTimeout time.Duration) *PoolOpener {
	if db == nil {
		panic("db cannot be nil")
	}
	return &PoolOpener{db: db, acquireTimeout: acquireTimeout}
}

// Open implements Opener.
func (o *PoolOpener) Open(ctx context.Context) (Conn, error) {
	acquireCtx := ctx
	if o.acquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, o.acquireTimeout)
		defer cancel()
	}

	conn, err := o.db.Conn(acquireCtx)
	if err != nil {
		// Only the acquire timeout means the pool is saturated; the caller's
		// own deadline is reported as is.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %w", ErrResourceExhausted, err)
		}
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return conn, nil
}
