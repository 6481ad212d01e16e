package dbsession

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/phrazzld/todos-api/internal/platform/logger"
)

// entry is published in the map before its connection is acquired; ready is
// closed once sess or err is set.
type entry struct {
	ready chan struct{}
	sess  *Session
	err   error
}

// Registry maps execution contexts to their sessions. It is safe for
// concurrent use; connection acquisition happens outside the lock so a slow
// acquire for one context never blocks the others.
type Registry struct {
	opener Opener
	logger *slog.Logger

	mu      sync.Mutex
	entries map[ExecutionContext]*entry
}

// NewRegistry creates a Registry that opens sessions with opener.
// If logger is nil, slog.Default() is used.
func NewRegistry(opener Opener, logger *slog.Logger) *Registry {
	if opener == nil {
		panic("opener cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		opener:  opener,
		logger:  logger.With(slog.String("component", "session_registry")),
		entries: make(map[ExecutionContext]*entry),
	}
}

// Get returns the session bound to ec, opening one on first use.
// Concurrent calls for the same context share a single open. If the pool
// cannot supply a connection in time the error wraps ErrResourceExhausted;
// nothing is retried and no entry is left behind.
func (r *Registry) Get(ctx context.Context, ec ExecutionContext) (*Session, error) {
	log := logger.FromContextOrDefault(ctx, r.logger)

	r.mu.Lock()
	if e, ok := r.entries[ec]; ok {
		r.mu.Unlock()
		select {
		case <-e.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if e.err != nil {
			return nil, e.err
		}
		return e.sess, nil
	}

	e := &entry{ready: make(chan struct{})}
	r.entries[ec] = e
	r.mu.Unlock()

	conn, err := r.opener.Open(ctx)
	if err != nil {
		r.mu.Lock()
		if r.entries[ec] == e {
			delete(r.entries, ec)
		}
		r.mu.Unlock()

		e.err = err
		close(e.ready)

		level := slog.LevelError
		if errors.Is(err, ErrResourceExhausted) {
			level = slog.LevelWarn
		}
		log.Log(ctx, level, "failed to open session",
			slog.String("execution_context", ec.String()),
			slog.String("error", err.Error()))
		return nil, err
	}

	e.sess = newSession(ec, conn)
	close(e.ready)

	log.Debug("session opened", slog.String("execution_context", ec.String()))
	return e.sess, nil
}

// Release closes and forgets the session bound to ec. Releasing a context
// that holds no session, or releasing twice, is a no-op.
func (r *Registry) Release(ec ExecutionContext) error {
	r.mu.Lock()
	e, ok := r.entries[ec]
	if ok {
		delete(r.entries, ec)
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}

	<-e.ready
	if e.err != nil || e.sess == nil {
		return nil
	}

	if err := e.sess.close(); err != nil {
		r.logger.Error("failed to release session",
			slog.String("execution_context", ec.String()),
			slog.String("error", err.Error()))
		return err
	}

	r.logger.Debug("session released", slog.String("execution_context", ec.String()))
	return nil
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close releases every remaining session. It is called on shutdown.
func (r *Registry) Close() error {
	r.mu.Lock()
	ecs := make([]ExecutionContext, 0, len(r.entries))
	for ec := range r.entries {
		ecs = append(ecs, ec)
	}
	r.mu.Unlock()

	var errs []error
	for _, ec := range ecs {
		if err := r.Release(ec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
