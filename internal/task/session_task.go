package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/phrazzld/todos-api/internal/dbsession"
	"github.com/phrazzld/todos-api/internal/platform/logger"
)

// ErrTaskPanicked wraps a panic recovered from task work.
var ErrTaskPanicked = errors.New("task panicked")

// State is the lifecycle of one SessionTask invocation:
// Idle -> Running -> Succeeded|Failed -> Finalized.
type State int32

// Invocation states
const (
	StateIdle State = iota
	StateRunning
	StateSucceeded
	StateFailed
	StateFinalized
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Handler is anything a worker can invoke by name.
type Handler interface {
	Invoke(ctx context.Context, ec dbsession.ExecutionContext, args json.RawMessage) (any, error)
}

// HandlerFunc adapts a function that needs no database session to Handler.
type HandlerFunc func(ctx context.Context, ec dbsession.ExecutionContext, args json.RawMessage) (any, error)

// Invoke implements Handler.
func (f HandlerFunc) Invoke(ctx context.Context, ec dbsession.ExecutionContext, args json.RawMessage) (any, error) {
	return f(ctx, ec, args)
}

// Invocation is what a SessionTask's work receives.
type Invocation struct {
	Context  dbsession.ExecutionContext
	Args     json.RawMessage
	sessions *dbsession.Registry
	state    atomic.Int32
}

// State returns where this invocation is in its lifecycle.
func (inv *Invocation) State() State {
	return State(inv.state.Load())
}

// Session returns the database session of this invocation, opening it on
// first use. Every call within the invocation returns the same session.
func (inv *Invocation) Session(ctx context.Context) (*dbsession.Session, error) {
	return inv.sessions.Get(ctx, inv.Context)
}

// SessionFunc is the work of a SessionTask.
type SessionFunc func(ctx context.Context, inv *Invocation) (any, error)

// SessionTask runs database work in its own goroutine and, once the work has
// returned, failed or panicked, releases the invocation's session from the
// goroutine that called Invoke.
type SessionTask struct {
	name     string
	sessions *dbsession.Registry
	work     SessionFunc
	logger   *slog.Logger
	state    atomic.Int32
}

// NewSessionTask creates a SessionTask. If logger is nil, slog.Default() is used.
func NewSessionTask(name string, sessions *dbsession.Registry, work SessionFunc, logger *slog.Logger) *SessionTask {
	if sessions == nil {
		panic("sessions cannot be nil")
	}
	if work == nil {
		panic("work cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionTask{
		name:     name,
		sessions: sessions,
		work:     work,
		logger:   logger.With("component", "session_task", "task_name", name),
	}
}

var _ Handler = (*SessionTask)(nil)

// Name returns the registered task name.
func (t *SessionTask) Name() string {
	return t.name
}

// State returns the last transition made by any invocation of the task. With
// concurrent invocations the last writer wins, so it is only a diagnostic;
// Invocation.State reports a single invocation.
func (t *SessionTask) State() State {
	return State(t.state.Load())
}

type outcome struct {
	result any
	err    error
}

// Invoke implements Handler. Errors and panics from the work are returned to
// the caller; the session bound to ec is released exactly once in every case.
// Cancelling ctx is left to the work to observe; Invoke always waits for it.
func (t *SessionTask) Invoke(ctx context.Context, ec dbsession.ExecutionContext, args json.RawMessage) (any, error) {
	log := logger.FromContextOrDefault(ctx, t.logger)
	inv := &Invocation{Context: ec, Args: args, sessions: t.sessions}
	t.transition(inv, StateRunning)

	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: fmt.Errorf("%w: %v", ErrTaskPanicked, p)}
			}
		}()
		result, err := t.work(ctx, inv)
		done <- outcome{result: result, err: err}
	}()

	out := <-done
	if out.err != nil {
		t.transition(inv, StateFailed)
	} else {
		t.transition(inv, StateSucceeded)
	}

	t.finalize(log, inv)
	return out.result, out.err
}

// finalize releases the invocation's session. A release failure is logged
// and never changes the task's outcome.
func (t *SessionTask) finalize(log *slog.Logger, inv *Invocation) {
	ec := inv.Context
	final := inv.State()
	if err := t.sessions.Release(ec); err != nil {
		log.Error("failed to release task session",
			slog.String("execution_context", ec.String()),
			slog.String("error", err.Error()))
	}
	t.transition(inv, StateFinalized)
	log.Debug("task finalized",
		slog.String("execution_context", ec.String()),
		slog.String("outcome", final.String()))
}

func (t *SessionTask) transition(inv *Invocation, s State) {
	inv.state.Store(int32(s))
	t.state.Store(int32(s))
}
