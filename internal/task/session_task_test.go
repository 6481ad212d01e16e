package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phrazzld/todos-api/internal/dbsession"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTask_SuccessReleasesSession(t *testing.T) {
	sessions, opener := newTestSessions(t)
	ec := dbsession.NewExecutionContext("task")

	var first, second *dbsession.Session
	task := NewSessionTask("test.success", sessions, func(ctx context.Context, inv *Invocation) (any, error) {
		var err error
		first, err = inv.Session(ctx)
		assert.NoError(t, err)
		second, err = inv.Session(ctx)
		assert.NoError(t, err)
		return 42, nil
	}, nil)

	assert.Equal(t, StateIdle, task.State())

	result, err := task.Invoke(context.Background(), ec, nil)
	require.NoError(t, err)

	assert.Equal(t, 42, result)
	assert.Same(t, first, second, "same session within one invocation")
	assert.Equal(t, ec, first.ExecutionContext())
	assert.Equal(t, StateFinalized, task.State())
	assert.Equal(t, int32(1), opener.opens.Load())
	assert.Equal(t, int32(1), opener.closes.Load())
	assert.Equal(t, 0, sessions.Len(), "session released before Invoke returns")
}

func TestSessionTask_FailureReleasesSession(t *testing.T) {
	sessions, opener := newTestSessions(t)
	workErr := errors.New("boom")

	task := NewSessionTask("test.failure", sessions, func(ctx context.Context, inv *Invocation) (any, error) {
		_, err := inv.Session(ctx)
		assert.NoError(t, err)
		return nil, workErr
	}, nil)

	_, err := task.Invoke(context.Background(), dbsession.NewExecutionContext("task"), nil)
	assert.ErrorIs(t, err, workErr)
	assert.Equal(t, StateFinalized, task.State())
	assert.Equal(t, int32(1), opener.closes.Load())
	assert.Equal(t, 0, sessions.Len())
}

func TestSessionTask_PanicBecomesFailure(t *testing.T) {
	sessions, opener := newTestSessions(t)

	task := NewSessionTask("test.panic", sessions, func(ctx context.Context, inv *Invocation) (any, error) {
		_, err := inv.Session(ctx)
		assert.NoError(t, err)
		panic("kaboom")
	}, nil)

	var err error
	assert.NotPanics(t, func() {
		_, err = task.Invoke(context.Background(), dbsession.NewExecutionContext("task"), nil)
	})
	assert.ErrorIs(t, err, ErrTaskPanicked)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Equal(t, int32(1), opener.closes.Load())
	assert.Equal(t, 0, sessions.Len())
}

func TestSessionTask_NoSessionWhenUnused(t *testing.T) {
	sessions, opener := newTestSessions(t)

	task := NewSessionTask("test.nodb", sessions, func(ctx context.Context, inv *Invocation) (any, error) {
		return "done", nil
	}, nil)

	result, err := task.Invoke(context.Background(), dbsession.NewExecutionContext("task"), nil)
	require.NoError(t, err)
	assert.Equal(t, "done", result)
	assert.Equal(t, int32(0), opener.opens.Load())
	assert.Equal(t, int32(0), opener.closes.Load())
}

func TestSessionTask_CancellationStillFinalizes(t *testing.T) {
	sessions, opener := newTestSessions(t)

	task := NewSessionTask("test.cancel", sessions, func(ctx context.Context, inv *Invocation) (any, error) {
		_, err := inv.Session(ctx)
		assert.NoError(t, err)
		<-ctx.Done()
		return nil, ctx.Err()
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := task.Invoke(ctx, dbsession.NewExecutionContext("task"), nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), opener.closes.Load())
	assert.Equal(t, 0, sessions.Len())
}

func TestSessionTask_ConcurrentInvocationsAreIsolated(t *testing.T) {
	sessions, _ := newTestSessions(t)

	seen := make(chan *dbsession.Session, 2)
	release := make(chan struct{})
	task := NewSessionTask("test.isolated", sessions, func(ctx context.Context, inv *Invocation) (any, error) {
		sess, err := inv.Session(ctx)
		if err != nil {
			return nil, err
		}
		seen <- sess
		<-release
		return nil, nil
	}, nil)

	done := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := task.Invoke(context.Background(), dbsession.NewExecutionContext("task"), nil)
			done <- err
		}()
	}

	a, b := <-seen, <-seen
	assert.NotSame(t, a, b)
	assert.NotEqual(t, a.ExecutionContext(), b.ExecutionContext())

	close(release)
	require.NoError(t, <-done)
	require.NoError(t, <-done)
	assert.Equal(t, 0, sessions.Len())
}

func TestSessionTask_InvocationStateIsPerInvocation(t *testing.T) {
	sessions, _ := newTestSessions(t)

	started := make(chan *Invocation, 1)
	release := make(chan struct{})
	task := NewSessionTask("test.state", sessions, func(ctx context.Context, inv *Invocation) (any, error) {
		if string(inv.Args) == `"slow"` {
			started <- inv
			<-release
		}
		return nil, nil
	}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := task.Invoke(context.Background(), dbsession.NewExecutionContext("task"), []byte(`"slow"`))
		done <- err
	}()
	slow := <-started

	_, err := task.Invoke(context.Background(), dbsession.NewExecutionContext("task"), []byte(`"fast"`))
	require.NoError(t, err)

	assert.Equal(t, StateFinalized, task.State(), "task state reflects the last transition")
	assert.Equal(t, StateRunning, slow.State(), "the blocked invocation is still running")

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateFinalized, slow.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "finalized", StateFinalized.String())
	assert.Equal(t, "state(9)", State(9).String())
}
