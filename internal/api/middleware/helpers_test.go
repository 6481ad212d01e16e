package middleware

import (
	"context"
	"sync"
	"testing"

	"github.com/phrazzld/todos-api/internal/dbsession"
	"github.com/phrazzld/todos-api/internal/platform/logger"
	"github.com/stretchr/testify/require"
)

// recordingSessions is a SessionSource that never opens a connection and
// records the release order.
type recordingSessions struct {
	mu        sync.Mutex
	released  []dbsession.ExecutionContext
	onRelease func()
}

func (s *recordingSessions) Get(context.Context, dbsession.ExecutionContext) (*dbsession.Session, error) {
	return nil, dbsession.ErrResourceExhausted
}

func (s *recordingSessions) Release(ec dbsession.ExecutionContext) error {
	s.mu.Lock()
	s.released = append(s.released, ec)
	s.mu.Unlock()
	if s.onRelease != nil {
		s.onRelease()
	}
	return nil
}

func (s *recordingSessions) Released() []dbsession.ExecutionContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]dbsession.ExecutionContext(nil), s.released...)
}

func newTestBoundary(t *testing.T, showDetail bool) (*ErrorBoundary, *logger.TestLogBuffer) {
	t.Helper()
	l, buf := logger.GetTestLogger(t)
	b, err := NewErrorBoundary(showDetail, l)
	require.NoError(t, err)
	return b, buf
}

func newTestChain(t *testing.T) (*Chain, *recordingSessions, *logger.TestLogBuffer) {
	t.Helper()
	l, buf := logger.GetTestLogger(t)
	b, err := NewErrorBoundary(false, l)
	require.NoError(t, err)
	sessions := &recordingSessions{}
	return NewChain(b, sessions, l), sessions, buf
}
