package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/phrazzld/todos-api/internal/dbsession"
	"github.com/phrazzld/todos-api/internal/domain"
)

// ErrNoSessions is returned by RequestContext.Session when the chain was
// built without a session registry.
var ErrNoSessions = errors.New("no session registry configured")

// SessionSource hands out and releases the per-request database session.
// *dbsession.Registry satisfies it.
type SessionSource interface {
	Get(ctx context.Context, ec dbsession.ExecutionContext) (*dbsession.Session, error)
	Release(ec dbsession.ExecutionContext) error
}

var _ SessionSource = (*dbsession.Registry)(nil)

// RequestFields are the request attributes captured by RequestLogHook.
type RequestFields struct {
	Method   string              `json:"method"`
	Path     string              `json:"path"`
	ClientIP string              `json:"client_ip"`
	Host     string              `json:"host"`
	Query    map[string][]string `json:"query,omitempty"`
	Form     map[string][]string `json:"form,omitempty"`
}

// RequestContext carries per-request state through the hooks and the
// handler. It lives from the first pre-hook until the request's session has
// been released.
type RequestContext struct {
	Start     time.Time
	ExecCtx   dbsession.ExecutionContext
	RequestID string
	TraceID   string
	// User is nil for anonymous requests.
	User   *domain.User
	Fields RequestFields

	sessions SessionSource
}

// Session returns the database session bound to this request, opening it on
// first use. The chain releases it after the response has been logged.
func (rc *RequestContext) Session(ctx context.Context) (*dbsession.Session, error) {
	if rc.sessions == nil {
		return nil, ErrNoSessions
	}
	return rc.sessions.Get(ctx, rc.ExecCtx)
}

// Authenticated reports whether IdentityHook resolved a user.
func (rc *RequestContext) Authenticated() bool {
	return rc.User != nil
}

type requestContextKey struct{}

// WithRequestContext returns a context carrying rc.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// FromRequest returns the RequestContext the chain attached to r, or nil.
func FromRequest(r *http.Request) *RequestContext {
	rc, _ := r.Context().Value(requestContextKey{}).(*RequestContext)
	return rc
}
