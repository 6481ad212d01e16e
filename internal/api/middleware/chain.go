package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/todos-api/internal/api/shared"
	"github.com/phrazzld/todos-api/internal/dbsession"
	"github.com/phrazzld/todos-api/internal/platform/logger"
)

// ErrRouteNotFound is returned by NotFound for requests no route matched.
var ErrRouteNotFound = errors.New("route not found")

// PreHook runs before the handler. A non-nil error skips the remaining
// pre-hooks and the handler and is passed to the error boundary.
type PreHook func(w http.ResponseWriter, r *http.Request, rc *RequestContext) error

// PostHook runs once the response has been written, with its final status.
type PostHook func(r *http.Request, rc *RequestContext, status int)

// HandlerFunc is an HTTP handler that receives the request context
// explicitly and reports failures by returning them.
type HandlerFunc func(w http.ResponseWriter, r *http.Request, rc *RequestContext) error

// Chain runs ordered pre-hooks and a single post-hook around every request
// and hands handler errors and panics to the error boundary.
type Chain struct {
	pre      []PreHook
	post     PostHook
	boundary *ErrorBoundary
	sessions SessionSource
	logger   *slog.Logger
}

// NewChain creates a Chain. sessions may be nil when no handler touches the
// database.
func NewChain(boundary *ErrorBoundary, sessions SessionSource, logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		boundary: boundary,
		sessions: sessions,
		logger:   logger.With("component", "request_chain"),
	}
}

// Use appends a pre-hook. Pre-hooks run in registration order.
func (c *Chain) Use(hook PreHook) {
	c.pre = append(c.pre, hook)
}

// After sets the post-hook, replacing any previous one.
func (c *Chain) After(hook PostHook) {
	c.post = hook
}

// Middleware wraps next with the chain. It is meant for router.Use so that
// route misses pass through the chain as well.
func (c *Chain) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := &RequestContext{
			ExecCtx:  dbsession.NewExecutionContext("request"),
			TraceID:  shared.NewTraceID(),
			sessions: c.sessions,
		}

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		ctx := shared.WithTraceID(r.Context(), rc.TraceID)
		ctx = logger.WithLogger(ctx, c.logger.With(
			slog.String("trace_id", rc.TraceID),
			slog.String("exec_ctx", rc.ExecCtx.String())))
		r = r.WithContext(WithRequestContext(ctx, rc))

		defer c.finish(ww, r, rc)

		func() {
			defer func() {
				if rec := recover(); rec != nil {
					c.fail(ww, r, rc, panicError(rec))
				}
			}()

			for _, hook := range c.pre {
				if err := hook(ww, r, rc); err != nil {
					c.fail(ww, r, rc, err)
					return
				}
			}
			// RequestLogHook has read X-Request-ID by now.
			if rc.RequestID != "" {
				r = r.WithContext(logger.WithRequestID(r.Context(), rc.RequestID))
			}
			next.ServeHTTP(ww, r)
		}()
	})
}

// Handle adapts an error-returning handler for registration on a router
// wrapped by Middleware.
func (c *Chain) Handle(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc := FromRequest(r)
		if rc == nil {
			// Route registered outside the chain; serve it with a throwaway
			// context so handlers can rely on rc being non-nil.
			rc = &RequestContext{ExecCtx: dbsession.NewExecutionContext("request"), sessions: c.sessions}
			defer c.release(rc)
		}
		if err := h(w, r, rc); err != nil {
			c.fail(w, r, rc, err)
		}
	}
}

// NotFound is the handler for requests no route matched.
func NotFound(w http.ResponseWriter, r *http.Request, rc *RequestContext) error {
	return fmt.Errorf("%w: %s %s", ErrRouteNotFound, r.Method, r.URL.Path)
}

func (c *Chain) fail(w http.ResponseWriter, r *http.Request, rc *RequestContext, err error) {
	if c.boundary == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	c.boundary.Handle(w, r, rc, err)
}

// finish runs the post-hook and then releases the request's session.
func (c *Chain) finish(ww chimw.WrapResponseWriter, r *http.Request, rc *RequestContext) {
	status := ww.Status()
	if status == 0 {
		status = http.StatusOK
	}

	if c.post != nil {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					logger.FromContextOrDefault(r.Context(), c.logger).
						Error("post-hook panicked", slog.Any("panic", rec))
				}
			}()
			c.post(r, rc, status)
		}()
	}

	c.release(rc)
}

func (c *Chain) release(rc *RequestContext) {
	if rc.sessions == nil {
		return
	}
	if err := rc.sessions.Release(rc.ExecCtx); err != nil {
		c.logger.Warn("failed to release request session",
			slog.String("exec_ctx", rc.ExecCtx.String()),
			slog.String("error", err.Error()))
	}
}
