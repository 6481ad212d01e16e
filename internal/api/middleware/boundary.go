package middleware

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/phrazzld/todos-api/internal/api/shared"
	"github.com/phrazzld/todos-api/internal/redact"
	"github.com/phrazzld/todos-api/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// ErrPanic wraps values recovered from panicking handlers and hooks.
var ErrPanic = errors.New("handler panicked")

func panicError(rec any) error {
	if err, ok := rec.(error); ok {
		return fmt.Errorf("%w: %w\n%s", ErrPanic, err, debug.Stack())
	}
	return fmt.Errorf("%w: %v\n%s", ErrPanic, rec, debug.Stack())
}

// errorPage is the data passed to the error templates.
type errorPage struct {
	Status  int
	TraceID string
	Detail  string
}

// ErrorBoundary turns handler errors and panics into exactly one response
// and one error log entry.
type ErrorBoundary struct {
	templates  *template.Template
	showDetail bool
	logger     *slog.Logger
}

// NewErrorBoundary parses the embedded error pages. With showDetail the
// redacted failure detail is rendered into 500 pages.
func NewErrorBoundary(showDetail bool, logger *slog.Logger) (*ErrorBoundary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse error templates: %w", err)
	}
	return &ErrorBoundary{
		templates:  tmpl,
		showDetail: showDetail,
		logger:     logger.With("component", "error_boundary"),
	}, nil
}

// StatusFor classifies err: route misses and missing entities are 404,
// everything else is 500.
func StatusFor(err error) int {
	if errors.Is(err, ErrRouteNotFound) || errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Handle logs err once and renders the matching error page. If the handler
// already started the response only the log entry is written.
func (b *ErrorBoundary) Handle(w http.ResponseWriter, r *http.Request, rc *RequestContext, err error) {
	status := StatusFor(err)
	detail := redact.Error(err)

	attrs := []slog.Attr{
		slog.Int("status", status),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", detail),
		slog.String("error_type", fmt.Sprintf("%T", err)),
	}
	if rc != nil {
		attrs = append(attrs, slog.String("trace_id", rc.TraceID))
		if rc.RequestID != "" {
			attrs = append(attrs, slog.String("request_id", rc.RequestID))
		}
	}
	msg := "unhandled error"
	if status == http.StatusNotFound {
		msg = "not found"
	}
	b.logger.LogAttrs(r.Context(), slog.LevelError, msg, attrs...)

	if started(w) {
		return
	}

	page := errorPage{Status: status}
	if rc != nil {
		page.TraceID = rc.TraceID
	}
	if status == http.StatusInternalServerError && b.showDetail {
		page.Detail = detail
	}

	if wantsJSON(r) {
		message := http.StatusText(status)
		if page.Detail != "" {
			message = page.Detail
		}
		shared.RespondWithJSON(w, r, status, shared.ErrorResponse{Error: message, TraceID: page.TraceID})
		return
	}

	name := "error500.html"
	if status == http.StatusNotFound {
		name = "error404.html"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := b.templates.ExecuteTemplate(w, name, page); err != nil {
		b.logger.Warn("failed to render error page",
			slog.String("template", name),
			slog.String("error", err.Error()))
	}
}

// started reports whether a status has already been written through w.
func started(w http.ResponseWriter) bool {
	sw, ok := w.(interface{ Status() int })
	return ok && sw.Status() != 0
}

// wantsJSON reports whether the client prefers JSON over HTML.
func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "application/json") {
		return true
	}
	return accept == "" && strings.Contains(r.Header.Get("Content-Type"), "application/json")
}
