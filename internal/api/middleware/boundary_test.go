package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/todos-api/internal/api/shared"
	"github.com/phrazzld/todos-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusFor(ErrRouteNotFound))
	assert.Equal(t, http.StatusNotFound, StatusFor(fmt.Errorf("load: %w", store.ErrTodoNotFound)))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("boom")))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(store.ErrDuplicate))
}

func TestErrorBoundary_NotFoundHTML(t *testing.T) {
	b, buf := newTestBoundary(t, false)
	rc := &RequestContext{TraceID: "trace-404"}

	rec := httptest.NewRecorder()
	b.Handle(rec, httptest.NewRequest(http.MethodGet, "/nope", nil), rc, ErrRouteNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<h1>404</h1>")
	assert.Contains(t, rec.Body.String(), "trace-404")

	entries := buf.EntriesAtLevel(t, slog.LevelError)
	require.Len(t, entries, 1)
	assert.Equal(t, "not found", entries[0]["msg"])
}

func TestErrorBoundary_UnhandledHidesDetail(t *testing.T) {
	b, buf := newTestBoundary(t, false)

	rec := httptest.NewRecorder()
	err := errors.New("query failed: SELECT * FROM users WHERE password = 'x'")
	b.Handle(rec, httptest.NewRequest(http.MethodGet, "/todos", nil), &RequestContext{}, err)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>500</h1>")
	assert.NotContains(t, rec.Body.String(), "query failed")

	entries := buf.EntriesWithMessage(t, "unhandled error")
	require.Len(t, entries, 1)
	assert.Equal(t, "query failed: [REDACTED_SQL]", entries[0]["error"])
}

func TestErrorBoundary_UnhandledKeepsWrappedCause(t *testing.T) {
	b, buf := newTestBoundary(t, false)

	rec := httptest.NewRecorder()
	err := fmt.Errorf("failed to update todo 3f2a: %w", errors.New("connection refused"))
	b.Handle(rec, httptest.NewRequest(http.MethodPatch, "/todos/3f2a", nil), &RequestContext{}, err)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	entries := buf.EntriesWithMessage(t, "unhandled error")
	require.Len(t, entries, 1)
	assert.Equal(t, "failed to update todo 3f2a: connection refused", entries[0]["error"])
}

func TestErrorBoundary_UnhandledShowsRedactedDetail(t *testing.T) {
	b, _ := newTestBoundary(t, true)

	rec := httptest.NewRecorder()
	err := errors.New("connect postgres://todo:hunter2@db/todos failed")
	b.Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil), &RequestContext{}, err)

	body := rec.Body.String()
	assert.Contains(t, body, "[REDACTED_CREDENTIAL]")
	assert.NotContains(t, body, "hunter2")
}

func TestErrorBoundary_JSON(t *testing.T) {
	b, _ := newTestBoundary(t, false)

	req := httptest.NewRequest(http.MethodGet, "/todos/x", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	b.Handle(rec, req, &RequestContext{TraceID: "t-1"}, store.ErrTodoNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body shared.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Not Found", body.Error)
	assert.Equal(t, "t-1", body.TraceID)
}

func TestErrorBoundary_ResponseAlreadyStarted(t *testing.T) {
	b, buf := newTestBoundary(t, false)

	rec := httptest.NewRecorder()
	ww := chimw.NewWrapResponseWriter(rec, 1)
	ww.WriteHeader(http.StatusOK)
	_, _ = ww.Write([]byte("partial"))

	b.Handle(ww, httptest.NewRequest(http.MethodGet, "/", nil), &RequestContext{}, errors.New("late failure"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())
	assert.Len(t, buf.EntriesWithMessage(t, "unhandled error"), 1)
}

func TestPanicError(t *testing.T) {
	err := panicError("boom")
	assert.ErrorIs(t, err, ErrPanic)

	cause := errors.New("nil map")
	err = panicError(cause)
	assert.ErrorIs(t, err, ErrPanic)
	assert.ErrorIs(t, err, cause)
}
