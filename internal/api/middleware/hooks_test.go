package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/todos-api/internal/domain"
	"github.com/phrazzld/todos-api/internal/mocks"
	"github.com/phrazzld/todos-api/internal/platform/logger"
	"github.com/phrazzld/todos-api/internal/service/auth"
	"github.com/phrazzld/todos-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLogHook(t *testing.T) {
	l, buf := logger.GetTestLogger(t)

	form := url.Values{"title": {"milk"}, "password": {"hunter2"}}
	req := httptest.NewRequest(http.MethodPost, "http://todos.local:8080/todos?tag=a&tag=b", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	req.Header.Set(RequestIDHeader, "req-42")
	req = req.WithContext(logger.WithLogger(req.Context(), l))

	rc := &RequestContext{}
	require.NoError(t, RequestLogHook()(httptest.NewRecorder(), req, rc))

	assert.False(t, rc.Start.IsZero())
	assert.Equal(t, "req-42", rc.RequestID)
	assert.Equal(t, "203.0.113.9", rc.Fields.ClientIP)
	assert.Equal(t, "todos.local", rc.Fields.Host)
	assert.Equal(t, []string{"a", "b"}, rc.Fields.Query["tag"])
	assert.Equal(t, []string{"milk"}, rc.Fields.Form["title"])
	assert.Equal(t, []string{"hunter2"}, rc.Fields.Form["password"], "fields keep raw values for handlers")

	entries := buf.EntriesWithMessage(t, "request")
	require.Len(t, entries, 1)
	assert.Equal(t, "DEBUG", entries[0]["level"])
	assert.Equal(t, "req-42", entries[0]["request_id"])
	assert.NotContains(t, buf.String(), "hunter2")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:54321"
	assert.Equal(t, "192.0.2.1", clientIP(req))

	req.RemoteAddr = "not-an-addr"
	assert.Equal(t, "not-an-addr", clientIP(req))

	req.Header.Set("X-Forwarded-For", " 198.51.100.7 ")
	assert.Equal(t, "198.51.100.7", clientIP(req))
}

func TestRequestLogHook_NoRequestID(t *testing.T) {
	l, buf := logger.GetTestLogger(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logger.WithLogger(req.Context(), l))

	rc := &RequestContext{}
	require.NoError(t, RequestLogHook()(httptest.NewRecorder(), req, rc))

	entries := buf.EntriesWithMessage(t, "request")
	require.Len(t, entries, 1)
	_, has := entries[0]["request_id"]
	assert.False(t, has)
}

func identityRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}
	return req
}

func TestIdentityHook(t *testing.T) {
	alice := &domain.User{ID: 1, Username: "alice"}
	users := mocks.NewMockUserStore(alice)
	loader := UserLoaderFunc(func(ctx context.Context, rc *RequestContext, id int64) (*domain.User, error) {
		return users.GetByID(ctx, id)
	})
	hook := IdentityHook(&mocks.MockSessionCodec{}, loader)

	tests := []struct {
		name     string
		token    string
		wantUser *domain.User
	}{
		{"no cookie", "", nil},
		{"valid cookie", mocks.TokenFor(1), alice},
		{"stale user reference", mocks.TokenFor(99), nil},
		{"tampered cookie", "forged", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := &RequestContext{User: &domain.User{ID: 7}}
			err := hook(httptest.NewRecorder(), identityRequest(tt.token), rc)
			require.NoError(t, err)
			if tt.wantUser == nil {
				assert.Nil(t, rc.User)
				assert.False(t, rc.Authenticated())
				return
			}
			require.NotNil(t, rc.User)
			assert.Equal(t, tt.wantUser.ID, rc.User.ID)
		})
	}
}

func TestIdentityHook_LookupErrorIsAnonymous(t *testing.T) {
	l, buf := logger.GetTestLogger(t)
	loader := UserLoaderFunc(func(context.Context, *RequestContext, int64) (*domain.User, error) {
		return nil, errors.New("dial postgres://todo:hunter2@db/todos: refused")
	})
	hook := IdentityHook(&mocks.MockSessionCodec{}, loader)

	req := identityRequest(mocks.TokenFor(1))
	req = req.WithContext(logger.WithLogger(req.Context(), l))
	rc := &RequestContext{}

	require.NoError(t, hook(httptest.NewRecorder(), req, rc))
	assert.Nil(t, rc.User)
	assert.Len(t, buf.EntriesWithMessage(t, "failed to load session user"), 1)
	assert.NotContains(t, buf.String(), "hunter2")
}

func TestIdentityHook_StaleReferenceNotLoggedAsError(t *testing.T) {
	l, buf := logger.GetTestLogger(t)
	loader := UserLoaderFunc(func(context.Context, *RequestContext, int64) (*domain.User, error) {
		return nil, store.ErrUserNotFound
	})
	hook := IdentityHook(&mocks.MockSessionCodec{}, loader)

	req := identityRequest(mocks.TokenFor(5))
	req = req.WithContext(logger.WithLogger(req.Context(), l))

	require.NoError(t, hook(httptest.NewRecorder(), req, &RequestContext{}))
	assert.Empty(t, buf.EntriesWithMessage(t, "failed to load session user"))
}

func TestRoundSeconds(t *testing.T) {
	assert.Equal(t, 0.0, roundSeconds(0))
	assert.Equal(t, 0.12, roundSeconds(123*time.Millisecond))
	assert.Equal(t, 0.13, roundSeconds(125*time.Millisecond+time.Microsecond))
	assert.Equal(t, 2.0, roundSeconds(1999*time.Millisecond))
}

func TestResponseLogHook(t *testing.T) {
	tests := []struct {
		path   string
		logged bool
	}{
		{"/todos", true},
		{"/", true},
		{"/favicon.ico", false},
		{"/static/app.css", false},
		{"/static", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			l, buf := logger.GetTestLogger(t)
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req = req.WithContext(logger.WithLogger(req.Context(), l))
			rc := &RequestContext{Start: time.Now().Add(-1500 * time.Millisecond), RequestID: "r-1"}

			ResponseLogHook()(req, rc, http.StatusCreated)

			entries := buf.EntriesWithMessage(t, "response")
			if !tt.logged {
				assert.Empty(t, entries)
				return
			}
			require.Len(t, entries, 1)
			assert.Equal(t, float64(http.StatusCreated), entries[0]["status"])
			assert.InDelta(t, 1.5, entries[0]["duration"], 0.05)
			assert.NotEmpty(t, entries[0]["wall_time"])
			assert.Equal(t, "r-1", entries[0]["request_id"])
		})
	}
}
