package middleware

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/todos-api/internal/domain"
	"github.com/phrazzld/todos-api/internal/platform/logger"
	"github.com/phrazzld/todos-api/internal/redact"
	"github.com/phrazzld/todos-api/internal/service/auth"
	"github.com/phrazzld/todos-api/internal/store"
)

// RequestIDHeader is the inbound header copied into RequestContext.RequestID.
const RequestIDHeader = "X-Request-ID"

// sensitiveParams are form or query keys whose values never reach the logs.
var sensitiveParams = map[string]bool{
	"password": true,
	"secret":   true,
	"token":    true,
}

// RequestLogHook records the start time and the request attributes, then
// logs them at debug.
func RequestLogHook() PreHook {
	return func(w http.ResponseWriter, r *http.Request, rc *RequestContext) error {
		rc.Start = time.Now()
		rc.RequestID = r.Header.Get(RequestIDHeader)

		// Parse failures leave PostForm empty; the handler reports them.
		_ = r.ParseForm()

		rc.Fields = RequestFields{
			Method:   r.Method,
			Path:     r.URL.Path,
			ClientIP: clientIP(r),
			Host:     hostWithoutPort(r.Host),
			Query:    copyParams(r.URL.Query()),
			Form:     copyParams(r.PostForm),
		}

		attrs := []slog.Attr{
			slog.String("method", rc.Fields.Method),
			slog.String("path", rc.Fields.Path),
			slog.String("client_ip", rc.Fields.ClientIP),
			slog.String("host", rc.Fields.Host),
			slog.Any("query", redactParams(rc.Fields.Query)),
			slog.Any("form", redactParams(rc.Fields.Form)),
		}
		if rc.RequestID != "" {
			attrs = append(attrs, slog.String("request_id", rc.RequestID))
		}
		logger.FromContext(r.Context()).LogAttrs(r.Context(), slog.LevelDebug, "request", attrs...)
		return nil
	}
}

// clientIP returns the first X-Forwarded-For entry, else the transport peer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func hostWithoutPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

// copyParams keeps every value of repeated keys.
func copyParams(values map[string][]string) map[string][]string {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string][]string, len(values))
	for k, v := range values {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func redactParams(values map[string][]string) map[string][]string {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string][]string, len(values))
	for k, v := range values {
		if sensitiveParams[strings.ToLower(k)] {
			masked := make([]string, len(v))
			for i := range masked {
				masked[i] = redact.RedactedCredentialPlaceholder
			}
			out[k] = masked
			continue
		}
		out[k] = v
	}
	return out
}

// UserLoader resolves the user named by a session cookie.
type UserLoader interface {
	LoadUser(ctx context.Context, rc *RequestContext, id int64) (*domain.User, error)
}

// UserLoaderFunc adapts a function to UserLoader.
type UserLoaderFunc func(ctx context.Context, rc *RequestContext, id int64) (*domain.User, error)

// LoadUser implements UserLoader.
func (f UserLoaderFunc) LoadUser(ctx context.Context, rc *RequestContext, id int64) (*domain.User, error) {
	return f(ctx, rc, id)
}

// IdentityHook sets rc.User from the session cookie. It never fails the
// request: a missing or invalid cookie, a stale user reference and a lookup
// error all leave the request anonymous.
func IdentityHook(codec auth.SessionCodec, users UserLoader) PreHook {
	return func(w http.ResponseWriter, r *http.Request, rc *RequestContext) error {
		rc.User = nil

		token, err := auth.SessionToken(r)
		if err != nil {
			return nil
		}

		log := logger.FromContext(r.Context())

		claims, err := codec.Decode(r.Context(), token)
		if err != nil {
			log.Debug("ignoring session cookie", slog.String("reason", err.Error()))
			return nil
		}

		user, err := users.LoadUser(r.Context(), rc, claims.UserID)
		switch {
		case err == nil:
			rc.User = user
		case errors.Is(err, store.ErrUserNotFound):
			log.Debug("session names unknown user", slog.Int64("user_id", claims.UserID))
		default:
			log.Error("failed to load session user",
				slog.Int64("user_id", claims.UserID),
				slog.String("error", redact.Error(err)))
		}
		return nil
	}
}

// skipResponseLog reports paths whose responses are not logged.
func skipResponseLog(path string) bool {
	return path == "/favicon.ico" || strings.HasPrefix(path, "/static")
}

// roundSeconds rounds d to two decimal places of a second.
func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}

// ResponseLogHook logs the status and duration of every response except
// the favicon and static assets.
func ResponseLogHook() PostHook {
	return func(r *http.Request, rc *RequestContext, status int) {
		if skipResponseLog(r.URL.Path) {
			return
		}

		now := time.Now()
		start := rc.Start
		if start.IsZero() {
			start = now
		}

		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Float64("duration", roundSeconds(now.Sub(start))),
			slog.String("wall_time", now.UTC().Format(time.RFC3339Nano)),
		}
		if rc.RequestID != "" {
			attrs = append(attrs, slog.String("request_id", rc.RequestID))
		}
		if rc.User != nil {
			attrs = append(attrs, slog.Int64("user_id", rc.User.ID))
		}
		logger.FromContext(r.Context()).LogAttrs(r.Context(), slog.LevelInfo, "response", attrs...)
	}
}
