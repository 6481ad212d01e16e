package api

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/todos-api/internal/api/middleware"
	"github.com/phrazzld/todos-api/internal/api/shared"
	"github.com/phrazzld/todos-api/internal/redact"
)

// SessionCounter reports how many database sessions are live.
type SessionCounter interface {
	Len() int
}

// HomeHandler serves the greeting, health and application info endpoints.
type HomeHandler struct {
	name     string
	dbURL    string
	started  time.Time
	sessions SessionCounter
	routes   chi.Routes
}

// NewHomeHandler creates a HomeHandler. sessions may be nil.
func NewHomeHandler(name, dbURL string, sessions SessionCounter) *HomeHandler {
	return &HomeHandler{
		name:     name,
		dbURL:    dbURL,
		started:  time.Now(),
		sessions: sessions,
	}
}

// SetRoutes gives AppInfo the router to describe. It is called once the
// router is fully built.
func (h *HomeHandler) SetRoutes(routes chi.Routes) {
	h.routes = routes
}

// Home handles GET /.
func (h *HomeHandler) Home(w http.ResponseWriter, r *http.Request, rc *middleware.RequestContext) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, err := fmt.Fprint(w, "Hello, Todos App!")
	return err
}

// Health handles GET /health.
func (h *HomeHandler) Health(w http.ResponseWriter, r *http.Request, rc *middleware.RequestContext) error {
	uptime := int64(time.Since(h.started).Seconds())
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, err := fmt.Fprintf(w, "System up and running for %d seconds", uptime)
	return err
}

// RouteInfo describes one registered route.
type RouteInfo struct {
	Method  string `json:"method"`
	Pattern string `json:"pattern"`
}

// AppInfoResponse is returned by GET /appinfo.
type AppInfoResponse struct {
	Name          string      `json:"name"`
	DB            string      `json:"db"`
	Routes        []RouteInfo `json:"routes"`
	ErrorHandlers []int       `json:"error_handlers"`
	Sessions      int         `json:"sessions"`
	UptimeSeconds int64       `json:"uptime_seconds"`
}

// AppInfo handles GET /appinfo.
func (h *HomeHandler) AppInfo(w http.ResponseWriter, r *http.Request, rc *middleware.RequestContext) error {
	resp := AppInfoResponse{
		Name:          h.name,
		DB:            redact.String(h.dbURL),
		Routes:        []RouteInfo{},
		ErrorHandlers: []int{http.StatusNotFound, http.StatusInternalServerError},
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	}
	if h.sessions != nil {
		resp.Sessions = h.sessions.Len()
	}

	if h.routes != nil {
		err := chi.Walk(h.routes, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
			resp.Routes = append(resp.Routes, RouteInfo{
				Method:  method,
				Pattern: strings.ReplaceAll(route, "/*/", "/"),
			})
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to walk routes: %w", err)
		}
		sort.Slice(resp.Routes, func(i, j int) bool {
			if resp.Routes[i].Pattern == resp.Routes[j].Pattern {
				return resp.Routes[i].Method < resp.Routes[j].Method
			}
			return resp.Routes[i].Pattern < resp.Routes[j].Pattern
		})
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
	return nil
}
