package main

import (
	"fmt"
	"net/http"

	"github.com/phrazzld/todos-api/internal/api"
	"github.com/phrazzld/todos-api/internal/api/middleware"
	"github.com/phrazzld/todos-api/internal/service/auth"
	"github.com/phrazzld/todos-api/internal/task"
)

// setupRouter builds the request chain and mounts every handler on it.
func (app *application) setupRouter() (http.Handler, error) {
	boundary, err := middleware.NewErrorBoundary(app.config.Server.ShowErrorDetail, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize error boundary: %w", err)
	}

	stores := api.NewSessionStores(app.newTodoStore, app.newUserStore)

	chain := middleware.NewChain(boundary, app.sessions, app.logger)
	chain.Use(middleware.RequestLogHook())
	chain.Use(middleware.IdentityHook(app.codec, stores))
	chain.After(middleware.ResponseLogHook())

	authenticator := auth.NewAuthenticator(auth.NewBcryptVerifier(), app.logger)

	return api.NewRouter(chain, api.Handlers{
		Home:  api.NewHomeHandler(appName, app.config.Database.URL, app.sessions),
		Auth:  api.NewAuthHandler(stores, app.codec, authenticator),
		Users: api.NewUserHandler(stores),
		Todos: api.NewTodoHandler(stores, app.config.Upload),
		Tasks: api.NewTaskHandler(task.NewClient(app.broker.broker, app.tasks), app.results),
	}), nil
}
