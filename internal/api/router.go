package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/todos-api/internal/api/middleware"
)

// Handlers groups the handlers mounted by NewRouter. Tasks may be nil, in
// which case the task routes are not registered.
type Handlers struct {
	Home  *HomeHandler
	Auth  *AuthHandler
	Users *UserHandler
	Todos *TodoHandler
	Tasks *TaskHandler
}

// NewRouter mounts every route behind the request chain. Route misses pass
// through the chain too and reach the error boundary as 404s.
func NewRouter(chain *middleware.Chain, h Handlers) chi.Router {
	r := chi.NewRouter()
	r.Use(chain.Middleware)
	r.NotFound(chain.Handle(middleware.NotFound))

	r.Get("/", chain.Handle(h.Home.Home))
	r.Get("/health", chain.Handle(h.Home.Health))
	r.Get("/appinfo", chain.Handle(h.Home.AppInfo))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", chain.Handle(h.Auth.Register))
		r.Post("/login", chain.Handle(h.Auth.Login))
		r.Post("/logout", chain.Handle(h.Auth.Logout))
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/", chain.Handle(h.Users.List))
		r.Get("/{id}", chain.Handle(h.Users.Get))
	})

	r.Route("/todos", func(r chi.Router) {
		r.Get("/", chain.Handle(h.Todos.List))
		r.Post("/", chain.Handle(h.Todos.Create))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", chain.Handle(h.Todos.Get))
			r.Put("/", chain.Handle(h.Todos.Update))
			r.Delete("/", chain.Handle(h.Todos.Delete))
			r.Post("/assignees/{userID}", chain.Handle(h.Todos.Assign))
			r.Delete("/assignees/{userID}", chain.Handle(h.Todos.Unassign))
			r.Put("/pic", chain.Handle(h.Todos.UploadPic))
			r.Get("/pic", chain.Handle(h.Todos.GetPic))
		})
	})

	if h.Tasks != nil {
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/results/{id}", chain.Handle(h.Tasks.Result))
			r.Post("/{name}", chain.Handle(h.Tasks.Submit))
		})
	}

	h.Home.SetRoutes(r)
	return r
}
