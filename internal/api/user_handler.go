package api

import (
	"fmt"
	"net/http"

	"github.com/phrazzld/todos-api/internal/api/middleware"
	"github.com/phrazzld/todos-api/internal/api/shared"
)

// UserHandler serves the read-only user endpoints.
type UserHandler struct {
	stores StoreProvider
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(stores StoreProvider) *UserHandler {
	return &UserHandler{stores: stores}
}

// List handles GET /users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request, rc *middleware.RequestContext) error {
	users, err := h.stores.Users(r.Context(), rc)
	if err != nil {
		return err
	}
	list, err := users.List(r.Context())
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	resp := make([]UserResponse, 0, len(list))
	for _, u := range list {
		resp = append(resp, userToResponse(u))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
	return nil
}

// Get handles GET /users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request, rc *middleware.RequestContext) error {
	id, err := getPathInt64(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return nil
	}

	users, err := h.stores.Users(r.Context(), rc)
	if err != nil {
		return err
	}
	user, err := users.GetByID(r.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to get user %d: %w", id, err)
	}

	shared.RespondWithJSON(w, r, http.StatusOK, userToResponse(user))
	return nil
}
