package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/phrazzld/todos-api/internal/api/middleware"
	"github.com/phrazzld/todos-api/internal/api/shared"
	"github.com/phrazzld/todos-api/internal/domain"
	"github.com/phrazzld/todos-api/internal/platform/logger"
	"github.com/phrazzld/todos-api/internal/service/auth"
	"github.com/phrazzld/todos-api/internal/store"
)

// AuthHandler handles registration, login and logout.
type AuthHandler struct {
	stores        StoreProvider
	codec         auth.SessionCodec
	authenticator *auth.Authenticator
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(stores StoreProvider, codec auth.SessionCodec, authenticator *auth.Authenticator) *AuthHandler {
	return &AuthHandler{
		stores:        stores,
		codec:         codec,
		authenticator: authenticator,
	}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request, rc *middleware.RequestContext) error {
	var req RegisterRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return nil
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return nil
	}

	user, err := domain.NewUser(req.Username, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return nil
	}

	users, err := h.stores.Users(r.Context(), rc)
	if err != nil {
		return err
	}
	if err := users.Create(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrUsernameExists) || errors.Is(err, domain.ErrValidation) {
			HandleAPIError(w, r, err, "")
			return nil
		}
		return err
	}

	logger.FromContext(r.Context()).Info("user registered", "user_id", user.ID)
	return h.startSession(w, r, http.StatusCreated, user)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request, rc *middleware.RequestContext) error {
	var req LoginRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return nil
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return nil
	}

	users, err := h.stores.Users(r.Context(), rc)
	if err != nil {
		return err
	}
	user, err := h.authenticator.Authenticate(r.Context(), users, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			HandleAPIError(w, r, err, "")
			return nil
		}
		return err
	}

	return h.startSession(w, r, http.StatusOK, user)
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request, rc *middleware.RequestContext) error {
	auth.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, status int, user *domain.User) error {
	token, err := h.codec.Encode(r.Context(), user.ID)
	if err != nil {
		return err
	}
	lifetime := h.codec.Lifetime()
	auth.SetSessionCookie(w, token, lifetime)

	shared.RespondWithJSON(w, r, status, AuthResponse{
		UserID:    user.ID,
		Username:  user.Username,
		ExpiresAt: time.Now().Add(lifetime).UTC(),
	})
	return nil
}
