package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/todos-api/internal/api/shared"
	"github.com/phrazzld/todos-api/internal/dbsession"
	"github.com/phrazzld/todos-api/internal/domain"
	"github.com/phrazzld/todos-api/internal/service/auth"
	"github.com/phrazzld/todos-api/internal/store"
	"github.com/phrazzld/todos-api/internal/task"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, task.ErrResultNotFound),
		errors.Is(err, task.ErrUnknownTask):
		return http.StatusNotFound

	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, task.ErrInvalidArgs),
		errors.Is(err, task.ErrMalformedMessage):
		return http.StatusBadRequest

	case errors.Is(err, dbsession.ErrResourceExhausted),
		errors.Is(err, task.ErrQueueFull):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err that reveals no
// internal detail.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid username or password"
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return "Login required"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, store.ErrPicNotFound):
		return "Todo has no picture"
	case errors.Is(err, store.ErrTodoNotFound):
		return "Todo not found"
	case errors.Is(err, store.ErrAssignmentNotFound):
		return "User is not assigned to this todo"
	case errors.Is(err, task.ErrResultNotFound):
		return "Task result not found"
	case errors.Is(err, task.ErrUnknownTask):
		return "Unknown task"

	case errors.Is(err, store.ErrUsernameExists):
		return "Username already exists"
	case errors.Is(err, store.ErrAlreadyAssigned):
		return "User is already assigned to this todo"

	case errors.Is(err, domain.ErrValidation):
		return domainValidationMessage(err)
	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"
	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"
	case errors.Is(err, task.ErrInvalidArgs),
		errors.Is(err, task.ErrMalformedMessage):
		return "Invalid task arguments"

	case errors.Is(err, dbsession.ErrResourceExhausted),
		errors.Is(err, task.ErrQueueFull):
		return "Service is busy, try again later"

	default:
		return "An unexpected error occurred"
	}
}

// domainValidationMessage strips the "validation failed: " prefix carried by
// the domain sentinels.
func domainValidationMessage(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, domain.ErrValidation.Error()+": "); i >= 0 {
		msg = msg[i+len(domain.ErrValidation.Error())+2:]
	}
	if msg == "" {
		return "Validation error"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// HandleAPIError answers a client-facing error with the JSON envelope.
// Errors that should render an error page go to the boundary instead.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, userMessage string) {
	status := MapErrorToStatusCode(err)
	if userMessage == "" {
		userMessage = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, status, userMessage, err)
}

// SanitizeValidationError turns validator errors into a short message naming
// the first failing field.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation error"
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Invalid %s: required field", field)
	case "min":
		return fmt.Sprintf("Invalid %s: too short", field)
	case "max":
		return fmt.Sprintf("Invalid %s: too long", field)
	case "oneof":
		return fmt.Sprintf("Invalid %s: invalid value", field)
	default:
		return fmt.Sprintf("Invalid %s: validation failed", field)
	}
}
