package auth

import "errors"

// Common authentication errors
var (
	// ErrInvalidToken indicates the session token is malformed or its signature doesn't match
	ErrInvalidToken = errors.New("invalid session token")

	// ErrExpiredToken indicates the session token has expired
	ErrExpiredToken = errors.New("session token has expired")

	// ErrTokenNotYetValid indicates the session token is not yet valid (iat/nbf in the future)
	ErrTokenNotYetValid = errors.New("session token not yet valid")

	// ErrMissingToken indicates no session cookie was sent
	ErrMissingToken = errors.New("session token is missing")

	// ErrInvalidCredentials indicates the username or password did not match
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrWeakSecret indicates the configured signing secret is too short
	ErrWeakSecret = errors.New("session secret must be at least 16 characters")
)
