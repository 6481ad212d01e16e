package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/phrazzld/todos-api/internal/domain"
	"github.com/phrazzld/todos-api/internal/platform/logger"
	"github.com/phrazzld/todos-api/internal/store"
)

// Authenticator checks username/password pairs against a UserStore.
type Authenticator struct {
	verifier PasswordVerifier
	logger   *slog.Logger
}

// NewAuthenticator creates an Authenticator. A nil verifier defaults to bcrypt.
func NewAuthenticator(verifier PasswordVerifier, logger *slog.Logger) *Authenticator {
	if verifier == nil {
		verifier = NewBcryptVerifier()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		verifier: verifier,
		logger:   logger.With("component", "authenticator"),
	}
}

// Authenticate returns the user for username if password matches.
// Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (a *Authenticator) Authenticate(
	ctx context.Context,
	users store.UserStore,
	username, password string,
) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, a.logger)

	user, err := users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			log.Debug("login for unknown user", "username", username)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := a.verifier.Compare(user.HashedPassword, password); err != nil {
		log.Debug("login with wrong password", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	return user, nil
}
