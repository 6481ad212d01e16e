package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/todos-api/internal/config"
	"github.com/phrazzld/todos-api/internal/platform/logger"
)

// minSecretLength matches the config validation on auth.secret_key.
const minSecretLength = 16

// hmacSessionCodec signs session tokens with HMAC-SHA256.
type hmacSessionCodec struct {
	signingKey []byte
	lifetime   time.Duration
	timeFunc   func() time.Time
	clockSkew  time.Duration
}

// sessionClaims is the JWT payload carried in the cookie.
type sessionClaims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

var _ SessionCodec = (*hmacSessionCodec)(nil)

// NewSessionCodec creates an HMAC-SHA256 session codec from the auth config.
func NewSessionCodec(cfg config.AuthConfig) (SessionCodec, error) {
	return newSessionCodec(
		cfg.SecretKey,
		time.Duration(cfg.SessionLifetimeMinutes)*time.Minute,
		time.Now,
	)
}

func newSessionCodec(secret string, lifetime time.Duration, timeFunc func() time.Time) (*hmacSessionCodec, error) {
	if len(secret) < minSecretLength {
		return nil, ErrWeakSecret
	}
	return &hmacSessionCodec{
		signingKey: []byte(secret),
		lifetime:   lifetime,
		timeFunc:   timeFunc,
		clockSkew:  time.Minute,
	}, nil
}

// Lifetime implements SessionCodec.
func (c *hmacSessionCodec) Lifetime() time.Duration {
	return c.lifetime
}

// Encode implements SessionCodec.
func (c *hmacSessionCodec) Encode(ctx context.Context, userID int64) (string, error) {
	now := c.timeFunc()

	claims := sessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.lifetime)),
			ID:        uuid.New().String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.signingKey)
	if err != nil {
		logger.FromContext(ctx).Error("failed to sign session token",
			"error", err,
			"user_id", userID)
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Decode implements SessionCodec.
func (c *hmacSessionCodec) Decode(ctx context.Context, token string) (*Claims, error) {
	log := logger.FromContext(ctx)

	if token == "" {
		return nil, ErrMissingToken
	}

	now := c.timeFunc()
	parsed, err := jwt.ParseWithClaims(
		token,
		&sessionClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return c.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(c.clockSkew),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			log.Debug("session token expired", "error", err)
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
			log.Debug("session token not yet valid", "error", err)
			return nil, ErrTokenNotYetValid
		default:
			log.Debug("session token rejected", "error", err, "error_type", fmt.Sprintf("%T", err))
			return nil, ErrInvalidToken
		}
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid || claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}

	out := &Claims{UserID: claims.UserID, ID: claims.ID}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
