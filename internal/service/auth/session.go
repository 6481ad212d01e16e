package auth

import (
	"context"
	"time"
)

// CookieName is the name of the signed session cookie.
const CookieName = "todos_session"

// SessionCodec signs and verifies the session token stored in the cookie.
type SessionCodec interface {
	// Encode returns a signed token identifying userID.
	Encode(ctx context.Context, userID int64) (string, error)

	// Decode verifies token and returns its claims.
	// Returns ErrInvalidToken, ErrExpiredToken or ErrTokenNotYetValid on failure.
	Decode(ctx context.Context, token string) (*Claims, error)

	// Lifetime reports how long an encoded token stays valid.
	Lifetime() time.Duration
}

// Claims is the decoded content of a session token.
type Claims struct {
	UserID    int64     `json:"user_id"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
