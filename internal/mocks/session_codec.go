package mocks

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/phrazzld/todos-api/internal/service/auth"
)

// MockSessionCodec implements auth.SessionCodec with readable tokens of the
// form "user-<id>", so tests can forge cookies without signing.
type MockSessionCodec struct {
	EncodeFn func(ctx context.Context, userID int64) (string, error)
	DecodeFn func(ctx context.Context, token string) (*auth.Claims, error)

	// TTL is returned by Lifetime; zero means one hour.
	TTL time.Duration
}

var _ auth.SessionCodec = (*MockSessionCodec)(nil)

// TokenFor returns the token the default Encode produces for userID.
func TokenFor(userID int64) string {
	return "user-" + strconv.FormatInt(userID, 10)
}

// Encode implements auth.SessionCodec
func (m *MockSessionCodec) Encode(ctx context.Context, userID int64) (string, error) {
	if m.EncodeFn != nil {
		return m.EncodeFn(ctx, userID)
	}
	return TokenFor(userID), nil
}

// Decode implements auth.SessionCodec
func (m *MockSessionCodec) Decode(ctx context.Context, token string) (*auth.Claims, error) {
	if m.DecodeFn != nil {
		return m.DecodeFn(ctx, token)
	}
	if token == "" {
		return nil, auth.ErrMissingToken
	}
	raw, ok := strings.CutPrefix(token, "user-")
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Claims{UserID: id}, nil
}

// Lifetime implements auth.SessionCodec
func (m *MockSessionCodec) Lifetime() time.Duration {
	if m.TTL == 0 {
		return time.Hour
	}
	return m.TTL
}
