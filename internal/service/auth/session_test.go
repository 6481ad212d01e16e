package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/phrazzld/todos-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-long-enough"

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewSessionCodec(t *testing.T) {
	codec, err := NewSessionCodec(config.AuthConfig{SecretKey: testSecret, SessionLifetimeMinutes: 30})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, codec.Lifetime())

	_, err = NewSessionCodec(config.AuthConfig{SecretKey: "short", SessionLifetimeMinutes: 30})
	assert.ErrorIs(t, err, ErrWeakSecret)
}

func TestSessionCodec_RoundTrip(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	codec, err := newSessionCodec(testSecret, time.Hour, fixedClock(now))
	require.NoError(t, err)

	token, err := codec.Encode(context.Background(), 42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := codec.Decode(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, now.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, now.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)
}

func TestSessionCodec_Decode(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		decoder *hmacSessionCodec
		wantErr error
	}{
		{
			name: "expired",
			token: func(t *testing.T) string {
				c, _ := newSessionCodec(testSecret, time.Hour, fixedClock(now))
				tok, err := c.Encode(context.Background(), 1)
				require.NoError(t, err)
				return tok
			},
			decoder: mustCodec(t, testSecret, fixedClock(now.Add(3*time.Hour))),
			wantErr: ErrExpiredToken,
		},
		{
			name: "tampered signature",
			token: func(t *testing.T) string {
				c, _ := newSessionCodec("another-secret-entirely", time.Hour, fixedClock(now))
				tok, err := c.Encode(context.Background(), 1)
				require.NoError(t, err)
				return tok
			},
			decoder: mustCodec(t, testSecret, fixedClock(now)),
			wantErr: ErrInvalidToken,
		},
		{
			name: "issued in the future",
			token: func(t *testing.T) string {
				c, _ := newSessionCodec(testSecret, time.Hour, fixedClock(now.Add(time.Hour)))
				tok, err := c.Encode(context.Background(), 1)
				require.NoError(t, err)
				return tok
			},
			decoder: mustCodec(t, testSecret, fixedClock(now)),
			wantErr: ErrTokenNotYetValid,
		},
		{
			name: "wrong algorithm",
			token: func(t *testing.T) string {
				tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, sessionClaims{UserID: 1}).
					SignedString([]byte(testSecret))
				require.NoError(t, err)
				return tok
			},
			decoder: mustCodec(t, testSecret, fixedClock(now)),
			wantErr: ErrInvalidToken,
		},
		{
			name: "missing user id",
			token: func(t *testing.T) string {
				tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{}).
					SignedString([]byte(testSecret))
				require.NoError(t, err)
				return tok
			},
			decoder: mustCodec(t, testSecret, fixedClock(now)),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "malformed",
			token:   func(t *testing.T) string { return "not.a.token" },
			decoder: mustCodec(t, testSecret, fixedClock(now)),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "empty",
			token:   func(t *testing.T) string { return "" },
			decoder: mustCodec(t, testSecret, fixedClock(now)),
			wantErr: ErrMissingToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := tt.decoder.Decode(context.Background(), tt.token(t))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, claims)
		})
	}
}

func mustCodec(t *testing.T, secret string, clock func() time.Time) *hmacSessionCodec {
	t.Helper()
	c, err := newSessionCodec(secret, time.Hour, clock)
	require.NoError(t, err)
	return c
}
