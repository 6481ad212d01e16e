// Package queue opens the Redis connection shared by the task broker and the
// result backend.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/todos-api/internal/redact"
	"github.com/redis/go-redis/v9"
)

// pingTimeout bounds the connectivity check in Connect.
const pingTimeout = 5 * time.Second

// Connect parses a redis:// or rediss:// URL, opens a client and verifies it
// with PING. The caller owns the returned client and must Close it.
func Connect(ctx context.Context, url string, logger *slog.Logger) (*redis.Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid broker URL %s: %w", redact.String(url), err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	logger.Info("connected to broker",
		slog.String("addr", opts.Addr),
		slog.Int("db", opts.DB))
	return client, nil
}
