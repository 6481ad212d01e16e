package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/phrazzld/todos-api/internal/config"
	"github.com/phrazzld/todos-api/internal/platform/queue"
	"github.com/phrazzld/todos-api/internal/redact"
	"github.com/phrazzld/todos-api/internal/task"
	"github.com/redis/go-redis/v9"
)

// memoryScheme selects the in-process broker, e.g. memory://local.
const memoryScheme = "memory"

// brokerConn is the task broker with its result backend.
type brokerConn struct {
	broker  task.Broker
	results task.ResultStore
	client  *redis.Client
}

// inProcess reports whether messages only reach workers in this process.
func (b *brokerConn) inProcess() bool {
	return b.client == nil
}

// Close closes the broker and the Redis client behind it.
func (b *brokerConn) Close() error {
	if err := b.broker.Close(); err != nil {
		return fmt.Errorf("failed to close broker: %w", err)
	}
	if b.client != nil {
		if err := b.client.Close(); err != nil {
			return fmt.Errorf("failed to close redis client: %w", err)
		}
	}
	return nil
}

// setupBroker connects the broker named by broker.url. Redis URLs share one
// client between the queue and the result backend.
func setupBroker(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*brokerConn, error) {
	u, err := url.Parse(cfg.Broker.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid broker URL %s: %w", redact.String(cfg.Broker.URL), err)
	}

	if u.Scheme == memoryScheme {
		logger.Warn("using in-process broker; tasks only run inside this process")
		return &brokerConn{
			broker:  task.NewMemoryBroker(cfg.Task.QueueSize, logger),
			results: task.NewMemoryResultStore(),
		}, nil
	}

	client, err := queue.Connect(ctx, cfg.Broker.URL, logger)
	if err != nil {
		return nil, err
	}
	return &brokerConn{
		broker:  task.NewRedisBroker(client, cfg.Broker.Queue, logger),
		results: task.NewRedisResultStore(client, cfg.Broker.KeyPrefix, cfg.Broker.ResultTTL),
		client:  client,
	}, nil
}
