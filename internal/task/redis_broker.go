package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// defaultPollTimeout bounds each BRPOP so Consume notices cancellation.
const defaultPollTimeout = time.Second

// RedisBroker is a Broker backed by a Redis list. Producers LPUSH and
// consumers BRPOP, so messages are delivered oldest first.
type RedisBroker struct {
	client      *redis.Client
	queue       string
	pollTimeout time.Duration
	logger      *slog.Logger
}

// NewRedisBroker creates a broker on the given list key. The client is owned
// by the caller.
func NewRedisBroker(client *redis.Client, queue string, logger *slog.Logger) *RedisBroker {
	if client == nil {
		panic("redis client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBroker{
		client:      client,
		queue:       queue,
		pollTimeout: defaultPollTimeout,
		logger:      logger.With("component", "redis_broker", "queue", queue),
	}
}

var _ Broker = (*RedisBroker)(nil)

// Publish implements Broker.
func (b *RedisBroker) Publish(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	if err := b.client.LPush(ctx, b.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to push to queue %s: %w", b.queue, err)
	}

	b.logger.Debug("message enqueued", "task_id", msg.ID, "task_name", msg.Task)
	return nil
}

// Consume implements Broker.
func (b *RedisBroker) Consume(ctx context.Context) (Message, error) {
	for {
		res, err := b.client.BRPop(ctx, b.pollTimeout, b.queue).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Message{}, ctxErr
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return Message{}, fmt.Errorf("failed to pop from queue %s: %w", b.queue, err)
		}

		// res is [queue, value]
		if len(res) < 2 || res[1] == "" {
			b.logger.Warn("BRPOP returned an empty message")
			continue
		}

		var msg Message
		if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
			return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		return msg, nil
	}
}

// Close implements Broker. The underlying client stays open.
func (b *RedisBroker) Close() error {
	return nil
}
