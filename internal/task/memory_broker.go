package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// MemoryBroker is a buffered in-process Broker used when the worker and its
// producers share a process, and in tests.
type MemoryBroker struct {
	messages chan Message
	logger   *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewMemoryBroker creates a broker holding at most size pending messages.
func NewMemoryBroker(size int, logger *slog.Logger) *MemoryBroker {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryBroker{
		messages: make(chan Message, size),
		logger:   logger.With("component", "memory_broker"),
	}
}

var _ Broker = (*MemoryBroker)(nil)

// Publish adds msg to the queue.
// Returns an error if the queue is full or closed.
func (b *MemoryBroker) Publish(ctx context.Context, msg Message) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrQueueClosed
	}

	select {
	case b.messages <- msg:
		b.logger.Debug("message enqueued",
			"task_id", msg.ID,
			"task_name", msg.Task,
			"queue_len", len(b.messages),
			"queue_cap", cap(b.messages))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(b.messages))
	}
}

// Consume implements Broker. Messages already queued are still delivered
// after Close.
func (b *MemoryBroker) Consume(ctx context.Context) (Message, error) {
	select {
	case msg, ok := <-b.messages:
		if !ok {
			return Message{}, ErrQueueClosed
		}
		return msg, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Close closes the queue, preventing further publishing.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.messages)
		b.logger.Info("task queue closed")
	}
	return nil
}

// Len reports the number of queued messages.
func (b *MemoryBroker) Len() int {
	return len(b.messages)
}
