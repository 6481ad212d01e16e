package task

import (
	"context"
	"errors"
)

// Common errors returned by brokers
var (
	ErrQueueClosed      = errors.New("task queue is closed")
	ErrQueueFull        = errors.New("task queue is full")
	ErrMalformedMessage = errors.New("malformed task message")
)

// Broker transports messages from producers (Beat, the API) to workers.
type Broker interface {
	// Publish enqueues msg without blocking on consumers.
	Publish(ctx context.Context, msg Message) error

	// Consume blocks until a message is available, ctx is done, or the
	// broker is closed.
	Consume(ctx context.Context) (Message, error)

	// Close stops accepting messages.
	Close() error
}
