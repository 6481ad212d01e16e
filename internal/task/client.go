package task

import (
	"context"
	"encoding/json"
	"fmt"
)

// Client submits on-demand task invocations.
type Client struct {
	broker Broker
	tasks  *Registry
}

// NewClient creates a Client publishing to broker. Only names known to tasks
// are accepted.
func NewClient(broker Broker, tasks *Registry) *Client {
	return &Client{broker: broker, tasks: tasks}
}

// Send publishes one invocation of the named task and returns its message.
func (c *Client) Send(ctx context.Context, name string, args json.RawMessage) (Message, error) {
	if _, ok := c.tasks.Lookup(name); !ok {
		return Message{}, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	if len(args) > 0 && !json.Valid(args) {
		return Message{}, fmt.Errorf("%w: args are not valid JSON", ErrMalformedMessage)
	}

	msg := NewMessage(name, args)
	if err := c.broker.Publish(ctx, msg); err != nil {
		return Message{}, fmt.Errorf("failed to send task %s: %w", name, err)
	}
	return msg, nil
}
