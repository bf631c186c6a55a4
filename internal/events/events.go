// Package events publishes booking domain events to the configured broker.
// Publishing is best effort: callers log failures and carry on, the sold
// state in Redis and MySQL is already committed by then.
package events

import (
    "context"
    "fmt"

    "github.com/iliyamo/ballpark-reservation/internal/queue"
)

// Publisher delivers TicketsConfirmed events.
type Publisher interface {
    PublishTicketsConfirmed(ctx context.Context, ev queue.TicketsConfirmedEvent) error
    Close() error
}

// New builds the publisher for backend: "amqp", "nats" or "none".
func New(backend, amqpURL, natsURL string) (Publisher, error) {
    switch backend {
    case "", "amqp":
        return NewAMQPPublisher(amqpURL), nil
    case "nats":
        return NewNATSPublisher(natsURL)
    case "none":
        return Noop{}, nil
    }
    return nil, fmt.Errorf("unknown events backend %q", backend)
}

// Noop drops every event.
type Noop struct{}

func (Noop) PublishTicketsConfirmed(context.Context, queue.TicketsConfirmedEvent) error { return nil }
func (Noop) Close() error                                                             { return nil }
