package events

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    "github.com/nats-io/nats.go"

    "github.com/iliyamo/ballpark-reservation/internal/queue"
)

// NATSPublisher publishes JSON events on the tickets.confirmed subject.
type NATSPublisher struct {
    conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
    nc, err := nats.Connect(url, nats.MaxReconnects(-1), nats.ReconnectWait(time.Second))
    if err != nil {
        return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
    }
    return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) PublishTicketsConfirmed(_ context.Context, ev queue.TicketsConfirmedEvent) error {
    data, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshaling event: %w", err)
    }
    return p.conn.Publish(queue.TicketsConfirmedQueue, data)
}

func (p *NATSPublisher) Close() error {
    p.conn.Close()
    return nil
}
