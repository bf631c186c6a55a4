package events

import (
    "context"
    "testing"

    "github.com/iliyamo/ballpark-reservation/internal/queue"
)

func TestNewSelectsBackend(t *testing.T) {
    p, err := New("none", "", "")
    if err != nil {
        t.Fatal(err)
    }
    if err := p.PublishTicketsConfirmed(context.Background(), queue.TicketsConfirmedEvent{}); err != nil {
        t.Errorf("noop publish: %v", err)
    }
    if p, err := New("amqp", "amqp://x", ""); err != nil {
        t.Fatal(err)
    } else if _, ok := p.(*AMQPPublisher); !ok {
        t.Errorf("amqp backend built %T", p)
    }
    if _, err := New("kafka", "", ""); err == nil {
        t.Error("unknown backend accepted")
    }
}

func TestAMQPURLPrecedence(t *testing.T) {
    t.Setenv("RABBITMQ_URL", "")
    t.Setenv("AMQP_URL", "amqp://b/")
    if got := AMQPURL(); got != "amqp://b/" {
        t.Errorf("AMQPURL() = %q", got)
    }
    t.Setenv("RABBITMQ_URL", "amqp://a/")
    if got := AMQPURL(); got != "amqp://a/" {
        t.Errorf("AMQPURL() = %q", got)
    }
}
