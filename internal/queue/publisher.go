package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends invitation events to RabbitMQ.  It dials per publish;
// invitations are rare enough that a pooled connection is not worth the
// reconnect handling.
type Publisher struct {
    url  string
    dial func(ctx context.Context, url string) (*amqp.Connection, error)
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string) *Publisher {
    return &Publisher{url: url, dial: dialContext}
}

// PublishOwnerInvited publishes ev to the owner.invited queue as a
// persistent JSON message.  ctx bounds the dial and handshake as well as
// the publish itself.  Errors are returned for the caller to log; they
// never interrupt the request that produced the event.
func (p *Publisher) PublishOwnerInvited(ctx context.Context, ev OwnerInvitedEvent) error {
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }

    conn, err := p.dial(ctx, p.url)
    if err != nil {
        return fmt.Errorf("dial: %w", err)
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        OwnerInvitedQueue, // name
        true,              // durable
        false,             // autoDelete
        false,             // exclusive
        false,             // noWait
        nil,               // args
    ); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        MessageId:    ev.InvitationID,
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",                // default exchange
        OwnerInvitedQueue, // routing key = queue name
        false,             // mandatory
        false,             // immediate
        pub,
    ); err != nil {
        return fmt.Errorf("publish: %w", err)
    }
    return nil
}
