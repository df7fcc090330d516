package queue

import (
    "context"
    "net"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// handshakeTimeout bounds the TCP, TLS and AMQP handshake when ctx carries
// no earlier deadline.
const handshakeTimeout = 30 * time.Second

// dialContext opens an AMQP connection whose dial and handshake give up when
// ctx is done.  amqp091 clears the socket deadline once the connection is
// open, so ctx does not bound the connection's lifetime.
func dialContext(ctx context.Context, url string) (*amqp.Connection, error) {
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    return amqp.DialConfig(url, amqp.Config{
        Locale: "en_US",
        Dial: func(network, addr string) (net.Conn, error) {
            deadline := time.Now().Add(handshakeTimeout)
            if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
                deadline = d
            }
            dialer := net.Dialer{Deadline: deadline}
            conn, err := dialer.DialContext(ctx, network, addr)
            if err != nil {
                return nil, err
            }
            if err := conn.SetDeadline(deadline); err != nil {
                _ = conn.Close()
                return nil, err
            }
            return conn, nil
        },
    })
}
