package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// NATSTransport publishes event payloads to NATS subjects.
// Delivery is confirmed by a bounded round-trip flush to the server, so a
// successful Publish means the server has received the message.
type NATSTransport struct {
	conn *nats.Conn
}

// NewNATSTransport connects to NATS at url with automatic reconnection.
// Extra nats.Option values (e.g. disconnect handlers) can be appended.
func NewNATSTransport(url string, opts ...nats.Option) (*NATSTransport, error) {
	defaults := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSTransport{conn: nc}, nil
}

// Publish sends data to subject with the given headers and waits for the
// server to acknowledge receipt, bounded by the context deadline. The
// generated Nats-Msg-Id header doubles as the delivery identifier.
func (t *NATSTransport) Publish(ctx context.Context, subject string, data []byte, headers map[string]string) (string, error) {
	msg := nats.NewMsg(subject)
	msg.Data = data

	msgID := uuid.NewString()
	msg.Header.Set(nats.MsgIdHdr, msgID)
	for k, v := range headers {
		msg.Header.Set(k, v)
	}

	if err := t.conn.PublishMsg(msg); err != nil {
		return "", fmt.Errorf("publishing to %s: %w", subject, err)
	}

	// Round-trip to the server confirms the message left the client buffer
	// and was accepted, within the caller's bound.
	timeout := 30 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if timeout <= 0 {
		return "", context.DeadlineExceeded
	}
	if err := t.conn.FlushTimeout(timeout); err != nil {
		return "", fmt.Errorf("confirming delivery to %s: %w", subject, err)
	}
	return msgID, nil
}

func (t *NATSTransport) Close() error {
	t.conn.Close()
	return nil
}

// IsTransient reports whether a publish error is a temporary condition
// (timeout, lost or draining connection) that a retry or DLQ replay could
// recover from, as opposed to a permanent fault such as an invalid subject.
func IsTransient(err error) bool {
	return errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrConnectionDraining) ||
		errors.Is(err, nats.ErrDisconnected) ||
		errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, context.DeadlineExceeded)
}
