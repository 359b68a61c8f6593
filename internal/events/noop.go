package events

import (
	"context"

	"github.com/google/uuid"
)

// NoopTransport accepts every publish without delivering anywhere. Used when
// no event transport is configured (NATS_URL empty) and in tests.
type NoopTransport struct{}

func (NoopTransport) Publish(ctx context.Context, subject string, data []byte, headers map[string]string) (string, error) {
	return uuid.NewString(), nil
}

func (NoopTransport) Close() error { return nil }
