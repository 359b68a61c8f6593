// Package events implements the clip.created event pipeline: the wire types,
// the transport abstraction, and the publisher with dead-letter fallback.
//
// A clip.created event is emitted exactly when a brand-new resource enters
// the system (first ever submission of a URL), not when a user re-saves an
// existing clip. The event is ephemeral: it exists only on the wire and, on
// publish failure, inside a DeadLetterEnvelope on the DLQ subject.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Subject name defaults; overridable through configuration.
const (
	DefaultSubject    = "clipvault.clip.created"
	DefaultDLQSubject = "clipvault.clip.created.dlq"

	// EventTypeClipCreated tags every event emitted by this package.
	EventTypeClipCreated = "clip.created"

	apiVersion = "v1"
	producer   = "clipvault-api"
)

// ClipCreatedPayload is the data section of a clip.created event.
type ClipCreatedPayload struct {
	ClipID    string `json:"clip_id"`
	SourceURL string `json:"source_url"`
	UserID    string `json:"user_id"`
}

// EventMetadata carries producer identification for consumers.
type EventMetadata struct {
	APIVersion string `json:"api_version"`
	Producer   string `json:"producer"`
}

// ClipCreatedEvent is the wire shape of a clip.created notification.
type ClipCreatedEvent struct {
	EventType     string             `json:"event_type"`
	EventID       string             `json:"event_id"`
	CorrelationID string             `json:"correlation_id"`
	Timestamp     string             `json:"timestamp"`
	Data          ClipCreatedPayload `json:"data"`
	Metadata      EventMetadata      `json:"metadata"`
}

// NewClipCreatedEvent builds a clip.created event with a fresh event ID.
// An empty correlationID is replaced with a generated one so downstream
// consumers can always correlate.
func NewClipCreatedEvent(clipID, sourceURL, userID, correlationID string) ClipCreatedEvent {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	return ClipCreatedEvent{
		EventType:     EventTypeClipCreated,
		EventID:       uuid.NewString(),
		CorrelationID: correlationID,
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
		Data: ClipCreatedPayload{
			ClipID:    clipID,
			SourceURL: sourceURL,
			UserID:    userID,
		},
		Metadata: EventMetadata{
			APIVersion: apiVersion,
			Producer:   producer,
		},
	}
}

// DeadLetterEnvelope wraps an event that failed primary delivery, for later
// inspection or replay from the DLQ subject.
type DeadLetterEnvelope struct {
	DLQTimestamp    string           `json:"dlq_timestamp"`
	ErrorReason     string           `json:"error_reason"`
	OriginalMessage ClipCreatedEvent `json:"original_message"`
	RetryCount      int              `json:"retry_count"`
}

// Transport delivers an opaque payload to a subject and confirms receipt
// within the context deadline, returning a delivery identifier. Transports
// must distinguish transient failures (timeouts, lost connections) from
// permanent ones via IsTransient.
type Transport interface {
	Publish(ctx context.Context, subject string, data []byte, headers map[string]string) (string, error)
	Close() error
}
