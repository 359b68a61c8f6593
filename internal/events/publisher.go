package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
)

// Options configures a Publisher. Zero-value fields fall back to the
// package defaults (30s primary bound, 10s DLQ bound, default subjects).
type Options struct {
	Subject        string
	DLQSubject     string
	PublishTimeout time.Duration
	DLQTimeout     time.Duration
}

// Publisher delivers clip.created events at-least-once with a dead-letter
// fallback. It never returns an error to the caller: a failed publish is
// logged, wrapped into a DeadLetterEnvelope, and handed to the DLQ subject
// best-effort. The ingestion path treats the boolean result as advisory:
// a clip is saved once persisted, regardless of event delivery.
type Publisher struct {
	transport      Transport
	subject        string
	dlqSubject     string
	publishTimeout time.Duration
	dlqTimeout     time.Duration
}

// NewPublisher constructs a Publisher over the given transport.
func NewPublisher(t Transport, opts Options) *Publisher {
	if opts.Subject == "" {
		opts.Subject = DefaultSubject
	}
	if opts.DLQSubject == "" {
		opts.DLQSubject = DefaultDLQSubject
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 30 * time.Second
	}
	if opts.DLQTimeout <= 0 {
		opts.DLQTimeout = 10 * time.Second
	}
	return &Publisher{
		transport:      t,
		subject:        opts.Subject,
		dlqSubject:     opts.DLQSubject,
		publishTimeout: opts.PublishTimeout,
		dlqTimeout:     opts.DLQTimeout,
	}
}

// PublishClipCreated builds and delivers a clip.created event. It returns
// true only when the primary transport confirmed receipt. On failure the
// event is redirected to the DLQ and false is returned; DLQ failure is
// logged, never raised.
func (p *Publisher) PublishClipCreated(ctx context.Context, clipID, sourceURL, userID, correlationID string) bool {
	if p == nil || p.transport == nil {
		log.Error().Msg("event publisher not initialized, dropping clip.created event")
		return false
	}

	ev := NewClipCreatedEvent(clipID, sourceURL, userID, correlationID)
	data, err := json.Marshal(ev)
	if err != nil {
		// Marshal of a plain struct cannot realistically fail; treated as
		// permanent and not DLQ-able since we have no bytes to forward.
		log.Error().Err(err).Str("clip_id", clipID).Msg("encoding clip.created event")
		return false
	}

	headers := map[string]string{
		"event_type":     ev.EventType,
		"clip_id":        clipID,
		"user_id":        userID,
		"correlation_id": ev.CorrelationID,
	}

	pubCtx, cancel := context.WithTimeout(ctx, p.publishTimeout)
	defer cancel()

	deliveryID, err := p.transport.Publish(pubCtx, p.subject, data, headers)
	if err == nil {
		log.Info().
			Str("clip_id", clipID).
			Str("event_id", ev.EventID).
			Str("correlation_id", ev.CorrelationID).
			Str("delivery_id", deliveryID).
			Msg("published clip.created event")
		return true
	}

	if IsTransient(err) {
		log.Warn().Err(err).
			Str("clip_id", clipID).
			Str("event_id", ev.EventID).
			Msg("transient failure publishing clip.created event")
	} else {
		log.Error().Err(err).
			Str("clip_id", clipID).
			Str("event_id", ev.EventID).
			Msg("failure publishing clip.created event")
	}

	if !p.sendToDLQ(ctx, ev, err.Error()) {
		log.Error().
			Str("clip_id", clipID).
			Str("event_id", ev.EventID).
			Msg("failed to dead-letter clip.created event after publish failure")
	}
	return false
}

// sendToDLQ wraps the failed event and delivers it to the DLQ subject with
// the shorter bound. Returns whether the DLQ delivery was confirmed.
func (p *Publisher) sendToDLQ(ctx context.Context, ev ClipCreatedEvent, reason string) bool {
	env := DeadLetterEnvelope{
		DLQTimestamp:    time.Now().UTC().Format(time.RFC3339Nano),
		ErrorReason:     reason,
		OriginalMessage: ev,
		RetryCount:      0,
	}
	data, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("event_id", ev.EventID).Msg("encoding dead-letter envelope")
		return false
	}

	headers := map[string]string{
		"dlq_reason":          "publish_failure",
		"original_event_type": ev.EventType,
		"original_clip_id":    ev.Data.ClipID,
	}

	// The primary failure may have been the request context expiring; the
	// DLQ attempt gets its own bound so the envelope is not lost with it.
	dlqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.dlqTimeout)
	defer cancel()

	deliveryID, err := p.transport.Publish(dlqCtx, p.dlqSubject, data, headers)
	if err != nil {
		log.Error().Err(err).
			Str("event_id", ev.EventID).
			Str("error_reason", reason).
			Msg("failed to send event to DLQ")
		return false
	}

	log.Info().
		Str("event_id", ev.EventID).
		Str("dlq_delivery_id", deliveryID).
		Str("error_reason", reason).
		Msg("sent clip.created event to DLQ")
	return true
}

// Health describes publisher readiness: configuration presence, not live
// connectivity.
type Health struct {
	Status      string `json:"status"`
	Initialized bool   `json:"initialized"`
	Subject     string `json:"subject"`
	DLQSubject  string `json:"dlq_subject"`
}

// HealthCheck reports whether the publisher has a transport and subjects
// configured. It does not probe the transport.
func (p *Publisher) HealthCheck() Health {
	h := Health{Status: "unhealthy"}
	if p == nil || p.transport == nil {
		return h
	}
	h.Initialized = true
	h.Subject = p.subject
	h.DLQSubject = p.dlqSubject
	if h.Subject != "" && h.DLQSubject != "" {
		h.Status = "healthy"
	}
	return h
}

// Close releases the underlying transport.
func (p *Publisher) Close() error {
	if p == nil || p.transport == nil {
		return nil
	}
	return p.transport.Close()
}
