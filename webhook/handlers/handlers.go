package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/marcelsud/telephony-gateway/resilience"
	"github.com/marcelsud/telephony-gateway/webhook"
	"github.com/marcelsud/telephony-gateway/webhook/payload"
	"github.com/marcelsud/telephony-gateway/webhook/signature"
	"github.com/rs/zerolog"
)

// Executor runs outbound calls with retry and circuit breaking
type Executor interface {
	Execute(ctx context.Context, call resilience.OutboundCall) (resilience.Response, error)
}

// Log writes one structured line per event, tagged with its category
type Log struct {
	logger zerolog.Logger
}

// NewLog creates a logging handler
func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger}
}

// Handle logs ev
func (h *Log) Handle(ctx context.Context, ev webhook.Event) error {
	entry := h.logger.Info().
		Str("event_id", ev.ID).
		Str("event_type", ev.Type).
		Str("category", string(payload.Classify(ev.Type))).
		Str("subscription_id", ev.SubscriptionID).
		Time("event_time", ev.Timestamp)

	var n payload.Notification
	if err := json.Unmarshal(ev.Payload, &n); err == nil && len(n.Body) > 0 {
		entry = entry.RawJSON("body", n.Body)
	}
	entry.Msg("telephony event received")
	return nil
}

// Forward relays the raw event body to a downstream URL through an Executor
type Forward struct {
	exec   Executor
	target string
	url    string
	secret string
}

// NewForward creates a forwarding handler. target keys the breaker and rate-limit
// state of the destination; secret, when set, signs the forwarded body.
func NewForward(exec Executor, target, url, secret string) *Forward {
	return &Forward{
		exec:   exec,
		target: target,
		url:    url,
		secret: secret,
	}
}

// Handle posts ev to the destination
func (h *Forward) Handle(ctx context.Context, ev webhook.Event) error {
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("X-Event-Id", ev.ID)
	header.Set("X-Event-Type", ev.Type)
	if h.secret != "" {
		header.Set(signature.DefaultHeader, signature.Sign(h.secret, ev.Payload))
	}

	call := resilience.NewOutboundCall(h.target, http.MethodPost, h.url, header, ev.Payload)
	if _, err := h.exec.Execute(ctx, call); err != nil {
		return fmt.Errorf("forwarding event to %s: %w", h.target, err)
	}
	return nil
}
