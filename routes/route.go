package routes

import (
	"fmt"
	"net/url"

	"github.com/marcelsud/telephony-gateway/webhook/payload"
	"github.com/marcelsud/telephony-gateway/webhook/signature"
)

/* Route binds an event type pattern to an ordered list of handlers
 * Handlers run in the order they are listed
 */
type Route struct {
	EventType string
	Handlers  []HandlerSpec
}

// HandlerSpec describes one handler of a route
type HandlerSpec struct {
	Name          string
	Kind          Kind
	URL           string // Forward only
	TargetID      string // Forward only: keys breaker and rate-limit state, defaults to Name
	SigningSecret string // Forward only: optional HMAC key for the forwarded body
}

// Validate checks if the route configuration is valid
func (r *Route) Validate() error {
	if err := payload.ValidateEventType(r.EventType); err != nil {
		return fmt.Errorf("invalid event_type %q: %w", r.EventType, err)
	}
	if len(r.Handlers) == 0 {
		return fmt.Errorf("route %s must declare at least one handler", r.EventType)
	}

	seen := make(map[string]bool, len(r.Handlers))
	for _, h := range r.Handlers {
		if h.Name == "" {
			return fmt.Errorf("handler name cannot be empty for route %s", r.EventType)
		}
		if seen[h.Name] {
			return fmt.Errorf("duplicate handler %s for route %s", h.Name, r.EventType)
		}
		seen[h.Name] = true

		if err := h.Kind.Validate(); err != nil {
			return fmt.Errorf("invalid kind for handler %s: %w", h.Name, err)
		}
		if h.Kind != Forward {
			continue
		}
		u, err := url.Parse(h.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("forward handler %s requires an absolute http(s) url (got %q)", h.Name, h.URL)
		}
		if h.SigningSecret != "" && len(h.SigningSecret) < signature.MinTokenLength {
			return fmt.Errorf("signing_secret for handler %s must be at least %d characters", h.Name, signature.MinTokenLength)
		}
	}
	return nil
}

// Target returns the executor key of a forward handler
func (h HandlerSpec) Target() string {
	if h.TargetID != "" {
		return h.TargetID
	}
	return h.Name
}
