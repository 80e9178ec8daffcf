package webhook

import (
	"fmt"
	"path"
	"strings"
	"sync"
)

// NamedHandler is a handler registered under a name used in reports
type NamedHandler struct {
	Pattern string
	Name    string
	Handler Handler
}

// Registry maps event types to ordered handlers.
// Patterns are exact event types, "*" for every event, or a path.Match
// pattern such as "/restapi/v1.0/account/*/extension/*/presence*".
// Handlers run in registration order.
type Registry struct {
	mu      sync.RWMutex
	entries []NamedHandler
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends h for events matching pattern
func (r *Registry) Register(pattern, name string, h Handler) error {
	if pattern == "" {
		return fmt.Errorf("event type pattern cannot be empty")
	}
	if name == "" {
		return fmt.Errorf("handler name cannot be empty for pattern %s", pattern)
	}
	if h == nil {
		return fmt.Errorf("handler %s cannot be nil", name)
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return fmt.Errorf("invalid event type pattern %s: %w", pattern, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.Pattern == pattern && e.Name == name {
			return fmt.Errorf("handler %s already registered for %s", name, pattern)
		}
	}
	r.entries = append(r.entries, NamedHandler{Pattern: pattern, Name: name, Handler: h})
	return nil
}

// Handlers returns the handlers for eventType in registration order
func (r *Registry) Handlers(eventType string) []NamedHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []NamedHandler
	for _, e := range r.entries {
		if MatchesEventType(e.Pattern, eventType) {
			out = append(out, e)
		}
	}
	return out
}

// List returns every registration in order
func (r *Registry) List() []NamedHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]NamedHandler(nil), r.entries...)
}

// MatchesEventType reports whether eventType matches pattern
func MatchesEventType(pattern, eventType string) bool {
	if pattern == "*" || pattern == eventType {
		return true
	}
	if !strings.ContainsAny(pattern, "*?[") {
		return false
	}
	ok, err := path.Match(pattern, eventType)
	return err == nil && ok
}
