package payload

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/marcelsud/telephony-gateway/webhook"
)

// Notification is the JSON body the telephony platform posts to a webhook address
type Notification struct {
	// UUID uniquely identifies the notification and is stable across redeliveries
	UUID string `json:"uuid"`

	// Event is the event filter that produced the notification
	// Example: "/restapi/v1.0/account/~/extension/~/presence"
	Event string `json:"event"`

	Timestamp      time.Time       `json:"timestamp"`
	SubscriptionID string          `json:"subscriptionId"`
	OwnerID        string          `json:"ownerId,omitempty"`
	Body           json.RawMessage `json:"body"`
}

// Validate validates the notification structure
func (n Notification) Validate() error {
	if n.UUID == "" {
		return fmt.Errorf("uuid is required")
	}
	if n.Event == "" {
		return fmt.Errorf("event is required")
	}
	if err := ValidateEventType(n.Event); err != nil {
		return err
	}
	if n.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if len(n.Body) > 0 && !json.Valid(n.Body) {
		return fmt.Errorf("body must be valid JSON")
	}
	return nil
}

// MarshalJSON returns the JSON encoding of the notification
func (n Notification) MarshalJSON() ([]byte, error) {
	type Alias Notification
	return json.Marshal(&struct {
		Timestamp string `json:"timestamp"`
		*Alias
	}{
		Timestamp: n.Timestamp.Format(time.RFC3339Nano),
		Alias:     (*Alias)(&n),
	})
}

// UnmarshalJSON parses the JSON-encoded data and stores the result
func (n *Notification) UnmarshalJSON(data []byte) error {
	type Alias Notification
	aux := &struct {
		Timestamp string `json:"timestamp"`
		*Alias
	}{
		Alias: (*Alias)(n),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("unmarshaling notification: %w", err)
	}

	if aux.Timestamp == "" {
		n.Timestamp = time.Time{}
		return nil
	}
	timestamp, err := time.Parse(time.RFC3339Nano, aux.Timestamp)
	if err != nil {
		timestamp, err = time.Parse(time.RFC3339, aux.Timestamp)
		if err != nil {
			return fmt.Errorf("parsing timestamp: %w", err)
		}
	}
	n.Timestamp = timestamp

	return nil
}

// Parse parses and validates a raw notification body
func Parse(data []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return Notification{}, fmt.Errorf("unmarshaling notification: %w", err)
	}
	if err := n.Validate(); err != nil {
		return Notification{}, fmt.Errorf("validating notification: %w", err)
	}
	return n, nil
}

// ToEvent converts the notification into a dispatchable event.
// raw must be the exact bytes that were parsed so the signature still matches.
func (n Notification) ToEvent(raw []byte, signature string) webhook.Event {
	return webhook.Event{
		ID:             n.UUID,
		Type:           n.Event,
		Timestamp:      n.Timestamp,
		SubscriptionID: n.SubscriptionID,
		Payload:        raw,
		Signature:      signature,
	}
}

// Category groups events by the resource they describe
type Category string

const (
	CategoryPresence  Category = "presence"
	CategoryMessage   Category = "message"
	CategoryTelephony Category = "telephony"
	CategoryExtension Category = "extension"
	CategoryUnknown   Category = "unknown"
)

// Classify derives the category of an event filter.
// Presence and message filters are nested under /extension, so they are checked first.
func Classify(eventType string) Category {
	t := strings.ToLower(eventType)
	if i := strings.IndexByte(t, '?'); i >= 0 {
		t = t[:i]
	}
	switch {
	case strings.Contains(t, "presence"):
		return CategoryPresence
	case strings.Contains(t, "message"):
		return CategoryMessage
	case strings.Contains(t, "telephony"):
		return CategoryTelephony
	case strings.Contains(t, "extension"):
		return CategoryExtension
	default:
		return CategoryUnknown
	}
}

// ValidateEventType validates an event filter or a registry pattern
func ValidateEventType(eventType string) error {
	if eventType == "" {
		return fmt.Errorf("event type cannot be empty")
	}
	if eventType == "*" {
		return nil
	}
	if !strings.HasPrefix(eventType, "/") {
		return fmt.Errorf("event type must be an absolute resource path: %s", eventType)
	}
	if strings.ContainsAny(eventType, " \t\r\n") {
		return fmt.Errorf("event type must not contain whitespace: %s", eventType)
	}
	if _, err := path.Match(eventType, ""); err != nil {
		return fmt.Errorf("event type is not a valid pattern: %s", eventType)
	}
	return nil
}
