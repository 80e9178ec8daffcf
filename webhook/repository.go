package webhook

import "context"

/* Small, focused interfaces following "The Go Way"
 * Interfaces abstract behavior, not things
 */

// IdempotencyStore remembers which event IDs were already dispatched
type IdempotencyStore interface {
	/* MarkIfNew atomically records eventID and reports whether it was new
	 * Of any number of concurrent calls for the same ID within the retention
	 * window, exactly one gets FirstSeen
	 */
	MarkIfNew(ctx context.Context, eventID string) (Mark, error)
}

// Verifier checks the signature header of an inbound payload
type Verifier interface {
	Verify(payload []byte, signature string) bool
}

// Handler reacts to one event type
type Handler interface {
	Handle(ctx context.Context, ev Event) error
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, ev Event) error

// Handle calls f(ctx, ev)
func (f HandlerFunc) Handle(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Observer is notified of every completed dispatch
type Observer interface {
	Dispatched(ctx context.Context, report DispatchReport)
}
