package routes

import "fmt"

/* Kind selects which built-in handler a route entry creates
 * Log writes the event to the structured log
 * Forward relays the raw event to a downstream URL with retry and circuit breaking
 */
type Kind int

const (
	Log Kind = iota + 1
	Forward
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case Log:
		return "log"
	case Forward:
		return "forward"
	default:
		return "unknown"
	}
}

// NewKind creates a Kind from a string
func NewKind(s string) Kind {
	switch s {
	case "log":
		return Log
	case "forward":
		return Forward
	default:
		return 0
	}
}

// Validate checks if the kind is valid
func (k Kind) Validate() error {
	if k < Log || k > Forward {
		return fmt.Errorf("invalid handler kind: %d", k)
	}
	return nil
}
