package webhook

import "fmt"

/* Mark is the answer of the idempotency store for an event ID
 * FirstSeen means the caller owns the event and must dispatch it
 */
type Mark int

const (
	FirstSeen Mark = iota + 1
	Duplicate
)

// String returns the string representation of the mark
func (m Mark) String() string {
	switch m {
	case FirstSeen:
		return "first_seen"
	case Duplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// NewMark creates a Mark from a string; unknown strings give an invalid Mark
func NewMark(str string) Mark {
	switch str {
	case "first_seen":
		return FirstSeen
	case "duplicate":
		return Duplicate
	default:
		return 0
	}
}

// Validate checks if the mark is valid
func (m Mark) Validate() error {
	if m < FirstSeen || m > Duplicate {
		return fmt.Errorf("invalid mark: %d", m)
	}
	return nil
}

// MarshalText renders the mark by name
func (m Mark) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText parses a mark name
func (m *Mark) UnmarshalText(text []byte) error {
	mark := NewMark(string(text))
	if err := mark.Validate(); err != nil {
		return fmt.Errorf("parsing mark %q: %w", text, err)
	}
	*m = mark
	return nil
}

// HandlerStatus is the outcome of one handler for one event
type HandlerStatus int

const (
	Succeeded HandlerStatus = iota + 1
	Failed
)

// String returns the string representation of the handler status
func (s HandlerStatus) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText renders the handler status by name
func (s HandlerStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// NewHandlerStatus creates a HandlerStatus from a string; unknown strings give an invalid status
func NewHandlerStatus(str string) HandlerStatus {
	switch str {
	case "succeeded":
		return Succeeded
	case "failed":
		return Failed
	default:
		return 0
	}
}

// Validate checks if the handler status is valid
func (s HandlerStatus) Validate() error {
	if s < Succeeded || s > Failed {
		return fmt.Errorf("invalid handler status: %d", s)
	}
	return nil
}

// UnmarshalText parses a handler status name
func (s *HandlerStatus) UnmarshalText(text []byte) error {
	status := NewHandlerStatus(string(text))
	if err := status.Validate(); err != nil {
		return fmt.Errorf("parsing handler status %q: %w", text, err)
	}
	*s = status
	return nil
}
