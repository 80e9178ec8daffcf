package webhook

import (
	"errors"
	"fmt"
)

var ErrValidation = errors.New("webhook: validation failed")

// ValidationError means the event was refused before any side effect
type ValidationError struct {
	EventID string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.EventID == "" {
		return fmt.Sprintf("invalid event: %s", e.Reason)
	}
	return fmt.Sprintf("invalid event %s: %s", e.EventID, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
