package resilience

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

/* OutboundCall describes a single logical request to a remote target.
 * It is treated as immutable once handed to the Executor: every attempt
 * sends the same method, path, headers and body.
 */
type OutboundCall struct {
	ID     string
	Target string
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// NewOutboundCall builds a call with a fresh ID, copying header and body
func NewOutboundCall(target, method, path string, header http.Header, body []byte) OutboundCall {
	var b []byte
	if body != nil {
		b = append([]byte(nil), body...)
	}
	h := http.Header{}
	for k, v := range header {
		h[k] = append([]string(nil), v...)
	}
	return OutboundCall{
		ID:     uuid.NewString(),
		Target: target,
		Method: method,
		Path:   path,
		Header: h,
		Body:   b,
	}
}

// Response is what a Transport returns for a completed HTTP exchange.
type Response struct {
	Status   int
	Header   http.Header
	Body     []byte
	Attempts int
}

// Transport performs exactly one attempt of an OutboundCall.
// A non-nil error means no HTTP response was obtained.
type Transport interface {
	Send(ctx context.Context, call OutboundCall) (Response, error)
}

// Outcome is the classification of a single attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota + 1
	OutcomeRetryable
	OutcomeFatal
)

// String returns the string representation of the outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// CallAttempt records one attempt of an OutboundCall.
type CallAttempt struct {
	CallID    string
	Target    string
	Number    int
	StartedAt time.Time
	Duration  time.Duration
	Status    int // 0 when no response was received
	Outcome   Outcome
	Hints     Hints
	Err       error
}
