package resilience

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrCircuitOpen       = errors.New("resilience: circuit breaker is open")
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")
	ErrClientError       = errors.New("resilience: client error")
	ErrServerError       = errors.New("resilience: upstream server error")
	ErrTransport         = errors.New("resilience: transport failure")
	ErrInvalidRequest    = errors.New("resilience: invalid request")
	ErrUnexpectedStatus  = errors.New("resilience: unexpected status")
)

// CircuitOpenError is returned without contacting the target while its circuit is open.
type CircuitOpenError struct {
	Target     string
	OpenedAt   time.Time
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open for target %q", e.Target)
}

func (e *CircuitOpenError) Is(target error) bool { return target == ErrCircuitOpen }

// RateLimitExceededError is returned once every attempt was answered with 429.
type RateLimitExceededError struct {
	Target     string
	Attempts   int
	RetryAfter time.Duration
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for target %q after %d attempt(s)", e.Target, e.Attempts)
}

func (e *RateLimitExceededError) Is(target error) bool { return target == ErrRateLimitExceeded }

// ClientError is a non-retryable 4xx answer.
type ClientError struct {
	Target string
	Status int
	Header http.Header
	Body   []byte
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("target %q rejected request: %d %s", e.Target, e.Status, http.StatusText(e.Status))
}

func (e *ClientError) Is(target error) bool { return target == ErrClientError }

// ServerError is a 5xx answer that persisted through every attempt.
type ServerError struct {
	Target   string
	Status   int
	Attempts int
	Body     []byte
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("target %q failed after %d attempt(s): %d %s", e.Target, e.Attempts, e.Status, http.StatusText(e.Status))
}

func (e *ServerError) Is(target error) bool { return target == ErrServerError }

// TransportError means no response was obtained at all.
type TransportError struct {
	Target   string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("sending to target %q: %v", e.Target, e.Err)
}

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

func (e *TransportError) Unwrap() error { return e.Err }

// InvalidRequestError means the call could not be turned into a request; nothing was sent.
type InvalidRequestError struct {
	Target string
	Err    error
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request for target %q: %v", e.Target, e.Err)
}

func (e *InvalidRequestError) Is(target error) bool { return target == ErrInvalidRequest }

func (e *InvalidRequestError) Unwrap() error { return e.Err }

// UnexpectedStatusError is a 1xx or 3xx answer the transport handed back unresolved.
type UnexpectedStatusError struct {
	Target string
	Status int
	Header http.Header
	Body   []byte
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("target %q answered with unexpected status %d %s", e.Target, e.Status, http.StatusText(e.Status))
}

func (e *UnexpectedStatusError) Is(target error) bool { return target == ErrUnexpectedStatus }
