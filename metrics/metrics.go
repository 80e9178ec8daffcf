package metrics

import (
	"context"
	"time"

	"github.com/marcelsud/telephony-gateway/resilience"
)

// Metrics represents the current state of the gateway.
type Metrics struct {
	// Circuits holds the breaker state of every target that has been called
	Circuits []resilience.CircuitState `json:"circuits"`

	// RateLimits holds the last known quota window of every target
	RateLimits []resilience.RateLimitWindow `json:"rate_limits"`

	// IdempotencyKeys is the number of event IDs currently remembered
	IdempotencyKeys int64 `json:"idempotency_keys"`

	// Timestamp when metrics were collected
	Timestamp time.Time `json:"timestamp"`
}

// Collector defines the interface for collecting point-in-time gateway state.
type Collector interface {
	// Collect gathers current metrics from the system
	Collect(ctx context.Context) (Metrics, error)

	// GetCircuits returns the breaker state per target
	GetCircuits(ctx context.Context) ([]resilience.CircuitState, error)

	// GetRateLimits returns the quota window per target
	GetRateLimits(ctx context.Context) ([]resilience.RateLimitWindow, error)

	// GetIdempotencyKeys returns the number of remembered event IDs
	GetIdempotencyKeys(ctx context.Context) (int64, error)
}

// Snapshotter exposes the per-target state of an executor
type Snapshotter interface {
	Circuits() []resilience.CircuitState
	RateLimits() []resilience.RateLimitWindow
}

// KeyCounter counts the keys of an idempotency store
type KeyCounter interface {
	Count(ctx context.Context) (int64, error)
}
