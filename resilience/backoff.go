package resilience

import (
	"math"
	"time"
)

const (
	DefaultMaxAttempts       = 3
	DefaultBackoffMultiplier = 1.0
)

// BackoffPolicy computes the wait before retry attempt n+1.
type BackoffPolicy struct {
	MaxAttempts int
	Multiplier  float64
}

// DefaultBackoffPolicy returns 3 attempts with delays of 2s, 4s and 8s
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Multiplier:  DefaultBackoffMultiplier,
	}
}

func (p BackoffPolicy) maxAttempts() int {
	if p.MaxAttempts < 1 {
		return DefaultMaxAttempts
	}
	return p.MaxAttempts
}

func (p BackoffPolicy) multiplier() float64 {
	if p.Multiplier <= 0 {
		return DefaultBackoffMultiplier
	}
	return p.Multiplier
}

// NextDelay returns Multiplier * 2^attempt seconds, or hint when the server asked
// for longer. A zero result means the attempt budget is spent.
func (p BackoffPolicy) NextDelay(attempt int, hint time.Duration) time.Duration {
	if attempt < 1 || attempt > p.maxAttempts() {
		return 0
	}
	delay := time.Duration(p.multiplier() * math.Pow(2, float64(attempt)) * float64(time.Second))
	if hint > delay {
		return hint
	}
	return delay
}
