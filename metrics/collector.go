package metrics

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/marcelsud/telephony-gateway/resilience"
)

// GatewayCollector implements Collector over executors and an idempotency store
type GatewayCollector struct {
	keys KeyCounter

	mu        sync.RWMutex
	executors []Snapshotter
}

// NewCollector creates a collector. keys may be nil when no store is wired.
func NewCollector(keys KeyCounter, executors ...Snapshotter) *GatewayCollector {
	return &GatewayCollector{
		keys:      keys,
		executors: executors,
	}
}

// Add registers executors created after the collector
func (c *GatewayCollector) Add(executors ...Snapshotter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.executors = append(c.executors, executors...)
}

func (c *GatewayCollector) snapshotters() []Snapshotter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Snapshotter(nil), c.executors...)
}

// Collect gathers all metrics
func (c *GatewayCollector) Collect(ctx context.Context) (Metrics, error) {
	circuits, err := c.GetCircuits(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting circuits: %w", err)
	}

	rateLimits, err := c.GetRateLimits(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting rate limits: %w", err)
	}

	keys, err := c.GetIdempotencyKeys(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting idempotency keys: %w", err)
	}

	return Metrics{
		Circuits:        circuits,
		RateLimits:      rateLimits,
		IdempotencyKeys: keys,
		Timestamp:       time.Now(),
	}, nil
}

// GetCircuits merges the breaker snapshots of every executor, sorted by target
func (c *GatewayCollector) GetCircuits(_ context.Context) ([]resilience.CircuitState, error) {
	circuits := []resilience.CircuitState{}
	for _, e := range c.snapshotters() {
		circuits = append(circuits, e.Circuits()...)
	}
	sort.Slice(circuits, func(i, j int) bool { return circuits[i].Target < circuits[j].Target })
	return circuits, nil
}

// GetRateLimits merges the rate-limit snapshots of every executor, sorted by target
func (c *GatewayCollector) GetRateLimits(_ context.Context) ([]resilience.RateLimitWindow, error) {
	windows := []resilience.RateLimitWindow{}
	for _, e := range c.snapshotters() {
		windows = append(windows, e.RateLimits()...)
	}
	sort.Slice(windows, func(i, j int) bool { return windows[i].Target < windows[j].Target })
	return windows, nil
}

// GetIdempotencyKeys returns the number of remembered event IDs
func (c *GatewayCollector) GetIdempotencyKeys(ctx context.Context) (int64, error) {
	if c.keys == nil {
		return 0, nil
	}
	n, err := c.keys.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting idempotency keys: %w", err)
	}
	return n, nil
}
