package resilience

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

const (
	DefaultFailureThreshold = 5
	DefaultCooldown         = 60 * time.Second
)

// State is the circuit breaker state of one target.
type State int

const (
	StateClosed State = iota + 1
	StateOpen
	StateHalfOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// NewState creates a State from its name; unknown names give the zero State
func NewState(str string) State {
	switch str {
	case "closed":
		return StateClosed
	case "open":
		return StateOpen
	case "half_open":
		return StateHalfOpen
	default:
		return 0
	}
}

// MarshalText renders the state by name in JSON payloads
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name
func (s *State) UnmarshalText(text []byte) error {
	st := NewState(string(text))
	if st == 0 {
		return fmt.Errorf("invalid circuit state: %q", text)
	}
	*s = st
	return nil
}

// Decision is the answer of Breakers.Allow.
type Decision int

const (
	Permit Decision = iota + 1
	Reject
)

// String returns the string representation of the decision
func (d Decision) String() string {
	switch d {
	case Permit:
		return "permit"
	case Reject:
		return "reject"
	default:
		return "unknown"
	}
}

// BreakerConfig holds the trip threshold and the open-state cooldown.
type BreakerConfig struct {
	FailureThreshold int
	Cooldown         time.Duration
}

// DefaultBreakerConfig returns threshold 5 and a 60s cooldown
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: DefaultFailureThreshold,
		Cooldown:         DefaultCooldown,
	}
}

// Validate checks the breaker configuration
func (c BreakerConfig) Validate() error {
	if c.FailureThreshold < 1 {
		return fmt.Errorf("failure threshold must be at least 1 (got %d)", c.FailureThreshold)
	}
	if c.Cooldown <= 0 {
		return fmt.Errorf("cooldown must be positive (got %s)", c.Cooldown)
	}
	return nil
}

// CircuitState is the breaker bookkeeping for one target.
type CircuitState struct {
	Target              string    `json:"target"`
	State               State     `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastFailure         time.Time `json:"last_failure,omitempty"`
	OpenedAt            time.Time `json:"opened_at,omitempty"`
}

type circuit struct {
	mu      sync.Mutex
	state   CircuitState
	probing bool
}

/* Breakers is a keyed circuit breaker.
 * Each target has its own circuit and its own lock; there is no lock shared
 * across targets. Open -> HalfOpen is evaluated lazily inside Allow, so no
 * background goroutine is needed.
 */
type Breakers struct {
	config        BreakerConfig
	clock         Clock
	circuits      sync.Map // target -> *circuit
	onStateChange func(target string, from, to State)
}

// NewBreakers creates a keyed breaker. Zero config fields take the defaults; onStateChange may be nil.
func NewBreakers(cfg BreakerConfig, clock Clock, onStateChange func(target string, from, to State)) *Breakers {
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if clock == nil {
		clock = SystemClock
	}
	return &Breakers{
		config:        cfg,
		clock:         clock,
		onStateChange: onStateChange,
	}
}

// Config returns the effective configuration
func (b *Breakers) Config() BreakerConfig {
	return b.config
}

func (b *Breakers) get(target string) *circuit {
	if c, ok := b.circuits.Load(target); ok {
		return c.(*circuit)
	}
	c, _ := b.circuits.LoadOrStore(target, &circuit{
		state: CircuitState{Target: target, State: StateClosed},
	})
	return c.(*circuit)
}

func (b *Breakers) notify(target string, from, to State) {
	if b.onStateChange != nil && from != to {
		b.onStateChange(target, from, to)
	}
}

// Allow decides whether an attempt against target may proceed.
// In HalfOpen exactly one probe is admitted until its result is recorded or released.
func (b *Breakers) Allow(target string) Decision {
	c := b.get(target)

	c.mu.Lock()
	from := c.state.State
	decision := Reject
	switch c.state.State {
	case StateClosed:
		decision = Permit
	case StateOpen:
		if !b.clock.Now().Before(c.state.OpenedAt.Add(b.config.Cooldown)) {
			c.state.State = StateHalfOpen
			c.probing = true
			decision = Permit
		}
	case StateHalfOpen:
		if !c.probing {
			c.probing = true
			decision = Permit
		}
	}
	to := c.state.State
	c.mu.Unlock()

	b.notify(target, from, to)
	return decision
}

// RecordSuccess resets the failure count and closes a half-open circuit
func (b *Breakers) RecordSuccess(target string) {
	c := b.get(target)

	c.mu.Lock()
	from := c.state.State
	c.state.ConsecutiveFailures = 0
	if c.state.State == StateHalfOpen {
		c.state.State = StateClosed
		c.state.OpenedAt = time.Time{}
		c.probing = false
	}
	to := c.state.State
	c.mu.Unlock()

	b.notify(target, from, to)
}

// RecordFailure counts a failed attempt, opening the circuit at the threshold
// or re-opening it when the half-open probe failed.
func (b *Breakers) RecordFailure(target string) {
	c := b.get(target)
	now := b.clock.Now()

	c.mu.Lock()
	from := c.state.State
	c.state.ConsecutiveFailures++
	c.state.LastFailure = now
	switch c.state.State {
	case StateClosed:
		if c.state.ConsecutiveFailures >= b.config.FailureThreshold {
			c.state.State = StateOpen
			c.state.OpenedAt = now
		}
	case StateHalfOpen:
		c.state.State = StateOpen
		c.state.OpenedAt = now
		c.probing = false
	}
	to := c.state.State
	c.mu.Unlock()

	b.notify(target, from, to)
}

// Release gives back a half-open probe slot for an attempt that was never sent
func (b *Breakers) Release(target string) {
	c := b.get(target)

	c.mu.Lock()
	if c.state.State == StateHalfOpen {
		c.probing = false
	}
	c.mu.Unlock()
}

// State returns a copy of the circuit state for target
func (b *Breakers) State(target string) CircuitState {
	c := b.get(target)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RetryAfter is how long until an open circuit admits a probe
func (b *Breakers) RetryAfter(target string) time.Duration {
	st := b.State(target)
	if st.State != StateOpen {
		return 0
	}
	d := st.OpenedAt.Add(b.config.Cooldown).Sub(b.clock.Now())
	if d < 0 {
		return 0
	}
	return d
}

// Snapshot returns the state of every known target, sorted by target
func (b *Breakers) Snapshot() []CircuitState {
	var states []CircuitState
	b.circuits.Range(func(_, v any) bool {
		c := v.(*circuit)
		c.mu.Lock()
		states = append(states, c.state)
		c.mu.Unlock()
		return true
	})
	sort.Slice(states, func(i, j int) bool { return states[i].Target < states[j].Target })
	return states
}
