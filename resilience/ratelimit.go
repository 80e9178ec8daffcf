package resilience

import (
	"context"
	"sort"
	"sync"
	"time"
)

const DefaultMaxThrottleWait = 60 * time.Second

// RateLimitWindow is the locally tracked quota of one target.
type RateLimitWindow struct {
	Target    string    `json:"target"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at,omitempty"`
	Known     bool      `json:"known"`
}

type window struct {
	mu sync.Mutex
	w  RateLimitWindow
}

// reserve consumes one unit of quota and returns how long the caller must wait first.
func (w *window) reserve(now time.Time) time.Duration {
	if !w.w.Known {
		return 0
	}
	if w.w.Remaining > 0 {
		w.w.Remaining--
		return 0
	}
	if w.w.ResetAt.IsZero() {
		return 0
	}
	if !now.Before(w.w.ResetAt) {
		// the window rolled over; forget it until the next response tells us more
		w.w.Known = false
		w.w.ResetAt = time.Time{}
		return 0
	}
	return w.w.ResetAt.Sub(now)
}

/* RateLimiter coordinates outbound calls with the quota hints a target returns.
 * It is reactive: until a target has sent hints, calls proceed unthrottled.
 */
type RateLimiter struct {
	clock      Clock
	maxWait    time.Duration
	windows    sync.Map // target -> *window
	onThrottle func(target string, wait time.Duration)
}

// NewRateLimiter creates a keyed coordinator. onThrottle may be nil.
func NewRateLimiter(clock Clock, maxWait time.Duration, onThrottle func(target string, wait time.Duration)) *RateLimiter {
	if clock == nil {
		clock = SystemClock
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxThrottleWait
	}
	return &RateLimiter{
		clock:      clock,
		maxWait:    maxWait,
		onThrottle: onThrottle,
	}
}

func (l *RateLimiter) get(target string) *window {
	if w, ok := l.windows.Load(target); ok {
		return w.(*window)
	}
	w, _ := l.windows.LoadOrStore(target, &window{w: RateLimitWindow{Target: target}})
	return w.(*window)
}

// BeforeCall blocks while the target's quota is known to be exhausted.
// Only the calling goroutine waits; ctx cancellation ends the wait early.
func (l *RateLimiter) BeforeCall(ctx context.Context, target string) error {
	w := l.get(target)

	w.mu.Lock()
	wait := w.reserve(l.clock.Now())
	w.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	if wait > l.maxWait {
		wait = l.maxWait
	}
	if l.onThrottle != nil {
		l.onThrottle(target, wait)
	}
	return sleep(ctx, l.clock, wait)
}

// Observe updates the target's window from the hints of a response
func (l *RateLimiter) Observe(target string, hints Hints) {
	if hints.Empty() {
		return
	}
	now := l.clock.Now()
	w := l.get(target)

	w.mu.Lock()
	defer w.mu.Unlock()
	if hints.HasRemaining {
		w.w.Known = true
		w.w.Remaining = hints.Remaining
		if hints.ResetAfter > 0 {
			w.w.ResetAt = now.Add(hints.ResetAfter)
		}
	}
	if hints.RetryAfter > 0 {
		w.w.Known = true
		w.w.Remaining = 0
		w.w.ResetAt = now.Add(hints.RetryAfter)
	}
}

// Window returns a copy of the tracked window for target
func (l *RateLimiter) Window(target string) RateLimitWindow {
	w := l.get(target)
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w
}

// Snapshot returns every tracked window, sorted by target
func (l *RateLimiter) Snapshot() []RateLimitWindow {
	var windows []RateLimitWindow
	l.windows.Range(func(_, v any) bool {
		w := v.(*window)
		w.mu.Lock()
		windows = append(windows, w.w)
		w.mu.Unlock()
		return true
	})
	sort.Slice(windows, func(i, j int) bool { return windows[i].Target < windows[j].Target })
	return windows
}
