package resilience

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Observer receives attempt and state notifications, typically for metrics.
type Observer interface {
	AttemptCompleted(ctx context.Context, attempt CallAttempt)
	CircuitStateChanged(target string, from, to State)
	Throttled(target string, wait time.Duration)
}

type noopObserver struct{}

func (noopObserver) AttemptCompleted(context.Context, CallAttempt) {}
func (noopObserver) CircuitStateChanged(string, State, State)     {}
func (noopObserver) Throttled(string, time.Duration)              {}

type options struct {
	backoff  BackoffPolicy
	breaker  BreakerConfig
	maxWait  time.Duration
	clock    Clock
	logger   zerolog.Logger
	observer Observer
}

// Option configures an Executor.
type Option func(*options)

// WithBackoff sets the retry budget and delay multiplier
func WithBackoff(p BackoffPolicy) Option {
	return func(o *options) { o.backoff = p }
}

// WithBreakerConfig sets the circuit breaker threshold and cooldown
func WithBreakerConfig(c BreakerConfig) Option {
	return func(o *options) { o.breaker = c }
}

// WithMaxThrottleWait caps a single pre-emptive rate-limit wait
func WithMaxThrottleWait(d time.Duration) Option {
	return func(o *options) { o.maxWait = d }
}

// WithClock replaces the wall clock
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the logger used for retries and state changes
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver registers an observer for attempts and state changes
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

/* Executor runs OutboundCalls through breaker, rate limiter and retry.
 * Breaker and rate-limit state are keyed by OutboundCall.Target and owned by
 * this instance; two executors never share state.
 */
type Executor struct {
	transport Transport
	backoff   BackoffPolicy
	breakers  *Breakers
	limiter   *RateLimiter
	clock     Clock
	logger    zerolog.Logger
	observer  Observer
}

// NewExecutor creates an executor around transport
func NewExecutor(transport Transport, opts ...Option) *Executor {
	o := options{
		backoff:  DefaultBackoffPolicy(),
		breaker:  DefaultBreakerConfig(),
		maxWait:  DefaultMaxThrottleWait,
		clock:    SystemClock,
		logger:   zerolog.Nop(),
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	e := &Executor{
		transport: transport,
		backoff:   o.backoff,
		clock:     o.clock,
		logger:    o.logger,
		observer:  o.observer,
	}
	e.breakers = NewBreakers(o.breaker, o.clock, e.circuitStateChanged)
	e.limiter = NewRateLimiter(o.clock, o.maxWait, e.throttled)
	return e
}

func (e *Executor) circuitStateChanged(target string, from, to State) {
	ev := e.logger.Info()
	if to == StateOpen {
		ev = e.logger.Warn()
	}
	ev.Str("target", target).
		Stringer("from", from).
		Stringer("to", to).
		Msg("circuit state changed")
	e.observer.CircuitStateChanged(target, from, to)
}

func (e *Executor) throttled(target string, wait time.Duration) {
	e.logger.Debug().
		Str("target", target).
		Dur("wait", wait).
		Msg("waiting for rate limit window")
	e.observer.Throttled(target, wait)
}

// Execute performs call, retrying retryable failures until the attempt budget is spent.
// Errors are one of *CircuitOpenError, *RateLimitExceededError, *ClientError,
// *ServerError, *TransportError, *InvalidRequestError, *UnexpectedStatusError
// or the context's error.
func (e *Executor) Execute(ctx context.Context, call OutboundCall) (Response, error) {
	if call.ID == "" {
		call.ID = uuid.NewString()
	}
	logger := e.logger.With().
		Str("call_id", call.ID).
		Str("target", call.Target).
		Str("method", call.Method).
		Str("path", call.Path).
		Logger()

	maxAttempts := e.backoff.maxAttempts()
	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return Response{}, err
		}

		if e.breakers.Allow(call.Target) == Reject {
			st := e.breakers.State(call.Target)
			return Response{}, &CircuitOpenError{
				Target:     call.Target,
				OpenedAt:   st.OpenedAt,
				RetryAfter: e.breakers.RetryAfter(call.Target),
			}
		}

		if err := e.limiter.BeforeCall(ctx, call.Target); err != nil {
			e.breakers.Release(call.Target)
			return Response{}, err
		}

		rec := CallAttempt{
			CallID:    call.ID,
			Target:    call.Target,
			Number:    attempt,
			StartedAt: e.clock.Now(),
		}
		resp, err := e.transport.Send(ctx, call)
		rec.Duration = e.clock.Now().Sub(rec.StartedAt)

		var hint time.Duration
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				// cancelled mid-flight: not a target failure
				e.breakers.Release(call.Target)
				return Response{}, ctxErr
			}
			if errors.Is(err, ErrInvalidRequest) {
				// never reached the target
				e.breakers.Release(call.Target)
				ierr := &InvalidRequestError{Target: call.Target, Err: err}
				rec.Outcome = OutcomeFatal
				rec.Err = ierr
				e.observer.AttemptCompleted(ctx, rec)
				logger.Error().Err(err).Msg("upstream call could not be built")
				return Response{}, ierr
			}
			e.breakers.RecordFailure(call.Target)
			lastErr = &TransportError{Target: call.Target, Attempts: attempt, Err: err}
			rec.Outcome = OutcomeRetryable
			rec.Err = lastErr
		} else {
			hints := ParseHints(resp.Header, e.clock.Now())
			e.limiter.Observe(call.Target, hints)
			rec.Status = resp.Status
			rec.Hints = hints

			switch {
			case resp.Status >= http.StatusOK && resp.Status < http.StatusMultipleChoices:
				e.breakers.RecordSuccess(call.Target)
				rec.Outcome = OutcomeSuccess
				e.observer.AttemptCompleted(ctx, rec)
				resp.Attempts = attempt
				return resp, nil
			case resp.Status == http.StatusTooManyRequests:
				e.breakers.RecordFailure(call.Target)
				hint = hints.RetryAfter
				lastErr = &RateLimitExceededError{Target: call.Target, Attempts: attempt, RetryAfter: hints.RetryAfter}
				rec.Outcome = OutcomeRetryable
			case resp.Status >= http.StatusInternalServerError:
				e.breakers.RecordFailure(call.Target)
				lastErr = &ServerError{Target: call.Target, Status: resp.Status, Attempts: attempt, Body: resp.Body}
				rec.Outcome = OutcomeRetryable
			case resp.Status < http.StatusBadRequest:
				// 1xx and 3xx say nothing about the target's health
				e.breakers.Release(call.Target)
				uerr := &UnexpectedStatusError{Target: call.Target, Status: resp.Status, Header: resp.Header, Body: resp.Body}
				rec.Outcome = OutcomeFatal
				rec.Err = uerr
				e.observer.AttemptCompleted(ctx, rec)
				return Response{}, uerr
			default:
				e.breakers.RecordFailure(call.Target)
				cerr := &ClientError{Target: call.Target, Status: resp.Status, Header: resp.Header, Body: resp.Body}
				rec.Outcome = OutcomeFatal
				rec.Err = cerr
				e.observer.AttemptCompleted(ctx, rec)
				return Response{}, cerr
			}
			rec.Err = lastErr
		}
		e.observer.AttemptCompleted(ctx, rec)

		if attempt >= maxAttempts {
			logger.Error().Err(lastErr).Int("attempts", attempt).Msg("upstream call failed")
			return Response{}, lastErr
		}
		if st := e.breakers.State(call.Target); st.State == StateOpen {
			logger.Warn().Err(lastErr).Int("attempts", attempt).Msg("circuit opened, giving up")
			return Response{}, &CircuitOpenError{
				Target:     call.Target,
				OpenedAt:   st.OpenedAt,
				RetryAfter: e.breakers.RetryAfter(call.Target),
			}
		}
		delay := e.backoff.NextDelay(attempt, hint)
		if delay <= 0 {
			return Response{}, lastErr
		}
		logger.Warn().
			Err(lastErr).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("retrying upstream call")
		if err := sleep(ctx, e.clock, delay); err != nil {
			return Response{}, err
		}
	}
}

// Circuits returns the breaker state of every target this executor has called
func (e *Executor) Circuits() []CircuitState {
	return e.breakers.Snapshot()
}

// Circuit returns the breaker state of one target
func (e *Executor) Circuit(target string) CircuitState {
	return e.breakers.State(target)
}

// RateLimits returns the rate-limit window of every target this executor has called
func (e *Executor) RateLimits() []RateLimitWindow {
	return e.limiter.Snapshot()
}
