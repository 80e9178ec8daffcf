package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

/* Service represents the business logic layer
 * Uses pointer semantics as it's an API, not data
 */

// UseCase defines the inbound event operations
type UseCase interface {
	Dispatch(ctx context.Context, ev Event) (DispatchReport, error)
}

// HandlerResult is the outcome of one handler
type HandlerResult struct {
	Name     string        `json:"name"`
	Status   HandlerStatus `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// DispatchReport summarises one Dispatch call
type DispatchReport struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Mark      Mark            `json:"mark"`
	Results   []HandlerResult `json:"results"`
}

// HandlersRun is the number of handlers invoked
func (r DispatchReport) HandlersRun() int {
	return len(r.Results)
}

// Failures is the number of handlers that failed
func (r DispatchReport) Failures() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == Failed {
			n++
		}
	}
	return n
}

type Service struct {
	Store    IdempotencyStore
	Verifier Verifier
	Registry *Registry
	logger   zerolog.Logger
	observer Observer
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithLogger sets the dispatch logger
func WithLogger(l zerolog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithObserver registers a dispatch observer
func WithObserver(o Observer) ServiceOption {
	return func(s *Service) { s.observer = o }
}

// NewService creates a new dispatcher with dependency injection
func NewService(store IdempotencyStore, verifier Verifier, registry *Registry, opts ...ServiceOption) *Service {
	s := &Service{
		Store:    store,
		Verifier: verifier,
		Registry: registry,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dispatch verifies ev, guards it against redelivery and runs its handlers.
// Handler failures are reported, never returned. The error is a *ValidationError
// for refused events or a store failure, in which case nothing was dispatched.
func (s *Service) Dispatch(ctx context.Context, ev Event) (DispatchReport, error) {
	report := DispatchReport{
		EventID:   ev.ID,
		EventType: ev.Type,
		Results:   []HandlerResult{},
	}

	if !s.Verifier.Verify(ev.Payload, ev.Signature) {
		return report, &ValidationError{EventID: ev.ID, Reason: "signature verification failed"}
	}
	if ev.ID == "" {
		return report, &ValidationError{Reason: "missing event id"}
	}

	mark, err := s.Store.MarkIfNew(ctx, ev.ID)
	if err != nil {
		return report, fmt.Errorf("marking event %s: %w", ev.ID, err)
	}
	report.Mark = mark

	logger := s.logger.With().Str("event_id", ev.ID).Str("event_type", ev.Type).Logger()
	if mark == Duplicate {
		logger.Debug().Msg("duplicate event skipped")
		s.notify(ctx, report)
		return report, nil
	}

	for _, h := range s.Registry.Handlers(ev.Type) {
		res := s.run(ctx, h, ev)
		if res.Status == Failed {
			logger.Error().Str("handler", h.Name).Str("error", res.Error).Msg("handler failed")
		}
		report.Results = append(report.Results, res)
	}
	logger.Info().
		Int("handlers", report.HandlersRun()).
		Int("failures", report.Failures()).
		Msg("event dispatched")

	s.notify(ctx, report)
	return report, nil
}

func (s *Service) run(ctx context.Context, h NamedHandler, ev Event) (res HandlerResult) {
	start := time.Now()
	res = HandlerResult{Name: h.Name, Status: Succeeded}
	defer func() {
		if r := recover(); r != nil {
			res.Status = Failed
			res.Error = fmt.Sprintf("panic: %v", r)
		}
		res.Duration = time.Since(start)
	}()

	if err := h.Handler.Handle(ctx, ev); err != nil {
		res.Status = Failed
		res.Error = err.Error()
	}
	return res
}

func (s *Service) notify(ctx context.Context, report DispatchReport) {
	if s.observer != nil {
		s.observer.Dispatched(ctx, report)
	}
}
