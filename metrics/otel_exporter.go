package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/marcelsud/telephony-gateway/resilience"
	"github.com/marcelsud/telephony-gateway/webhook"
)

/* OTelExporter provides OpenTelemetry metrics export following OTel standards
 * It observes the executor and the dispatcher (counters) and polls a Collector
 * for point-in-time state (gauges)
 */
type OTelExporter struct {
	meterProvider *sdkmetric.MeterProvider
	registry      *promclient.Registry
	collector     Collector

	// OTel meters and instruments
	meter              metric.Meter
	attempts           metric.Int64Counter
	attemptDuration    metric.Float64Histogram
	httpRequests       metric.Int64Counter
	httpDuration       metric.Float64Histogram
	httpInFlight       metric.Int64UpDownCounter
	rateLimitHits      metric.Int64Counter
	throttled          metric.Int64Counter
	throttleWait       metric.Float64Histogram
	dispatchEvents     metric.Int64Counter
	dispatchHandlers   metric.Int64Counter
	circuitStateGauge  metric.Int64ObservableGauge
	circuitFailures    metric.Int64ObservableGauge
	rateLimitRemaining metric.Int64ObservableGauge
	idempotencyKeys    metric.Int64ObservableGauge
}

// NewOTelExporter creates a new OpenTelemetry metrics exporter with Prometheus format
func NewOTelExporter(collector Collector) (*OTelExporter, error) {
	registry := promclient.NewRegistry()

	// Create Prometheus exporter
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	// Create meter provider
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(meterProvider)

	// Create meter with service info
	meter := meterProvider.Meter(
		"telephony-gateway",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	oe := &OTelExporter{
		meterProvider: meterProvider,
		registry:      registry,
		collector:     collector,
		meter:         meter,
	}

	// Register metrics instruments
	if err := oe.registerInstruments(); err != nil {
		return nil, fmt.Errorf("registering instruments: %w", err)
	}

	return oe, nil
}

// registerInstruments creates and registers all OpenTelemetry metric instruments
func (oe *OTelExporter) registerInstruments() error {
	var err error

	oe.attempts, err = oe.meter.Int64Counter(
		"gateway.upstream.attempts",
		metric.WithDescription("Outbound attempts per target and outcome"),
		metric.WithUnit("{attempts}"),
	)
	if err != nil {
		return fmt.Errorf("creating attempts counter: %w", err)
	}

	oe.attemptDuration, err = oe.meter.Float64Histogram(
		"gateway.upstream.duration",
		metric.WithDescription("Duration of outbound attempts per target"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("creating attempt duration histogram: %w", err)
	}

	oe.httpRequests, err = oe.meter.Int64Counter(
		"gateway.http.requests",
		metric.WithDescription("Inbound HTTP requests per method, route and status"),
		metric.WithUnit("{requests}"),
	)
	if err != nil {
		return fmt.Errorf("creating http requests counter: %w", err)
	}

	oe.httpDuration, err = oe.meter.Float64Histogram(
		"gateway.http.duration",
		metric.WithDescription("Inbound HTTP request duration per method and route"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("creating http duration histogram: %w", err)
	}

	oe.httpInFlight, err = oe.meter.Int64UpDownCounter(
		"gateway.http.in_flight",
		metric.WithDescription("Inbound HTTP requests currently being served"),
		metric.WithUnit("{requests}"),
	)
	if err != nil {
		return fmt.Errorf("creating http in flight counter: %w", err)
	}

	oe.rateLimitHits, err = oe.meter.Int64Counter(
		"gateway.ratelimit.hits",
		metric.WithDescription("Responses rejected with HTTP 429 per target"),
		metric.WithUnit("{responses}"),
	)
	if err != nil {
		return fmt.Errorf("creating rate limit hits counter: %w", err)
	}

	oe.throttled, err = oe.meter.Int64Counter(
		"gateway.ratelimit.throttled",
		metric.WithDescription("Calls delayed because the local quota was spent"),
		metric.WithUnit("{calls}"),
	)
	if err != nil {
		return fmt.Errorf("creating throttled counter: %w", err)
	}

	oe.throttleWait, err = oe.meter.Float64Histogram(
		"gateway.ratelimit.wait",
		metric.WithDescription("Time spent waiting for a rate limit window"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("creating throttle wait histogram: %w", err)
	}

	oe.dispatchEvents, err = oe.meter.Int64Counter(
		"gateway.dispatch.events",
		metric.WithDescription("Webhook events dispatched, by idempotency mark"),
		metric.WithUnit("{events}"),
	)
	if err != nil {
		return fmt.Errorf("creating dispatch events counter: %w", err)
	}

	oe.dispatchHandlers, err = oe.meter.Int64Counter(
		"gateway.dispatch.handlers",
		metric.WithDescription("Handler invocations per handler and outcome"),
		metric.WithUnit("{invocations}"),
	)
	if err != nil {
		return fmt.Errorf("creating dispatch handlers counter: %w", err)
	}

	// Circuit state gauge: 0 closed, 1 half open, 2 open
	oe.circuitStateGauge, err = oe.meter.Int64ObservableGauge(
		"gateway.circuit.state",
		metric.WithDescription("Circuit breaker state per target (0 closed, 1 half open, 2 open)"),
		metric.WithInt64Callback(oe.observeCircuitStates),
	)
	if err != nil {
		return fmt.Errorf("creating circuit state gauge: %w", err)
	}

	oe.circuitFailures, err = oe.meter.Int64ObservableGauge(
		"gateway.circuit.failures",
		metric.WithDescription("Consecutive failures counted by the breaker per target"),
		metric.WithUnit("{failures}"),
		metric.WithInt64Callback(oe.observeCircuitFailures),
	)
	if err != nil {
		return fmt.Errorf("creating circuit failures gauge: %w", err)
	}

	oe.rateLimitRemaining, err = oe.meter.Int64ObservableGauge(
		"gateway.ratelimit.remaining",
		metric.WithDescription("Requests left in the current rate limit window per target"),
		metric.WithUnit("{requests}"),
		metric.WithInt64Callback(oe.observeRateLimits),
	)
	if err != nil {
		return fmt.Errorf("creating rate limit remaining gauge: %w", err)
	}

	oe.idempotencyKeys, err = oe.meter.Int64ObservableGauge(
		"gateway.idempotency.keys",
		metric.WithDescription("Event IDs currently remembered by the idempotency store"),
		metric.WithUnit("{keys}"),
		metric.WithInt64Callback(oe.observeIdempotencyKeys),
	)
	if err != nil {
		return fmt.Errorf("creating idempotency keys gauge: %w", err)
	}

	return nil
}

func stateValue(s resilience.State) int64 {
	switch s {
	case resilience.StateHalfOpen:
		return 1
	case resilience.StateOpen:
		return 2
	default:
		return 0
	}
}

// observeCircuitStates is a callback that reports breaker states
func (oe *OTelExporter) observeCircuitStates(ctx context.Context, observer metric.Int64Observer) error {
	circuits, err := oe.collector.GetCircuits(ctx)
	if err != nil {
		return err
	}

	for _, c := range circuits {
		observer.Observe(stateValue(c.State), metric.WithAttributes(
			attribute.String("target", c.Target),
		))
	}

	return nil
}

// observeCircuitFailures is a callback that reports consecutive failure counts
func (oe *OTelExporter) observeCircuitFailures(ctx context.Context, observer metric.Int64Observer) error {
	circuits, err := oe.collector.GetCircuits(ctx)
	if err != nil {
		return err
	}

	for _, c := range circuits {
		observer.Observe(int64(c.ConsecutiveFailures), metric.WithAttributes(
			attribute.String("target", c.Target),
		))
	}

	return nil
}

// observeRateLimits is a callback that reports known quota windows
func (oe *OTelExporter) observeRateLimits(ctx context.Context, observer metric.Int64Observer) error {
	windows, err := oe.collector.GetRateLimits(ctx)
	if err != nil {
		return err
	}

	for _, w := range windows {
		if !w.Known {
			continue
		}
		observer.Observe(int64(w.Remaining), metric.WithAttributes(
			attribute.String("target", w.Target),
		))
	}

	return nil
}

// observeIdempotencyKeys is a callback that reports the store size
func (oe *OTelExporter) observeIdempotencyKeys(ctx context.Context, observer metric.Int64Observer) error {
	n, err := oe.collector.GetIdempotencyKeys(ctx)
	if err != nil {
		return err
	}
	observer.Observe(n)
	return nil
}

// AttemptCompleted implements resilience.Observer
func (oe *OTelExporter) AttemptCompleted(ctx context.Context, attempt resilience.CallAttempt) {
	target := attribute.String("target", attempt.Target)
	oe.attempts.Add(ctx, 1, metric.WithAttributes(
		target,
		attribute.String("outcome", attempt.Outcome.String()),
	))
	oe.attemptDuration.Record(ctx, attempt.Duration.Seconds(), metric.WithAttributes(target))
	if attempt.Status == http.StatusTooManyRequests {
		oe.rateLimitHits.Add(ctx, 1, metric.WithAttributes(target))
	}
}

// CircuitStateChanged implements resilience.Observer; the state gauge is polled, so nothing to record
func (oe *OTelExporter) CircuitStateChanged(string, resilience.State, resilience.State) {}

// Throttled implements resilience.Observer
func (oe *OTelExporter) Throttled(target string, wait time.Duration) {
	attrs := metric.WithAttributes(attribute.String("target", target))
	oe.throttled.Add(context.Background(), 1, attrs)
	oe.throttleWait.Record(context.Background(), wait.Seconds(), attrs)
}

// Dispatched implements webhook.Observer
func (oe *OTelExporter) Dispatched(ctx context.Context, report webhook.DispatchReport) {
	oe.dispatchEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", report.Mark.String()),
	))
	for _, res := range report.Results {
		oe.dispatchHandlers.Add(ctx, 1, metric.WithAttributes(
			attribute.String("handler", res.Name),
			attribute.String("outcome", res.Status.String()),
		))
	}
}

// ServeHTTP serves Prometheus-formatted metrics on the given HTTP handler
func (oe *OTelExporter) ServeHTTP() http.Handler {
	return promhttp.HandlerFor(oe.registry, promhttp.HandlerOpts{})
}

// Shutdown gracefully shuts down the meter provider
func (oe *OTelExporter) Shutdown(ctx context.Context) error {
	if oe.meterProvider != nil {
		return oe.meterProvider.Shutdown(ctx)
	}
	return nil
}
