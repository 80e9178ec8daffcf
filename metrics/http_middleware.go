package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Middleware records request count, duration and in-flight requests.
// Routes are labelled by their chi pattern so path parameters do not explode cardinality.
func (oe *OTelExporter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		method := attribute.String("method", r.Method)

		oe.httpInFlight.Add(ctx, 1, metric.WithAttributes(method))
		defer oe.httpInFlight.Add(ctx, -1, metric.WithAttributes(method))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		elapsed := time.Since(start)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := attribute.String("route", routePattern(r))
		oe.httpRequests.Add(ctx, 1, metric.WithAttributes(
			method,
			route,
			attribute.String("status", strconv.Itoa(status)),
		))
		oe.httpDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(method, route))
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
