package chi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/rs/zerolog"

	"github.com/marcelsud/telephony-gateway/metrics"
	"github.com/marcelsud/telephony-gateway/routes"
	"github.com/marcelsud/telephony-gateway/webhook"
	"github.com/marcelsud/telephony-gateway/webhook/signature"
)

// Options wires the gateway API; nil collaborators disable their routes
type Options struct {
	Logger          zerolog.Logger
	Dispatcher      webhook.UseCase
	SignatureHeader string
	Routes          *routes.Loader
	Platform        Platform
	Collector       metrics.Collector
	Metrics         http.Handler
	Instrument      func(http.Handler) http.Handler
	Health          func(ctx context.Context) error
	RequestTimeout  time.Duration
}

// Handlers sets up the gateway API routes
func Handlers(ctx context.Context, opts Options) *chi.Mux {
	if opts.SignatureHeader == "" {
		opts.SignatureHeader = signature.DefaultHeader
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(opts.Logger))
	if opts.Instrument != nil {
		r.Use(opts.Instrument)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.RequestTimeout))

	// Health check
	r.Get("/health", getHealth(opts.Health).ServeHTTP)

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		if opts.Dispatcher != nil {
			r.Post("/webhooks", postWebhook(opts.Dispatcher, opts.SignatureHeader).ServeHTTP)
		}
		if opts.Routes != nil {
			r.Get("/routes", getRoutes(opts.Routes).ServeHTTP)
		}
		if opts.Collector != nil {
			r.Get("/targets", getTargets(opts.Collector).ServeHTTP)
		}
		if opts.Platform != nil {
			r.Get("/subscriptions", listSubscriptions(opts.Platform).ServeHTTP)
			r.Post("/subscriptions", postSubscription(opts.Platform).ServeHTTP)
			r.Get("/subscriptions/{id}", getSubscription(opts.Platform).ServeHTTP)
			r.Delete("/subscriptions/{id}", deleteSubscription(opts.Platform).ServeHTTP)
			r.Post("/subscriptions/{id}/renew", renewSubscription(opts.Platform).ServeHTTP)
			r.Handle("/platform/*", proxyPlatform(opts.Platform))
		}
	})

	return r
}

func getHealth(check func(ctx context.Context) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if check != nil {
			if err := check(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unhealthy"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})
}
