package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/httplog"
	"github.com/rs/zerolog"

	"github.com/marcelsud/telephony-gateway/config"
	"github.com/marcelsud/telephony-gateway/resilience"
	"github.com/marcelsud/telephony-gateway/ringcentral"
	"github.com/marcelsud/telephony-gateway/webhook"
	"github.com/marcelsud/telephony-gateway/webhook/memory"
	"github.com/marcelsud/telephony-gateway/webhook/redis"
	"github.com/marcelsud/telephony-gateway/webhook/signature"
)

/* Wiring shared by the binaries
 * Each binary decides which pieces it needs; nothing here starts goroutines
 */

// NewLogger returns the process logger
func NewLogger(service string, cfg *config.Config) zerolog.Logger {
	return httplog.NewLogger(service, httplog.Options{
		JSON:     true,
		LogLevel: cfg.LogLevel,
	})
}

// ExecutorOptions maps the resilience settings of cfg onto executor options
func ExecutorOptions(cfg *config.Config, logger zerolog.Logger, observer resilience.Observer) []resilience.Option {
	opts := []resilience.Option{
		resilience.WithBackoff(resilience.BackoffPolicy{
			MaxAttempts: cfg.RetryMaxAttempts,
			Multiplier:  cfg.BackoffMultiplier,
		}),
		resilience.WithBreakerConfig(resilience.BreakerConfig{
			FailureThreshold: cfg.CircuitFailureThreshold,
			Cooldown:         cfg.CircuitCooldown(),
		}),
		resilience.WithMaxThrottleWait(cfg.RateLimitMaxWait()),
		resilience.WithLogger(logger),
	}
	if observer != nil {
		opts = append(opts, resilience.WithObserver(observer))
	}
	return opts
}

// Credentials loads platform credentials from the credentials file and cfg
func Credentials(cfg *config.Config) (ringcentral.Credentials, error) {
	return ringcentral.LoadCredentials(cfg.RCCredentialsPath, ringcentral.Credentials{
		ClientID:          cfg.RCClientID,
		ClientSecret:      cfg.RCClientSecret,
		JWT:               cfg.RCJWT,
		BaseURL:           cfg.RCBaseURL,
		TokenCacheSeconds: cfg.RCTokenCacheSecs,
	})
}

// NewPlatform builds the authenticated platform client and the executor it runs on
func NewPlatform(ctx context.Context, cfg *config.Config, logger zerolog.Logger, observer resilience.Observer) (*ringcentral.Client, *resilience.Executor, error) {
	creds, err := Credentials(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("loading platform credentials: %w", err)
	}

	ts := ringcentral.NewTokenSource(ctx, creds, &http.Client{Timeout: cfg.UpstreamTimeout()})
	transport := ringcentral.NewTransport(creds, ts, cfg.UpstreamTimeout())
	exec := resilience.NewExecutor(transport, ExecutorOptions(cfg, logger, observer)...)
	return ringcentral.NewClient(exec, cfg.RCTargetID), exec, nil
}

// NewForwardExecutor builds the executor used by forward handlers
func NewForwardExecutor(cfg *config.Config, logger zerolog.Logger, observer resilience.Observer) *resilience.Executor {
	transport := resilience.NewHTTPTransport("", &http.Client{Timeout: cfg.UpstreamTimeout()})
	return resilience.NewExecutor(transport, ExecutorOptions(cfg, logger, observer)...)
}

// Store is an idempotency store that can also report its size
type Store interface {
	webhook.IdempotencyStore
	Count(ctx context.Context) (int64, error)
}

// IdempotencyStore is the configured store plus its lifecycle hooks
type IdempotencyStore struct {
	Store Store

	// Health pings the backend; nil for the memory store
	Health func(ctx context.Context) error

	// Run performs background maintenance until ctx is done; nil when not needed
	Run func(ctx context.Context) error

	Close func(ctx context.Context) error
}

// NewIdempotencyStore creates the store selected by IDEMPOTENCY_BACKEND
func NewIdempotencyStore(cfg *config.Config) (*IdempotencyStore, error) {
	retention := cfg.IdempotencyRetention()
	if !cfg.UseRedis() {
		s := memory.NewStore(retention)
		return &IdempotencyStore{
			Store: s,
			Run: func(ctx context.Context) error {
				return s.Run(ctx, time.Minute)
			},
			Close: func(context.Context) error { return nil },
		}, nil
	}

	s, err := redis.NewStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, retention)
	if err != nil {
		return nil, fmt.Errorf("creating redis idempotency store: %w", err)
	}
	return &IdempotencyStore{
		Store: s,
		Health: func(ctx context.Context) error {
			return s.GetClient().Ping(ctx).Err()
		},
		Close: s.Close,
	}, nil
}

// NewVerifier returns the signature verifier for WEBHOOK_VALIDATION_TOKEN.
// Without a token every event is accepted.
func NewVerifier(cfg *config.Config, logger zerolog.Logger) (webhook.Verifier, error) {
	tokens := signature.ParseTokens(cfg.WebhookValidationToken)
	if len(tokens) == 0 {
		logger.Warn().Msg("WEBHOOK_VALIDATION_TOKEN not set, webhook signatures are not verified")
		return signature.Disabled{}, nil
	}
	v, err := signature.NewVerifier(tokens...)
	if err != nil {
		return nil, fmt.Errorf("creating signature verifier: %w", err)
	}
	return v, nil
}
