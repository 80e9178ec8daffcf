package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

/* Config é um pacote auxiliar. Poderia ser uma lib externa
 * Values come from the environment, optionally seeded by a .env file (toml)
 */

type Config struct {
	Port     string `mapstructure:"PORT"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// RingCentral platform
	RCBaseURL         string `mapstructure:"RC_BASE_URL"`
	RCClientID        string `mapstructure:"RC_CLIENT_ID"`
	RCClientSecret    string `mapstructure:"RC_CLIENT_SECRET"`
	RCJWT             string `mapstructure:"RC_JWT"`
	RCCredentialsPath string `mapstructure:"RC_CREDENTIALS_PATH"`
	RCTokenCacheSecs  int    `mapstructure:"RC_TOKEN_CACHE_SECONDS"`
	RCTargetID        string `mapstructure:"RC_TARGET_ID"`

	// Resilience
	UpstreamTimeoutSecs     int     `mapstructure:"UPSTREAM_TIMEOUT_SECONDS"`
	CircuitFailureThreshold int     `mapstructure:"CIRCUIT_FAILURE_THRESHOLD"`
	CircuitCooldownSecs     int     `mapstructure:"CIRCUIT_COOLDOWN_SECONDS"`
	RetryMaxAttempts        int     `mapstructure:"RETRY_MAX_ATTEMPTS"`
	BackoffMultiplier       float64 `mapstructure:"BACKOFF_MULTIPLIER"`
	RateLimitMaxWaitSecs    int     `mapstructure:"RATE_LIMIT_MAX_WAIT_SECONDS"`

	// Webhook dispatch
	IdempotencyBackend        string `mapstructure:"IDEMPOTENCY_BACKEND"`
	IdempotencyRetentionHours int    `mapstructure:"IDEMPOTENCY_RETENTION_HOURS"`
	RedisAddr                 string `mapstructure:"REDIS_ADDR"`
	RedisPassword             string `mapstructure:"REDIS_PASSWORD"`
	RedisDB                   int    `mapstructure:"REDIS_DB"`
	WebhookValidationToken    string `mapstructure:"WEBHOOK_VALIDATION_TOKEN"`
	WebhookSignatureHeader    string `mapstructure:"WEBHOOK_SIGNATURE_HEADER"`
	RoutesFile                string `mapstructure:"ROUTES_FILE"`
}

var defaults = map[string]any{
	"PORT":                        "8080",
	"LOG_LEVEL":                   "info",
	"RC_BASE_URL":                 "",
	"RC_CLIENT_ID":                "",
	"RC_CLIENT_SECRET":            "",
	"RC_JWT":                      "",
	"RC_CREDENTIALS_PATH":         "",
	"RC_TOKEN_CACHE_SECONDS":      0,
	"RC_TARGET_ID":                "ringcentral",
	"UPSTREAM_TIMEOUT_SECONDS":    30,
	"CIRCUIT_FAILURE_THRESHOLD":   5,
	"CIRCUIT_COOLDOWN_SECONDS":    60,
	"RETRY_MAX_ATTEMPTS":          3,
	"BACKOFF_MULTIPLIER":          1.0,
	"RATE_LIMIT_MAX_WAIT_SECONDS": 60,
	"IDEMPOTENCY_BACKEND":         "memory",
	"IDEMPOTENCY_RETENTION_HOURS": 24,
	"REDIS_ADDR":                  "localhost:6379",
	"REDIS_PASSWORD":              "",
	"REDIS_DB":                    0,
	"WEBHOOK_VALIDATION_TOKEN":    "",
	"WEBHOOK_SIGNATURE_HEADER":    "X-Webhook-Signature",
	"ROUTES_FILE":                 "routes.yaml",
}

// GetConfig reads ./.env (if present) and the environment
func GetConfig() (*Config, error) {
	return Load(".")
}

// Load reads the .env file in dir (if present) and the environment
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &config, nil
}

// Validate checks ranges and enumerations
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.RCTargetID == "" {
		return fmt.Errorf("RC_TARGET_ID cannot be empty")
	}
	if c.CircuitFailureThreshold < 1 {
		return fmt.Errorf("CIRCUIT_FAILURE_THRESHOLD must be at least 1")
	}
	if c.CircuitCooldownSecs < 1 {
		return fmt.Errorf("CIRCUIT_COOLDOWN_SECONDS must be at least 1")
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if c.BackoffMultiplier <= 0 {
		return fmt.Errorf("BACKOFF_MULTIPLIER must be positive")
	}
	if c.UpstreamTimeoutSecs < 1 {
		return fmt.Errorf("UPSTREAM_TIMEOUT_SECONDS must be at least 1")
	}
	if c.IdempotencyRetentionHours < 1 {
		return fmt.Errorf("IDEMPOTENCY_RETENTION_HOURS must be at least 1")
	}
	switch strings.ToLower(c.IdempotencyBackend) {
	case "memory", "redis":
	default:
		return fmt.Errorf("IDEMPOTENCY_BACKEND must be memory or redis (got %q)", c.IdempotencyBackend)
	}
	return nil
}

func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutSecs) * time.Second
}

func (c *Config) CircuitCooldown() time.Duration {
	return time.Duration(c.CircuitCooldownSecs) * time.Second
}

func (c *Config) RateLimitMaxWait() time.Duration {
	return time.Duration(c.RateLimitMaxWaitSecs) * time.Second
}

func (c *Config) IdempotencyRetention() time.Duration {
	return time.Duration(c.IdempotencyRetentionHours) * time.Hour
}

func (c *Config) TokenCacheTTL() time.Duration {
	return time.Duration(c.RCTokenCacheSecs) * time.Second
}

// UseRedis reports whether the idempotency store lives in Redis
func (c *Config) UseRedis() bool {
	return strings.EqualFold(c.IdempotencyBackend, "redis")
}
