package ringcentral

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
)

const (
	DefaultBaseURL           = "https://platform.ringcentral.com"
	DefaultTokenCacheSeconds = 2700
)

// Credentials identify the gateway's app to the platform
type Credentials struct {
	ClientID          string `json:"client_id"`
	ClientSecret      string `json:"client_secret"`
	JWT               string `json:"jwt"`
	BaseURL           string `json:"base_url"`
	AccountID         string `json:"account_id"`
	ExtensionID       string `json:"extension_id"`
	TokenCacheSeconds int    `json:"token_cache_seconds"`
}

/* LoadCredentials reads the JSON credentials file at path, if it exists,
 * and applies every non-zero field of overrides on top of it
 * client_id, client_secret and jwt must be set by one or the other
 */
func LoadCredentials(path string, overrides Credentials) (Credentials, error) {
	var creds Credentials
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Credentials{}, fmt.Errorf("reading credentials file: %w", err)
		default:
			if err := json.Unmarshal(data, &creds); err != nil {
				return Credentials{}, fmt.Errorf("parsing credentials file: %w", err)
			}
		}
	}

	merge(&creds.ClientID, overrides.ClientID)
	merge(&creds.ClientSecret, overrides.ClientSecret)
	merge(&creds.JWT, overrides.JWT)
	merge(&creds.BaseURL, overrides.BaseURL)
	merge(&creds.AccountID, overrides.AccountID)
	merge(&creds.ExtensionID, overrides.ExtensionID)
	if overrides.TokenCacheSeconds > 0 {
		creds.TokenCacheSeconds = overrides.TokenCacheSeconds
	}

	if creds.BaseURL == "" {
		creds.BaseURL = DefaultBaseURL
	}
	creds.BaseURL = strings.TrimRight(creds.BaseURL, "/")
	if creds.AccountID == "" {
		creds.AccountID = "~"
	}
	if creds.ExtensionID == "" {
		creds.ExtensionID = "~"
	}
	if creds.TokenCacheSeconds <= 0 {
		creds.TokenCacheSeconds = DefaultTokenCacheSeconds
	}

	if err := creds.Validate(); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

func merge(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate checks the required fields
func (c Credentials) Validate() error {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if c.JWT == "" {
		missing = append(missing, "jwt")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing RingCentral credential values: %s", strings.Join(missing, ", "))
	}
	return nil
}

// TokenCacheTTL is the fallback lifetime of a token whose response omits expires_in
func (c Credentials) TokenCacheTTL() time.Duration {
	return time.Duration(c.TokenCacheSeconds) * time.Second
}

// EarlyExpiry is how long before expiry a cached token is refreshed: min(60s, ttl/10)
func (c Credentials) EarlyExpiry() time.Duration {
	return min(time.Minute, c.TokenCacheTTL()/10)
}
