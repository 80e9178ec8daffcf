package ringcentral

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"golang.org/x/oauth2"
)

const (
	TokenPath      = "/restapi/oauth/token"
	jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"
)

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// jwtSource exchanges the app JWT for an access token on every call
type jwtSource struct {
	ctx      context.Context
	creds    Credentials
	client   *http.Client
	retryCfg retry.Config
	now      func() time.Time
}

// NewTokenSource returns a cached token source using the JWT-bearer grant.
// ctx bounds every token request; client may be nil.
func NewTokenSource(ctx context.Context, creds Credentials, client *http.Client) oauth2.TokenSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	src := &jwtSource{
		ctx:    ctx,
		creds:  creds,
		client: client,
		retryCfg: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  200 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
		},
		now: time.Now,
	}
	return oauth2.ReuseTokenSourceWithExpiry(nil, src, creds.EarlyExpiry())
}

// Token implements oauth2.TokenSource
func (s *jwtSource) Token() (*oauth2.Token, error) {
	r := retry.New[*oauth2.Token](s.retryCfg)
	tok, err := r.Do(s.ctx, s.fetch)
	if err != nil {
		return nil, fmt.Errorf("fetching access token: %w", err)
	}
	return tok, nil
}

func (s *jwtSource) fetch(ctx context.Context) (*oauth2.Token, error) {
	form := url.Values{
		"grant_type": {jwtBearerGrant},
		"assertion":  {s.creds.JWT},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.creds.BaseURL+TokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building token request: %w", err)
	}
	req.SetBasicAuth(s.creds.ClientID, s.creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("parsing token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("token response has no access_token")
	}

	ttl := s.creds.TokenCacheTTL()
	if tr.ExpiresIn > 0 {
		ttl = time.Duration(tr.ExpiresIn) * time.Second
	}
	tokenType := tr.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &oauth2.Token{
		AccessToken:  tr.AccessToken,
		TokenType:    tokenType,
		RefreshToken: tr.RefreshToken,
		Expiry:       s.now().Add(ttl),
	}, nil
}
