package ringcentral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/marcelsud/telephony-gateway/resilience"
)

// Executor runs outbound calls with retry and circuit breaking
type Executor interface {
	Execute(ctx context.Context, call resilience.OutboundCall) (resilience.Response, error)
}

// NewTransport returns a transport that authenticates every request against
// the platform at creds.BaseURL with tokens from ts.
func NewTransport(creds Credentials, ts oauth2.TokenSource, timeout time.Duration) *resilience.HTTPTransport {
	client := &http.Client{
		Timeout: timeout,
		Transport: &oauth2.Transport{
			Source: ts,
			Base:   http.DefaultTransport,
		},
	}
	return resilience.NewHTTPTransport(creds.BaseURL, client)
}

/* Client issues platform REST calls through an Executor
 * Every call is keyed by target, so the platform gets one breaker and one
 * rate-limit window no matter how many callers share the client
 */
type Client struct {
	exec   Executor
	target string
}

// NewClient creates a platform client
func NewClient(exec Executor, target string) *Client {
	return &Client{
		exec:   exec,
		target: target,
	}
}

// Target returns the executor key of the platform
func (c *Client) Target() string {
	return c.target
}

// Do performs one logical call with a raw body
func (c *Client) Do(ctx context.Context, method, path string, header http.Header, body []byte) (resilience.Response, error) {
	return c.exec.Execute(ctx, resilience.NewOutboundCall(c.target, method, path, header, body))
}

// DoJSON encodes in (if not nil) as the body and decodes the response into out (if not nil)
func (c *Client) DoJSON(ctx context.Context, method, path string, in, out any) error {
	header := http.Header{}
	header.Set("Accept", "application/json")

	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(ctx, method, path, header, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
