package resilience

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseBytes = 10 << 20

// HTTPTransport sends OutboundCalls with an *http.Client.
// Relative paths are resolved against baseURL; absolute URLs are used as is.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

// NewHTTPTransport creates a transport. A nil client gets a 30s timeout client.
func NewHTTPTransport(baseURL string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (t *HTTPTransport) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") || t.baseURL == "" {
		return path
	}
	return t.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Send performs one HTTP exchange
func (t *HTTPTransport) Send(ctx context.Context, call OutboundCall) (Response, error) {
	var body io.Reader
	if len(call.Body) > 0 {
		body = bytes.NewReader(call.Body)
	}
	req, err := http.NewRequestWithContext(ctx, call.Method, t.url(call.Path), body)
	if err != nil {
		return Response{}, fmt.Errorf("building request: %w: %w", ErrInvalidRequest, err)
	}
	for k, v := range call.Header {
		req.Header[k] = append([]string(nil), v...)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Response{}, fmt.Errorf("reading response body: %w", err)
	}
	return Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   data,
	}, nil
}
