package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelsud/telephony-gateway/resilience"
	"github.com/marcelsud/telephony-gateway/ringcentral"
	"github.com/marcelsud/telephony-gateway/webhook/payload"
	"github.com/marcelsud/telephony-gateway/webhook/signature"
)

func testFactory(t *testing.T, upstream http.Handler) ClientFactory {
	t.Helper()
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	return func(context.Context) (*ringcentral.Client, error) {
		exec := resilience.NewExecutor(resilience.NewHTTPTransport(srv.URL, srv.Client()),
			resilience.WithBackoff(resilience.BackoffPolicy{MaxAttempts: 1, Multiplier: 1}))
		return ringcentral.NewClient(exec, "ringcentral"), nil
	}
}

func runCLI(t *testing.T, factory ClientFactory, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand(factory)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSubscriptionsCommands(t *testing.T) {
	upstream := http.NewServeMux()
	upstream.HandleFunc("GET "+ringcentral.SubscriptionPath, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"records":[{"id":"sub-1","status":"Active"}]}`))
	})
	upstream.HandleFunc("POST "+ringcentral.SubscriptionPath, func(w http.ResponseWriter, r *http.Request) {
		var req ringcentral.SubscriptionRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(ringcentral.Subscription{ID: "sub-2", EventFilters: req.EventFilters, ExpiresIn: req.ExpiresIn})
	})
	upstream.HandleFunc("GET "+ringcentral.SubscriptionPath+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"` + r.PathValue("id") + `"}`))
	})
	upstream.HandleFunc("POST "+ringcentral.SubscriptionPath+"/{id}/renew", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"` + r.PathValue("id") + `","status":"Active"}`))
	})
	upstream.HandleFunc("DELETE "+ringcentral.SubscriptionPath+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	factory := testFactory(t, upstream)

	t.Run("success - list", func(t *testing.T) {
		out, err := runCLI(t, factory, "subscriptions", "list")
		require.NoError(t, err)
		assert.Contains(t, out, `"id": "sub-1"`)
	})

	t.Run("success - create", func(t *testing.T) {
		out, err := runCLI(t, factory, "subs", "create",
			"--filter", "/restapi/v1.0/account/~/extension/~/presence",
			"--filter", "/restapi/v1.0/account/~/extension",
			"--address", "https://gw.example.com/v1/webhooks",
			"--expires-in", "3600")
		require.NoError(t, err)

		var sub ringcentral.Subscription
		require.NoError(t, json.Unmarshal([]byte(out), &sub))
		assert.Equal(t, "sub-2", sub.ID)
		assert.Len(t, sub.EventFilters, 2)
		assert.Equal(t, 3600, sub.ExpiresIn)
	})

	t.Run("error - create without https address", func(t *testing.T) {
		_, err := runCLI(t, factory, "subscriptions", "create",
			"--filter", "/restapi/v1.0/account/~/extension", "--address", "http://gw.example.com")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "https")
	})

	t.Run("success - get", func(t *testing.T) {
		out, err := runCLI(t, factory, "subscriptions", "get", "sub-7")
		require.NoError(t, err)
		assert.Contains(t, out, "sub-7")
	})

	t.Run("success - renew", func(t *testing.T) {
		out, err := runCLI(t, factory, "subscriptions", "renew", "sub-1")
		require.NoError(t, err)
		assert.Contains(t, out, "Active")
	})

	t.Run("success - delete", func(t *testing.T) {
		out, err := runCLI(t, factory, "subscriptions", "delete", "sub-1")
		require.NoError(t, err)
		assert.Contains(t, out, "deleted sub-1")
	})

	t.Run("error - get needs an id", func(t *testing.T) {
		_, err := runCLI(t, factory, "subscriptions", "get")
		require.Error(t, err)
	})
}

func TestCallCommand(t *testing.T) {
	upstream := http.NewServeMux()
	upstream.HandleFunc("GET /restapi/v1.0/account/~/extension", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"records":[]}`))
	})
	upstream.HandleFunc("POST /restapi/v1.0/account/~/extension/~/sms", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Write(body)
	})
	upstream.HandleFunc("GET /restapi/v1.0/forbidden", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	factory := testFactory(t, upstream)

	t.Run("success - get", func(t *testing.T) {
		out, err := runCLI(t, factory, "call", "get", "/restapi/v1.0/account/~/extension")
		require.NoError(t, err)
		assert.JSONEq(t, `{"records":[]}`, out)
	})

	t.Run("success - post with data", func(t *testing.T) {
		out, err := runCLI(t, factory, "call", "POST", "/restapi/v1.0/account/~/extension/~/sms", "--data", `{"text":"hi"}`)
		require.NoError(t, err)
		assert.JSONEq(t, `{"text":"hi"}`, out)
	})

	t.Run("error - client error", func(t *testing.T) {
		_, err := runCLI(t, factory, "call", "GET", "/restapi/v1.0/forbidden")
		require.Error(t, err)
		assert.ErrorIs(t, err, resilience.ErrClientError)
	})

	t.Run("error - path outside restapi", func(t *testing.T) {
		_, err := runCLI(t, factory, "call", "GET", "/oauth/token")
		require.Error(t, err)
	})
}

func TestEventsSend(t *testing.T) {
	const token = "ZXZlbnRzLXNlbmQtdG9rZW4tdGVzdA"
	var (
		got       payload.Notification
		sig       string
		raw       []byte
	)
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ = io.ReadAll(r.Body)
		sig = r.Header.Get(signature.DefaultHeader)
		json.Unmarshal(raw, &got)
		w.Write([]byte(`{"duplicate":false}`))
	}))
	t.Cleanup(gateway.Close)

	out, err := runCLI(t, nil, "events", "send", "--url", gateway.URL, "--token", token, "--id", "evt-42",
		"--body", `{"telephonyStatus":"Ringing"}`)
	require.NoError(t, err)

	assert.Contains(t, out, "duplicate")
	assert.Equal(t, "evt-42", got.UUID)
	assert.Equal(t, "/restapi/v1.0/account/~/extension/~/presence", got.Event)

	v, err := signature.NewVerifier(token)
	require.NoError(t, err)
	assert.True(t, v.Verify(raw, sig))
}
