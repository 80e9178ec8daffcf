package resilience

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTransport_Send(t *testing.T) {
	t.Run("success - resolves path against base URL", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/restapi/v1.0/subscription", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"a":1}`, string(body))

			w.Header().Set(HeaderRateLimitRemaining, "3")
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":"sub-1"}`))
		}))
		defer srv.Close()

		tr := NewHTTPTransport(srv.URL+"/", srv.Client())
		h := http.Header{}
		h.Set("Content-Type", "application/json")
		call := NewOutboundCall("rc", http.MethodPost, "restapi/v1.0/subscription", h, []byte(`{"a":1}`))

		resp, err := tr.Send(context.Background(), call)

		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.Status)
		assert.Equal(t, "3", resp.Header.Get(HeaderRateLimitRemaining))
		assert.JSONEq(t, `{"id":"sub-1"}`, string(resp.Body))
	})

	t.Run("success - absolute URL bypasses base", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		tr := NewHTTPTransport("https://platform.example.invalid", srv.Client())
		resp, err := tr.Send(context.Background(), NewOutboundCall("hook", http.MethodPost, srv.URL+"/hook", nil, nil))

		require.NoError(t, err)
		assert.Equal(t, http.StatusAccepted, resp.Status)
	})

	t.Run("error - unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		tr := NewHTTPTransport(url, nil)
		_, err := tr.Send(context.Background(), NewOutboundCall("rc", http.MethodGet, "/", nil, nil))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "sending request")
		assert.NotErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("error - request cannot be built", func(t *testing.T) {
		tr := NewHTTPTransport("http://127.0.0.1:1", nil)
		_, err := tr.Send(context.Background(), NewOutboundCall("rc", "BAD METHOD", "/", nil, nil))

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidRequest)
		assert.Contains(t, err.Error(), "building request")
	})
}

func TestNewOutboundCall_Copies(t *testing.T) {
	h := http.Header{}
	h.Set("X-Test", "1")
	body := []byte("abc")

	call := NewOutboundCall("rc", http.MethodGet, "/", h, body)
	h.Set("X-Test", "2")
	body[0] = 'z'

	assert.NotEmpty(t, call.ID)
	assert.Equal(t, "1", call.Header.Get("X-Test"))
	assert.Equal(t, "abc", string(call.Body))
}
