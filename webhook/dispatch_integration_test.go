//go:build integration

package webhook_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testcontainersredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/marcelsud/telephony-gateway/resilience"
	"github.com/marcelsud/telephony-gateway/routes"
	"github.com/marcelsud/telephony-gateway/webhook"
	"github.com/marcelsud/telephony-gateway/webhook/payload"
	wbredis "github.com/marcelsud/telephony-gateway/webhook/redis"
	"github.com/marcelsud/telephony-gateway/webhook/signature"
)

const (
	validationToken = "aW50ZWdyYXRpb24tdmFsaWRhdGlvbi10b2tlbg"
	forwardSecret   = "aW50ZWdyYXRpb24tZm9yd2FyZC1zZWNyZXQ"
)

// TestDispatch_EndToEnd runs two dispatchers sharing one Redis store, as two gateway replicas would
func TestDispatch_EndToEnd(t *testing.T) {
	ctx := context.Background()

	redisContainer, err := testcontainersredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "failed to start Redis container")
	t.Cleanup(func() {
		if err := redisContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Redis container: %v", err)
		}
	})
	addr, err := redisContainer.ConnectionString(ctx)
	require.NoError(t, err)
	addr = strings.TrimPrefix(addr, "redis://")

	var (
		mu       sync.Mutex
		received []*http.Request
		bodies   [][]byte
		calls    atomic.Int32
	)
	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// first delivery attempt fails to exercise the executor retry
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		received = append(received, r)
		bodies = append(bodies, body)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(endpoint.Close)

	loader := routes.NewLoader()
	require.NoError(t, loader.Parse([]byte(fmt.Sprintf(`
routes:
  - event_type: "/restapi/v1.0/account/*/extension/*/presence*"
    handlers:
      - name: presence-log
        kind: log
      - name: crm
        kind: forward
        url: %q
        signing_secret: %q
`, endpoint.URL, forwardSecret))))

	exec := resilience.NewExecutor(resilience.NewHTTPTransport("", nil),
		resilience.WithBackoff(resilience.BackoffPolicy{MaxAttempts: 3, Multiplier: 0.01}))

	verifier, err := signature.NewVerifier(validationToken)
	require.NoError(t, err)

	newReplica := func() *webhook.Service {
		store, err := wbredis.NewStore(addr, "", 0, time.Hour)
		require.NoError(t, err)
		t.Cleanup(func() { store.Close(ctx) })

		registry := webhook.NewRegistry()
		require.NoError(t, loader.Register(registry, zerolog.Nop(), exec))
		return webhook.NewService(store, verifier, registry)
	}
	replicas := []*webhook.Service{newReplica(), newReplica()}

	eventID := webhook.GenerateID(t, 1)
	raw := []byte(fmt.Sprintf(`{"uuid":%q,"event":"/restapi/v1.0/account/1/extension/2/presence","timestamp":"2024-01-01T12:00:00Z","subscriptionId":"sub-1","body":{"telephonyStatus":"Ringing"}}`, eventID))
	n, err := payload.Parse(raw)
	require.NoError(t, err)
	ev := n.ToEvent(raw, signature.Sign(validationToken, raw))

	var (
		wg      sync.WaitGroup
		reports = make([]webhook.DispatchReport, 4)
	)
	for i := range reports {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			report, err := replicas[i%2].Dispatch(ctx, ev)
			assert.NoError(t, err)
			reports[i] = report
		}(i)
	}
	wg.Wait()

	t.Run("exactly one replica dispatches", func(t *testing.T) {
		firstSeen := 0
		for _, r := range reports {
			if r.Mark == webhook.FirstSeen {
				firstSeen++
				require.Len(t, r.Results, 2)
				assert.Equal(t, webhook.Succeeded, r.Results[0].Status)
				assert.Equal(t, webhook.Succeeded, r.Results[1].Status)
			} else {
				assert.Empty(t, r.Results)
			}
		}
		assert.Equal(t, 1, firstSeen)
	})

	t.Run("forwarded once with signature after a retry", func(t *testing.T) {
		mu.Lock()
		defer mu.Unlock()
		require.Len(t, received, 1)
		assert.Equal(t, int32(2), calls.Load())
		assert.Equal(t, raw, bodies[0])
		assert.Equal(t, eventID, received[0].Header.Get("X-Event-Id"))
		assert.Equal(t, signature.Sign(forwardSecret, raw), received[0].Header.Get(signature.DefaultHeader))
	})

	t.Run("tampered event is refused", func(t *testing.T) {
		bad := ev
		bad.ID = webhook.GenerateID(t, 2)
		bad.Payload = append([]byte(nil), raw...)
		bad.Payload[0] = ' '
		_, err := replicas[0].Dispatch(ctx, bad)
		assert.ErrorIs(t, err, webhook.ErrValidation)
	})
}
