package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelsud/telephony-gateway/resilience"
	"github.com/marcelsud/telephony-gateway/webhook/memory"
	"github.com/marcelsud/telephony-gateway/webhook/redis"
)

type staticSnapshot struct {
	circuits []resilience.CircuitState
	windows  []resilience.RateLimitWindow
}

func (s staticSnapshot) Circuits() []resilience.CircuitState       { return s.circuits }
func (s staticSnapshot) RateLimits() []resilience.RateLimitWindow { return s.windows }

type failingCounter struct{}

func (failingCounter) Count(context.Context) (int64, error) { return 0, errors.New("boom") }

func TestGatewayCollector_Collect(t *testing.T) {
	ctx := context.Background()

	t.Run("success - merges executors sorted by target", func(t *testing.T) {
		store := memory.NewStore(time.Hour)
		_, err := store.MarkIfNew(ctx, "evt-1")
		require.NoError(t, err)
		_, err = store.MarkIfNew(ctx, "evt-2")
		require.NoError(t, err)

		platform := staticSnapshot{
			circuits: []resilience.CircuitState{{Target: "ringcentral", State: resilience.StateOpen, ConsecutiveFailures: 5}},
			windows:  []resilience.RateLimitWindow{{Target: "ringcentral", Remaining: 3, Known: true}},
		}
		forward := staticSnapshot{
			circuits: []resilience.CircuitState{{Target: "crm", State: resilience.StateClosed}},
		}

		c := NewCollector(store, platform)
		c.Add(forward)
		m, err := c.Collect(ctx)
		require.NoError(t, err)

		require.Len(t, m.Circuits, 2)
		assert.Equal(t, "crm", m.Circuits[0].Target)
		assert.Equal(t, "ringcentral", m.Circuits[1].Target)
		require.Len(t, m.RateLimits, 1)
		assert.Equal(t, 3, m.RateLimits[0].Remaining)
		assert.Equal(t, int64(2), m.IdempotencyKeys)
		assert.False(t, m.Timestamp.IsZero())
	})

	t.Run("success - no store and no executors", func(t *testing.T) {
		m, err := NewCollector(nil).Collect(ctx)
		require.NoError(t, err)
		assert.Empty(t, m.Circuits)
		assert.Empty(t, m.RateLimits)
		assert.Zero(t, m.IdempotencyKeys)
	})

	t.Run("error - key counter fails", func(t *testing.T) {
		_, err := NewCollector(failingCounter{}).Collect(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "counting idempotency keys")
	})
}

func TestGatewayCollector_RedisKeys(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := redis.NewStoreFromClient(client, time.Hour)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_, err := store.MarkIfNew(ctx, id)
		require.NoError(t, err)
	}
	// unrelated keys are not counted
	require.NoError(t, client.Set(ctx, "other:key", "1", 0).Err())

	n, err := NewCollector(store).GetIdempotencyKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestCollector_Interface(t *testing.T) {
	t.Run("GatewayCollector implements Collector interface", func(t *testing.T) {
		var _ Collector = (*GatewayCollector)(nil)
	})
	t.Run("Executor implements Snapshotter", func(t *testing.T) {
		var _ Snapshotter = (*resilience.Executor)(nil)
	})
}
