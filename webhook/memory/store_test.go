package memory_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marcelsud/telephony-gateway/webhook"
	"github.com/marcelsud/telephony-gateway/webhook/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestStore_MarkIfNew(t *testing.T) {
	ctx := context.Background()

	t.Run("first then duplicate", func(t *testing.T) {
		store := memory.NewStore(24 * time.Hour)

		mark, err := store.MarkIfNew(ctx, "evt-42")
		require.NoError(t, err)
		assert.Equal(t, webhook.FirstSeen, mark)

		mark, err = store.MarkIfNew(ctx, "evt-42")
		require.NoError(t, err)
		assert.Equal(t, webhook.Duplicate, mark)
	})

	t.Run("expired id is first seen again", func(t *testing.T) {
		clock := &testClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
		store := memory.NewStore(24*time.Hour, memory.WithClock(clock.Now))

		_, err := store.MarkIfNew(ctx, "evt-1")
		require.NoError(t, err)

		clock.Advance(23 * time.Hour)
		mark, _ := store.MarkIfNew(ctx, "evt-1")
		assert.Equal(t, webhook.Duplicate, mark)

		clock.Advance(time.Hour)
		mark, _ = store.MarkIfNew(ctx, "evt-1")
		assert.Equal(t, webhook.FirstSeen, mark)
	})

	t.Run("cancelled context", func(t *testing.T) {
		store := memory.NewStore(time.Hour)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := store.MarkIfNew(cctx, "evt-1")
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, store.Len())
	})
}

func TestStore_ConcurrentMarkIfNew(t *testing.T) {
	store := memory.NewStore(24 * time.Hour)

	var first atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			mark, err := store.MarkIfNew(context.Background(), "evt-1")
			assert.NoError(t, err)
			if mark == webhook.FirstSeen {
				first.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), first.Load())
}

func TestStore_ConcurrentExpiredReplacement(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := memory.NewStore(time.Hour, memory.WithClock(clock.Now))
	_, err := store.MarkIfNew(context.Background(), "evt-1")
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)

	var first atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if mark, _ := store.MarkIfNew(context.Background(), "evt-1"); mark == webhook.FirstSeen {
				first.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), first.Load())
}

func TestStore_Purge(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := memory.NewStore(time.Hour, memory.WithClock(clock.Now))

	_, _ = store.MarkIfNew(ctx, "old")
	clock.Advance(30 * time.Minute)
	_, _ = store.MarkIfNew(ctx, "new")
	clock.Advance(31 * time.Minute)

	assert.Equal(t, 1, store.Purge())
	assert.Equal(t, 1, store.Len())

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
