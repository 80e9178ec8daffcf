package memory

import (
	"context"
	"sync"
	"time"

	"github.com/marcelsud/telephony-gateway/webhook"
)

/* In-process implementation of webhook.IdempotencyStore
 * Each event ID is its own compare-and-swap slot, so concurrent deliveries of
 * different IDs never contend. Expired records are replaced lazily and removed by Purge.
 */

type record struct {
	seenAt    time.Time
	expiresAt time.Time
}

type Store struct {
	retention time.Duration
	now       func() time.Time
	records   sync.Map // event ID -> *record
}

// Option configures a Store
type Option func(*Store)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a store that remembers IDs for retention
func NewStore(retention time.Duration, opts ...Option) *Store {
	s := &Store{
		retention: retention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MarkIfNew records eventID, returning Duplicate if it was seen within the retention window
func (s *Store) MarkIfNew(ctx context.Context, eventID string) (webhook.Mark, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	now := s.now()
	fresh := &record{seenAt: now, expiresAt: now.Add(s.retention)}

	for {
		existing, loaded := s.records.LoadOrStore(eventID, fresh)
		if !loaded {
			return webhook.FirstSeen, nil
		}
		rec := existing.(*record)
		if now.Before(rec.expiresAt) {
			return webhook.Duplicate, nil
		}
		if s.records.CompareAndSwap(eventID, rec, fresh) {
			return webhook.FirstSeen, nil
		}
		// lost a race with another writer or Purge; look again
	}
}

// Purge drops expired records and returns how many were removed
func (s *Store) Purge() int {
	now := s.now()
	removed := 0
	s.records.Range(func(k, v any) bool {
		if !now.Before(v.(*record).expiresAt) && s.records.CompareAndDelete(k, v) {
			removed++
		}
		return true
	})
	return removed
}

// Len returns the number of records currently held, expired or not
func (s *Store) Len() int {
	n := 0
	s.records.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Count implements the metrics key counter
func (s *Store) Count(_ context.Context) (int64, error) {
	return int64(s.Len()), nil
}

// Run purges expired records every interval until ctx is done
func (s *Store) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Purge()
		}
	}
}
