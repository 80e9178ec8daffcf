package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/marcelsud/telephony-gateway/webhook"
	"github.com/redis/go-redis/v9"
)

/* Redis implementation of webhook.IdempotencyStore
 * One key per event ID, written with SET NX PX so the check and the insert are
 * a single atomic command shared by every gateway instance
 */

const keyPrefix = "idempotency" // Key naming: idempotency:{event_id}

type Store struct {
	client    *redis.Client
	retention time.Duration
}

// NewStore connects to Redis and creates a store that remembers IDs for retention
func NewStore(addr, password string, db int, retention time.Duration) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	return NewStoreFromClient(client, retention), nil
}

// NewStoreFromClient wraps an existing client
func NewStoreFromClient(client *redis.Client, retention time.Duration) *Store {
	return &Store{
		client:    client,
		retention: retention,
	}
}

// MarkIfNew records eventID, returning Duplicate if it was seen within the retention window
func (s *Store) MarkIfNew(ctx context.Context, eventID string) (webhook.Mark, error) {
	seenAt := time.Now().UTC().Format(time.RFC3339Nano)
	ok, err := s.client.SetNX(ctx, Key(eventID), seenAt, s.retention).Result()
	if err != nil {
		return 0, fmt.Errorf("marking event in Redis: %w", err)
	}
	if ok {
		return webhook.FirstSeen, nil
	}
	return webhook.Duplicate, nil
}

// SeenAt returns when eventID was first marked, or false if it is unknown or expired
func (s *Store) SeenAt(ctx context.Context, eventID string) (time.Time, bool, error) {
	value, err := s.client.Get(ctx, Key(eventID)).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("getting event mark: %w", err)
	}
	at, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parsing event mark: %w", err)
	}
	return at, true, nil
}

// Count returns the number of remembered event IDs
func (s *Store) Count(ctx context.Context) (int64, error) {
	var (
		cursor uint64
		total  int64
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, keyPrefix+":*", 1000).Result()
		if err != nil {
			return 0, fmt.Errorf("scanning idempotency keys: %w", err)
		}
		total += int64(len(keys))

		cursor = next
		if cursor == 0 {
			break
		}
	}
	return total, nil
}

// Close closes the Redis connection
func (s *Store) Close(ctx context.Context) error {
	return s.client.Close()
}

// GetClient returns the underlying Redis client (for metrics collection)
func (s *Store) GetClient() *redis.Client {
	return s.client
}

// Key returns the Redis key holding the mark for eventID
func Key(eventID string) string {
	return fmt.Sprintf("%s:%s", keyPrefix, eventID)
}
