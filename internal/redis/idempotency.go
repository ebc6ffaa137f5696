package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const idempotencyPrefix = "idempotency:"

// IdempotencyStore keeps responses of mutating requests keyed by the
// client's Idempotency-Key.
type IdempotencyStore struct {
	client *redis.Client
}

// NewIdempotencyStore creates a new IdempotencyStore.
func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

// Get returns the stored response for key, or nil if there is none.
func (s *IdempotencyStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, idempotencyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return data, err
}

// Reserve marks key as in flight. It returns false if another request with
// the same key is still running.
func (s *IdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, idempotencyPrefix+key+":inflight", "1", ttl).Result()
}

// Save stores the response for key.
func (s *IdempotencyStore) Save(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.client.Set(ctx, idempotencyPrefix+key, data, ttl).Err()
}

// Release clears the in-flight marker for key.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, idempotencyPrefix+key+":inflight").Err()
}
