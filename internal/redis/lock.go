package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lock kinds.
const (
	LockVehicle = "vehicle"
	LockDriver  = "driver"
	LockRequest = "request"
)

// releaseScript deletes the lock only while it still holds the caller's
// token, so an expired lock taken over by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// LockKey returns the Redis key guarding a resource, e.g. lock:vehicle:v1.
func LockKey(kind, id string) string {
	return fmt.Sprintf("lock:%s:%s", kind, id)
}

// AcquireLock attempts to take the lock for kind/id on behalf of token.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquireLock(ctx context.Context, kind, id, token string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, LockKey(kind, id), token, ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseLock releases the lock for kind/id if token still owns it.
func (s *LockStore) ReleaseLock(ctx context.Context, kind, id, token string) error {
	return releaseScript.Run(ctx, s.client, []string{LockKey(kind, id)}, token).Err()
}
