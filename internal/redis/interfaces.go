package redis

import (
	"context"
	"time"
)

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireLock(ctx context.Context, kind, id, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, kind, id, token string) error
}

// CacheStoreInterface defines the interface for fleet caching and driver
// availability flags.
type CacheStoreInterface interface {
	GetFleet(ctx context.Context) (*CachedFleet, error)
	SetFleet(ctx context.Context, fleet *CachedFleet) error
	InvalidateFleet(ctx context.Context) error
	SetDriverAvailable(ctx context.Context, driverID string, available bool) error
	GetAvailableDrivers(ctx context.Context) ([]string, error)
}

// IdempotencyStoreInterface defines the interface for replaying responses of
// repeated mutating requests.
type IdempotencyStoreInterface interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Save(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface        = (*LockStore)(nil)
	_ CacheStoreInterface       = (*CacheStore)(nil)
	_ IdempotencyStoreInterface = (*IdempotencyStore)(nil)
)
