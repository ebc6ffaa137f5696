package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"smartmove/internal/domain"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestLockStore_TokenRelease(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	locks := NewLockStore(client)

	ok, err := locks.AcquireLock(ctx, LockVehicle, "v1", "token-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = locks.AcquireLock(ctx, LockVehicle, "v1", "token-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "held by token-a")

	require.NoError(t, locks.ReleaseLock(ctx, LockVehicle, "v1", "token-b"))
	assert.Equal(t, "token-a", client.Get(ctx, LockKey(LockVehicle, "v1")).Val(), "foreign token must not release")

	require.NoError(t, locks.ReleaseLock(ctx, LockVehicle, "v1", "token-a"))
	ok, err = locks.AcquireLock(ctx, LockVehicle, "v1", "token-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCacheStore_FleetAndAvailability(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	cache := NewCacheStore(client)

	miss, err := cache.GetFleet(ctx)
	require.NoError(t, err)
	assert.Nil(t, miss)

	vehicles := []domain.Vehicle{{ID: "v1", Capacity: 4, FuelType: domain.FuelElectric, Active: true}}
	drivers := []domain.Driver{{ID: "d1", Name: "Ana", Active: true, Available: true}}
	require.NoError(t, cache.SetFleet(ctx, NewCachedFleet(vehicles, drivers)))

	fleet, err := cache.GetFleet(ctx)
	require.NoError(t, err)
	require.NotNil(t, fleet)
	gotVehicles, gotDrivers := fleet.Domain()
	assert.Equal(t, vehicles, gotVehicles)
	assert.Equal(t, drivers, gotDrivers)

	require.NoError(t, cache.InvalidateFleet(ctx))
	fleet, err = cache.GetFleet(ctx)
	require.NoError(t, err)
	assert.Nil(t, fleet)

	require.NoError(t, cache.SetDriverAvailable(ctx, "d1", true))
	available, err := cache.IsDriverAvailable(ctx, "d1")
	require.NoError(t, err)
	assert.True(t, available)

	require.NoError(t, cache.SetDriverAvailable(ctx, "d1", false))
	ids, err := cache.GetAvailableDrivers(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestCachedFleet_RoundTrip(t *testing.T) {
	vehicles := []domain.Vehicle{{ID: "v1", Plate: "B 1", Capacity: 7, Type: "van", FuelType: domain.FuelHybrid, Active: true}}
	drivers := []domain.Driver{{ID: "d1", Name: "Ana", Phone: "555", Active: true}}

	gotVehicles, gotDrivers := NewCachedFleet(vehicles, drivers).Domain()

	assert.Equal(t, vehicles, gotVehicles)
	assert.Equal(t, drivers, gotDrivers)
}
