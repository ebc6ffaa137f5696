package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"smartmove/internal/domain"
)

// CacheStore handles fleet caching and the driver availability set in Redis.
// Nothing in it is authoritative: whether a resource is free is always
// decided from the committed assignments.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// FleetCacheTTL bounds how stale the cached fleet may get.
const FleetCacheTTL = 30 * time.Second

const (
	fleetCacheKey       = "cache:fleet"
	availableDriversKey = "available_drivers"
)

// CachedVehicle represents a cached vehicle entity.
type CachedVehicle struct {
	ID       string `json:"id"`
	Plate    string `json:"plate"`
	Capacity int    `json:"capacity"`
	Type     string `json:"type"`
	FuelType string `json:"fuel_type"`
	Active   bool   `json:"active"`
}

// CachedDriver represents a cached driver entity.
type CachedDriver struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Active    bool   `json:"active"`
	Available bool   `json:"available"`
}

// CachedFleet is the schedulable fleet snapshot.
type CachedFleet struct {
	Vehicles []CachedVehicle `json:"vehicles"`
	Drivers  []CachedDriver  `json:"drivers"`
}

// NewCachedFleet converts domain entities for caching.
func NewCachedFleet(vehicles []domain.Vehicle, drivers []domain.Driver) *CachedFleet {
	f := &CachedFleet{
		Vehicles: make([]CachedVehicle, 0, len(vehicles)),
		Drivers:  make([]CachedDriver, 0, len(drivers)),
	}
	for _, v := range vehicles {
		f.Vehicles = append(f.Vehicles, CachedVehicle{
			ID: v.ID, Plate: v.Plate, Capacity: v.Capacity, Type: v.Type, FuelType: string(v.FuelType), Active: v.Active,
		})
	}
	for _, d := range drivers {
		f.Drivers = append(f.Drivers, CachedDriver{
			ID: d.ID, Name: d.Name, Phone: d.Phone, Active: d.Active, Available: d.Available,
		})
	}
	return f
}

// Domain converts the cached fleet back to domain entities.
func (f *CachedFleet) Domain() ([]domain.Vehicle, []domain.Driver) {
	vehicles := make([]domain.Vehicle, 0, len(f.Vehicles))
	for _, v := range f.Vehicles {
		vehicles = append(vehicles, domain.Vehicle{
			ID: v.ID, Plate: v.Plate, Capacity: v.Capacity, Type: v.Type, FuelType: domain.FuelType(v.FuelType), Active: v.Active,
		})
	}
	drivers := make([]domain.Driver, 0, len(f.Drivers))
	for _, d := range f.Drivers {
		drivers = append(drivers, domain.Driver{
			ID: d.ID, Name: d.Name, Phone: d.Phone, Active: d.Active, Available: d.Available,
		})
	}
	return vehicles, drivers
}

// GetFleet retrieves the cached fleet. A cache miss returns nil, nil.
func (s *CacheStore) GetFleet(ctx context.Context) (*CachedFleet, error) {
	data, err := s.client.Get(ctx, fleetCacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var fleet CachedFleet
	if err := json.Unmarshal(data, &fleet); err != nil {
		return nil, err
	}
	return &fleet, nil
}

// SetFleet stores the fleet in cache.
func (s *CacheStore) SetFleet(ctx context.Context, fleet *CachedFleet) error {
	data, err := json.Marshal(fleet)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, fleetCacheKey, data, FleetCacheTTL).Err()
}

// InvalidateFleet removes the cached fleet.
func (s *CacheStore) InvalidateFleet(ctx context.Context) error {
	return s.client.Del(ctx, fleetCacheKey).Err()
}

// SetDriverAvailable adds the driver to, or removes it from, the available set.
func (s *CacheStore) SetDriverAvailable(ctx context.Context, driverID string, available bool) error {
	if available {
		return s.client.SAdd(ctx, availableDriversKey, driverID).Err()
	}
	return s.client.SRem(ctx, availableDriversKey, driverID).Err()
}

// IsDriverAvailable checks if a driver is in the available set.
func (s *CacheStore) IsDriverAvailable(ctx context.Context, driverID string) (bool, error) {
	return s.client.SIsMember(ctx, availableDriversKey, driverID).Result()
}

// GetAvailableDrivers returns all available driver IDs.
func (s *CacheStore) GetAvailableDrivers(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, availableDriversKey).Result()
}
