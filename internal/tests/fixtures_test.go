package tests

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartmove/internal/domain"
	"smartmove/internal/metrics"
	"smartmove/internal/scheduling"
	"smartmove/internal/service"
)

// monday is 2025-03-03.
var monday = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return monday.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

type harness struct {
	store      *MemStore
	locks      *MockLockStore
	cache      *MockCacheStore
	publisher  *MockPublisher
	scheduling *service.SchedulingService
	lifecycle  *service.LifecycleService
	requests   *service.RequestService
}

type harnessOption func(*service.Deps)

func withLocation(loc *time.Location) harnessOption {
	return func(d *service.Deps) { d.Location = loc }
}

func withoutCache() harnessOption {
	return func(d *service.Deps) { d.Cache = nil }
}

func newHarness(t *testing.T, commitAttempts int, opts ...harnessOption) *harness {
	t.Helper()

	m, err := metrics.NewScheduler(prometheus.NewRegistry())
	require.NoError(t, err)

	h := &harness{
		store:     NewMemStore(),
		locks:     NewMockLockStore(),
		cache:     NewMockCacheStore(),
		publisher: &MockPublisher{},
	}
	var ids atomic.Int64
	newID := func() string { return fmt.Sprintf("id-%d", ids.Add(1)) }
	now := func() time.Time { return at(0, 0) }

	deps := service.Deps{
		Tx:        h.store,
		Repos:     h.store.Repositories(),
		Locks:     h.locks,
		Cache:     h.cache,
		Publisher: h.publisher,
		Metrics:   m,
		Logger:    zerolog.Nop(),
		Now:       now,
		NewID:     newID,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	resolver := scheduling.NewResolver(scheduling.DefaultConfig(),
		scheduling.WithClock(now),
		scheduling.WithIDGenerator(func() string { return fmt.Sprintf("asg-%d", ids.Add(1)) }),
	)
	h.scheduling = service.NewSchedulingService(deps, resolver, commitAttempts)
	h.lifecycle = service.NewLifecycleService(deps)
	h.requests = service.NewRequestService(deps)
	return h
}

func (h *harness) addFleet(vehicles []string, drivers []string) {
	for _, id := range vehicles {
		h.store.AddVehicle(domain.Vehicle{ID: id, Plate: "P-" + id, Capacity: 4, Type: "sedan", FuelType: domain.FuelPetrol, Active: true})
	}
	for _, id := range drivers {
		h.store.AddDriver(domain.Driver{ID: id, Name: "Driver " + id, Active: true, Available: true})
	}
}

func (h *harness) addPending(id string, start time.Time, flex int) {
	h.store.AddRequest(pendingRequest(id, start, flex))
}

func pendingRequest(id string, start time.Time, flex int) domain.Request {
	return domain.Request{
		ID:                 id,
		RequesterID:        "emp-" + id,
		Origin:             "HQ",
		Destination:        "Plant",
		RequestedAt:        start,
		PassengerCount:     2,
		Priority:           domain.PriorityMedium,
		FlexibilityMinutes: flex,
		Status:             domain.RequestStatusPending,
	}
}

func atomicLoad(p *int32) int32 {
	return atomic.LoadInt32(p)
}

func assertInstant(t *testing.T, want, got time.Time) {
	t.Helper()
	assert.True(t, want.Equal(got), "want %s, got %s", want, got)
}

// assertNoDoubleBooking fails if two active assignments share a vehicle or
// driver during overlapping intervals.
func assertNoDoubleBooking(t *testing.T, assignments []domain.Assignment) {
	t.Helper()
	for i, a := range assignments {
		for _, b := range assignments[i+1:] {
			if !a.Interval.Overlaps(b.Interval) {
				continue
			}
			assert.NotEqual(t, a.VehicleID, b.VehicleID, "vehicle double booked by %s and %s", a.ID, b.ID)
			assert.NotEqual(t, a.DriverID, b.DriverID, "driver double booked by %s and %s", a.ID, b.ID)
		}
	}
}
