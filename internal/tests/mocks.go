package tests

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"smartmove/internal/domain"
	"smartmove/internal/events"
	"smartmove/internal/redis"
	"smartmove/internal/repository"
)

// ──────────────────────────────────────────────
// IN-MEMORY STORE
// ──────────────────────────────────────────────

// MemStore is an in-memory implementation of the repositories and
// repository.TxManager. Transactions run one at a time and roll back on
// error. Like the database, it rejects overlapping active assignments on the
// same vehicle or driver.
type MemStore struct {
	txMu sync.Mutex

	mu          sync.Mutex
	requests    map[string]domain.Request
	vehicles    map[string]domain.Vehicle
	drivers     map[string]domain.Driver
	assignments []domain.Assignment

	// Error injection: each Create call pops the first queued error.
	assignmentCreateErrors []error

	TxCount int32
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		requests: make(map[string]domain.Request),
		vehicles: make(map[string]domain.Vehicle),
		drivers:  make(map[string]domain.Driver),
	}
}

// Repositories returns repositories bound to the store.
func (m *MemStore) Repositories() repository.Repositories {
	return repository.Repositories{
		Requests:    memRequests{m},
		Assignments: memAssignments{m},
		Vehicles:    memVehicles{m},
		Drivers:     memDrivers{m},
	}
}

func (m *MemStore) WithinTx(ctx context.Context, fn func(repository.Repositories) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	atomic.AddInt32(&m.TxCount, 1)

	saved := m.save()
	if err := fn(m.Repositories()); err != nil {
		m.restore(saved)
		return err
	}
	return nil
}

type memState struct {
	requests    map[string]domain.Request
	drivers     map[string]domain.Driver
	assignments []domain.Assignment
}

func (m *MemStore) save() memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	requests := make(map[string]domain.Request, len(m.requests))
	for k, v := range m.requests {
		requests[k] = v
	}
	drivers := make(map[string]domain.Driver, len(m.drivers))
	for k, v := range m.drivers {
		drivers[k] = v
	}
	return memState{requests: requests, drivers: drivers, assignments: slices.Clone(m.assignments)}
}

func (m *MemStore) restore(s memState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = s.requests
	m.drivers = s.drivers
	m.assignments = s.assignments
}

// AddRequest stores a request.
func (m *MemStore) AddRequest(req domain.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[req.ID] = req
}

// AddVehicle stores a vehicle.
func (m *MemStore) AddVehicle(v domain.Vehicle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vehicles[v.ID] = v
}

// AddDriver stores a driver.
func (m *MemStore) AddDriver(d domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[d.ID] = d
}

// AddAssignment stores an assignment without overlap checks.
func (m *MemStore) AddAssignment(a domain.Assignment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments = append(m.assignments, a)
}

// FailAssignmentCreates queues errors returned by the next Create calls.
func (m *MemStore) FailAssignmentCreates(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignmentCreateErrors = append(m.assignmentCreateErrors, errs...)
}

// Request returns a stored request.
func (m *MemStore) Request(id string) domain.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[id]
}

// Driver returns a stored driver.
func (m *MemStore) Driver(id string) domain.Driver {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drivers[id]
}

// Assignments returns every stored assignment in insertion order.
func (m *MemStore) Assignments() []domain.Assignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.assignments)
}

// ActiveAssignments returns the stored assignments that hold resources.
func (m *MemStore) ActiveAssignments() []domain.Assignment {
	var out []domain.Assignment
	for _, a := range m.Assignments() {
		if a.Status.IsActive() {
			out = append(out, a)
		}
	}
	return out
}

// ──────────────────────────────────────────────
// MOCK REPOSITORIES
// ──────────────────────────────────────────────

type memRequests struct{ m *MemStore }

func (r memRequests) Create(ctx context.Context, req *domain.Request) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.requests[req.ID]; ok {
		return errors.New("duplicate request id")
	}
	r.m.requests[req.ID] = *req
	return nil
}

func (r memRequests) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	req, ok := r.m.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &req, nil
}

func (r memRequests) ListByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.Request, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []domain.Request
	for _, req := range r.m.requests {
		if req.Status == status {
			out = append(out, req)
		}
	}
	slices.SortFunc(out, func(a, b domain.Request) int {
		if c := a.RequestedAt.Compare(b.RequestedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r memRequests) UpdateStatus(ctx context.Context, id string, status domain.RequestStatus, reason string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	req, ok := r.m.requests[id]
	if !ok {
		return repository.ErrNotFound
	}
	req.Status = status
	req.RejectionReason = reason
	r.m.requests[id] = req
	return nil
}

type memAssignments struct{ m *MemStore }

func (r memAssignments) Create(ctx context.Context, a *domain.Assignment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if len(r.m.assignmentCreateErrors) > 0 {
		err := r.m.assignmentCreateErrors[0]
		r.m.assignmentCreateErrors = r.m.assignmentCreateErrors[1:]
		return err
	}
	for _, existing := range r.m.assignments {
		if !existing.Status.IsActive() || !existing.Interval.Overlaps(a.Interval) {
			continue
		}
		if existing.VehicleID == a.VehicleID || existing.DriverID == a.DriverID {
			return repository.ErrAssignmentOverlap
		}
	}
	r.m.assignments = append(r.m.assignments, *a)
	return nil
}

func (r memAssignments) GetByRequestID(ctx context.Context, requestID string) (*domain.Assignment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i := len(r.m.assignments) - 1; i >= 0; i-- {
		if a := r.m.assignments[i]; a.RequestID == requestID {
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memAssignments) ListActive(ctx context.Context, from, to time.Time) ([]domain.Assignment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	window := domain.Interval{Start: from, End: to}
	var out []domain.Assignment
	for _, a := range r.m.assignments {
		if a.Status.IsActive() && a.Interval.Overlaps(window) {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Assignment) int {
		return a.Interval.Start.Compare(b.Interval.Start)
	})
	return out, nil
}

func (r memAssignments) UpdateStatus(ctx context.Context, id string, status domain.AssignmentStatus) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i := range r.m.assignments {
		if r.m.assignments[i].ID == id {
			r.m.assignments[i].Status = status
			return nil
		}
	}
	return repository.ErrNotFound
}

type memVehicles struct{ m *MemStore }

func (r memVehicles) Create(ctx context.Context, v *domain.Vehicle) error {
	r.m.AddVehicle(*v)
	return nil
}

func (r memVehicles) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	v, ok := r.m.vehicles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &v, nil
}

func (r memVehicles) ListActive(ctx context.Context) ([]domain.Vehicle, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []domain.Vehicle
	for _, v := range r.m.vehicles {
		if v.Active {
			out = append(out, v)
		}
	}
	slices.SortFunc(out, func(a, b domain.Vehicle) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

type memDrivers struct{ m *MemStore }

func (r memDrivers) Create(ctx context.Context, d *domain.Driver) error {
	r.m.AddDriver(*d)
	return nil
}

func (r memDrivers) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d, ok := r.m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (r memDrivers) ListActive(ctx context.Context) ([]domain.Driver, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []domain.Driver
	for _, d := range r.m.drivers {
		if d.Active {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b domain.Driver) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (r memDrivers) UpdateAvailability(ctx context.Context, id string, available bool) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d, ok := r.m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	d.Available = available
	r.m.drivers[id] = d
	return nil
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]string

	AcquireCallCount int32
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{locks: make(map[string]string)}
}

func (m *MockLockStore) AcquireLock(ctx context.Context, kind, id, token string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	key := redis.LockKey(kind, id)
	if _, held := m.locks[key]; held {
		return false, nil
	}
	m.locks[key] = token
	return true, nil
}

func (m *MockLockStore) ReleaseLock(ctx context.Context, kind, id, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := redis.LockKey(kind, id)
	if m.locks[key] == token {
		delete(m.locks, key)
	}
	return nil
}

// Hold takes a lock on behalf of another process.
func (m *MockLockStore) Hold(kind, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[redis.LockKey(kind, id)] = "someone-else"
}

// IsLocked reports whether a lock is held.
func (m *MockLockStore) IsLocked(kind, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, held := m.locks[redis.LockKey(kind, id)]
	return held
}

// HeldCount returns the number of held locks.
func (m *MockLockStore) HeldCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

// ──────────────────────────────────────────────
// MOCK CACHE STORE
// ──────────────────────────────────────────────

// MockCacheStore is a mock implementation of CacheStoreInterface.
type MockCacheStore struct {
	mu        sync.Mutex
	fleet     *redis.CachedFleet
	available map[string]bool

	GetFleetCallCount int32
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{available: make(map[string]bool)}
}

func (m *MockCacheStore) GetFleet(ctx context.Context) (*redis.CachedFleet, error) {
	atomic.AddInt32(&m.GetFleetCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fleet, nil
}

func (m *MockCacheStore) SetFleet(ctx context.Context, fleet *redis.CachedFleet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fleet = fleet
	return nil
}

func (m *MockCacheStore) InvalidateFleet(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fleet = nil
	return nil
}

func (m *MockCacheStore) SetDriverAvailable(ctx context.Context, driverID string, available bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available[driverID] = available
	return nil
}

func (m *MockCacheStore) GetAvailableDrivers(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.available))
	for id, ok := range m.available {
		if ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// Fleet returns the cached fleet, if any.
func (m *MockCacheStore) Fleet() *redis.CachedFleet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fleet
}

// DriverAvailable returns the cached flag and whether it was ever set.
func (m *MockCacheStore) DriverAvailable(driverID string) (bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.available[driverID]
	return v, ok
}

// ──────────────────────────────────────────────
// MOCK PUBLISHER
// ──────────────────────────────────────────────

// MockPublisher records published lifecycle events.
type MockPublisher struct {
	mu     sync.Mutex
	events []events.LifecycleEvent

	PublishError error
}

func (m *MockPublisher) Publish(ctx context.Context, ev events.LifecycleEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishError != nil {
		return m.PublishError
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *MockPublisher) Close() error { return nil }

// Events returns the published events in order.
func (m *MockPublisher) Events() []events.LifecycleEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.events)
}

var (
	_ repository.TxManager      = (*MemStore)(nil)
	_ redis.LockStoreInterface  = (*MockLockStore)(nil)
	_ redis.CacheStoreInterface = (*MockCacheStore)(nil)
	_ events.Publisher          = (*MockPublisher)(nil)
)
