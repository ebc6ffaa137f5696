package scheduling

import (
	"fmt"
	"slices"

	"smartmove/internal/domain"
)

// ResourceKind identifies which resource an availability lookup targets.
type ResourceKind string

const (
	ResourceVehicle ResourceKind = "vehicle"
	ResourceDriver  ResourceKind = "driver"
)

type resourceKey struct {
	kind ResourceKind
	id   string
}

// Index is an in-memory snapshot of active assignments keyed by vehicle and
// driver. It answers availability questions without touching storage.
// An Index is not safe for concurrent mutation.
type Index struct {
	byResource map[resourceKey][]domain.Assignment
	count      int
}

// NewIndex builds an index over the active assignments in the snapshot.
// Terminal assignments are ignored. A malformed active assignment is
// reported as ErrInvariantViolation rather than silently skipped.
func NewIndex(assignments []domain.Assignment) (*Index, error) {
	idx := &Index{byResource: make(map[resourceKey][]domain.Assignment)}
	for _, a := range assignments {
		if err := idx.Add(a); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Add inserts an assignment into the index. Terminal assignments are ignored.
func (x *Index) Add(a domain.Assignment) error {
	if !a.Status.IsActive() {
		return nil
	}
	if !a.Interval.Valid() {
		return fmt.Errorf("%w: assignment %s departs %s, not before arrival %s",
			ErrInvariantViolation, a.ID, a.Interval.Start, a.Interval.End)
	}
	x.insert(resourceKey{ResourceVehicle, a.VehicleID}, a)
	x.insert(resourceKey{ResourceDriver, a.DriverID}, a)
	x.count++
	return nil
}

// insert keeps each per-resource list ordered by departure, then id.
func (x *Index) insert(key resourceKey, a domain.Assignment) {
	list := x.byResource[key]
	i, _ := slices.BinarySearchFunc(list, a, compareAssignments)
	x.byResource[key] = slices.Insert(list, i, a)
}

func compareAssignments(a, b domain.Assignment) int {
	if c := a.Interval.Start.Compare(b.Interval.Start); c != 0 {
		return c
	}
	if a.ID < b.ID {
		return -1
	}
	if a.ID > b.ID {
		return 1
	}
	return 0
}

// Len returns the number of active assignments in the index.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return x.count
}

// Clone returns an independent copy of the index.
func (x *Index) Clone() *Index {
	c := &Index{byResource: make(map[resourceKey][]domain.Assignment)}
	if x == nil {
		return c
	}
	for k, v := range x.byResource {
		c.byResource[k] = slices.Clone(v)
	}
	c.count = x.count
	return c
}

// IsFree reports whether the resource has no active assignment overlapping iv.
func (x *Index) IsFree(kind ResourceKind, id string, iv domain.Interval) bool {
	_, busy := x.firstOverlap(kind, id, iv)
	return !busy
}

// firstOverlap returns the earliest active assignment of the resource that
// overlaps iv.
func (x *Index) firstOverlap(kind ResourceKind, id string, iv domain.Interval) (domain.Assignment, bool) {
	if x == nil {
		return domain.Assignment{}, false
	}
	for _, a := range x.byResource[resourceKey{kind, id}] {
		if !a.Interval.Start.Before(iv.End) {
			break
		}
		if a.Interval.Overlaps(iv) {
			return a, true
		}
	}
	return domain.Assignment{}, false
}
