package scheduling

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"smartmove/internal/domain"
)

const (
	maxAlternatives = 3

	factorConfident  = "high_confidence_match"
	factorPriority   = "priority_scheduling"
	factorWidened    = "conflict_resolution_applied"
	factorRequested  = "requested_time_honored"
	priorityScoreMul = 20.0

	highConfidence = 0.8
)

// Resolution is a successful scheduling decision. The assignment has not been
// persisted; committing it is the caller's job.
type Resolution struct {
	Assignment            domain.Assignment
	Slot                  TimeSlot
	Score                 float64
	Confidence            float64
	TimeAdjustmentMinutes int
	Alternatives          []TimeSlot
	Factors               []string
	Widened               bool
}

// Resolver picks the best (slot, vehicle, driver) combination for a request.
type Resolver struct {
	cfg    Config
	finder *SlotFinder
	now    func() time.Time
	newID  func() string
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithClock sets the clock used for assignment timestamps.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) { r.now = now }
}

// WithIDGenerator sets the assignment id generator.
func WithIDGenerator(newID func() string) ResolverOption {
	return func(r *Resolver) { r.newID = newID }
}

// NewResolver creates a Resolver.
func NewResolver(cfg Config, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		cfg:    cfg,
		finder: NewSlotFinder(cfg),
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Config returns the rules the resolver was built with.
func (r *Resolver) Config() Config {
	return r.cfg
}

// Slots exposes the resolver's slot finder.
func (r *Resolver) Slots(req domain.Request) []TimeSlot {
	return slices.Collect(r.finder.FindSlots(req))
}

// candidate is the best feasible combination found by one search pass.
type candidate struct {
	slot    TimeSlot
	vehicle domain.Vehicle
	driver  domain.Driver
	score   float64
	slots   []TimeSlot
}

// Resolve searches ranked slots for a free vehicle and driver. If nothing fits
// it widens the flexibility window once and searches again; a second failure
// returns *InfeasibleError carrying the first conflict encountered.
// The context is checked between slot evaluations.
func (r *Resolver) Resolve(ctx context.Context, req domain.Request, idx *Index, vehicles []domain.Vehicle, drivers []domain.Driver) (*Resolution, error) {
	if len(vehicles) == 0 {
		return nil, &InfeasibleError{RequestID: req.ID, Reason: "no candidate vehicles"}
	}
	if len(drivers) == 0 {
		return nil, &InfeasibleError{RequestID: req.ID, Reason: "no candidate drivers"}
	}
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	eligibleVehicles := eligibleVehicles(vehicles, req.PassengerCount)
	if len(eligibleVehicles) == 0 {
		return nil, &InfeasibleError{
			RequestID: req.ID,
			Reason:    fmt.Sprintf("no active vehicle seats %d passengers", req.PassengerCount),
		}
	}
	eligibleDrivers := activeDrivers(drivers)
	if len(eligibleDrivers) == 0 {
		return nil, &InfeasibleError{RequestID: req.ID, Reason: "no active drivers"}
	}

	best, report, err := r.search(ctx, req, idx, eligibleVehicles, eligibleDrivers)
	if err != nil {
		return nil, err
	}
	widened := false
	if best == nil {
		wide := req
		wide.FlexibilityMinutes += r.cfg.WidenMinutes
		widened = true
		var wideReport *ConflictReport
		best, wideReport, err = r.search(ctx, wide, idx, eligibleVehicles, eligibleDrivers)
		if err != nil {
			return nil, err
		}
		if report == nil {
			report = wideReport
		}
	}
	if best == nil {
		return nil, &InfeasibleError{
			RequestID: req.ID,
			Reason:    "no free vehicle and driver within the widened window",
			Widened:   widened,
			Report:    report,
		}
	}
	return r.resolution(req, best, widened), nil
}

// search runs one pass over the ranked slots.
func (r *Resolver) search(ctx context.Context, req domain.Request, idx *Index, vehicles []domain.Vehicle, drivers []domain.Driver) (*candidate, *ConflictReport, error) {
	slots := r.Slots(req)
	detector := NewConflictDetector(idx)
	totalPairs := float64(len(vehicles) * len(drivers))

	var best *candidate
	var report *ConflictReport
	for _, slot := range slots {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("resolve request %s: %w", req.ID, err)
		}
		check := slot.Interval.Pad(r.cfg.buffer())

		var freeVehicles []domain.Vehicle
		for _, v := range vehicles {
			if idx.IsFree(ResourceVehicle, v.ID, check) {
				freeVehicles = append(freeVehicles, v)
			}
		}
		var freeDrivers []domain.Driver
		for _, d := range drivers {
			if idx.IsFree(ResourceDriver, d.ID, check) {
				freeDrivers = append(freeDrivers, d)
			}
		}

		freePairs := len(freeVehicles) * len(freeDrivers)
		if freePairs == 0 {
			if report == nil {
				report = firstConflict(detector, vehicles, drivers, check)
			}
			continue
		}

		availability := 100 * float64(freePairs) / totalPairs
		score := slot.Score*r.cfg.PreferenceWeight +
			availability*r.cfg.UtilizationWeight +
			float64(req.Priority.Rank())*priorityScoreMul*r.cfg.PriorityWeight
		if best == nil || score > best.score {
			best = &candidate{
				slot:    slot,
				vehicle: bestVehicle(freeVehicles, req.PassengerCount),
				driver:  freeDrivers[0],
				score:   score,
			}
		}
	}
	if best != nil {
		best.slots = slots
	}
	if report != nil && best == nil {
		report.Alternatives = topSlots(slots, nil)
	}
	return best, report, nil
}

func firstConflict(detector *ConflictDetector, vehicles []domain.Vehicle, drivers []domain.Driver, iv domain.Interval) *ConflictReport {
	for _, v := range vehicles {
		for _, d := range drivers {
			report, err := detector.FindConflict(v.ID, d.ID, iv)
			if err == nil && report != nil {
				return report
			}
		}
	}
	return nil
}

func (r *Resolver) resolution(req domain.Request, best *candidate, widened bool) *Resolution {
	factors := slices.Clone(best.slot.Factors)
	if best.slot.Kind == SlotRequested {
		factors = append(factors, factorRequested)
	}
	confidence := best.score / 100
	if confidence > highConfidence {
		factors = append(factors, factorConfident)
	}
	if req.Priority >= domain.PriorityHigh {
		factors = append(factors, factorPriority)
	}
	if widened {
		factors = append(factors, factorWidened)
	}

	return &Resolution{
		Assignment: domain.Assignment{
			ID:        r.newID(),
			RequestID: req.ID,
			VehicleID: best.vehicle.ID,
			DriverID:  best.driver.ID,
			Interval:  best.slot.Interval,
			Status:    domain.AssignmentStatusAssigned,
			CreatedAt: r.now(),
		},
		Slot:                  best.slot,
		Score:                 best.score,
		Confidence:            confidence,
		TimeAdjustmentMinutes: int(best.slot.Interval.Start.Sub(req.RequestedAt) / time.Minute),
		Alternatives:          topSlots(best.slots, &best.slot),
		Factors:               factors,
		Widened:               widened,
	}
}

// topSlots returns up to maxAlternatives slots, skipping the chosen one.
func topSlots(slots []TimeSlot, chosen *TimeSlot) []TimeSlot {
	var out []TimeSlot
	for _, s := range slots {
		if len(out) == maxAlternatives {
			break
		}
		if chosen != nil && s.Interval.Start.Equal(chosen.Interval.Start) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// ValidateRequest rejects requests that cannot be scheduled at all.
func ValidateRequest(req domain.Request) error {
	switch {
	case req.RequestedAt.IsZero():
		return invalid("requested_at", "must be set")
	case req.PassengerCount <= 0:
		return invalid("passenger_count", "must be positive")
	case !req.Priority.Valid():
		return invalid("priority", fmt.Sprintf("unknown value %d", int(req.Priority)))
	case req.FlexibilityMinutes <= 0:
		return invalid("flexibility_minutes", "must be positive")
	case req.EstimatedDurationMinutes < 0:
		return invalid("estimated_duration_minutes", "must not be negative")
	}
	return nil
}

func eligibleVehicles(vehicles []domain.Vehicle, passengers int) []domain.Vehicle {
	var out []domain.Vehicle
	for _, v := range vehicles {
		if v.Active && v.Capacity >= passengers {
			out = append(out, v)
		}
	}
	return out
}

func activeDrivers(drivers []domain.Driver) []domain.Driver {
	var out []domain.Driver
	for _, d := range drivers {
		if d.Active {
			out = append(out, d)
		}
	}
	return out
}

// bestVehicle prefers cleaner fuel, then the smallest vehicle that still
// seats everyone, then candidate order.
func bestVehicle(vehicles []domain.Vehicle, passengers int) domain.Vehicle {
	best := vehicles[0]
	for _, v := range vehicles[1:] {
		if compareVehicles(v, best, passengers) < 0 {
			best = v
		}
	}
	return best
}

func compareVehicles(a, b domain.Vehicle, passengers int) int {
	if c := cmp.Compare(fuelBonus(b.FuelType), fuelBonus(a.FuelType)); c != 0 {
		return c
	}
	return cmp.Compare(a.Capacity-passengers, b.Capacity-passengers)
}

func fuelBonus(f domain.FuelType) int {
	switch f {
	case domain.FuelElectric:
		return 20
	case domain.FuelHybrid:
		return 15
	}
	return 0
}
