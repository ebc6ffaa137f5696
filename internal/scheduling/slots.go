package scheduling

import (
	"iter"
	"slices"
	"time"

	"smartmove/internal/domain"
)

// SlotKind tells whether a slot is the requested time or a shifted alternative.
type SlotKind string

const (
	SlotRequested   SlotKind = "requested"
	SlotAlternative SlotKind = "alternative"
)

// TimeSlot is a candidate departure interval considered while scheduling.
type TimeSlot struct {
	Interval      domain.Interval
	Score         float64
	Kind          SlotKind
	OffsetMinutes int
	Factors       []string
}

// SlotFinder enumerates candidate slots around a request's departure time.
type SlotFinder struct {
	cfg    Config
	scorer SlotScorer
}

// NewSlotFinder creates a SlotFinder.
func NewSlotFinder(cfg Config) *SlotFinder {
	return &SlotFinder{cfg: cfg, scorer: NewSlotScorer(cfg)}
}

// EstimateDuration returns how long the trip is expected to take.
func EstimateDuration(req domain.Request, cfg Config) time.Duration {
	if req.EstimatedDurationMinutes > 0 {
		return time.Duration(req.EstimatedDurationMinutes) * time.Minute
	}
	minutes := cfg.DefaultTripMinutes
	if req.PassengerCount > 2 {
		minutes += 10
	}
	return time.Duration(minutes) * time.Minute
}

// FindSlots yields candidate slots for req, highest score first.
//
// The requested departure is always present and wins ties against
// alternatives. Alternatives are generated every slot step on both sides up to
// the flexibility window and must start within working hours. Each range over
// the returned sequence recomputes the slots, so it can be iterated any number
// of times.
func (f *SlotFinder) FindSlots(req domain.Request) iter.Seq[TimeSlot] {
	return func(yield func(TimeSlot) bool) {
		for _, s := range f.rank(req) {
			if !yield(s) {
				return
			}
		}
	}
}

func (f *SlotFinder) rank(req domain.Request) []TimeSlot {
	duration := EstimateDuration(req, f.cfg)
	step := f.cfg.step()
	steps := 0
	if req.FlexibilityMinutes > 0 {
		steps = req.FlexibilityMinutes / f.cfg.SlotStepMinutes
	}

	slots := make([]TimeSlot, 0, 1+2*steps)
	requested := domain.NewInterval(req.RequestedAt, duration)
	slots = append(slots, TimeSlot{
		Interval: requested,
		Score:    f.scorer.Score(requested, req),
		Kind:     SlotRequested,
		Factors:  append([]string{factorPreference}, f.scorer.Factors(requested)...),
	})

	for k := 1; k <= steps; k++ {
		for _, sign := range []int{-1, 1} {
			offset := time.Duration(sign*k) * step
			start := req.RequestedAt.Add(offset)
			if !f.cfg.withinWorkingHours(start) {
				continue
			}
			iv := domain.NewInterval(start, duration)
			slots = append(slots, TimeSlot{
				Interval:      iv,
				Score:         f.scorer.Score(iv, req),
				Kind:          SlotAlternative,
				OffsetMinutes: int(offset / time.Minute),
				Factors:       f.scorer.Factors(iv),
			})
		}
	}

	// Stable: the requested slot and then nearer alternatives keep precedence
	// among equal scores.
	slices.SortStableFunc(slots, func(a, b TimeSlot) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	return slots
}
