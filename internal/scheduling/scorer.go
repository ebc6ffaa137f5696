package scheduling

import (
	"time"

	"smartmove/internal/domain"
)

const (
	baseSlotScore    = 50.0
	peakPenalty      = 20.0
	efficientBonus   = 15.0
	weekendBonus     = 10.0
	minSlotScore     = 0.0
	maxSlotScore     = 100.0
	factorPeakHour   = "peak_hour"
	factorEfficient  = "efficient_time"
	factorWeekend    = "weekend"
	factorPreference = "user_preference"
)

// SlotScorer rates how desirable a candidate departure is. It is a pure
// function of the slot, the request and the configured rules.
type SlotScorer struct {
	cfg Config
}

// NewSlotScorer creates a SlotScorer.
func NewSlotScorer(cfg Config) SlotScorer {
	return SlotScorer{cfg: cfg}
}

// Score returns a value in [0, 100].
func (s SlotScorer) Score(slot domain.Interval, req domain.Request) float64 {
	start := slot.Start
	score := baseSlotScore + s.cfg.SlotPriorityWeight*float64(req.Priority.Rank())
	if s.cfg.isPeak(start) {
		score -= peakPenalty
	}
	if s.cfg.EfficientWindow.Contains(start) {
		score += efficientBonus
	}
	if isWeekend(start) {
		score += weekendBonus
	}
	return min(maxSlotScore, max(minSlotScore, score))
}

// Factors lists the named conditions that influenced the score of slot.
func (s SlotScorer) Factors(slot domain.Interval) []string {
	var factors []string
	if s.cfg.isPeak(slot.Start) {
		factors = append(factors, factorPeakHour)
	}
	if s.cfg.EfficientWindow.Contains(slot.Start) {
		factors = append(factors, factorEfficient)
	}
	if isWeekend(slot.Start) {
		factors = append(factors, factorWeekend)
	}
	return factors
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
