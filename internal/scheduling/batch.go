package scheduling

import (
	"strings"
	"time"

	"smartmove/internal/domain"
)

// Trip pairs an assignment with the request it serves.
type Trip struct {
	Request    domain.Request
	Assignment domain.Assignment
}

// SharedRideSuggestion flags two trips that could travel together.
type SharedRideSuggestion struct {
	AssignmentIDs [2]string
	RequestIDs    [2]string
	Origin        string
	Destination   string
	StartGap      time.Duration
}

// PlaceMatcher decides whether two places count as the same stop.
type PlaceMatcher func(a, b string) bool

// SamePlace matches places by name, ignoring case and surrounding space.
func SamePlace(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// BatchOptimizer suggests shared rides among newly scheduled trips. Its output
// is advisory and never changes an assignment.
type BatchOptimizer struct {
	window time.Duration
	match  PlaceMatcher
}

// NewBatchOptimizer creates a BatchOptimizer. A nil matcher uses SamePlace.
func NewBatchOptimizer(window time.Duration, match PlaceMatcher) *BatchOptimizer {
	if match == nil {
		match = SamePlace
	}
	return &BatchOptimizer{window: window, match: match}
}

// FindSharedRideCandidates returns one suggestion per pair of trips with the
// same origin and destination whose departures are at most the window apart.
func (o *BatchOptimizer) FindSharedRideCandidates(trips []Trip) []SharedRideSuggestion {
	var out []SharedRideSuggestion
	for i := range trips {
		a := trips[i]
		if !a.Assignment.Status.IsActive() {
			continue
		}
		for _, b := range trips[i+1:] {
			if !b.Assignment.Status.IsActive() {
				continue
			}
			if !o.match(a.Request.Origin, b.Request.Origin) || !o.match(a.Request.Destination, b.Request.Destination) {
				continue
			}
			gap := a.Assignment.Interval.Start.Sub(b.Assignment.Interval.Start).Abs()
			if gap > o.window {
				continue
			}
			out = append(out, SharedRideSuggestion{
				AssignmentIDs: [2]string{a.Assignment.ID, b.Assignment.ID},
				RequestIDs:    [2]string{a.Request.ID, b.Request.ID},
				Origin:        a.Request.Origin,
				Destination:   a.Request.Destination,
				StartGap:      gap,
			})
		}
	}
	return out
}
