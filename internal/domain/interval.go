package domain

import "time"

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval builds an interval starting at start and lasting d.
func NewInterval(start time.Time, d time.Duration) Interval {
	return Interval{Start: start, End: start.Add(d)}
}

// Valid reports whether the interval has a positive length.
func (i Interval) Valid() bool {
	return i.Start.Before(i.End)
}

// Overlaps reports whether two half-open intervals share any instant.
// Intervals that only touch at an edge do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Pad widens the interval by d on both sides.
func (i Interval) Pad(d time.Duration) Interval {
	return Interval{Start: i.Start.Add(-d), End: i.End.Add(d)}
}

// Duration returns the length of the interval.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}
