package scheduling

import (
	"errors"
	"fmt"
	"time"
)

// ClockTime is a time of day expressed in minutes after midnight.
type ClockTime int

// Clock builds a ClockTime from hours and minutes.
func Clock(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

// ClockOf returns the time of day of t, truncated to the minute.
func ClockOf(t time.Time) ClockTime {
	return Clock(t.Hour(), t.Minute())
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return Clock(t.Hour(), t.Minute()), nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// MarshalText encodes the clock as "HH:MM".
func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes "HH:MM".
func (c *ClockTime) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Window is a half-open daily window [Start, End).
type Window struct {
	Start ClockTime `json:"start" yaml:"start"`
	End   ClockTime `json:"end" yaml:"end"`
}

// Contains reports whether t's time of day falls inside the window.
func (w Window) Contains(t time.Time) bool {
	c := ClockOf(t)
	return c >= w.Start && c < w.End
}

// Config holds the scheduling rules. Zero values are not defaults; start from
// DefaultConfig.
type Config struct {
	WorkingHoursStart       ClockTime `json:"working_hours_start" yaml:"working_hours_start"`
	WorkingHoursEnd         ClockTime `json:"working_hours_end" yaml:"working_hours_end"`
	PeakWindows             []Window  `json:"peak_windows" yaml:"peak_windows"`
	EfficientWindow         Window    `json:"efficient_window" yaml:"efficient_window"`
	BufferMinutes           int       `json:"buffer_minutes" yaml:"buffer_minutes"`
	SlotStepMinutes         int       `json:"slot_step_minutes" yaml:"slot_step_minutes"`
	WidenMinutes            int       `json:"widen_minutes" yaml:"widen_minutes"`
	SlotPriorityWeight      float64   `json:"slot_priority_weight" yaml:"slot_priority_weight"`
	PreferenceWeight        float64   `json:"preference_weight" yaml:"preference_weight"`
	UtilizationWeight       float64   `json:"utilization_weight" yaml:"utilization_weight"`
	PriorityWeight          float64   `json:"priority_weight" yaml:"priority_weight"`
	DefaultTripMinutes      int       `json:"default_trip_minutes" yaml:"default_trip_minutes"`
	SharedRideWindowMinutes int       `json:"shared_ride_window_minutes" yaml:"shared_ride_window_minutes"`
}

// DefaultPeakWindows returns the morning and evening rush windows.
func DefaultPeakWindows() []Window {
	return []Window{
		{Start: Clock(8, 0), End: Clock(10, 0)},
		{Start: Clock(17, 0), End: Clock(20, 0)},
	}
}

// DefaultConfig returns the standard fleet scheduling rules.
func DefaultConfig() Config {
	return Config{
		WorkingHoursStart:       Clock(6, 0),
		WorkingHoursEnd:         Clock(22, 0),
		PeakWindows:             DefaultPeakWindows(),
		EfficientWindow:         Window{Start: Clock(10, 0), End: Clock(17, 0)},
		BufferMinutes:           15,
		SlotStepMinutes:         15,
		WidenMinutes:            60,
		SlotPriorityWeight:      10,
		PreferenceWeight:        0.2,
		UtilizationWeight:       0.15,
		PriorityWeight:          0.3,
		DefaultTripMinutes:      60,
		SharedRideWindowMinutes: 30,
	}
}

// Validate checks the rules for internal consistency.
func (c Config) Validate() error {
	var errs []error
	if c.WorkingHoursStart < 0 || c.WorkingHoursEnd > Clock(24, 0) || c.WorkingHoursStart >= c.WorkingHoursEnd {
		errs = append(errs, fmt.Errorf("working hours %s-%s are invalid", c.WorkingHoursStart, c.WorkingHoursEnd))
	}
	for i, w := range c.PeakWindows {
		if w.Start >= w.End {
			errs = append(errs, fmt.Errorf("peak_windows[%d] %s-%s is empty", i, w.Start, w.End))
		}
	}
	if c.EfficientWindow.Start > c.EfficientWindow.End {
		errs = append(errs, errors.New("efficient_window ends before it starts"))
	}
	if c.BufferMinutes < 0 {
		errs = append(errs, errors.New("buffer_minutes must not be negative"))
	}
	if c.SlotStepMinutes <= 0 {
		errs = append(errs, errors.New("slot_step_minutes must be positive"))
	}
	if c.WidenMinutes <= 0 {
		errs = append(errs, errors.New("widen_minutes must be positive"))
	}
	if c.DefaultTripMinutes <= 0 {
		errs = append(errs, errors.New("default_trip_minutes must be positive"))
	}
	if c.SharedRideWindowMinutes < 0 {
		errs = append(errs, errors.New("shared_ride_window_minutes must not be negative"))
	}
	if c.PreferenceWeight < 0 || c.UtilizationWeight < 0 || c.PriorityWeight < 0 || c.SlotPriorityWeight < 0 {
		errs = append(errs, errors.New("weights must not be negative"))
	}
	return errors.Join(errs...)
}

func (c Config) buffer() time.Duration {
	return time.Duration(c.BufferMinutes) * time.Minute
}

func (c Config) step() time.Duration {
	return time.Duration(c.SlotStepMinutes) * time.Minute
}

func (c Config) withinWorkingHours(t time.Time) bool {
	clock := ClockOf(t)
	return clock >= c.WorkingHoursStart && clock <= c.WorkingHoursEnd
}

func (c Config) isPeak(t time.Time) bool {
	for _, w := range c.PeakWindows {
		if w.Contains(t) {
			return true
		}
	}
	return false
}
