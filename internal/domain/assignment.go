package domain

import "time"

// AssignmentStatus represents the state of a vehicle/driver binding.
type AssignmentStatus string

const (
	AssignmentStatusAssigned   AssignmentStatus = "assigned"
	AssignmentStatusInProgress AssignmentStatus = "in_progress"
	AssignmentStatusCompleted  AssignmentStatus = "completed"
	AssignmentStatusCancelled  AssignmentStatus = "cancelled"
)

// IsActive reports whether the assignment still occupies its vehicle and driver.
func (s AssignmentStatus) IsActive() bool {
	return s == AssignmentStatusAssigned || s == AssignmentStatusInProgress
}

// Assignment binds one request to one vehicle, one driver and one interval.
type Assignment struct {
	ID        string
	RequestID string
	VehicleID string
	DriverID  string
	Interval  Interval // [estimated departure, estimated arrival)
	Status    AssignmentStatus
	Notes     string
	CreatedAt time.Time
}
