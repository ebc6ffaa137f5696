package scheduling

import (
	"smartmove/internal/domain"
)

// ConflictResource names which resource of a proposal collided.
type ConflictResource string

const (
	ConflictVehicle ConflictResource = "vehicle"
	ConflictDriver  ConflictResource = "driver"
	ConflictBoth    ConflictResource = "both"
)

// ConflictReport describes an overlap between a proposal and an active
// assignment.
type ConflictReport struct {
	AssignmentID string
	RequestID    string
	VehicleID    string
	DriverID     string
	Resource     ConflictResource
	Interval     domain.Interval // the existing assignment
	Candidate    domain.Interval // the interval that was checked
	Alternatives []TimeSlot
}

// ConflictDetector checks proposed (vehicle, driver, interval) triples
// against an Index.
type ConflictDetector struct {
	index *Index
}

// NewConflictDetector creates a ConflictDetector over idx.
func NewConflictDetector(idx *Index) *ConflictDetector {
	return &ConflictDetector{index: idx}
}

// FindConflict returns the earliest active assignment that overlaps iv on
// either the vehicle or the driver, or nil when the triple is free.
// Resource is ConflictBoth only when that single assignment holds both ids.
func (d *ConflictDetector) FindConflict(vehicleID, driverID string, iv domain.Interval) (*ConflictReport, error) {
	if !iv.Valid() {
		return nil, invalid("interval", "departure must be before arrival")
	}

	byVehicle, vehicleBusy := d.index.firstOverlap(ResourceVehicle, vehicleID, iv)
	byDriver, driverBusy := d.index.firstOverlap(ResourceDriver, driverID, iv)

	var hit domain.Assignment
	switch {
	case vehicleBusy && driverBusy:
		hit = byVehicle
		if compareAssignments(byDriver, byVehicle) < 0 {
			hit = byDriver
		}
	case vehicleBusy:
		hit = byVehicle
	case driverBusy:
		hit = byDriver
	default:
		return nil, nil
	}

	resource := ConflictDriver
	sameVehicle := hit.VehicleID == vehicleID
	sameDriver := hit.DriverID == driverID
	switch {
	case sameVehicle && sameDriver:
		resource = ConflictBoth
	case sameVehicle:
		resource = ConflictVehicle
	}

	return &ConflictReport{
		AssignmentID: hit.ID,
		RequestID:    hit.RequestID,
		VehicleID:    hit.VehicleID,
		DriverID:     hit.DriverID,
		Resource:     resource,
		Interval:     hit.Interval,
		Candidate:    iv,
	}, nil
}

// Check is FindConflict expressed as an error: it returns a *ConflictError
// when the triple collides.
func (d *ConflictDetector) Check(vehicleID, driverID string, iv domain.Interval) error {
	report, err := d.FindConflict(vehicleID, driverID, iv)
	if err != nil {
		return err
	}
	if report != nil {
		return &ConflictError{Report: *report}
	}
	return nil
}
