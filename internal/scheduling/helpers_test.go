package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"smartmove/internal/domain"
)

// monday is 2025-03-03, a Monday; saturday falls in the same week.
var (
	monday   = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	saturday = time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)
)

func at(day time.Time, hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func span(day time.Time, fromH, fromM, toH, toM int) domain.Interval {
	return domain.Interval{Start: at(day, fromH, fromM), End: at(day, toH, toM)}
}

func request(id string, start time.Time, flex int) domain.Request {
	return domain.Request{
		ID:                 id,
		Origin:             "HQ",
		Destination:        "Plant",
		RequestedAt:        start,
		PassengerCount:     2,
		Priority:           domain.PriorityMedium,
		FlexibilityMinutes: flex,
		Status:             domain.RequestStatusPending,
	}
}

func assignment(id, vehicleID, driverID string, iv domain.Interval) domain.Assignment {
	return domain.Assignment{
		ID:        id,
		RequestID: "req-" + id,
		VehicleID: vehicleID,
		DriverID:  driverID,
		Interval:  iv,
		Status:    domain.AssignmentStatusAssigned,
	}
}

func vehicle(id string, capacity int) domain.Vehicle {
	return domain.Vehicle{ID: id, Capacity: capacity, Type: "sedan", FuelType: domain.FuelPetrol, Active: true}
}

func driver(id string) domain.Driver {
	return domain.Driver{ID: id, Active: true, Available: true}
}

func mustIndex(t *testing.T, assignments ...domain.Assignment) *Index {
	t.Helper()
	idx, err := NewIndex(assignments)
	require.NoError(t, err)
	return idx
}
