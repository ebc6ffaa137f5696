package config

import (
	"errors"
	"fmt"
	"time"

	"smartmove/internal/domain"
)

// PlanFile is the offline input of the plan command: requests to schedule,
// the fleet to schedule them on and assignments that are already committed.
type PlanFile struct {
	Requests    []PlanRequest    `json:"requests"`
	Vehicles    []PlanVehicle    `json:"vehicles"`
	Drivers     []PlanDriver     `json:"drivers"`
	Assignments []PlanAssignment `json:"assignments"`
}

// PlanRequest is a request entry of a plan file.
type PlanRequest struct {
	ID                       string          `json:"id"`
	Origin                   string          `json:"origin"`
	Destination              string          `json:"destination"`
	RequestedAt              time.Time       `json:"requested_at"`
	PassengerCount           int             `json:"passenger_count"`
	Priority                 domain.Priority `json:"priority"`
	FlexibilityMinutes       int             `json:"flexibility_minutes"`
	EstimatedDurationMinutes int             `json:"estimated_duration_minutes"`
	Purpose                  string          `json:"purpose"`
}

// PlanVehicle is a vehicle entry of a plan file.
type PlanVehicle struct {
	ID       string          `json:"id"`
	Plate    string          `json:"plate"`
	Capacity int             `json:"capacity"`
	Type     string          `json:"type"`
	FuelType domain.FuelType `json:"fuel_type"`
	Inactive bool            `json:"inactive"`
}

// PlanDriver is a driver entry of a plan file.
type PlanDriver struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Inactive bool   `json:"inactive"`
}

// PlanAssignment is an already committed assignment.
type PlanAssignment struct {
	ID        string    `json:"id"`
	VehicleID string    `json:"vehicle_id"`
	DriverID  string    `json:"driver_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}

// LoadPlan reads a YAML or JSON plan file.
func LoadPlan(path string) (*PlanFile, error) {
	if path == "" {
		return nil, errors.New("plan file path is required")
	}
	k, err := newKoanf(path)
	if err != nil {
		return nil, err
	}
	var plan PlanFile
	if err := unmarshal(k, &plan); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	return &plan, nil
}

// DomainRequests converts the plan requests into pending domain requests.
func (p *PlanFile) DomainRequests() []domain.Request {
	out := make([]domain.Request, 0, len(p.Requests))
	for _, r := range p.Requests {
		out = append(out, domain.Request{
			ID:                       r.ID,
			Origin:                   r.Origin,
			Destination:              r.Destination,
			RequestedAt:              r.RequestedAt,
			PassengerCount:           r.PassengerCount,
			Priority:                 r.Priority,
			FlexibilityMinutes:       r.FlexibilityMinutes,
			EstimatedDurationMinutes: r.EstimatedDurationMinutes,
			Purpose:                  r.Purpose,
			Status:                   domain.RequestStatusPending,
		})
	}
	return out
}

// DomainVehicles converts the plan vehicles.
func (p *PlanFile) DomainVehicles() []domain.Vehicle {
	out := make([]domain.Vehicle, 0, len(p.Vehicles))
	for _, v := range p.Vehicles {
		fuel := v.FuelType
		if fuel == "" {
			fuel = domain.FuelPetrol
		}
		out = append(out, domain.Vehicle{
			ID:       v.ID,
			Plate:    v.Plate,
			Capacity: v.Capacity,
			Type:     v.Type,
			FuelType: fuel,
			Active:   !v.Inactive,
		})
	}
	return out
}

// DomainDrivers converts the plan drivers.
func (p *PlanFile) DomainDrivers() []domain.Driver {
	out := make([]domain.Driver, 0, len(p.Drivers))
	for _, d := range p.Drivers {
		out = append(out, domain.Driver{ID: d.ID, Name: d.Name, Active: !d.Inactive, Available: true})
	}
	return out
}

// DomainAssignments converts the committed assignments.
func (p *PlanFile) DomainAssignments() []domain.Assignment {
	out := make([]domain.Assignment, 0, len(p.Assignments))
	for _, a := range p.Assignments {
		out = append(out, domain.Assignment{
			ID:        a.ID,
			VehicleID: a.VehicleID,
			DriverID:  a.DriverID,
			Interval:  domain.Interval{Start: a.Start, End: a.End},
			Status:    domain.AssignmentStatusAssigned,
		})
	}
	return out
}
