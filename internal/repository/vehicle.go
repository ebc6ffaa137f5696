package repository

import (
	"context"

	"smartmove/internal/domain"
)

// VehicleRepository defines the persistence operations for vehicles.
type VehicleRepository interface {
	// Create adds a new vehicle.
	Create(ctx context.Context, vehicle *domain.Vehicle) error

	// GetByID retrieves a vehicle by ID.
	GetByID(ctx context.Context, id string) (*domain.Vehicle, error)

	// ListActive retrieves every vehicle that may be scheduled.
	ListActive(ctx context.Context) ([]domain.Vehicle, error)
}
