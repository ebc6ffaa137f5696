package repository

import (
	"context"

	"smartmove/internal/domain"
)

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// Create adds a new driver.
	Create(ctx context.Context, driver *domain.Driver) error

	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)

	// ListActive retrieves every driver that may be scheduled.
	ListActive(ctx context.Context) ([]domain.Driver, error)

	// UpdateAvailability sets the driver's presentation availability flag.
	UpdateAvailability(ctx context.Context, id string, available bool) error
}
