package repository

import (
	"context"

	"smartmove/internal/domain"
)

// RequestRepository defines the persistence operations for ride requests.
type RequestRepository interface {
	// Create persists a new request.
	Create(ctx context.Context, req *domain.Request) error

	// GetByID retrieves a request by ID.
	GetByID(ctx context.Context, id string) (*domain.Request, error)

	// ListByStatus retrieves requests in the given status, earliest departure first.
	ListByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.Request, error)

	// UpdateStatus stores a new status and rejection reason.
	UpdateStatus(ctx context.Context, id string, status domain.RequestStatus, reason string) error
}
