package repository

import (
	"context"
	"time"

	"smartmove/internal/domain"
)

// AssignmentRepository defines the persistence operations for assignments.
type AssignmentRepository interface {
	// Create persists a new assignment. It returns ErrAssignmentOverlap when
	// the vehicle or driver is already committed during the interval.
	Create(ctx context.Context, a *domain.Assignment) error

	// GetByRequestID retrieves the most recent assignment of a request.
	GetByRequestID(ctx context.Context, requestID string) (*domain.Assignment, error)

	// ListActive retrieves active assignments overlapping [from, to).
	ListActive(ctx context.Context, from, to time.Time) ([]domain.Assignment, error)

	// UpdateStatus changes the status of an assignment.
	UpdateStatus(ctx context.Context, id string, status domain.AssignmentStatus) error
}
