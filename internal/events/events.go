// Package events publishes request lifecycle events for downstream consumers
// such as notification and reporting services.
package events

import (
	"context"
	"time"

	"smartmove/internal/domain"
)

// Event types.
const (
	TypeApproved  = "assignment.approved"
	TypeRejected  = "request.rejected"
	TypeStarted   = "assignment.started"
	TypeCompleted = "assignment.completed"
	TypeCancelled = "assignment.cancelled"
)

// LifecycleEvent describes one successful request transition.
type LifecycleEvent struct {
	Type         string               `json:"type"`
	RequestID    string               `json:"request_id"`
	AssignmentID string               `json:"assignment_id,omitempty"`
	VehicleID    string               `json:"vehicle_id,omitempty"`
	DriverID     string               `json:"driver_id,omitempty"`
	From         domain.RequestStatus `json:"from"`
	To           domain.RequestStatus `json:"to"`
	DepartsAt    *time.Time           `json:"departs_at,omitempty"`
	ArrivesAt    *time.Time           `json:"arrives_at,omitempty"`
	Reason       string               `json:"reason,omitempty"`
	OccurredAt   time.Time            `json:"occurred_at"`
}

// Publisher delivers lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, ev LifecycleEvent) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, LifecycleEvent) error { return nil }
func (NopPublisher) Close() error                                 { return nil }
