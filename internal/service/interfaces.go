package service

import (
	"context"
	"time"

	"smartmove/internal/domain"
	"smartmove/internal/scheduling"
)

// SchedulingServiceInterface defines the approval contract.
// This interface allows for testing with mock implementations.
type SchedulingServiceInterface interface {
	Approve(ctx context.Context, requestID string) (*ApprovalResult, error)
	ApproveManual(ctx context.Context, in ManualApproval) (*ApprovalResult, error)
	SharedRideSuggestions(ctx context.Context, from, to time.Time) ([]scheduling.SharedRideSuggestion, error)
	PreviewPending(ctx context.Context) (*scheduling.BatchResult, error)
	AvailableDrivers(ctx context.Context) ([]string, error)
}

// LifecycleServiceInterface defines the post-approval transitions.
type LifecycleServiceInterface interface {
	Reject(ctx context.Context, requestID, reason string) (*TransitionResult, error)
	Start(ctx context.Context, requestID string) (*TransitionResult, error)
	Complete(ctx context.Context, requestID string) (*TransitionResult, error)
	Cancel(ctx context.Context, requestID string) (*TransitionResult, error)
}

// RequestServiceInterface defines request submission and lookup.
type RequestServiceInterface interface {
	Submit(ctx context.Context, in SubmitRequest) (*domain.Request, error)
	Get(ctx context.Context, id string) (*RequestDetails, error)
}

// Ensure concrete services implement their interfaces.
var (
	_ SchedulingServiceInterface = (*SchedulingService)(nil)
	_ LifecycleServiceInterface  = (*LifecycleService)(nil)
	_ RequestServiceInterface    = (*RequestService)(nil)
)
