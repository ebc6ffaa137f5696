package service

import (
	"context"
	"fmt"
	"strings"

	"smartmove/internal/domain"
	"smartmove/internal/redis"
	"smartmove/internal/repository"
	"smartmove/internal/scheduling"
)

// LifecycleService moves approved requests through their remaining states.
type LifecycleService struct {
	deps Deps
}

// NewLifecycleService creates a new LifecycleService.
func NewLifecycleService(deps Deps) *LifecycleService {
	deps.setDefaults()
	return &LifecycleService{deps: deps}
}

// TransitionResult is the state of a request and its assignment after a
// lifecycle event.
type TransitionResult struct {
	Request    *domain.Request
	Assignment *domain.Assignment // nil when the request was never assigned
}

// Reject declines a pending request. The reason is required.
func (s *LifecycleService) Reject(ctx context.Context, requestID, reason string) (*TransitionResult, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, &scheduling.ValidationError{Field: "reason", Reason: "is required"}
	}
	return s.apply(ctx, requestID, scheduling.EventReject, reason)
}

// Start marks an approved trip as under way.
func (s *LifecycleService) Start(ctx context.Context, requestID string) (*TransitionResult, error) {
	return s.apply(ctx, requestID, scheduling.EventStart, "")
}

// Complete finishes a trip in progress and frees its driver.
func (s *LifecycleService) Complete(ctx context.Context, requestID string) (*TransitionResult, error) {
	return s.apply(ctx, requestID, scheduling.EventComplete, "")
}

// Cancel cancels an approved request before the trip starts.
func (s *LifecycleService) Cancel(ctx context.Context, requestID string) (*TransitionResult, error) {
	return s.apply(ctx, requestID, scheduling.EventCancel, "")
}

func (s *LifecycleService) apply(ctx context.Context, requestID string, ev scheduling.Event, reason string) (*TransitionResult, error) {
	if requestID == "" {
		return nil, ErrInvalidRequestID
	}
	token := s.deps.NewID()
	release, err := s.deps.lock(ctx, redis.LockRequest, requestID, token)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		result TransitionResult
		effect scheduling.Effect
	)
	err = s.deps.Tx.WithinTx(ctx, func(repos repository.Repositories) error {
		req, err := repos.Requests.GetByID(ctx, requestID)
		if err != nil {
			return fmt.Errorf("get request: %w", err)
		}
		asg, err := activeAssignment(ctx, repos, requestID)
		if err != nil {
			return fmt.Errorf("get assignment: %w", err)
		}

		eff, err := scheduling.Transition(req, asg, ev)
		if err != nil {
			return err
		}
		if err := repos.Requests.UpdateStatus(ctx, req.ID, req.Status, reason); err != nil {
			return err
		}
		if eff.AssignmentStatus != "" {
			if err := repos.Assignments.UpdateStatus(ctx, eff.AssignmentID, eff.AssignmentStatus); err != nil {
				return err
			}
		}
		if eff.DriverAvailable != nil {
			if err := repos.Drivers.UpdateAvailability(ctx, eff.DriverID, *eff.DriverAvailable); err != nil {
				return err
			}
		}
		if reason != "" {
			req.RejectionReason = reason
		}
		result = TransitionResult{Request: req, Assignment: asg}
		effect = eff
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.deps.afterTransition(ctx, result.Request, result.Assignment, effect, reason)
	return &result, nil
}
