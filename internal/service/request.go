package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"smartmove/internal/domain"
	"smartmove/internal/repository"
	"smartmove/internal/scheduling"
)

// RequestService handles ride request submission.
type RequestService struct {
	requests repository.RequestRepository
	repos    repository.Repositories
	now      func() time.Time
	newID    func() string
}

// NewRequestService creates a new RequestService.
func NewRequestService(deps Deps) *RequestService {
	deps.setDefaults()
	return &RequestService{
		requests: deps.Repos.Requests,
		repos:    deps.Repos,
		now:      deps.Now,
		newID:    deps.NewID,
	}
}

// SubmitRequest contains the parameters for a new ride request.
type SubmitRequest struct {
	RequesterID              string
	Origin                   string
	Destination              string
	RequestedAt              time.Time
	PassengerCount           int
	Priority                 domain.Priority // Optional: defaults to medium
	FlexibilityMinutes       int
	EstimatedDurationMinutes int // Optional: 0 estimates from defaults
	Purpose                  string
}

// Submit validates and stores a request in the pending state.
func (s *RequestService) Submit(ctx context.Context, in SubmitRequest) (*domain.Request, error) {
	if in.Priority == 0 {
		in.Priority = domain.PriorityMedium
	}
	now := s.now()
	req := &domain.Request{
		ID:                       s.newID(),
		RequesterID:              strings.TrimSpace(in.RequesterID),
		Origin:                   strings.TrimSpace(in.Origin),
		Destination:              strings.TrimSpace(in.Destination),
		RequestedAt:              in.RequestedAt,
		PassengerCount:           in.PassengerCount,
		Priority:                 in.Priority,
		FlexibilityMinutes:       in.FlexibilityMinutes,
		EstimatedDurationMinutes: in.EstimatedDurationMinutes,
		Purpose:                  in.Purpose,
		Status:                   domain.RequestStatusPending,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	if err := validateSubmission(req); err != nil {
		return nil, err
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// RequestDetails is a request with the assignment bound to it, if any.
type RequestDetails struct {
	Request    *domain.Request
	Assignment *domain.Assignment
}

// Get returns a request by ID along with its assignment.
func (s *RequestService) Get(ctx context.Context, id string) (*RequestDetails, error) {
	if id == "" {
		return nil, ErrInvalidRequestID
	}
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	asg, err := activeAssignment(ctx, s.repos, id)
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return &RequestDetails{Request: req, Assignment: asg}, nil
}

func validateSubmission(req *domain.Request) error {
	switch {
	case req.RequesterID == "":
		return &scheduling.ValidationError{Field: "requester_id", Reason: "is required"}
	case req.Origin == "":
		return &scheduling.ValidationError{Field: "origin", Reason: "is required"}
	case req.Destination == "":
		return &scheduling.ValidationError{Field: "destination", Reason: "is required"}
	}
	return scheduling.ValidateRequest(*req)
}
