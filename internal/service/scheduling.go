package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"smartmove/internal/domain"
	"smartmove/internal/metrics"
	"smartmove/internal/redis"
	"smartmove/internal/repository"
	"smartmove/internal/scheduling"
)

const defaultRetryDelay = 50 * time.Millisecond

// SchedulingService approves requests by resolving them against the current
// schedule and committing the chosen assignment.
type SchedulingService struct {
	deps       Deps
	resolver   *scheduling.Resolver
	attempts   int
	retryDelay time.Duration
}

// NewSchedulingService creates a new SchedulingService. Approvals that lose a
// race are retried up to commitAttempts times in total.
func NewSchedulingService(deps Deps, resolver *scheduling.Resolver, commitAttempts int) *SchedulingService {
	deps.setDefaults()
	if commitAttempts <= 0 {
		commitAttempts = 1
	}
	return &SchedulingService{
		deps:       deps,
		resolver:   resolver,
		attempts:   commitAttempts,
		retryDelay: defaultRetryDelay,
	}
}

// ApprovalResult is a committed approval.
type ApprovalResult struct {
	Request    *domain.Request
	Assignment domain.Assignment
	// Resolution is nil for manual approvals.
	Resolution *scheduling.Resolution
}

// Approve finds the best slot, vehicle and driver for a pending request and
// commits the assignment. Lost races are retried with a fresh snapshot.
func (s *SchedulingService) Approve(ctx context.Context, requestID string) (*ApprovalResult, error) {
	if requestID == "" {
		return nil, ErrInvalidRequestID
	}
	token := s.deps.NewID()
	release, err := s.deps.lock(ctx, redis.LockRequest, requestID, token)
	if err != nil {
		return nil, err
	}
	defer release()

	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		if attempt > 1 {
			s.deps.Metrics.CommitRetried()
			if err := sleep(ctx, time.Duration(attempt-1)*s.retryDelay); err != nil {
				return nil, err
			}
		}

		result, err := s.approveOnce(ctx, requestID, token)
		if err == nil {
			return result, nil
		}
		if !retryable(err) {
			return nil, err
		}
		lastErr = err
		s.deps.Logger.Warn().Err(err).Str("request_id", requestID).Int("attempt", attempt).Msg("approval lost a race")
	}
	return nil, lastErr
}

func (s *SchedulingService) approveOnce(ctx context.Context, requestID, token string) (*ApprovalResult, error) {
	req, err := s.pending(ctx, requestID)
	if err != nil {
		return nil, err
	}
	vehicles, drivers, err := s.deps.fleet(ctx)
	if err != nil {
		return nil, err
	}
	idx, err := s.snapshot(ctx, []domain.Request{*req})
	if err != nil {
		return nil, err
	}

	started := time.Now()
	res, err := s.resolver.Resolve(ctx, *req, idx, vehicles, drivers)
	s.deps.Metrics.ObserveResolve(outcome(res, err), time.Since(started))
	if err != nil {
		return nil, err
	}

	committed, err := s.commit(ctx, res.Assignment, token, true)
	if err != nil {
		return nil, err
	}
	return &ApprovalResult{Request: committed, Assignment: res.Assignment, Resolution: res}, nil
}

// ManualApproval is an operator-chosen assignment.
type ManualApproval struct {
	RequestID string
	VehicleID string
	DriverID  string
	DepartsAt time.Time
	ArrivesAt time.Time
	Notes     string
}

// ApproveManual commits an operator-chosen assignment after checking that the
// vehicle and driver are free for exactly the given interval. A clash returns
// *scheduling.ConflictError and nothing is retried.
func (s *SchedulingService) ApproveManual(ctx context.Context, in ManualApproval) (*ApprovalResult, error) {
	switch {
	case in.RequestID == "":
		return nil, ErrInvalidRequestID
	case in.VehicleID == "":
		return nil, ErrInvalidVehicleID
	case in.DriverID == "":
		return nil, ErrInvalidDriverID
	}
	iv := domain.Interval{Start: in.DepartsAt, End: in.ArrivesAt}
	if !iv.Valid() {
		return nil, &scheduling.ValidationError{Field: "interval", Reason: "departure must be before arrival"}
	}

	token := s.deps.NewID()
	release, err := s.deps.lock(ctx, redis.LockRequest, in.RequestID, token)
	if err != nil {
		return nil, err
	}
	defer release()

	req, err := s.pending(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	vehicle, err := s.deps.Repos.Vehicles.GetByID(ctx, in.VehicleID)
	if err != nil {
		return nil, fmt.Errorf("get vehicle: %w", err)
	}
	if !vehicle.Active || vehicle.Capacity < req.PassengerCount {
		return nil, fmt.Errorf("%w: %s seats %d, request needs %d", ErrVehicleUnsuitable, vehicle.ID, vehicle.Capacity, req.PassengerCount)
	}
	driver, err := s.deps.Repos.Drivers.GetByID(ctx, in.DriverID)
	if err != nil {
		return nil, fmt.Errorf("get driver: %w", err)
	}
	if !driver.Active {
		return nil, fmt.Errorf("%w: %s", ErrDriverInactive, driver.ID)
	}

	asg := domain.Assignment{
		ID:        s.deps.NewID(),
		RequestID: req.ID,
		VehicleID: vehicle.ID,
		DriverID:  driver.ID,
		Interval:  iv,
		Status:    domain.AssignmentStatusAssigned,
		Notes:     in.Notes,
		CreatedAt: s.deps.Now(),
	}
	committed, err := s.commit(ctx, asg, token, false)
	if err != nil {
		if errors.Is(err, scheduling.ErrConflict) {
			s.deps.Metrics.ObserveResolve(metrics.OutcomeConflict, 0)
		}
		return nil, err
	}
	return &ApprovalResult{Request: committed, Assignment: asg}, nil
}

// pending loads a request that can still be approved, in fleet local time.
func (s *SchedulingService) pending(ctx context.Context, requestID string) (*domain.Request, error) {
	req, err := s.deps.Repos.Requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if !scheduling.CanTransition(req.Status, scheduling.EventApprove) {
		return nil, &scheduling.TransitionError{From: req.Status, Event: scheduling.EventApprove}
	}
	req.RequestedAt = req.RequestedAt.In(s.deps.Location)
	return req, nil
}

// snapshot indexes every active assignment a slot for any of reqs could
// collide with, including the widened window and the buffer.
func (s *SchedulingService) snapshot(ctx context.Context, reqs []domain.Request) (*scheduling.Index, error) {
	if len(reqs) == 0 {
		return scheduling.NewIndex(nil)
	}
	cfg := s.resolver.Config()
	buffer := time.Duration(cfg.BufferMinutes) * time.Minute

	var from, to time.Time
	for i, req := range reqs {
		reach := time.Duration(req.FlexibilityMinutes+cfg.WidenMinutes)*time.Minute + buffer
		lo := req.RequestedAt.Add(-reach)
		hi := req.RequestedAt.Add(reach + scheduling.EstimateDuration(req, cfg))
		if i == 0 || lo.Before(from) {
			from = lo
		}
		if i == 0 || hi.After(to) {
			to = hi
		}
	}

	current, err := s.deps.Repos.Assignments.ListActive(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list active assignments: %w", err)
	}
	return scheduling.NewIndex(current)
}

// commit locks the vehicle and driver, re-checks them against fresh data and
// stores the assignment with the request transition in one transaction.
// Vehicle locks are always taken before driver locks.
func (s *SchedulingService) commit(ctx context.Context, asg domain.Assignment, token string, buffered bool) (*domain.Request, error) {
	releaseVehicle, err := s.deps.lock(ctx, redis.LockVehicle, asg.VehicleID, token)
	if err != nil {
		return nil, err
	}
	defer releaseVehicle()
	releaseDriver, err := s.deps.lock(ctx, redis.LockDriver, asg.DriverID, token)
	if err != nil {
		return nil, err
	}
	defer releaseDriver()

	check := asg.Interval
	if buffered {
		check = check.Pad(time.Duration(s.resolver.Config().BufferMinutes) * time.Minute)
	}
	current, err := s.deps.Repos.Assignments.ListActive(ctx, check.Start, check.End)
	if err != nil {
		return nil, fmt.Errorf("list active assignments: %w", err)
	}
	idx, err := scheduling.NewIndex(current)
	if err != nil {
		return nil, err
	}
	if err := scheduling.NewConflictDetector(idx).Check(asg.VehicleID, asg.DriverID, check); err != nil {
		return nil, err
	}

	var (
		committed *domain.Request
		effect    scheduling.Effect
	)
	err = s.deps.Tx.WithinTx(ctx, func(repos repository.Repositories) error {
		req, err := repos.Requests.GetByID(ctx, asg.RequestID)
		if err != nil {
			return fmt.Errorf("get request: %w", err)
		}
		eff, err := scheduling.Transition(req, &asg, scheduling.EventApprove)
		if err != nil {
			return err
		}
		if err := repos.Assignments.Create(ctx, &asg); err != nil {
			return err
		}
		if err := repos.Requests.UpdateStatus(ctx, req.ID, req.Status, ""); err != nil {
			return err
		}
		if eff.DriverAvailable != nil {
			if err := repos.Drivers.UpdateAvailability(ctx, eff.DriverID, *eff.DriverAvailable); err != nil {
				return err
			}
		}
		committed, effect = req, eff
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.deps.afterTransition(ctx, committed, &asg, effect, "")
	return committed, nil
}

// SharedRideSuggestions lists pairs of active assignments in [from, to) that
// could share a vehicle.
func (s *SchedulingService) SharedRideSuggestions(ctx context.Context, from, to time.Time) ([]scheduling.SharedRideSuggestion, error) {
	active, err := s.deps.Repos.Assignments.ListActive(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list active assignments: %w", err)
	}
	trips := make([]scheduling.Trip, 0, len(active))
	for _, asg := range active {
		req, err := s.deps.Repos.Requests.GetByID(ctx, asg.RequestID)
		if err != nil {
			return nil, fmt.Errorf("get request %s: %w", asg.RequestID, err)
		}
		trips = append(trips, scheduling.Trip{Request: *req, Assignment: asg})
	}
	window := time.Duration(s.resolver.Config().SharedRideWindowMinutes) * time.Minute
	return scheduling.NewBatchOptimizer(window, nil).FindSharedRideCandidates(trips), nil
}

// PreviewPending schedules every pending request against the current
// schedule without committing anything.
func (s *SchedulingService) PreviewPending(ctx context.Context) (*scheduling.BatchResult, error) {
	reqs, err := s.deps.Repos.Requests.ListByStatus(ctx, domain.RequestStatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	for i := range reqs {
		reqs[i].RequestedAt = reqs[i].RequestedAt.In(s.deps.Location)
	}
	vehicles, drivers, err := s.deps.fleet(ctx)
	if err != nil {
		return nil, err
	}
	idx, err := s.snapshot(ctx, reqs)
	if err != nil {
		return nil, err
	}
	result, err := s.resolver.ScheduleBatch(ctx, reqs, idx, vehicles, drivers)
	if err != nil {
		return nil, err
	}
	if result.Summary.Requests > 0 {
		s.deps.Metrics.BatchCompleted(result.Summary.SuccessRate / 100)
	}
	s.deps.Logger.Info().
		Int("requests", result.Summary.Requests).
		Int("scheduled", result.Summary.Scheduled).
		Int("failed", result.Summary.Failed).
		Msg("pending requests previewed")
	return result, nil
}

// AvailableDrivers lists drivers whose availability flag is set. The flag is
// presentation only; approvals always check the assignment set.
// Without a cache the drivers' stored flags are used.
func (s *SchedulingService) AvailableDrivers(ctx context.Context) ([]string, error) {
	if s.deps.Cache != nil {
		ids, err := s.deps.Cache.GetAvailableDrivers(ctx)
		if err != nil {
			return nil, fmt.Errorf("list available drivers: %w", err)
		}
		return ids, nil
	}

	drivers, err := s.deps.Repos.Drivers.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	ids := make([]string, 0, len(drivers))
	for _, d := range drivers {
		if d.Available {
			ids = append(ids, d.ID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// retryable reports whether an approval lost a race rather than failed.
func retryable(err error) bool {
	return errors.Is(err, ErrResourceBusy) ||
		errors.Is(err, repository.ErrAssignmentOverlap) ||
		errors.Is(err, scheduling.ErrConflict)
}

func outcome(res *scheduling.Resolution, err error) string {
	switch {
	case err == nil && res.Widened:
		return metrics.OutcomeWidened
	case err == nil:
		return metrics.OutcomeAssigned
	case errors.Is(err, scheduling.ErrInfeasible):
		return metrics.OutcomeInfeasible
	case errors.Is(err, scheduling.ErrValidation):
		return metrics.OutcomeInvalid
	case errors.Is(err, scheduling.ErrConflict):
		return metrics.OutcomeConflict
	}
	return metrics.OutcomeError
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
