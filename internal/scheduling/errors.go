package scheduling

import (
	"errors"
	"fmt"

	"smartmove/internal/domain"
)

var (
	// ErrInfeasible is returned when no slot, vehicle and driver combination fits.
	ErrInfeasible = errors.New("no feasible assignment")

	// ErrConflict is returned when a proposed assignment overlaps an active one.
	ErrConflict = errors.New("resource conflict")

	// ErrInvalidStateTransition is returned when a lifecycle event is not allowed
	// from the current request status.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrInvariantViolation is returned when stored data breaks an invariant,
	// such as an assignment whose departure is not before its arrival.
	ErrInvariantViolation = errors.New("internal invariant violation")
)

// ValidationError describes a malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InfeasibleError reports that the search found nothing, even after widening.
// Report holds the most relevant conflict seen, if any.
type InfeasibleError struct {
	RequestID string
	Reason    string
	Widened   bool
	Report    *ConflictReport
}

func (e *InfeasibleError) Error() string {
	msg := fmt.Sprintf("request %s: %s", e.RequestID, e.Reason)
	if e.Report != nil {
		msg += fmt.Sprintf(" (%s busy with assignment %s)", e.Report.Resource, e.Report.AssignmentID)
	}
	return msg
}

func (e *InfeasibleError) Unwrap() error { return ErrInfeasible }

// ConflictError is returned by direct feasibility checks.
type ConflictError struct {
	Report ConflictReport
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already assigned during %s - %s (assignment %s)",
		e.Report.Resource, e.Report.Interval.Start.Format("2006-01-02 15:04"),
		e.Report.Interval.End.Format("15:04"), e.Report.AssignmentID)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// TransitionError is returned when an event is not allowed from a status.
type TransitionError struct {
	From  domain.RequestStatus
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a %s request", e.Event, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidStateTransition }
