package scheduling

import (
	"smartmove/internal/domain"
)

// Event drives a request through its lifecycle.
type Event string

const (
	EventApprove  Event = "approve"
	EventReject   Event = "reject"
	EventStart    Event = "start"
	EventComplete Event = "complete"
	EventCancel   Event = "cancel"
)

// Events lists every lifecycle event.
var Events = []Event{EventApprove, EventReject, EventStart, EventComplete, EventCancel}

// AllowedTransitions is the request state machine as data. Statuses missing
// from the table are terminal.
var AllowedTransitions = map[domain.RequestStatus]map[Event]domain.RequestStatus{
	domain.RequestStatusPending: {
		EventApprove: domain.RequestStatusApproved,
		EventReject:  domain.RequestStatusRejected,
	},
	domain.RequestStatusApproved: {
		EventStart:  domain.RequestStatusInProgress,
		EventCancel: domain.RequestStatusCancelled,
	},
	domain.RequestStatusInProgress: {
		EventComplete: domain.RequestStatusCompleted,
	},
}

// NextStatus returns the status reached by applying ev in from.
func NextStatus(from domain.RequestStatus, ev Event) (domain.RequestStatus, error) {
	to, ok := AllowedTransitions[from][ev]
	if !ok {
		return from, &TransitionError{From: from, Event: ev}
	}
	return to, nil
}

// CanTransition reports whether ev is allowed from status from.
func CanTransition(from domain.RequestStatus, ev Event) bool {
	_, err := NextStatus(from, ev)
	return err == nil
}

// Effect records what a transition changed so the caller can persist it.
type Effect struct {
	Event            Event
	From             domain.RequestStatus
	To               domain.RequestStatus
	AssignmentID     string
	AssignmentStatus domain.AssignmentStatus // empty when the assignment is untouched
	DriverID         string
	DriverAvailable  *bool // nil when the driver flag is untouched
}

// Transition applies ev to req and its assignment. Every check runs before
// anything is mutated, so a failed transition leaves both values unchanged.
func Transition(req *domain.Request, asg *domain.Assignment, ev Event) (Effect, error) {
	if req == nil {
		return Effect{}, invalid("request", "must not be nil")
	}
	to, err := NextStatus(req.Status, ev)
	if err != nil {
		return Effect{}, err
	}

	effect := Effect{Event: ev, From: req.Status, To: to}
	var asgStatus domain.AssignmentStatus
	var driverAvailable *bool

	switch ev {
	case EventApprove:
		if err := requireAssignment(req, asg, domain.AssignmentStatusAssigned); err != nil {
			return Effect{}, err
		}
		if !asg.Interval.Valid() {
			return Effect{}, invalid("assignment.interval", "departure must be before arrival")
		}
		driverAvailable = boolPtr(false)
	case EventStart:
		if err := requireAssignment(req, asg, domain.AssignmentStatusAssigned); err != nil {
			return Effect{}, err
		}
		asgStatus = domain.AssignmentStatusInProgress
	case EventComplete:
		if err := requireAssignment(req, asg, domain.AssignmentStatusInProgress); err != nil {
			return Effect{}, err
		}
		asgStatus = domain.AssignmentStatusCompleted
		driverAvailable = boolPtr(true)
	case EventCancel:
		if asg != nil {
			if err := requireAssignment(req, asg, domain.AssignmentStatusAssigned); err != nil {
				return Effect{}, err
			}
			asgStatus = domain.AssignmentStatusCancelled
			driverAvailable = boolPtr(true)
		}
	}

	req.Status = to
	if asg != nil {
		effect.AssignmentID = asg.ID
		effect.DriverID = asg.DriverID
		if asgStatus != "" {
			asg.Status = asgStatus
		}
	}
	effect.AssignmentStatus = asgStatus
	effect.DriverAvailable = driverAvailable
	return effect, nil
}

func requireAssignment(req *domain.Request, asg *domain.Assignment, status domain.AssignmentStatus) error {
	if asg == nil {
		return invalid("assignment", "required for this transition")
	}
	if asg.RequestID != req.ID {
		return invalid("assignment", "belongs to request "+asg.RequestID)
	}
	if asg.Status != status {
		return invalid("assignment.status", "expected "+string(status)+", got "+string(asg.Status))
	}
	return nil
}

func boolPtr(b bool) *bool { return &b }
