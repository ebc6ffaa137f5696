package domain

import (
	"fmt"
	"strings"
	"time"
)

// Priority ranks how urgent a transport request is.
type Priority int

const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
	PriorityUrgent Priority = 4
)

var priorityNames = map[Priority]string{
	PriorityLow:    "low",
	PriorityMedium: "medium",
	PriorityHigh:   "high",
	PriorityUrgent: "urgent",
}

// Rank returns the numeric rank (1-4) used by the scoring formulas.
func (p Priority) Rank() int {
	return int(p)
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	_, ok := priorityNames[p]
	return ok
}

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// ParsePriority converts a priority name into a Priority.
func ParsePriority(s string) (Priority, error) {
	for p, name := range priorityNames {
		if strings.EqualFold(s, name) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown priority %q", s)
}

// MarshalText encodes the priority by name.
func (p Priority) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid priority %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText decodes a priority name.
func (p *Priority) UnmarshalText(b []byte) error {
	parsed, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// RequestStatus represents where a request is in its approval lifecycle.
type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "pending"
	RequestStatusApproved   RequestStatus = "approved"
	RequestStatusInProgress RequestStatus = "in_progress"
	RequestStatusCompleted  RequestStatus = "completed"
	RequestStatusCancelled  RequestStatus = "cancelled"
	RequestStatusRejected   RequestStatus = "rejected"
)

// RequestStatuses lists every request status.
var RequestStatuses = []RequestStatus{
	RequestStatusPending,
	RequestStatusApproved,
	RequestStatusInProgress,
	RequestStatusCompleted,
	RequestStatusCancelled,
	RequestStatusRejected,
}

// IsTerminal reports whether no further transition is possible.
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case RequestStatusCompleted, RequestStatusCancelled, RequestStatusRejected:
		return true
	}
	return false
}

// Request is an employee's ride request.
type Request struct {
	ID                       string
	RequesterID              string
	Origin                   string
	Destination              string
	RequestedAt              time.Time // requested date and time of departure
	PassengerCount           int
	Priority                 Priority
	FlexibilityMinutes       int
	EstimatedDurationMinutes int // 0 means estimate from defaults
	Purpose                  string
	Status                   RequestStatus
	RejectionReason          string
	CreatedAt                time.Time
	UpdatedAt                time.Time
}
