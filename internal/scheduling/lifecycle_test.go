package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartmove/internal/domain"
)

// assignmentFor returns an assignment in the state ev expects, so only the
// request status decides whether the transition is allowed.
func assignmentFor(reqID string, ev Event) *domain.Assignment {
	a := assignment("a1", "v1", "d1", span(monday, 9, 0, 10, 0))
	a.RequestID = reqID
	if ev == EventComplete {
		a.Status = domain.AssignmentStatusInProgress
	}
	return &a
}

func TestTransition_Table(t *testing.T) {
	allowed := map[domain.RequestStatus]map[Event]domain.RequestStatus{
		domain.RequestStatusPending:    {EventApprove: domain.RequestStatusApproved, EventReject: domain.RequestStatusRejected},
		domain.RequestStatusApproved:   {EventStart: domain.RequestStatusInProgress, EventCancel: domain.RequestStatusCancelled},
		domain.RequestStatusInProgress: {EventComplete: domain.RequestStatusCompleted},
	}

	for _, status := range domain.RequestStatuses {
		for _, ev := range Events {
			t.Run(string(status)+"/"+string(ev), func(t *testing.T) {
				req := request("r1", at(monday, 9, 0), 30)
				req.Status = status
				asg := assignmentFor(req.ID, ev)
				before := *asg

				effect, err := Transition(&req, asg, ev)

				want, ok := allowed[status][ev]
				assert.Equal(t, ok, CanTransition(status, ev))
				if !ok {
					require.ErrorIs(t, err, ErrInvalidStateTransition)
					assert.Equal(t, status, req.Status)
					assert.Equal(t, before, *asg)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, want, req.Status)
				assert.Equal(t, status, effect.From)
				assert.Equal(t, want, effect.To)
			})
		}
	}
}

func TestTransition_ApproveRejectedLeavesStatus(t *testing.T) {
	req := request("r1", at(monday, 9, 0), 30)
	req.Status = domain.RequestStatusRejected

	_, err := Transition(&req, assignmentFor(req.ID, EventApprove), EventApprove)

	var terr *TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, domain.RequestStatusRejected, terr.From)
	assert.Equal(t, EventApprove, terr.Event)
	assert.Equal(t, domain.RequestStatusRejected, req.Status)
}

func TestTransition_Effects(t *testing.T) {
	req := request("r1", at(monday, 9, 0), 30)
	asg := assignmentFor(req.ID, EventApprove)

	effect, err := Transition(&req, asg, EventApprove)
	require.NoError(t, err)
	require.NotNil(t, effect.DriverAvailable)
	assert.False(t, *effect.DriverAvailable)
	assert.Empty(t, effect.AssignmentStatus)
	assert.Equal(t, "d1", effect.DriverID)

	effect, err = Transition(&req, asg, EventStart)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentStatusInProgress, asg.Status)
	assert.Equal(t, domain.AssignmentStatusInProgress, effect.AssignmentStatus)
	assert.Nil(t, effect.DriverAvailable)

	effect, err = Transition(&req, asg, EventComplete)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusCompleted, req.Status)
	assert.Equal(t, domain.AssignmentStatusCompleted, asg.Status)
	require.NotNil(t, effect.DriverAvailable)
	assert.True(t, *effect.DriverAvailable)
}

func TestTransition_CancelReleasesAssignment(t *testing.T) {
	req := request("r1", at(monday, 9, 0), 30)
	req.Status = domain.RequestStatusApproved
	asg := assignmentFor(req.ID, EventCancel)

	effect, err := Transition(&req, asg, EventCancel)

	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusCancelled, req.Status)
	assert.Equal(t, domain.AssignmentStatusCancelled, asg.Status)
	assert.Equal(t, "a1", effect.AssignmentID)
	require.NotNil(t, effect.DriverAvailable)
	assert.True(t, *effect.DriverAvailable)
}

func TestTransition_ApproveNeedsAssignment(t *testing.T) {
	req := request("r1", at(monday, 9, 0), 30)

	_, err := Transition(&req, nil, EventApprove)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, domain.RequestStatusPending, req.Status)

	other := assignmentFor("someone-else", EventApprove)
	_, err = Transition(&req, other, EventApprove)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, domain.RequestStatusPending, req.Status)
}

func TestTransition_RejectWithoutAssignment(t *testing.T) {
	req := request("r1", at(monday, 9, 0), 30)

	effect, err := Transition(&req, nil, EventReject)

	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusRejected, req.Status)
	assert.Nil(t, effect.DriverAvailable)
	assert.Empty(t, effect.AssignmentID)
}

func TestTransition_NoSkipping(t *testing.T) {
	req := request("r1", at(monday, 9, 0), 30)

	_, err := Transition(&req, assignmentFor(req.ID, EventComplete), EventComplete)

	assert.ErrorIs(t, err, ErrInvalidStateTransition)
	assert.Equal(t, domain.RequestStatusPending, req.Status)
}
