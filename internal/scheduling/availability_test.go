package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartmove/internal/domain"
)

func TestIndex_HalfOpenIntervals(t *testing.T) {
	idx := mustIndex(t, assignment("a1", "v1", "d1", span(monday, 9, 0, 10, 0)))

	assert.True(t, idx.IsFree(ResourceVehicle, "v1", span(monday, 10, 0, 11, 0)), "[10:00,11:00) touches [09:00,10:00) only at the edge")
	assert.True(t, idx.IsFree(ResourceVehicle, "v1", span(monday, 8, 0, 9, 0)))
	assert.False(t, idx.IsFree(ResourceVehicle, "v1", span(monday, 9, 30, 10, 30)))
	assert.False(t, idx.IsFree(ResourceDriver, "d1", span(monday, 8, 30, 9, 1)))
	assert.False(t, idx.IsFree(ResourceVehicle, "v1", span(monday, 9, 15, 9, 45)))
	assert.True(t, idx.IsFree(ResourceVehicle, "v2", span(monday, 9, 0, 10, 0)))
}

func TestIndex_IgnoresTerminalAssignments(t *testing.T) {
	done := assignment("a1", "v1", "d1", span(monday, 9, 0, 10, 0))
	done.Status = domain.AssignmentStatusCompleted
	cancelled := assignment("a2", "v1", "d1", span(monday, 9, 0, 10, 0))
	cancelled.Status = domain.AssignmentStatusCancelled
	running := assignment("a3", "v2", "d2", span(monday, 9, 0, 10, 0))
	running.Status = domain.AssignmentStatusInProgress

	idx := mustIndex(t, done, cancelled, running)

	assert.Equal(t, 1, idx.Len())
	assert.True(t, idx.IsFree(ResourceVehicle, "v1", span(monday, 9, 0, 10, 0)))
	assert.False(t, idx.IsFree(ResourceDriver, "d2", span(monday, 9, 0, 10, 0)))
}

func TestIndex_MalformedAssignmentIsInvariantViolation(t *testing.T) {
	bad := assignment("a1", "v1", "d1", span(monday, 10, 0, 10, 0))

	_, err := NewIndex([]domain.Assignment{bad})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvariantViolation)
}

func TestIndex_CloneIsIndependent(t *testing.T) {
	idx := mustIndex(t, assignment("a1", "v1", "d1", span(monday, 9, 0, 10, 0)))
	clone := idx.Clone()

	require.NoError(t, clone.Add(assignment("a2", "v2", "d2", span(monday, 9, 0, 10, 0))))

	assert.Equal(t, 1, idx.Len())
	assert.Equal(t, 2, clone.Len())
	assert.True(t, idx.IsFree(ResourceVehicle, "v2", span(monday, 9, 0, 10, 0)))
}

func TestIndex_NilIsEmpty(t *testing.T) {
	var idx *Index
	assert.True(t, idx.IsFree(ResourceVehicle, "v1", span(monday, 9, 0, 10, 0)))
	assert.Equal(t, 0, idx.Len())
}
