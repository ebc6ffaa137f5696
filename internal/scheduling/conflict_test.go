package scheduling

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartmove/internal/domain"
)

func TestConflictDetector_FindConflict(t *testing.T) {
	existing := assignment("a1", "v1", "d1", span(monday, 9, 0, 10, 0))
	detector := NewConflictDetector(mustIndex(t, existing))

	tests := []struct {
		name     string
		vehicle  string
		driver   string
		iv       domain.Interval
		resource ConflictResource
		free     bool
	}{
		{name: "vehicle busy", vehicle: "v1", driver: "d2", iv: span(monday, 9, 30, 10, 30), resource: ConflictVehicle},
		{name: "driver busy", vehicle: "v2", driver: "d1", iv: span(monday, 8, 30, 9, 30), resource: ConflictDriver},
		{name: "both busy", vehicle: "v1", driver: "d1", iv: span(monday, 9, 15, 9, 45), resource: ConflictBoth},
		{name: "back to back", vehicle: "v1", driver: "d1", iv: span(monday, 10, 0, 11, 0), free: true},
		{name: "other resources", vehicle: "v2", driver: "d2", iv: span(monday, 9, 0, 10, 0), free: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := detector.FindConflict(tt.vehicle, tt.driver, tt.iv)
			require.NoError(t, err)
			if tt.free {
				assert.Nil(t, report)
				return
			}
			require.NotNil(t, report)
			assert.Equal(t, "a1", report.AssignmentID)
			assert.Equal(t, tt.resource, report.Resource)
			assert.Equal(t, existing.Interval, report.Interval)
			assert.Equal(t, tt.iv, report.Candidate)
		})
	}
}

func TestConflictDetector_BothOnlyForSingleAssignment(t *testing.T) {
	idx := mustIndex(t,
		assignment("a", "v1", "d9", span(monday, 9, 0, 10, 0)),
		assignment("b", "v9", "d1", span(monday, 9, 0, 10, 0)),
	)

	report, err := NewConflictDetector(idx).FindConflict("v1", "d1", span(monday, 9, 0, 10, 0))

	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, "a", report.AssignmentID)
	assert.Equal(t, ConflictVehicle, report.Resource)
}

func TestConflictDetector_EarliestOverlapWins(t *testing.T) {
	idx := mustIndex(t,
		assignment("late", "v1", "d9", span(monday, 11, 0, 12, 0)),
		assignment("early", "v9", "d1", span(monday, 9, 0, 10, 30)),
	)

	report, err := NewConflictDetector(idx).FindConflict("v1", "d1", span(monday, 10, 0, 11, 30))

	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, "early", report.AssignmentID)
	assert.Equal(t, ConflictDriver, report.Resource)
}

func TestConflictDetector_InvalidInterval(t *testing.T) {
	detector := NewConflictDetector(mustIndex(t))

	_, err := detector.FindConflict("v1", "d1", span(monday, 10, 0, 9, 0))

	assert.ErrorIs(t, err, ErrValidation)
}

func TestConflictDetector_Check(t *testing.T) {
	detector := NewConflictDetector(mustIndex(t, assignment("a1", "v1", "d1", span(monday, 9, 0, 10, 0))))

	err := detector.Check("v1", "d2", span(monday, 9, 0, 9, 30))

	require.ErrorIs(t, err, ErrConflict)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, ConflictVehicle, conflict.Report.Resource)
	assert.NoError(t, detector.Check("v1", "d2", span(monday, 10, 0, 10, 30)))
}

// The detector must agree with a brute-force scan over every stored
// assignment for arbitrary proposals.
func TestConflictDetector_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 42))
	randomInterval := func() domain.Interval {
		start := at(monday, 6, 0).Add(time.Duration(rng.IntN(16*4)) * 15 * time.Minute)
		return domain.NewInterval(start, time.Duration(1+rng.IntN(8))*15*time.Minute)
	}

	var stored []domain.Assignment
	for i := range 60 {
		a := assignment(fmt.Sprintf("a%02d", i), fmt.Sprintf("v%d", rng.IntN(5)), fmt.Sprintf("d%d", rng.IntN(5)), randomInterval())
		if rng.IntN(5) == 0 {
			a.Status = domain.AssignmentStatusCompleted
		}
		stored = append(stored, a)
	}
	detector := NewConflictDetector(mustIndex(t, stored...))

	for range 500 {
		vehicleID := fmt.Sprintf("v%d", rng.IntN(6))
		driverID := fmt.Sprintf("d%d", rng.IntN(6))
		iv := randomInterval()

		want := false
		for _, a := range stored {
			if a.Status.IsActive() && (a.VehicleID == vehicleID || a.DriverID == driverID) && a.Interval.Overlaps(iv) {
				want = true
				break
			}
		}

		report, err := detector.FindConflict(vehicleID, driverID, iv)
		require.NoError(t, err)
		require.Equal(t, want, report != nil, "proposal %s/%s %s-%s", vehicleID, driverID,
			iv.Start.Format("15:04"), iv.End.Format("15:04"))
		if report != nil {
			assert.True(t, report.Interval.Overlaps(iv))
			assert.True(t, report.VehicleID == vehicleID || report.DriverID == driverID)
		}
	}
}
