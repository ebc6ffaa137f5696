package scheduling

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindSlots_CountBound(t *testing.T) {
	finder := NewSlotFinder(DefaultConfig())

	for _, flex := range []int{15, 29, 30, 44, 60, 120} {
		req := request("r1", at(monday, 13, 0), flex)
		slots := slices.Collect(finder.FindSlots(req))
		assert.LessOrEqual(t, len(slots), 2*(flex/15)+1, "flex %d", flex)
		assert.Equal(t, 2*(flex/15)+1, len(slots), "flex %d inside working hours", flex)
	}
}

func TestFindSlots_RequestedWinsTies(t *testing.T) {
	finder := NewSlotFinder(DefaultConfig())
	// 10:00 and 10:15 both get the midday bonus; 09:45 is still peak.
	req := request("r1", at(monday, 10, 15), 30)

	slots := slices.Collect(finder.FindSlots(req))

	require.Len(t, slots, 5)
	assert.Equal(t, SlotRequested, slots[0].Kind)
	assert.Equal(t, at(monday, 10, 15), slots[0].Interval.Start)
	assert.Contains(t, slots[0].Factors, factorPreference)
	assert.Equal(t, slots[0].Score, slots[1].Score)
	assert.Equal(t, -15, slots[1].OffsetMinutes)
	assert.Equal(t, at(monday, 9, 45), slots[4].Interval.Start)
}

func TestFindSlots_BetterAlternativeRanksFirst(t *testing.T) {
	finder := NewSlotFinder(DefaultConfig())
	req := request("r1", at(monday, 9, 45), 30)

	slots := slices.Collect(finder.FindSlots(req))

	require.Len(t, slots, 5)
	assert.Equal(t, at(monday, 10, 0), slots[0].Interval.Start)
	assert.Equal(t, at(monday, 10, 15), slots[1].Interval.Start)
	assert.Equal(t, SlotRequested, slots[2].Kind)
	for i := 1; i < len(slots); i++ {
		assert.GreaterOrEqual(t, slots[i-1].Score, slots[i].Score)
	}
}

func TestFindSlots_WorkingHours(t *testing.T) {
	finder := NewSlotFinder(DefaultConfig())

	early := slices.Collect(finder.FindSlots(request("r1", at(monday, 6, 0), 30)))
	require.Len(t, early, 3)
	for _, s := range early {
		assert.False(t, s.Interval.Start.Before(at(monday, 6, 0)))
	}

	late := slices.Collect(finder.FindSlots(request("r2", at(monday, 22, 0), 15)))
	require.Len(t, late, 2, "22:00 is inside, 22:15 is not")

	outside := slices.Collect(finder.FindSlots(request("r3", at(monday, 5, 0), 15)))
	require.Len(t, outside, 1)
	assert.Equal(t, SlotRequested, outside[0].Kind)
}

func TestFindSlots_Restartable(t *testing.T) {
	finder := NewSlotFinder(DefaultConfig())
	seq := finder.FindSlots(request("r1", at(monday, 12, 0), 45))

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)

	var taken []TimeSlot
	for s := range seq {
		taken = append(taken, s)
		if len(taken) == 2 {
			break
		}
	}
	assert.Equal(t, first[:2], taken)
}

func TestEstimateDuration(t *testing.T) {
	cfg := DefaultConfig()

	req := request("r1", at(monday, 12, 0), 30)
	assert.Equal(t, time.Hour, EstimateDuration(req, cfg))

	req.PassengerCount = 3
	assert.Equal(t, 70*time.Minute, EstimateDuration(req, cfg))

	req.EstimatedDurationMinutes = 45
	assert.Equal(t, 45*time.Minute, EstimateDuration(req, cfg))

	slots := slices.Collect(NewSlotFinder(cfg).FindSlots(req))
	for _, s := range slots {
		assert.Equal(t, 45*time.Minute, s.Interval.Duration())
	}
}
