package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockTime_Text(t *testing.T) {
	var c ClockTime
	require.NoError(t, c.UnmarshalText([]byte("17:30")))
	assert.Equal(t, Clock(17, 30), c)

	b, err := c.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "17:30", string(b))

	assert.Error(t, c.UnmarshalText([]byte("5pm")))
}

func TestWindow_HalfOpen(t *testing.T) {
	w := Window{Start: Clock(8, 0), End: Clock(10, 0)}

	assert.True(t, w.Contains(at(monday, 8, 0)))
	assert.True(t, w.Contains(at(monday, 9, 59)))
	assert.False(t, w.Contains(at(monday, 10, 0)))
	assert.False(t, w.Contains(at(monday, 7, 59)))
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.WorkingHoursStart = Clock(23, 0)
	cfg.SlotStepMinutes = 0
	cfg.PeakWindows = append(cfg.PeakWindows, Window{Start: Clock(12, 0), End: Clock(12, 0)})

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "working hours")
	assert.Contains(t, err.Error(), "slot_step_minutes")
	assert.Contains(t, err.Error(), "peak_windows[2]")
}
