package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartmove/internal/domain"
	"smartmove/internal/scheduling"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadRules_Defaults(t *testing.T) {
	rules, err := LoadRules("")

	require.NoError(t, err)
	assert.Equal(t, scheduling.DefaultConfig(), rules.Scheduling)
	assert.Equal(t, 10*time.Second, rules.Commit.LockTTL())
	assert.Equal(t, 3, rules.Commit.CommitAttempts)
}

func TestLoadRules_YAML(t *testing.T) {
	path := writeFile(t, "rules.yaml", `
working_hours_start: "07:00"
working_hours_end: "20:30"
peak_windows:
  - start: "07:30"
    end: "09:00"
buffer_minutes: 20
priority_weight: 0.5
commit_attempts: 5
`)

	rules, err := LoadRules(path)

	require.NoError(t, err)
	cfg := rules.Scheduling
	assert.Equal(t, scheduling.Clock(7, 0), cfg.WorkingHoursStart)
	assert.Equal(t, scheduling.Clock(20, 30), cfg.WorkingHoursEnd)
	assert.Equal(t, []scheduling.Window{{Start: scheduling.Clock(7, 30), End: scheduling.Clock(9, 0)}}, cfg.PeakWindows)
	assert.Equal(t, 20, cfg.BufferMinutes)
	assert.Equal(t, 0.5, cfg.PriorityWeight)
	assert.Equal(t, 0.15, cfg.UtilizationWeight, "unset keys keep defaults")
	assert.Equal(t, scheduling.DefaultConfig().EfficientWindow, cfg.EfficientWindow)
	assert.Equal(t, 5, rules.Commit.CommitAttempts)
	assert.Equal(t, 10, rules.Commit.LockTTLSeconds)
}

func TestLoadRules_EnvOverrides(t *testing.T) {
	path := writeFile(t, "rules.json", `{"buffer_minutes": 20, "widen_minutes": 90}`)
	t.Setenv("SCHED_BUFFER_MINUTES", "5")
	t.Setenv("SCHED_WORKING_HOURS_END", "21:00")

	rules, err := LoadRules(path)

	require.NoError(t, err)
	assert.Equal(t, 5, rules.Scheduling.BufferMinutes)
	assert.Equal(t, 90, rules.Scheduling.WidenMinutes)
	assert.Equal(t, scheduling.Clock(21, 0), rules.Scheduling.WorkingHoursEnd)
	assert.Equal(t, scheduling.DefaultPeakWindows(), rules.Scheduling.PeakWindows)
}

func TestLoadRules_Invalid(t *testing.T) {
	_, err := LoadRules(writeFile(t, "rules.yaml", `slot_step_minutes: -5`))
	assert.Error(t, err)

	_, err = LoadRules(writeFile(t, "rules.toml", `x = 1`))
	assert.ErrorContains(t, err, "unsupported config format")
}

func TestLoadPlan(t *testing.T) {
	path := writeFile(t, "plan.yaml", `
requests:
  - id: r1
    origin: HQ
    destination: Airport
    requested_at: "2025-03-03T09:00:00Z"
    passenger_count: 2
    priority: high
    flexibility_minutes: 30
vehicles:
  - id: v1
    capacity: 4
    fuel_type: electric
  - id: v2
    capacity: 7
    inactive: true
drivers:
  - id: d1
    name: Ana
assignments:
  - id: a1
    vehicle_id: v1
    driver_id: d1
    start: "2025-03-03T06:00:00Z"
    end: "2025-03-03T07:00:00Z"
`)

	plan, err := LoadPlan(path)
	require.NoError(t, err)

	reqs := plan.DomainRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, domain.PriorityHigh, reqs[0].Priority)
	assert.Equal(t, time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC), reqs[0].RequestedAt.UTC())
	assert.Equal(t, domain.RequestStatusPending, reqs[0].Status)

	vehicles := plan.DomainVehicles()
	require.Len(t, vehicles, 2)
	assert.Equal(t, domain.FuelElectric, vehicles[0].FuelType)
	assert.True(t, vehicles[0].Active)
	assert.False(t, vehicles[1].Active)
	assert.Equal(t, domain.FuelPetrol, vehicles[1].FuelType)

	require.Len(t, plan.DomainDrivers(), 1)
	asg := plan.DomainAssignments()
	require.Len(t, asg, 1)
	assert.Equal(t, time.Hour, asg[0].Interval.Duration())
}
