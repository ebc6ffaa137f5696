package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"smartmove/internal/config"
	"smartmove/internal/scheduling"
)

var planFile string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Schedule the requests of a plan file offline and print the result as JSON",
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planFile, "file", "f", "", "plan file (YAML or JSON)")
	_ = planCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(planCmd)
}

// PlanReport is the JSON output of the plan command.
type PlanReport struct {
	Scheduled   []PlannedTrip    `json:"scheduled"`
	Failed      []PlanFailure    `json:"failed"`
	SharedRides []PlanSharedRide `json:"shared_rides"`
	Summary     PlanSummary      `json:"summary"`
}

// PlannedTrip is one placed request.
type PlannedTrip struct {
	RequestID             string    `json:"request_id"`
	VehicleID             string    `json:"vehicle_id"`
	DriverID              string    `json:"driver_id"`
	DepartsAt             time.Time `json:"departs_at"`
	ArrivesAt             time.Time `json:"arrives_at"`
	Confidence            float64   `json:"confidence"`
	TimeAdjustmentMinutes int       `json:"time_adjustment_minutes"`
	Widened               bool      `json:"widened"`
	Factors               []string  `json:"factors"`
}

// PlanFailure is a request the plan could not place.
type PlanFailure struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

// PlanSharedRide is a pair of planned trips that could travel together.
type PlanSharedRide struct {
	RequestIDs      [2]string `json:"request_ids"`
	StartGapMinutes int       `json:"start_gap_minutes"`
}

// PlanSummary aggregates the plan.
type PlanSummary struct {
	Requests             int     `json:"requests"`
	Scheduled            int     `json:"scheduled"`
	Failed               int     `json:"failed"`
	SuccessRate          float64 `json:"success_rate"`
	MeanConfidence       float64 `json:"mean_confidence"`
	TotalAdjustedMinutes int     `json:"total_adjusted_minutes"`
	PeakHourAssignments  int     `json:"peak_hour_assignments"`
}

func runPlan(cmd *cobra.Command, args []string) error {
	_, rules, loc, err := loadSettings()
	if err != nil {
		return err
	}
	plan, err := config.LoadPlan(planFile)
	if err != nil {
		return fmt.Errorf("load plan: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := buildPlan(ctx, plan, rules.Scheduling, loc)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// buildPlan schedules the plan's requests around its committed assignments.
func buildPlan(ctx context.Context, plan *config.PlanFile, rules scheduling.Config, loc *time.Location) (*PlanReport, error) {
	reqs := plan.DomainRequests()
	for i := range reqs {
		reqs[i].RequestedAt = reqs[i].RequestedAt.In(loc)
	}
	idx, err := scheduling.NewIndex(plan.DomainAssignments())
	if err != nil {
		return nil, fmt.Errorf("index committed assignments: %w", err)
	}

	result, err := scheduling.NewResolver(rules).ScheduleBatch(ctx, reqs, idx, plan.DomainVehicles(), plan.DomainDrivers())
	if err != nil {
		return nil, err
	}

	report := &PlanReport{
		Scheduled:   make([]PlannedTrip, 0, len(result.Scheduled)),
		Failed:      make([]PlanFailure, 0, len(result.Failed)),
		SharedRides: make([]PlanSharedRide, 0, len(result.SharedRides)),
		Summary:     PlanSummary(result.Summary),
	}
	for _, res := range result.Scheduled {
		report.Scheduled = append(report.Scheduled, PlannedTrip{
			RequestID:             res.Assignment.RequestID,
			VehicleID:             res.Assignment.VehicleID,
			DriverID:              res.Assignment.DriverID,
			DepartsAt:             res.Assignment.Interval.Start,
			ArrivesAt:             res.Assignment.Interval.End,
			Confidence:            res.Confidence,
			TimeAdjustmentMinutes: res.TimeAdjustmentMinutes,
			Widened:               res.Widened,
			Factors:               res.Factors,
		})
	}
	for _, f := range result.Failed {
		report.Failed = append(report.Failed, PlanFailure{RequestID: f.RequestID, Error: f.Err.Error()})
	}
	for _, s := range result.SharedRides {
		report.SharedRides = append(report.SharedRides, PlanSharedRide{
			RequestIDs:      s.RequestIDs,
			StartGapMinutes: int(s.StartGap / time.Minute),
		})
	}
	return report, nil
}
