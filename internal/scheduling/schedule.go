package scheduling

import (
	"cmp"
	"context"
	"errors"
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"

	"smartmove/internal/domain"
)

// BatchFailure is a request the batch could not place.
type BatchFailure struct {
	RequestID string
	Err       error
}

// BatchSummary aggregates a batch run.
type BatchSummary struct {
	Requests             int
	Scheduled            int
	Failed               int
	SuccessRate          float64 // percent
	MeanConfidence       float64
	TotalAdjustedMinutes int
	PeakHourAssignments  int
}

// BatchResult is the outcome of ScheduleBatch.
type BatchResult struct {
	Scheduled   []*Resolution
	Failed      []BatchFailure
	SharedRides []SharedRideSuggestion
	Summary     BatchSummary
}

// ScheduleBatch resolves many requests against one snapshot. Urgent requests
// go first, then earlier departures. Each placement is added to a private copy
// of idx so later requests see it; idx itself is not modified.
// Infeasible and invalid requests are collected in Failed; any other error
// aborts the batch.
func (r *Resolver) ScheduleBatch(ctx context.Context, reqs []domain.Request, idx *Index, vehicles []domain.Vehicle, drivers []domain.Driver) (*BatchResult, error) {
	ordered := slices.Clone(reqs)
	slices.SortStableFunc(ordered, func(a, b domain.Request) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return a.RequestedAt.Compare(b.RequestedAt)
	})

	working := idx.Clone()
	result := &BatchResult{}
	var trips []Trip
	for _, req := range ordered {
		res, err := r.Resolve(ctx, req, working, vehicles, drivers)
		if err != nil {
			if errors.Is(err, ErrInfeasible) || errors.Is(err, ErrValidation) {
				result.Failed = append(result.Failed, BatchFailure{RequestID: req.ID, Err: err})
				continue
			}
			return nil, err
		}
		if err := working.Add(res.Assignment); err != nil {
			return nil, err
		}
		result.Scheduled = append(result.Scheduled, res)
		trips = append(trips, Trip{Request: req, Assignment: res.Assignment})
	}

	window := time.Duration(r.cfg.SharedRideWindowMinutes) * time.Minute
	result.SharedRides = NewBatchOptimizer(window, nil).FindSharedRideCandidates(trips)
	result.Summary = summarize(len(reqs), result)
	return result, nil
}

func summarize(total int, result *BatchResult) BatchSummary {
	s := BatchSummary{
		Requests:  total,
		Scheduled: len(result.Scheduled),
		Failed:    len(result.Failed),
	}
	if total == 0 {
		return s
	}
	s.SuccessRate = math.Round(float64(s.Scheduled)/float64(total)*1000) / 10

	confidences := make([]float64, 0, len(result.Scheduled))
	for _, res := range result.Scheduled {
		confidences = append(confidences, res.Confidence)
		s.TotalAdjustedMinutes += absInt(res.TimeAdjustmentMinutes)
		if slices.Contains(res.Slot.Factors, factorPeakHour) {
			s.PeakHourAssignments++
		}
	}
	if len(confidences) > 0 {
		s.MeanConfidence = stat.Mean(confidences, nil)
	}
	return s
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
