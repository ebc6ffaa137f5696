package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"smartmove/internal/scheduling"
	"smartmove/internal/service"
)

// ScheduleHandler serves read-only schedule planning endpoints.
type ScheduleHandler struct {
	scheduling service.SchedulingServiceInterface
}

// NewScheduleHandler creates a new ScheduleHandler.
func NewScheduleHandler(scheduling service.SchedulingServiceInterface) *ScheduleHandler {
	return &ScheduleHandler{scheduling: scheduling}
}

// SharedRideResponse is a pair of trips that could share a vehicle.
type SharedRideResponse struct {
	AssignmentIDs   [2]string `json:"assignment_ids"`
	RequestIDs      [2]string `json:"request_ids"`
	Origin          string    `json:"origin"`
	Destination     string    `json:"destination"`
	StartGapMinutes int       `json:"start_gap_minutes"`
}

// PreviewResponse is the HTTP response for a batch preview.
type PreviewResponse struct {
	Scheduled   []PreviewAssignment  `json:"scheduled"`
	Failed      []PreviewFailure     `json:"failed"`
	SharedRides []SharedRideResponse `json:"shared_rides"`
	Summary     PreviewSummary       `json:"summary"`
}

// PreviewSummary aggregates a batch preview.
type PreviewSummary struct {
	Requests             int     `json:"requests"`
	Scheduled            int     `json:"scheduled"`
	Failed               int     `json:"failed"`
	SuccessRate          float64 `json:"success_rate"`
	MeanConfidence       float64 `json:"mean_confidence"`
	TotalAdjustedMinutes int     `json:"total_adjusted_minutes"`
	PeakHourAssignments  int     `json:"peak_hour_assignments"`
}

// PreviewAssignment is one tentative placement.
type PreviewAssignment struct {
	RequestID             string             `json:"request_id"`
	Assignment            AssignmentResponse `json:"assignment"`
	Confidence            float64            `json:"confidence"`
	TimeAdjustmentMinutes int                `json:"time_adjustment_minutes"`
	Factors               []string           `json:"factors,omitempty"`
}

// PreviewFailure is a request the preview could not place.
type PreviewFailure struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

// SharedRides handles GET /v1/schedule/shared-rides?from=...&to=...
func (h *ScheduleHandler) SharedRides(c *gin.Context) {
	from, err := time.Parse(timeLayout, c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "from must be an RFC 3339 timestamp"})
		return
	}
	to, err := time.Parse(timeLayout, c.Query("to"))
	if err != nil || !to.After(from) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "to must be an RFC 3339 timestamp after from"})
		return
	}

	suggestions, err := h.scheduling.SharedRideSuggestions(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, sharedRideResponses(suggestions))
}

// Preview handles GET /v1/schedule/preview
func (h *ScheduleHandler) Preview(c *gin.Context) {
	result, err := h.scheduling.PreviewPending(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	resp := PreviewResponse{
		Scheduled:   make([]PreviewAssignment, 0, len(result.Scheduled)),
		Failed:      make([]PreviewFailure, 0, len(result.Failed)),
		SharedRides: sharedRideResponses(result.SharedRides),
		Summary:     PreviewSummary(result.Summary),
	}
	for _, res := range result.Scheduled {
		resp.Scheduled = append(resp.Scheduled, PreviewAssignment{
			RequestID:             res.Assignment.RequestID,
			Assignment:            assignmentResponse(res.Assignment),
			Confidence:            res.Confidence,
			TimeAdjustmentMinutes: res.TimeAdjustmentMinutes,
			Factors:               res.Factors,
		})
	}
	for _, f := range result.Failed {
		resp.Failed = append(resp.Failed, PreviewFailure{RequestID: f.RequestID, Error: f.Err.Error()})
	}
	respondJSON(c, http.StatusOK, resp)
}

// AvailableDrivers handles GET /v1/schedule/drivers/available
func (h *ScheduleHandler) AvailableDrivers(c *gin.Context) {
	ids, err := h.scheduling.AvailableDrivers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"driver_ids": ids})
}

func sharedRideResponses(suggestions []scheduling.SharedRideSuggestion) []SharedRideResponse {
	out := make([]SharedRideResponse, 0, len(suggestions))
	for _, s := range suggestions {
		out = append(out, SharedRideResponse{
			AssignmentIDs:   s.AssignmentIDs,
			RequestIDs:      s.RequestIDs,
			Origin:          s.Origin,
			Destination:     s.Destination,
			StartGapMinutes: int(s.StartGap / time.Minute),
		})
	}
	return out
}
