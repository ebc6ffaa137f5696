package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"smartmove/internal/domain"
	"smartmove/internal/scheduling"
	"smartmove/internal/service"
)

const timeLayout = time.RFC3339

// RequestHandler handles HTTP requests for ride requests and their lifecycle.
type RequestHandler struct {
	requests   service.RequestServiceInterface
	scheduling service.SchedulingServiceInterface
	lifecycle  service.LifecycleServiceInterface
}

// NewRequestHandler creates a new RequestHandler.
func NewRequestHandler(
	requests service.RequestServiceInterface,
	scheduling service.SchedulingServiceInterface,
	lifecycle service.LifecycleServiceInterface,
) *RequestHandler {
	return &RequestHandler{
		requests:   requests,
		scheduling: scheduling,
		lifecycle:  lifecycle,
	}
}

// SubmitRequestBody is the HTTP request body for submitting a ride request.
type SubmitRequestBody struct {
	RequesterID              string    `json:"requester_id"`
	Origin                   string    `json:"origin"`
	Destination              string    `json:"destination"`
	RequestedAt              time.Time `json:"requested_at"`
	PassengerCount           int       `json:"passenger_count"`
	Priority                 string    `json:"priority,omitempty"` // low, medium, high, urgent
	FlexibilityMinutes       int       `json:"flexibility_minutes"`
	EstimatedDurationMinutes int       `json:"estimated_duration_minutes,omitempty"`
	Purpose                  string    `json:"purpose,omitempty"`
}

// ManualApprovalBody is the HTTP request body for an operator-chosen assignment.
type ManualApprovalBody struct {
	VehicleID string    `json:"vehicle_id"`
	DriverID  string    `json:"driver_id"`
	DepartsAt time.Time `json:"departs_at"`
	ArrivesAt time.Time `json:"arrives_at"`
	Notes     string    `json:"notes,omitempty"`
}

// RejectBody is the HTTP request body for rejecting a request.
type RejectBody struct {
	Reason string `json:"reason"`
}

// RequestResponse is the HTTP response for a ride request.
type RequestResponse struct {
	ID                       string `json:"id"`
	RequesterID              string `json:"requester_id"`
	Origin                   string `json:"origin"`
	Destination              string `json:"destination"`
	RequestedAt              string `json:"requested_at"`
	PassengerCount           int    `json:"passenger_count"`
	Priority                 string `json:"priority"`
	FlexibilityMinutes       int    `json:"flexibility_minutes"`
	EstimatedDurationMinutes int    `json:"estimated_duration_minutes,omitempty"`
	Purpose                  string `json:"purpose,omitempty"`
	Status                   string `json:"status"`
	RejectionReason          string `json:"rejection_reason,omitempty"`
}

// AssignmentResponse is the HTTP response for an assignment.
type AssignmentResponse struct {
	ID        string `json:"id"`
	VehicleID string `json:"vehicle_id"`
	DriverID  string `json:"driver_id"`
	DepartsAt string `json:"departs_at"`
	ArrivesAt string `json:"arrives_at"`
	Status    string `json:"status"`
	Notes     string `json:"notes,omitempty"`
}

// SlotResponse is a candidate departure slot.
type SlotResponse struct {
	DepartsAt     string   `json:"departs_at"`
	ArrivesAt     string   `json:"arrives_at"`
	Score         float64  `json:"score"`
	OffsetMinutes int      `json:"offset_minutes"`
	Factors       []string `json:"factors,omitempty"`
}

// ApprovalResponse is the HTTP response for an approval.
type ApprovalResponse struct {
	Request               RequestResponse    `json:"request"`
	Assignment            AssignmentResponse `json:"assignment"`
	Score                 float64            `json:"score,omitempty"`
	Confidence            float64            `json:"confidence,omitempty"`
	TimeAdjustmentMinutes int                `json:"time_adjustment_minutes"`
	Widened               bool               `json:"widened"`
	Factors               []string           `json:"factors,omitempty"`
	Alternatives          []SlotResponse     `json:"alternatives,omitempty"`
}

// TransitionResponse is the HTTP response for a lifecycle transition.
type TransitionResponse struct {
	Request    RequestResponse     `json:"request"`
	Assignment *AssignmentResponse `json:"assignment,omitempty"`
}

// Submit handles POST /v1/requests
func (h *RequestHandler) Submit(c *gin.Context) {
	var body SubmitRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	var priority domain.Priority
	if body.Priority != "" {
		p, err := domain.ParsePriority(body.Priority)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		priority = p
	}

	req, err := h.requests.Submit(c.Request.Context(), service.SubmitRequest{
		RequesterID:              body.RequesterID,
		Origin:                   body.Origin,
		Destination:              body.Destination,
		RequestedAt:              body.RequestedAt,
		PassengerCount:           body.PassengerCount,
		Priority:                 priority,
		FlexibilityMinutes:       body.FlexibilityMinutes,
		EstimatedDurationMinutes: body.EstimatedDurationMinutes,
		Purpose:                  body.Purpose,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, requestResponse(req))
}

// Get handles GET /v1/requests/:id
func (h *RequestHandler) Get(c *gin.Context) {
	details, err := h.requests.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, transitionResponse(details.Request, details.Assignment))
}

// Approve handles POST /v1/requests/:id/approve
func (h *RequestHandler) Approve(c *gin.Context) {
	result, err := h.scheduling.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, approvalResponse(result))
}

// ApproveManual handles POST /v1/requests/:id/assign
func (h *RequestHandler) ApproveManual(c *gin.Context) {
	var body ManualApprovalBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.scheduling.ApproveManual(c.Request.Context(), service.ManualApproval{
		RequestID: c.Param("id"),
		VehicleID: body.VehicleID,
		DriverID:  body.DriverID,
		DepartsAt: body.DepartsAt,
		ArrivesAt: body.ArrivesAt,
		Notes:     body.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, approvalResponse(result))
}

// Reject handles POST /v1/requests/:id/reject
func (h *RequestHandler) Reject(c *gin.Context) {
	var body RejectBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	result, err := h.lifecycle.Reject(c.Request.Context(), c.Param("id"), body.Reason)
	h.respondTransition(c, result, err)
}

// Start handles POST /v1/requests/:id/start
func (h *RequestHandler) Start(c *gin.Context) {
	result, err := h.lifecycle.Start(c.Request.Context(), c.Param("id"))
	h.respondTransition(c, result, err)
}

// Complete handles POST /v1/requests/:id/complete
func (h *RequestHandler) Complete(c *gin.Context) {
	result, err := h.lifecycle.Complete(c.Request.Context(), c.Param("id"))
	h.respondTransition(c, result, err)
}

// Cancel handles POST /v1/requests/:id/cancel
func (h *RequestHandler) Cancel(c *gin.Context) {
	result, err := h.lifecycle.Cancel(c.Request.Context(), c.Param("id"))
	h.respondTransition(c, result, err)
}

func (h *RequestHandler) respondTransition(c *gin.Context, result *service.TransitionResult, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, transitionResponse(result.Request, result.Assignment))
}

func transitionResponse(req *domain.Request, asg *domain.Assignment) TransitionResponse {
	resp := TransitionResponse{Request: requestResponse(req)}
	if asg != nil {
		a := assignmentResponse(*asg)
		resp.Assignment = &a
	}
	return resp
}

func requestResponse(req *domain.Request) RequestResponse {
	return RequestResponse{
		ID:                       req.ID,
		RequesterID:              req.RequesterID,
		Origin:                   req.Origin,
		Destination:              req.Destination,
		RequestedAt:              formatTime(req.RequestedAt),
		PassengerCount:           req.PassengerCount,
		Priority:                 req.Priority.String(),
		FlexibilityMinutes:       req.FlexibilityMinutes,
		EstimatedDurationMinutes: req.EstimatedDurationMinutes,
		Purpose:                  req.Purpose,
		Status:                   string(req.Status),
		RejectionReason:          req.RejectionReason,
	}
}

func assignmentResponse(a domain.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:        a.ID,
		VehicleID: a.VehicleID,
		DriverID:  a.DriverID,
		DepartsAt: formatTime(a.Interval.Start),
		ArrivesAt: formatTime(a.Interval.End),
		Status:    string(a.Status),
		Notes:     a.Notes,
	}
}

func approvalResponse(result *service.ApprovalResult) ApprovalResponse {
	resp := ApprovalResponse{
		Request:    requestResponse(result.Request),
		Assignment: assignmentResponse(result.Assignment),
	}
	if res := result.Resolution; res != nil {
		resp.Score = res.Score
		resp.Confidence = res.Confidence
		resp.TimeAdjustmentMinutes = res.TimeAdjustmentMinutes
		resp.Widened = res.Widened
		resp.Factors = res.Factors
		resp.Alternatives = slotResponses(res.Alternatives)
	}
	return resp
}

func slotResponses(slots []scheduling.TimeSlot) []SlotResponse {
	if len(slots) == 0 {
		return nil
	}
	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotResponse{
			DepartsAt:     formatTime(s.Interval.Start),
			ArrivesAt:     formatTime(s.Interval.End),
			Score:         s.Score,
			OffsetMinutes: s.OffsetMinutes,
			Factors:       s.Factors,
		})
	}
	return out
}

func formatTime(t time.Time) string {
	return t.Format(timeLayout)
}
