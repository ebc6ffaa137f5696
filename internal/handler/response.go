package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"smartmove/internal/repository"
	"smartmove/internal/scheduling"
	"smartmove/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error    string          `json:"error"`
	Conflict *ConflictDetail `json:"conflict,omitempty"`
}

// ConflictDetail describes the assignment that blocked a request.
type ConflictDetail struct {
	AssignmentID string         `json:"assignment_id"`
	Resource     string         `json:"resource"`
	VehicleID    string         `json:"vehicle_id"`
	DriverID     string         `json:"driver_id"`
	DepartsAt    string         `json:"departs_at"`
	ArrivesAt    string         `json:"arrives_at"`
	Alternatives []SlotResponse `json:"alternatives,omitempty"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	resp := ErrorResponse{Error: err.Error()}
	if report := conflictReport(err); report != nil {
		resp.Conflict = &ConflictDetail{
			AssignmentID: report.AssignmentID,
			Resource:     string(report.Resource),
			VehicleID:    report.VehicleID,
			DriverID:     report.DriverID,
			DepartsAt:    formatTime(report.Interval.Start),
			ArrivesAt:    formatTime(report.Interval.End),
			Alternatives: slotResponses(report.Alternatives),
		}
	}
	if code >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(code, resp)
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

func conflictReport(err error) *scheduling.ConflictReport {
	var conflict *scheduling.ConflictError
	if errors.As(err, &conflict) {
		return &conflict.Report
	}
	var infeasible *scheduling.InfeasibleError
	if errors.As(err, &infeasible) {
		return infeasible.Report
	}
	return nil
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, scheduling.ErrValidation),
		errors.Is(err, service.ErrInvalidRequestID),
		errors.Is(err, service.ErrInvalidVehicleID),
		errors.Is(err, service.ErrInvalidDriverID):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, scheduling.ErrConflict),
		errors.Is(err, scheduling.ErrInvalidStateTransition),
		errors.Is(err, repository.ErrAssignmentOverlap):
		return http.StatusConflict

	// Business rule errors
	case errors.Is(err, scheduling.ErrInfeasible),
		errors.Is(err, service.ErrVehicleUnsuitable),
		errors.Is(err, service.ErrDriverInactive):
		return http.StatusUnprocessableEntity

	// Another approval holds the lock; the client may retry.
	case errors.Is(err, service.ErrResourceBusy):
		return http.StatusLocked

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
