package service

import "errors"

var (
	// ErrResourceBusy is returned when another approval holds the lock on the
	// request, vehicle or driver. It is retryable.
	ErrResourceBusy = errors.New("resource busy")

	// ErrInvalidRequestID is returned when request ID is empty.
	ErrInvalidRequestID = errors.New("invalid request id")

	// ErrInvalidVehicleID is returned when vehicle ID is empty.
	ErrInvalidVehicleID = errors.New("invalid vehicle id")

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrVehicleUnsuitable is returned when a manually chosen vehicle is
	// inactive or too small.
	ErrVehicleUnsuitable = errors.New("vehicle unsuitable for request")

	// ErrDriverInactive is returned when a manually chosen driver is inactive.
	ErrDriverInactive = errors.New("driver inactive")
)
