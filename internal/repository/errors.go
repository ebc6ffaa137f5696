package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrAssignmentOverlap is returned when storage rejects an assignment that
	// overlaps an active one on the same vehicle or driver.
	ErrAssignmentOverlap = errors.New("assignment overlaps an active assignment")
)
