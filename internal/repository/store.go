package repository

import "context"

// Repositories groups the repositories that share one connection or
// transaction.
type Repositories struct {
	Requests    RequestRepository
	Assignments AssignmentRepository
	Vehicles    VehicleRepository
	Drivers     DriverRepository
}

// TxManager runs a unit of work atomically. The repositories passed to fn are
// bound to the transaction; returning an error rolls it back.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(Repositories) error) error
}
