package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"smartmove/internal/repository"
)

// Querier is an interface satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Ensure interfaces are satisfied.
var (
	_ Querier              = (*sql.DB)(nil)
	_ Querier              = (*sql.Tx)(nil)
	_ repository.TxManager = (*Store)(nil)
)

// exclusionViolation is the SQLSTATE raised by an EXCLUDE constraint.
const exclusionViolation = "23P01"

// Store hands out repositories bound either to the pool or to a transaction.
type Store struct {
	db *sql.DB
}

// NewStore creates a new Store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Repositories returns repositories bound to the connection pool.
func (s *Store) Repositories() repository.Repositories {
	return repositoriesFor(s.db)
}

// WithinTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (s *Store) WithinTx(ctx context.Context, fn func(repository.Repositories) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(repositoriesFor(tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return mapError(err)
	}
	return nil
}

func repositoriesFor(q Querier) repository.Repositories {
	return repository.Repositories{
		Requests:    &RequestRepository{q: q},
		Assignments: &AssignmentRepository{q: q},
		Vehicles:    &VehicleRepository{q: q},
		Drivers:     &DriverRepository{q: q},
	}
}

// mapError translates driver errors into repository errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == exclusionViolation {
		return fmt.Errorf("%w (%s)", repository.ErrAssignmentOverlap, pqErr.Constraint)
	}
	return err
}

// expectOneRow turns a zero-row update into ErrNotFound.
func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
