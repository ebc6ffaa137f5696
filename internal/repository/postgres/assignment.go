package postgres

import (
	"context"
	"database/sql"
	"time"

	"smartmove/internal/domain"
)

// AssignmentRepository is a PostgreSQL implementation of repository.AssignmentRepository.
type AssignmentRepository struct {
	q Querier
}

// NewAssignmentRepository creates a new PostgreSQL assignment repository.
func NewAssignmentRepository(db *sql.DB) *AssignmentRepository {
	return &AssignmentRepository{q: db}
}

// NewAssignmentRepositoryWithTx creates an assignment repository using a transaction.
func NewAssignmentRepositoryWithTx(tx *sql.Tx) *AssignmentRepository {
	return &AssignmentRepository{q: tx}
}

const assignmentColumns = `id, request_id, vehicle_id, driver_id, departs_at, arrives_at, status, notes, created_at`

func scanAssignment(row rowScanner) (domain.Assignment, error) {
	var a domain.Assignment
	err := row.Scan(
		&a.ID,
		&a.RequestID,
		&a.VehicleID,
		&a.DriverID,
		&a.Interval.Start,
		&a.Interval.End,
		&a.Status,
		&a.Notes,
		&a.CreatedAt,
	)
	return a, err
}

// Create persists a new assignment. Overlaps with active assignments are
// reported as repository.ErrAssignmentOverlap.
func (r *AssignmentRepository) Create(ctx context.Context, a *domain.Assignment) error {
	query := `
		INSERT INTO assignments (` + assignmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.q.ExecContext(ctx, query,
		a.ID,
		a.RequestID,
		a.VehicleID,
		a.DriverID,
		a.Interval.Start,
		a.Interval.End,
		a.Status,
		a.Notes,
		a.CreatedAt,
	)
	return mapError(err)
}

// GetByRequestID retrieves the most recent assignment of a request.
func (r *AssignmentRepository) GetByRequestID(ctx context.Context, requestID string) (*domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE request_id = $1 ORDER BY created_at DESC LIMIT 1`
	a, err := scanAssignment(r.q.QueryRowContext(ctx, query, requestID))
	if err != nil {
		return nil, mapError(err)
	}
	return &a, nil
}

// ListActive retrieves active assignments overlapping [from, to).
func (r *AssignmentRepository) ListActive(ctx context.Context, from, to time.Time) ([]domain.Assignment, error) {
	query := `
		SELECT ` + assignmentColumns + ` FROM assignments
		WHERE status IN ('assigned', 'in_progress') AND departs_at < $2 AND arrives_at > $1
		ORDER BY departs_at, id
	`
	rows, err := r.q.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateStatus changes the status of an assignment.
func (r *AssignmentRepository) UpdateStatus(ctx context.Context, id string, status domain.AssignmentStatus) error {
	query := `UPDATE assignments SET status = $1 WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, status, id)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(result)
}
