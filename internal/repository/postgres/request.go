package postgres

import (
	"context"
	"database/sql"

	"smartmove/internal/domain"
)

// RequestRepository is a PostgreSQL implementation of repository.RequestRepository.
type RequestRepository struct {
	q Querier
}

// NewRequestRepository creates a new PostgreSQL request repository.
func NewRequestRepository(db *sql.DB) *RequestRepository {
	return &RequestRepository{q: db}
}

// NewRequestRepositoryWithTx creates a request repository using a transaction.
func NewRequestRepositoryWithTx(tx *sql.Tx) *RequestRepository {
	return &RequestRepository{q: tx}
}

const requestColumns = `id, requester_id, origin, destination, requested_at, passenger_count, priority,
	flexibility_minutes, estimated_duration_minutes, purpose, status, rejection_reason, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (domain.Request, error) {
	var req domain.Request
	var priority int
	err := row.Scan(
		&req.ID,
		&req.RequesterID,
		&req.Origin,
		&req.Destination,
		&req.RequestedAt,
		&req.PassengerCount,
		&priority,
		&req.FlexibilityMinutes,
		&req.EstimatedDurationMinutes,
		&req.Purpose,
		&req.Status,
		&req.RejectionReason,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	req.Priority = domain.Priority(priority)
	return req, err
}

// Create persists a new request.
func (r *RequestRepository) Create(ctx context.Context, req *domain.Request) error {
	query := `
		INSERT INTO requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.q.ExecContext(ctx, query,
		req.ID,
		req.RequesterID,
		req.Origin,
		req.Destination,
		req.RequestedAt,
		req.PassengerCount,
		int(req.Priority),
		req.FlexibilityMinutes,
		req.EstimatedDurationMinutes,
		req.Purpose,
		req.Status,
		req.RejectionReason,
		req.CreatedAt,
		req.UpdatedAt,
	)
	return err
}

// GetByID retrieves a request by ID.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`
	req, err := scanRequest(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return &req, nil
}

// ListByStatus retrieves requests in a status, earliest departure first.
func (r *RequestRepository) ListByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE status = $1 ORDER BY requested_at, id`
	rows, err := r.q.QueryContext(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []domain.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

// UpdateStatus stores a new status and rejection reason.
func (r *RequestRepository) UpdateStatus(ctx context.Context, id string, status domain.RequestStatus, reason string) error {
	query := `UPDATE requests SET status = $1, rejection_reason = $2, updated_at = NOW() WHERE id = $3`

	result, err := r.q.ExecContext(ctx, query, status, reason, id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}
