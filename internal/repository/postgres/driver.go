package postgres

import (
	"context"
	"database/sql"

	"smartmove/internal/domain"
)

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// NewDriverRepositoryWithTx creates a driver repository using a transaction.
func NewDriverRepositoryWithTx(tx *sql.Tx) *DriverRepository {
	return &DriverRepository{q: tx}
}

// Create adds a new driver.
func (r *DriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	query := `INSERT INTO drivers (id, name, phone, active, available) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.q.ExecContext(ctx, query, driver.ID, driver.Name, driver.Phone, driver.Active, driver.Available)
	return err
}

// GetByID retrieves a driver by ID.
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	query := `SELECT id, name, phone, active, available FROM drivers WHERE id = $1`

	var driver domain.Driver
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&driver.ID,
		&driver.Name,
		&driver.Phone,
		&driver.Active,
		&driver.Available,
	)
	if err != nil {
		return nil, mapError(err)
	}

	return &driver, nil
}

// ListActive retrieves every active driver ordered by id.
func (r *DriverRepository) ListActive(ctx context.Context) ([]domain.Driver, error) {
	query := `SELECT id, name, phone, active, available FROM drivers WHERE active ORDER BY id`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []domain.Driver
	for rows.Next() {
		var driver domain.Driver
		if err := rows.Scan(&driver.ID, &driver.Name, &driver.Phone, &driver.Active, &driver.Available); err != nil {
			return nil, err
		}
		drivers = append(drivers, driver)
	}
	return drivers, rows.Err()
}

// UpdateAvailability sets the availability flag of a driver.
func (r *DriverRepository) UpdateAvailability(ctx context.Context, id string, available bool) error {
	query := `UPDATE drivers SET available = $1 WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, available, id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}
