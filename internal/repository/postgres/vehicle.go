package postgres

import (
	"context"
	"database/sql"

	"smartmove/internal/domain"
)

// VehicleRepository is a PostgreSQL implementation of repository.VehicleRepository.
type VehicleRepository struct {
	q Querier
}

// NewVehicleRepository creates a new PostgreSQL vehicle repository.
func NewVehicleRepository(db *sql.DB) *VehicleRepository {
	return &VehicleRepository{q: db}
}

// NewVehicleRepositoryWithTx creates a vehicle repository using a transaction.
func NewVehicleRepositoryWithTx(tx *sql.Tx) *VehicleRepository {
	return &VehicleRepository{q: tx}
}

const vehicleColumns = `id, plate, capacity, vehicle_type, fuel_type, active`

// Create adds a new vehicle.
func (r *VehicleRepository) Create(ctx context.Context, v *domain.Vehicle) error {
	query := `INSERT INTO vehicles (` + vehicleColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	fuel := v.FuelType
	if fuel == "" {
		fuel = domain.FuelPetrol
	}
	_, err := r.q.ExecContext(ctx, query, v.ID, v.Plate, v.Capacity, v.Type, fuel, v.Active)
	return err
}

// GetByID retrieves a vehicle by ID.
func (r *VehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1`

	var v domain.Vehicle
	err := r.q.QueryRowContext(ctx, query, id).Scan(&v.ID, &v.Plate, &v.Capacity, &v.Type, &v.FuelType, &v.Active)
	if err != nil {
		return nil, mapError(err)
	}
	return &v, nil
}

// ListActive retrieves every active vehicle ordered by id.
func (r *VehicleRepository) ListActive(ctx context.Context) ([]domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE active ORDER BY id`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		var v domain.Vehicle
		if err := rows.Scan(&v.ID, &v.Plate, &v.Capacity, &v.Type, &v.FuelType, &v.Active); err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}
