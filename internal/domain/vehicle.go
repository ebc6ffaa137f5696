package domain

// FuelType is the propulsion of a fleet vehicle.
type FuelType string

const (
	FuelPetrol   FuelType = "petrol"
	FuelDiesel   FuelType = "diesel"
	FuelHybrid   FuelType = "hybrid"
	FuelElectric FuelType = "electric"
)

// Vehicle is a fleet vehicle. The scheduler only reads capacity, type and fuel.
type Vehicle struct {
	ID       string
	Plate    string
	Capacity int
	Type     string
	FuelType FuelType
	Active   bool
}
