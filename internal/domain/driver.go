package domain

// Driver is a fleet driver.
//
// Available is a denormalized presentation flag. Whether a driver is actually
// free at a given time is always derived from the active assignments.
type Driver struct {
	ID        string
	Name      string
	Phone     string
	Active    bool
	Available bool
}
