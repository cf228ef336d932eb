package models

type VehicleStatus string

const (
	VehicleAvailable   VehicleStatus = "available"
	VehicleReserved    VehicleStatus = "reserved"
	VehicleRented      VehicleStatus = "rented"
	VehicleMaintenance VehicleStatus = "maintenance"
)

type Vehicle struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Make      string        `json:"make"`
	Model     string        `json:"model"`
	Year      int           `json:"year"`
	DailyRate int64         `json:"dailyRate"`
	Status    VehicleStatus `json:"status"`
}

// Bookable reports whether the vehicle can take new bookings. Date
// conflicts are checked separately against existing bookings.
func (v Vehicle) Bookable() bool {
	return v.Status != VehicleMaintenance
}
