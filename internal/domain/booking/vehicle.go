package booking

// Vehicle is an immutable value object describing the parked vehicle.
// Only the license plate is mandatory; the rest helps the lot staff find the
// car.
type Vehicle struct {
	Make         string `json:"make"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
	Color        string `json:"color"`
	LicensePlate string `json:"license_plate"`
}
