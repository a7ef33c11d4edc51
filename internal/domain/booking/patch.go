package booking

import (
	"github.com/aerolot/service-parking/internal/domain"
)

// Patch is the explicit set of mutations permitted on an existing booking.
// Anything not represented here (dates, the pricing snapshot, the payment
// record, the lifecycle status) is immutable through the update path and
// changes only via dedicated lifecycle operations.
type Patch struct {
	Vehicle *Vehicle `json:"vehicle,omitempty"`
	Notes   *string  `json:"notes,omitempty"`
}

// Validate checks that the patch mutates at least one field and that field
// values are acceptable.
func (p Patch) Validate() error {
	if p.Vehicle == nil && p.Notes == nil {
		return domain.NewValidationError("patch must change at least one field")
	}
	if p.Vehicle != nil && p.Vehicle.LicensePlate == "" {
		return domain.NewValidationError("vehicle license plate is required")
	}
	return nil
}
