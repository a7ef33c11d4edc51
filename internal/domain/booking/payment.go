package booking

import "time"

// PaymentStatus represents the state of the payment attached to a booking.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// IsValid returns true if the payment status is recognized.
func (p PaymentStatus) IsValid() bool {
	switch p {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// PaymentRecord tracks the external payment attached to a booking. The
// gateway interaction itself lives outside this service; only the reference
// and outcome are recorded here.
type PaymentRecord struct {
	Method     string        `json:"method"`
	GatewayRef string        `json:"gateway_ref"`
	Status     PaymentStatus `json:"status"`
	PaidAt     *time.Time    `json:"paid_at,omitempty"`
}
