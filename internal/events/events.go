package events

import (
	"time"

	"github.com/google/uuid"
)

// Topics.
const (
	TopicBookingEvents = "booking.events"
	TopicPaymentEvents = "payment.events"
)

// Event types carried in the CloudEvent envelope.
const (
	BookingCreated   = "booking.created"
	BookingConfirmed = "booking.confirmed"
	BookingCancelled = "booking.cancelled"
	BookingCompleted = "booking.completed"

	PaymentCompleted = "payment.completed"
	PaymentFailed    = "payment.failed"
)

// BookingCreatedEvent is published when a new booking is persisted.
type BookingCreatedEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	UserID        uuid.UUID `json:"user_id"`
	LocationID    uuid.UUID `json:"location_id"`
	CheckIn       time.Time `json:"check_in"`
	CheckOut      time.Time `json:"check_out"`
	Total         float64   `json:"total"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// BookingConfirmedEvent is published after a payment-completed event moves a
// booking to confirmed.
type BookingConfirmedEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	UserID        uuid.UUID `json:"user_id"`
	GatewayRef    string    `json:"gateway_ref"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// BookingCancelledEvent is published when a booking is cancelled.
type BookingCancelledEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	UserID        uuid.UUID `json:"user_id"`
	LocationID    uuid.UUID `json:"location_id"`
	Reason        string    `json:"reason"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// BookingCompletedEvent is published when a stay ends and the spot is released.
type BookingCompletedEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	UserID        uuid.UUID `json:"user_id"`
	LocationID    uuid.UUID `json:"location_id"`
	Total         float64   `json:"total"`
	LoyaltyPoints int       `json:"loyalty_points"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// PaymentCompletedEvent is consumed from the payment gateway service.
type PaymentCompletedEvent struct {
	BookingID  uuid.UUID `json:"booking_id"`
	PaymentID  uuid.UUID `json:"payment_id"`
	GatewayRef string    `json:"gateway_ref"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PaymentFailedEvent is consumed from the payment gateway service.
type PaymentFailedEvent struct {
	BookingID  uuid.UUID `json:"booking_id"`
	PaymentID  uuid.UUID `json:"payment_id"`
	GatewayRef string    `json:"gateway_ref"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}
