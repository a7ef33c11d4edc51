package booking

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/aerolot/service-parking/internal/domain"
	"github.com/google/uuid"
)

const bookingNumberChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Booking is the aggregate root for the booking domain. It is append-only:
// a booking is never deleted, only transitioned to a terminal status.
type Booking struct {
	id            uuid.UUID
	bookingNumber string
	userID        uuid.UUID
	locationID    uuid.UUID
	status        BookingStatus
	vehicle       Vehicle
	checkIn       time.Time
	checkOut      time.Time
	pricing       PricingBreakdown
	payment       PaymentRecord

	notes              string
	cancellationReason string
	cancelledAt        *time.Time
	activatedAt        *time.Time
	completedAt        *time.Time

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// generateBookingNumber creates a booking number in the format "PK-XXXXXX".
func generateBookingNumber() (string, error) {
	result := make([]byte, 6)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(bookingNumberChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate booking number: %w", err)
		}
		result[i] = bookingNumberChars[n.Int64()]
	}
	return "PK-" + string(result), nil
}

// NewBooking creates a new Booking aggregate with status=pending. The pricing
// breakdown is frozen here and never recomputed.
func NewBooking(
	userID uuid.UUID,
	locationID uuid.UUID,
	vehicle Vehicle,
	checkIn, checkOut time.Time,
	pricing PricingBreakdown,
	paymentMethod string,
	notes string,
) (*Booking, error) {
	if userID == uuid.Nil {
		return nil, domain.NewValidationError("user ID is required")
	}
	if locationID == uuid.Nil {
		return nil, domain.NewValidationError("location ID is required")
	}
	if vehicle.LicensePlate == "" {
		return nil, domain.NewValidationError("vehicle license plate is required")
	}
	if !checkOut.After(checkIn) {
		return nil, domain.NewInvalidRangeError("check-out must be after check-in")
	}

	bookingNumber, err := generateBookingNumber()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Booking{
		id:            uuid.New(),
		bookingNumber: bookingNumber,
		userID:        userID,
		locationID:    locationID,
		status:        StatusPending,
		vehicle:       vehicle,
		checkIn:       checkIn,
		checkOut:      checkOut,
		pricing:       pricing,
		payment: PaymentRecord{
			Method: paymentMethod,
			Status: PaymentPending,
		},
		notes:     notes,
		version:   1,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(
	id uuid.UUID,
	bookingNumber string,
	userID uuid.UUID,
	locationID uuid.UUID,
	status BookingStatus,
	vehicle Vehicle,
	checkIn, checkOut time.Time,
	pricing PricingBreakdown,
	payment PaymentRecord,
	notes string,
	cancellationReason string,
	cancelledAt *time.Time,
	activatedAt *time.Time,
	completedAt *time.Time,
	version int64,
	createdAt, updatedAt time.Time,
) *Booking {
	return &Booking{
		id:                 id,
		bookingNumber:      bookingNumber,
		userID:             userID,
		locationID:         locationID,
		status:             status,
		vehicle:            vehicle,
		checkIn:            checkIn,
		checkOut:           checkOut,
		pricing:            pricing,
		payment:            payment,
		notes:              notes,
		cancellationReason: cancellationReason,
		cancelledAt:        cancelledAt,
		activatedAt:        activatedAt,
		completedAt:        completedAt,
		version:            version,
		createdAt:          createdAt,
		updatedAt:          updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// BookingNumber returns the human-readable booking number.
func (b *Booking) BookingNumber() string { return b.bookingNumber }

// UserID returns the owning user's ID.
func (b *Booking) UserID() uuid.UUID { return b.userID }

// LocationID returns the parking location's ID.
func (b *Booking) LocationID() uuid.UUID { return b.locationID }

// Status returns the current booking status.
func (b *Booking) Status() BookingStatus { return b.status }

// Vehicle returns the vehicle descriptor.
func (b *Booking) Vehicle() Vehicle { return b.vehicle }

// CheckIn returns the start of the stay.
func (b *Booking) CheckIn() time.Time { return b.checkIn }

// CheckOut returns the end of the stay.
func (b *Booking) CheckOut() time.Time { return b.checkOut }

// Pricing returns the frozen pricing snapshot.
func (b *Booking) Pricing() PricingBreakdown { return b.pricing }

// Payment returns the payment record.
func (b *Booking) Payment() PaymentRecord { return b.payment }

// LoyaltyPointsEarned returns the loyalty points frozen at creation.
func (b *Booking) LoyaltyPointsEarned() int { return b.pricing.LoyaltyPointsEarned }

// Notes returns any additional notes for the booking.
func (b *Booking) Notes() string { return b.notes }

// CancellationReason returns the reason given on cancellation.
func (b *Booking) CancellationReason() string { return b.cancellationReason }

// CancelledAt returns the time the booking was cancelled.
func (b *Booking) CancelledAt() *time.Time { return b.cancelledAt }

// ActivatedAt returns the time the vehicle entered the lot.
func (b *Booking) ActivatedAt() *time.Time { return b.activatedAt }

// CompletedAt returns the time the vehicle left the lot.
func (b *Booking) CompletedAt() *time.Time { return b.completedAt }

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// --- Behavior ---

// Confirm transitions the booking from pending to confirmed after the
// payment gateway reports success.
func (b *Booking) Confirm(gatewayRef string) error {
	if !b.status.CanTransitionTo(StatusConfirmed) {
		return domain.NewInvalidStateError(string(b.status), string(StatusConfirmed))
	}
	now := time.Now().UTC()
	b.status = StatusConfirmed
	b.payment.Status = PaymentCompleted
	b.payment.GatewayRef = gatewayRef
	b.payment.PaidAt = &now
	b.updatedAt = now
	return nil
}

// Activate transitions the booking from confirmed to active when the vehicle
// checks in at the lot.
func (b *Booking) Activate() error {
	if !b.status.CanTransitionTo(StatusActive) {
		return domain.NewInvalidStateError(string(b.status), string(StatusActive))
	}
	now := time.Now().UTC()
	b.status = StatusActive
	b.activatedAt = &now
	b.updatedAt = now
	return nil
}

// Complete transitions the booking from active to completed when the vehicle
// leaves the lot. The caller is responsible for releasing the capacity spot.
func (b *Booking) Complete() error {
	if !b.status.CanTransitionTo(StatusCompleted) {
		return domain.NewInvalidStateError(string(b.status), string(StatusCompleted))
	}
	now := time.Now().UTC()
	b.status = StatusCompleted
	b.completedAt = &now
	b.updatedAt = now
	return nil
}

// Cancel transitions the booking to cancelled if it is not in a terminal
// state. A completed payment is marked refunded; the refund itself is the
// gateway's business.
func (b *Booking) Cancel(reason string) error {
	if !b.status.CanBeCancelled() {
		return domain.NewInvalidStateError(string(b.status), string(StatusCancelled))
	}
	now := time.Now().UTC()
	b.status = StatusCancelled
	b.cancellationReason = reason
	b.cancelledAt = &now
	if b.payment.Status == PaymentCompleted {
		b.payment.Status = PaymentRefunded
	}
	b.updatedAt = now
	return nil
}

// MarkPaymentFailed records a failed payment attempt without changing the
// lifecycle status. A payment that has already completed or been refunded is
// never downgraded; late or duplicate failure events are dropped.
func (b *Booking) MarkPaymentFailed(gatewayRef string) {
	if b.payment.Status == PaymentCompleted || b.payment.Status == PaymentRefunded {
		return
	}
	b.payment.Status = PaymentFailed
	b.payment.GatewayRef = gatewayRef
	b.updatedAt = time.Now().UTC()
}

// ApplyPatch applies an explicit, validated patch to the mutable fields of a
// booking. Dates and the pricing snapshot are immutable after creation.
func (b *Booking) ApplyPatch(patch Patch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	if b.status.IsTerminal() {
		return domain.NewInvalidStateError(string(b.status), string(b.status))
	}
	if patch.Vehicle != nil {
		b.vehicle = *patch.Vehicle
	}
	if patch.Notes != nil {
		b.notes = *patch.Notes
	}
	b.updatedAt = time.Now().UTC()
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
	b.updatedAt = time.Now().UTC()
}
