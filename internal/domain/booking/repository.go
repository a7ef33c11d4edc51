package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RevenueSummary aggregates revenue over bookings with completed payments.
type RevenueSummary struct {
	Total      float64 `json:"total"`
	Count      int64   `json:"count"`
	AvgBooking float64 `json:"avg_booking"`
}

// BookingRepository defines the persistence contract for booking aggregates.
type BookingRepository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByIDAndUser retrieves a booking scoped to its owning user. A
	// booking owned by someone else reports not-found, identical to a
	// missing booking.
	FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*Booking, error)

	// FindByUserID retrieves bookings belonging to a user with pagination.
	FindByUserID(ctx context.Context, userID uuid.UUID, page, limit int) ([]*Booking, int64, error)

	// ListAll retrieves all bookings with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]*Booking, int64, error)

	// CountByStatus returns booking counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// RevenueBetween aggregates revenue over completed payments, optionally
	// bounded to a creation-time window (admin).
	RevenueBetween(ctx context.Context, from, to *time.Time) (RevenueSummary, error)

	// Save persists a new booking.
	Save(ctx context.Context, booking *Booking) error

	// Update persists changes to an existing booking with optimistic locking.
	Update(ctx context.Context, booking *Booking) error
}
