package location

import (
	"context"

	"github.com/google/uuid"
)

// LocationRepository defines the persistence contract for locations,
// including the atomic capacity primitives the ledger depends on.
type LocationRepository interface {
	// FindByID retrieves a location by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Location, error)

	// ListActive retrieves active locations, optionally filtered by airport
	// code (empty string means no filter).
	ListActive(ctx context.Context, airportCode string) ([]*Location, error)

	// ConditionalDecrementAvailable atomically decrements the available count
	// by one, guarded by available > 0 in a single storage statement. It
	// returns the updated available count, a capacity-exhausted error when no
	// spot was free, or not-found when the location does not exist.
	ConditionalDecrementAvailable(ctx context.Context, id uuid.UUID) (int, error)

	// IncrementAvailable atomically increments the available count by one,
	// guarded by available < total. When the increment would exceed the
	// total it is skipped and clamped=true is returned with the current
	// available count; the caller decides how loudly to complain.
	IncrementAvailable(ctx context.Context, id uuid.UUID) (available int, clamped bool, err error)

	// Save persists a new location.
	Save(ctx context.Context, loc *Location) error

	// Update persists changes to an existing location with optimistic locking.
	// Capacity fields are not written here; they move only through the
	// conditional primitives above.
	Update(ctx context.Context, loc *Location) error
}
