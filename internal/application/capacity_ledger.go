package application

import (
	"context"

	locationDomain "github.com/aerolot/service-parking/internal/domain/location"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CapacityLedger tracks per-location spot counts through the repository's
// atomic conditional updates. It holds no state of its own: linearizability
// comes entirely from the guarded single-statement updates at the storage
// layer, so concurrent reservations against one remaining spot resolve to
// exactly one winner.
type CapacityLedger struct {
	locations locationDomain.LocationRepository
	logger    *zap.Logger
}

// NewCapacityLedger creates a CapacityLedger backed by the given repository.
func NewCapacityLedger(locations locationDomain.LocationRepository, logger *zap.Logger) *CapacityLedger {
	return &CapacityLedger{locations: locations, logger: logger}
}

// Reserve takes one spot at the location, returning the updated available
// count. It fails with a capacity-exhausted error when no spot is free and
// not-found when the location does not exist.
func (l *CapacityLedger) Reserve(ctx context.Context, locationID uuid.UUID) (int, error) {
	available, err := l.locations.ConditionalDecrementAvailable(ctx, locationID)
	if err != nil {
		return 0, err
	}

	l.logger.Debug("capacity reserved",
		zap.String("location_id", locationID.String()),
		zap.Int("available", available),
	)
	return available, nil
}

// Release returns one spot to the location. A release that would push
// available past total is treated as a no-op: release usually compensates an
// already-committed cancellation, so the caller must not fail. The
// inconsistency is logged loudly instead.
func (l *CapacityLedger) Release(ctx context.Context, locationID uuid.UUID) (int, error) {
	available, clamped, err := l.locations.IncrementAvailable(ctx, locationID)
	if err != nil {
		return 0, err
	}

	if clamped {
		l.logger.Warn("capacity release clamped: available already at total",
			zap.String("location_id", locationID.String()),
			zap.Int("available", available),
		)
		return available, nil
	}

	l.logger.Debug("capacity released",
		zap.String("location_id", locationID.String()),
		zap.Int("available", available),
	)
	return available, nil
}
