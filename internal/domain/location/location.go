package location

import (
	"time"

	"github.com/aerolot/service-parking/internal/domain"
	"github.com/google/uuid"
)

// Airport identifies the airport a parking location serves.
type Airport struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Address is the street address of a parking location.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

// Coordinates is the geographic position of a parking location.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Rates holds the published rates for a location. Daily is required; weekly
// and monthly are optional marketing rates.
type Rates struct {
	Daily   float64 `json:"daily"`
	Weekly  float64 `json:"weekly,omitempty"`
	Monthly float64 `json:"monthly,omitempty"`
}

// OperatingHours is the advertised open/close window of the lot.
type OperatingHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// Location is the aggregate root for a parking location. Its capacity fields
// are mutated only through the capacity ledger's atomic storage operations,
// never through plain saves.
type Location struct {
	id             uuid.UUID
	name           string
	airport        Airport
	address        Address
	coordinates    Coordinates
	rates          Rates
	features       []string
	capacityTotal  int
	available      int
	operatingHours OperatingHours
	isActive       bool
	version        int64
	createdAt      time.Time
	updatedAt      time.Time
}

// NewLocation creates a new active location with all spots available.
func NewLocation(
	name string,
	airport Airport,
	address Address,
	coordinates Coordinates,
	rates Rates,
	features []string,
	capacityTotal int,
	operatingHours OperatingHours,
) (*Location, error) {
	if name == "" {
		return nil, domain.NewValidationError("location name is required")
	}
	if airport.Code == "" {
		return nil, domain.NewValidationError("airport code is required")
	}
	if rates.Daily <= 0 {
		return nil, domain.NewValidationError("daily rate must be positive")
	}
	if capacityTotal < 0 {
		return nil, domain.NewValidationError("total capacity cannot be negative")
	}

	now := time.Now().UTC()
	return &Location{
		id:             uuid.New(),
		name:           name,
		airport:        airport,
		address:        address,
		coordinates:    coordinates,
		rates:          rates,
		features:       features,
		capacityTotal:  capacityTotal,
		available:      capacityTotal,
		operatingHours: operatingHours,
		isActive:       true,
		version:        1,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// Reconstruct rebuilds a Location from persistence data (no validation).
func Reconstruct(
	id uuid.UUID,
	name string,
	airport Airport,
	address Address,
	coordinates Coordinates,
	rates Rates,
	features []string,
	capacityTotal, available int,
	operatingHours OperatingHours,
	isActive bool,
	version int64,
	createdAt, updatedAt time.Time,
) *Location {
	return &Location{
		id:             id,
		name:           name,
		airport:        airport,
		address:        address,
		coordinates:    coordinates,
		rates:          rates,
		features:       features,
		capacityTotal:  capacityTotal,
		available:      available,
		operatingHours: operatingHours,
		isActive:       isActive,
		version:        version,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

// --- Getters ---

func (l *Location) ID() uuid.UUID                  { return l.id }
func (l *Location) Name() string                   { return l.name }
func (l *Location) Airport() Airport               { return l.airport }
func (l *Location) Address() Address               { return l.address }
func (l *Location) Coordinates() Coordinates       { return l.coordinates }
func (l *Location) Rates() Rates                   { return l.rates }
func (l *Location) Features() []string             { return l.features }
func (l *Location) CapacityTotal() int             { return l.capacityTotal }
func (l *Location) Available() int                 { return l.available }
func (l *Location) OperatingHours() OperatingHours { return l.operatingHours }
func (l *Location) IsActive() bool                 { return l.isActive }
func (l *Location) Version() int64                 { return l.version }
func (l *Location) CreatedAt() time.Time           { return l.createdAt }
func (l *Location) UpdatedAt() time.Time           { return l.updatedAt }

// HasAvailability returns true if at least one spot is free.
func (l *Location) HasAvailability() bool {
	return l.available > 0
}

// Deactivate takes the location off the market. Existing bookings are not
// affected.
func (l *Location) Deactivate() {
	l.isActive = false
	l.updatedAt = time.Now().UTC()
}

// Reactivate puts the location back on the market.
func (l *Location) Reactivate() {
	l.isActive = true
	l.updatedAt = time.Now().UTC()
}

// IncrementVersion bumps the version for optimistic locking.
func (l *Location) IncrementVersion() {
	l.version++
	l.updatedAt = time.Now().UTC()
}
