package application

import (
	"context"
	"strings"
	"time"

	locationDomain "github.com/aerolot/service-parking/internal/domain/location"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LocationDTO is the response representation of a parking location.
type LocationDTO struct {
	ID             uuid.UUID                     `json:"id"`
	Name           string                        `json:"name"`
	Airport        locationDomain.Airport        `json:"airport"`
	Address        locationDomain.Address        `json:"address"`
	Coordinates    locationDomain.Coordinates    `json:"coordinates"`
	Rates          locationDomain.Rates          `json:"rates"`
	Features       []string                      `json:"features"`
	CapacityTotal  int                           `json:"capacity_total"`
	Available      int                           `json:"available"`
	OperatingHours locationDomain.OperatingHours `json:"operating_hours"`
	IsActive       bool                          `json:"is_active"`
	CreatedAt      time.Time                     `json:"created_at"`
	UpdatedAt      time.Time                     `json:"updated_at"`
}

// AvailabilityDTO is the response of an availability check.
type AvailabilityDTO struct {
	Available     bool `json:"available"`
	CapacityTotal int  `json:"capacity_total"`
	Spots         int  `json:"spots"`
}

// CreateLocationRequest holds the data needed to register a new location.
type CreateLocationRequest struct {
	Name           string                        `json:"name" binding:"required"`
	Airport        locationDomain.Airport        `json:"airport" binding:"required"`
	Address        locationDomain.Address        `json:"address"`
	Coordinates    locationDomain.Coordinates    `json:"coordinates"`
	Rates          locationDomain.Rates          `json:"rates" binding:"required"`
	Features       []string                      `json:"features"`
	CapacityTotal  int                           `json:"capacity_total" binding:"required"`
	OperatingHours locationDomain.OperatingHours `json:"operating_hours"`
}

// LocationService serves the location catalog.
type LocationService struct {
	repo   locationDomain.LocationRepository
	logger *zap.Logger
}

// NewLocationService creates a new LocationService.
func NewLocationService(repo locationDomain.LocationRepository, logger *zap.Logger) *LocationService {
	return &LocationService{repo: repo, logger: logger}
}

// ListLocations returns active locations, optionally filtered by airport code.
func (s *LocationService) ListLocations(ctx context.Context, airportCode string) ([]LocationDTO, error) {
	locations, err := s.repo.ListActive(ctx, strings.ToUpper(airportCode))
	if err != nil {
		return nil, err
	}

	dtos := make([]LocationDTO, len(locations))
	for i, loc := range locations {
		dtos[i] = toLocationDTO(loc)
	}
	return dtos, nil
}

// GetLocation retrieves a single location by ID.
func (s *LocationService) GetLocation(ctx context.Context, id uuid.UUID) (*LocationDTO, error) {
	loc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toLocationDTO(loc)
	return &dto, nil
}

// CheckAvailability reports whether the location currently has a free spot.
func (s *LocationService) CheckAvailability(ctx context.Context, id uuid.UUID) (*AvailabilityDTO, error) {
	loc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &AvailabilityDTO{
		Available:     loc.HasAvailability(),
		CapacityTotal: loc.CapacityTotal(),
		Spots:         loc.Available(),
	}, nil
}

// CreateLocation registers a new location (admin).
func (s *LocationService) CreateLocation(ctx context.Context, req CreateLocationRequest) (*LocationDTO, error) {
	loc, err := locationDomain.NewLocation(
		req.Name,
		req.Airport,
		req.Address,
		req.Coordinates,
		req.Rates,
		req.Features,
		req.CapacityTotal,
		req.OperatingHours,
	)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, loc); err != nil {
		return nil, err
	}

	s.logger.Info("location created",
		zap.String("location_id", loc.ID().String()),
		zap.String("airport", loc.Airport().Code),
	)

	dto := toLocationDTO(loc)
	return &dto, nil
}

// SetLocationActive activates or deactivates a location (admin).
func (s *LocationService) SetLocationActive(ctx context.Context, id uuid.UUID, active bool) (*LocationDTO, error) {
	loc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if active {
		loc.Reactivate()
	} else {
		loc.Deactivate()
	}

	loc.IncrementVersion()
	if err := s.repo.Update(ctx, loc); err != nil {
		return nil, err
	}

	dto := toLocationDTO(loc)
	return &dto, nil
}

func toLocationDTO(loc *locationDomain.Location) LocationDTO {
	return LocationDTO{
		ID:             loc.ID(),
		Name:           loc.Name(),
		Airport:        loc.Airport(),
		Address:        loc.Address(),
		Coordinates:    loc.Coordinates(),
		Rates:          loc.Rates(),
		Features:       loc.Features(),
		CapacityTotal:  loc.CapacityTotal(),
		Available:      loc.Available(),
		OperatingHours: loc.OperatingHours(),
		IsActive:       loc.IsActive(),
		CreatedAt:      loc.CreatedAt(),
		UpdatedAt:      loc.UpdatedAt(),
	}
}
