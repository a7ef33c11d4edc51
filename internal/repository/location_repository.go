package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aerolot/service-parking/internal/domain"
	locationDomain "github.com/aerolot/service-parking/internal/domain/location"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LocationModel is the GORM model for the locations table. Capacity columns
// are only ever written by the conditional decrement/increment statements.
type LocationModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Name          string          `gorm:"not null;size:200"`
	AirportCode   string          `gorm:"not null;size:5;index"`
	AirportName   string          `gorm:"not null;size:200"`
	Address       json.RawMessage `gorm:"type:jsonb"`
	Lat           float64         `gorm:""`
	Lng           float64         `gorm:""`
	DailyRate     float64         `gorm:"not null"`
	WeeklyRate    float64         `gorm:""`
	MonthlyRate   float64         `gorm:""`
	Features      json.RawMessage `gorm:"type:jsonb"`
	CapacityTotal int             `gorm:"not null"`
	Available     int             `gorm:"not null"`
	OpenTime      string          `gorm:"size:10"`
	CloseTime     string          `gorm:"size:10"`
	IsActive      bool            `gorm:"not null;default:true;index"`
	Version       int64           `gorm:"not null;default:1"`
	CreatedAt     time.Time       `gorm:"not null"`
	UpdatedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (LocationModel) TableName() string {
	return "locations"
}

// GormLocationRepository is the GORM-based implementation of LocationRepository.
type GormLocationRepository struct {
	db *gorm.DB
}

// NewGormLocationRepository creates a new GormLocationRepository.
func NewGormLocationRepository(db *gorm.DB) *GormLocationRepository {
	return &GormLocationRepository{db: db}
}

// FindByID retrieves a location by its unique identifier.
func (r *GormLocationRepository) FindByID(ctx context.Context, id uuid.UUID) (*locationDomain.Location, error) {
	var model LocationModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Location", id.String())
		}
		return nil, fmt.Errorf("failed to find location by ID: %w", err)
	}
	return toDomainLocation(&model)
}

// ListActive retrieves active locations, optionally filtered by airport code.
func (r *GormLocationRepository) ListActive(ctx context.Context, airportCode string) ([]*locationDomain.Location, error) {
	query := r.db.WithContext(ctx).Where("is_active = ?", true)
	if airportCode != "" {
		query = query.Where("airport_code = ?", airportCode)
	}

	var models []LocationModel
	if err := query.Order("name ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list active locations: %w", err)
	}

	locations := make([]*locationDomain.Location, len(models))
	for i, m := range models {
		loc, err := toDomainLocation(&m)
		if err != nil {
			return nil, err
		}
		locations[i] = loc
	}
	return locations, nil
}

// ConditionalDecrementAvailable reserves one spot in a single guarded
// statement. The available > 0 guard is what makes concurrent reservations
// linearizable: the database applies the decrements one at a time and the
// guard fails once the count reaches zero. RETURNING reports the count this
// exact decrement produced, not a later re-read.
func (r *GormLocationRepository) ConditionalDecrementAvailable(ctx context.Context, id uuid.UUID) (int, error) {
	var model LocationModel
	result := r.db.WithContext(ctx).
		Model(&model).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "available"}}}).
		Where("id = ? AND available > 0", id).
		Updates(map[string]interface{}{
			"available":  gorm.Expr("available - 1"),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to decrement availability: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		// Re-read to report an accurate outcome: either the location is
		// missing or it is genuinely exhausted.
		var existing LocationModel
		if err := r.db.WithContext(ctx).Select("id").Where("id = ?", id).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, domain.NewNotFoundError("Location", id.String())
			}
			return 0, fmt.Errorf("failed to re-read location: %w", err)
		}
		return 0, domain.NewCapacityExhaustedError(id.String())
	}

	return model.Available, nil
}

// IncrementAvailable releases one spot, guarded so available never exceeds
// total. A guarded no-op reports clamped=true with the current count.
func (r *GormLocationRepository) IncrementAvailable(ctx context.Context, id uuid.UUID) (int, bool, error) {
	var model LocationModel
	result := r.db.WithContext(ctx).
		Model(&model).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "available"}}}).
		Where("id = ? AND available < capacity_total", id).
		Updates(map[string]interface{}{
			"available":  gorm.Expr("available + 1"),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, false, fmt.Errorf("failed to increment availability: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		available, err := r.readAvailable(ctx, id)
		if err != nil {
			return 0, false, err
		}
		return available, true, nil
	}

	return model.Available, false, nil
}

func (r *GormLocationRepository) readAvailable(ctx context.Context, id uuid.UUID) (int, error) {
	var model LocationModel
	if err := r.db.WithContext(ctx).Select("available").Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, domain.NewNotFoundError("Location", id.String())
		}
		return 0, fmt.Errorf("failed to read availability: %w", err)
	}
	return model.Available, nil
}

// Save persists a new location.
func (r *GormLocationRepository) Save(ctx context.Context, loc *locationDomain.Location) error {
	model, err := toLocationModel(loc)
	if err != nil {
		return fmt.Errorf("failed to convert location to model: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save location: %w", err)
	}
	return nil
}

// Update persists non-capacity changes to an existing location with
// optimistic locking.
func (r *GormLocationRepository) Update(ctx context.Context, loc *locationDomain.Location) error {
	model, err := toLocationModel(loc)
	if err != nil {
		return fmt.Errorf("failed to convert location to model: %w", err)
	}

	expectedVersion := loc.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&LocationModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"name":         model.Name,
			"airport_code": model.AirportCode,
			"airport_name": model.AirportName,
			"address":      model.Address,
			"lat":          model.Lat,
			"lng":          model.Lng,
			"daily_rate":   model.DailyRate,
			"weekly_rate":  model.WeeklyRate,
			"monthly_rate": model.MonthlyRate,
			"features":     model.Features,
			"open_time":    model.OpenTime,
			"close_time":   model.CloseTime,
			"is_active":    model.IsActive,
			"version":      model.Version,
			"updated_at":   model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update location: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("location was modified by another transaction")
	}
	return nil
}

// --- Conversion Helpers ---

func toLocationModel(loc *locationDomain.Location) (*LocationModel, error) {
	addressJSON, err := json.Marshal(loc.Address())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal address: %w", err)
	}
	featuresJSON, err := json.Marshal(loc.Features())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal features: %w", err)
	}

	rates := loc.Rates()
	hours := loc.OperatingHours()
	coords := loc.Coordinates()

	return &LocationModel{
		ID:            loc.ID(),
		Name:          loc.Name(),
		AirportCode:   loc.Airport().Code,
		AirportName:   loc.Airport().Name,
		Address:       addressJSON,
		Lat:           coords.Lat,
		Lng:           coords.Lng,
		DailyRate:     rates.Daily,
		WeeklyRate:    rates.Weekly,
		MonthlyRate:   rates.Monthly,
		Features:      featuresJSON,
		CapacityTotal: loc.CapacityTotal(),
		Available:     loc.Available(),
		OpenTime:      hours.Open,
		CloseTime:     hours.Close,
		IsActive:      loc.IsActive(),
		Version:       loc.Version(),
		CreatedAt:     loc.CreatedAt(),
		UpdatedAt:     loc.UpdatedAt(),
	}, nil
}

func toDomainLocation(m *LocationModel) (*locationDomain.Location, error) {
	var address locationDomain.Address
	if len(m.Address) > 0 {
		if err := json.Unmarshal(m.Address, &address); err != nil {
			return nil, fmt.Errorf("failed to unmarshal address: %w", err)
		}
	}
	var features []string
	if len(m.Features) > 0 {
		if err := json.Unmarshal(m.Features, &features); err != nil {
			return nil, fmt.Errorf("failed to unmarshal features: %w", err)
		}
	}

	return locationDomain.Reconstruct(
		m.ID,
		m.Name,
		locationDomain.Airport{Code: m.AirportCode, Name: m.AirportName},
		address,
		locationDomain.Coordinates{Lat: m.Lat, Lng: m.Lng},
		locationDomain.Rates{Daily: m.DailyRate, Weekly: m.WeeklyRate, Monthly: m.MonthlyRate},
		features,
		m.CapacityTotal,
		m.Available,
		locationDomain.OperatingHours{Open: m.OpenTime, Close: m.CloseTime},
		m.IsActive,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}
