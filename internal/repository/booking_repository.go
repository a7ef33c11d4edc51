package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aerolot/service-parking/internal/domain"
	bookingDomain "github.com/aerolot/service-parking/internal/domain/booking"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BookingModel is the GORM model for the bookings table. The vehicle value
// object is stored as jsonb; pricing and payment fields get their own
// columns so admin aggregates can query them directly.
type BookingModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BookingNumber string          `gorm:"uniqueIndex;not null;size:20"`
	UserID        uuid.UUID       `gorm:"type:uuid;index;not null"`
	LocationID    uuid.UUID       `gorm:"type:uuid;index;not null"`
	Status        string          `gorm:"not null;size:30;index"`
	Vehicle       json.RawMessage `gorm:"type:jsonb;not null"`
	CheckIn       time.Time       `gorm:"not null"`
	CheckOut      time.Time       `gorm:"not null"`

	DailyRate     float64 `gorm:"not null"`
	TotalDays     int     `gorm:"not null"`
	Subtotal      float64 `gorm:"not null"`
	Discount      float64 `gorm:"not null;default:0"`
	Tax           float64 `gorm:"not null"`
	Total         float64 `gorm:"not null"`
	LoyaltyPoints int     `gorm:"not null;default:0"`

	PaymentMethod     string     `gorm:"size:30"`
	PaymentGatewayRef string     `gorm:"size:100"`
	PaymentStatus     string     `gorm:"not null;size:20;default:'pending'"`
	PaidAt            *time.Time `gorm:""`

	Notes              string     `gorm:"size:1000"`
	CancellationReason string     `gorm:"size:500"`
	CancelledAt        *time.Time `gorm:""`
	ActivatedAt        *time.Time `gorm:""`
	CompletedAt        *time.Time `gorm:""`

	Version   int64     `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model)
}

// FindByIDAndUser retrieves a booking scoped to its owning user. Ownership
// mismatch reads the same as not-found.
func (r *GormBookingRepository) FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID and user: %w", err)
	}
	return toDomainBooking(&model)
}

// FindByUserID retrieves bookings for a specific user with pagination.
func (r *GormBookingRepository) FindByUserID(ctx context.Context, userID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count user bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find user bookings: %w", err)
	}

	return toDomainBookings(models, total)
}

// ListAll retrieves all bookings with pagination (admin).
func (r *GormBookingRepository) ListAll(ctx context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	return toDomainBookings(models, total)
}

// CountByStatus returns booking counts grouped by status (admin).
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// RevenueBetween aggregates revenue over bookings with completed payments,
// optionally bounded to a creation-time window.
func (r *GormBookingRepository) RevenueBetween(ctx context.Context, from, to *time.Time) (bookingDomain.RevenueSummary, error) {
	query := r.db.WithContext(ctx).Model(&BookingModel{}).
		Where("payment_status = ?", string(bookingDomain.PaymentCompleted))
	if from != nil && to != nil {
		query = query.Where("created_at BETWEEN ? AND ?", *from, *to)
	}

	var summary bookingDomain.RevenueSummary
	err := query.
		Select("COALESCE(SUM(total), 0) as total, COUNT(*) as count, COALESCE(AVG(total), 0) as avg_booking").
		Scan(&summary).Error
	if err != nil {
		return bookingDomain.RevenueSummary{}, fmt.Errorf("failed to aggregate revenue: %w", err)
	}
	return summary, nil
}

// Save persists a new booking.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// Update persists changes to an existing booking with optimistic locking.
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	// Only update if the version matches (current version - 1, since
	// IncrementVersion was called before persisting).
	expectedVersion := bk.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":              model.Status,
			"vehicle":             model.Vehicle,
			"payment_method":      model.PaymentMethod,
			"payment_gateway_ref": model.PaymentGatewayRef,
			"payment_status":      model.PaymentStatus,
			"paid_at":             model.PaidAt,
			"notes":               model.Notes,
			"cancellation_reason": model.CancellationReason,
			"cancelled_at":        model.CancelledAt,
			"activated_at":        model.ActivatedAt,
			"completed_at":        model.CompletedAt,
			"version":             model.Version,
			"updated_at":          model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.NewConflictError("booking was modified by another transaction")
	}

	return nil
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) (*BookingModel, error) {
	vehicleJSON, err := json.Marshal(bk.Vehicle())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal vehicle: %w", err)
	}

	pricing := bk.Pricing()
	payment := bk.Payment()

	return &BookingModel{
		ID:            bk.ID(),
		BookingNumber: bk.BookingNumber(),
		UserID:        bk.UserID(),
		LocationID:    bk.LocationID(),
		Status:        string(bk.Status()),
		Vehicle:       vehicleJSON,
		CheckIn:       bk.CheckIn(),
		CheckOut:      bk.CheckOut(),

		DailyRate:     pricing.DailyRate,
		TotalDays:     pricing.TotalDays,
		Subtotal:      pricing.Subtotal,
		Discount:      pricing.Discount,
		Tax:           pricing.Tax,
		Total:         pricing.Total,
		LoyaltyPoints: pricing.LoyaltyPointsEarned,

		PaymentMethod:     payment.Method,
		PaymentGatewayRef: payment.GatewayRef,
		PaymentStatus:     string(payment.Status),
		PaidAt:            payment.PaidAt,

		Notes:              bk.Notes(),
		CancellationReason: bk.CancellationReason(),
		CancelledAt:        bk.CancelledAt(),
		ActivatedAt:        bk.ActivatedAt(),
		CompletedAt:        bk.CompletedAt(),

		Version:   bk.Version(),
		CreatedAt: bk.CreatedAt(),
		UpdatedAt: bk.UpdatedAt(),
	}, nil
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	var vehicle bookingDomain.Vehicle
	if err := json.Unmarshal(m.Vehicle, &vehicle); err != nil {
		return nil, fmt.Errorf("failed to unmarshal vehicle: %w", err)
	}

	status, err := bookingDomain.ParseBookingStatus(m.Status)
	if err != nil {
		return nil, err
	}

	pricing := bookingDomain.PricingBreakdown{
		DailyRate:           m.DailyRate,
		TotalDays:           m.TotalDays,
		Subtotal:            m.Subtotal,
		Discount:            m.Discount,
		Tax:                 m.Tax,
		Total:               m.Total,
		LoyaltyPointsEarned: m.LoyaltyPoints,
	}

	payment := bookingDomain.PaymentRecord{
		Method:     m.PaymentMethod,
		GatewayRef: m.PaymentGatewayRef,
		Status:     bookingDomain.PaymentStatus(m.PaymentStatus),
		PaidAt:     m.PaidAt,
	}

	return bookingDomain.ReconstructBooking(
		m.ID,
		m.BookingNumber,
		m.UserID,
		m.LocationID,
		status,
		vehicle,
		m.CheckIn,
		m.CheckOut,
		pricing,
		payment,
		m.Notes,
		m.CancellationReason,
		m.CancelledAt,
		m.ActivatedAt,
		m.CompletedAt,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}

func toDomainBookings(models []BookingModel, total int64) ([]*bookingDomain.Booking, int64, error) {
	bookings := make([]*bookingDomain.Booking, len(models))
	for i, m := range models {
		bk, err := toDomainBooking(&m)
		if err != nil {
			return nil, 0, err
		}
		bookings[i] = bk
	}
	return bookings, total, nil
}
