package application

import (
	"context"
	"fmt"
	"time"

	"github.com/aerolot/service-parking/internal/domain"
	bookingDomain "github.com/aerolot/service-parking/internal/domain/booking"
	locationDomain "github.com/aerolot/service-parking/internal/domain/location"
	"github.com/aerolot/service-parking/internal/events"
	"github.com/aerolot/service-parking/internal/kafka"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventPublisher publishes CloudEvents. Satisfied by *kafka.Producer.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error
}

// CreateBookingRequest holds the data needed to create a new booking.
type CreateBookingRequest struct {
	LocationID    uuid.UUID             `json:"location_id" binding:"required"`
	Vehicle       bookingDomain.Vehicle `json:"vehicle" binding:"required"`
	CheckIn       time.Time             `json:"check_in" binding:"required"`
	CheckOut      time.Time             `json:"check_out" binding:"required"`
	DailyRate     float64               `json:"daily_rate"`
	Discount      float64               `json:"discount"`
	PaymentMethod string                `json:"payment_method"`
	Notes         string                `json:"notes"`
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID                 uuid.UUID                      `json:"id"`
	BookingNumber      string                         `json:"booking_number"`
	UserID             uuid.UUID                      `json:"user_id"`
	LocationID         uuid.UUID                      `json:"location_id"`
	Status             string                         `json:"status"`
	Vehicle            bookingDomain.Vehicle          `json:"vehicle"`
	CheckIn            time.Time                      `json:"check_in"`
	CheckOut           time.Time                      `json:"check_out"`
	Pricing            bookingDomain.PricingBreakdown `json:"pricing"`
	Payment            bookingDomain.PaymentRecord    `json:"payment"`
	Notes              string                         `json:"notes,omitempty"`
	CancellationReason string                         `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time                     `json:"cancelled_at,omitempty"`
	ActivatedAt        *time.Time                     `json:"activated_at,omitempty"`
	CompletedAt        *time.Time                     `json:"completed_at,omitempty"`
	Version            int64                          `json:"version"`
	CreatedAt          time.Time                      `json:"created_at"`
	UpdatedAt          time.Time                      `json:"updated_at"`
}

// BookingService is the application service orchestrating the booking
// lifecycle. It coordinates the pricing calculator and the capacity ledger
// around the state machine on the Booking aggregate.
type BookingService struct {
	repo      bookingDomain.BookingRepository
	locations locationDomain.LocationRepository
	pricing   bookingDomain.PricingCalculator
	ledger    *CapacityLedger
	producer  EventPublisher
	logger    *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	repo bookingDomain.BookingRepository,
	locations locationDomain.LocationRepository,
	pricing bookingDomain.PricingCalculator,
	ledger *CapacityLedger,
	producer EventPublisher,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		repo:      repo,
		locations: locations,
		pricing:   pricing,
		ledger:    ledger,
		producer:  producer,
		logger:    logger,
	}
}

// CreateBooking creates a new pending booking for the given user, reserving
// one spot at the location. Capacity reserved before a failed persist is
// released again so no spot leaks.
func (s *BookingService) CreateBooking(ctx context.Context, userID uuid.UUID, req CreateBookingRequest) (*BookingDTO, error) {
	loc, err := s.locations.FindByID(ctx, req.LocationID)
	if err != nil {
		return nil, err
	}
	if !loc.IsActive() {
		return nil, domain.NewValidationError("location is not accepting bookings")
	}

	// Validate dates and compute the frozen pricing snapshot before touching
	// capacity, so client-input faults never require compensation.
	dailyRate := req.DailyRate
	if dailyRate == 0 {
		dailyRate = loc.Rates().Daily
	}
	pricing, err := s.pricing.Compute(req.CheckIn, req.CheckOut, dailyRate, req.Discount)
	if err != nil {
		return nil, err
	}

	if _, err := s.ledger.Reserve(ctx, req.LocationID); err != nil {
		return nil, err
	}

	bk, err := bookingDomain.NewBooking(
		userID,
		req.LocationID,
		req.Vehicle,
		req.CheckIn,
		req.CheckOut,
		pricing,
		req.PaymentMethod,
		req.Notes,
	)
	if err != nil {
		s.compensateReservation(ctx, req.LocationID)
		return nil, err
	}

	if err := s.repo.Save(ctx, bk); err != nil {
		s.compensateReservation(ctx, req.LocationID)
		return nil, fmt.Errorf("failed to save booking: %w", err)
	}

	s.publishBookingCreated(ctx, bk)

	result := toBookingDTO(bk)
	return &result, nil
}

// compensateReservation releases a spot reserved by a create that could not
// complete. A failed release is logged as an inconsistency; there is nothing
// further the caller can do.
func (s *BookingService) compensateReservation(ctx context.Context, locationID uuid.UUID) {
	if _, err := s.ledger.Release(ctx, locationID); err != nil {
		s.logger.Warn("failed to release reserved capacity after create failure",
			zap.String("location_id", locationID.String()),
			zap.Error(err),
		)
	}
}

// GetBooking retrieves a single booking scoped to its owner.
func (s *BookingService) GetBooking(ctx context.Context, bookingID, userID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.repo.FindByIDAndUser(ctx, bookingID, userID)
	if err != nil {
		return nil, err
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// GetUserBookings retrieves paginated bookings for a user.
func (s *BookingService) GetUserBookings(ctx context.Context, userID uuid.UUID, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.repo.FindByUserID(ctx, userID, page, limit)
	if err != nil {
		return nil, err
	}

	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}

	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result, nil
}

// UpdateBooking applies an explicit patch to a booking owned by the caller.
// Dates and the pricing snapshot are immutable here; there is no re-price
// path.
func (s *BookingService) UpdateBooking(ctx context.Context, bookingID, userID uuid.UUID, patch bookingDomain.Patch) (*BookingDTO, error) {
	bk, err := s.repo.FindByIDAndUser(ctx, bookingID, userID)
	if err != nil {
		return nil, err
	}

	if err := bk.ApplyPatch(patch); err != nil {
		return nil, err
	}

	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, err
	}

	result := toBookingDTO(bk)
	return &result, nil
}

// CancelBooking cancels a booking owned by the caller and releases its spot.
// A failed release never blocks the cancellation: the booking stays
// cancelled and the inconsistency is logged.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, userID uuid.UUID, reason string) (*BookingDTO, error) {
	bk, err := s.repo.FindByIDAndUser(ctx, bookingID, userID)
	if err != nil {
		return nil, err
	}

	if err := bk.Cancel(reason); err != nil {
		return nil, err
	}

	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, err
	}

	s.releaseAfterTerminal(ctx, bk)

	evt := events.BookingCancelledEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		UserID:        bk.UserID(),
		LocationID:    bk.LocationID(),
		Reason:        reason,
		OccurredAt:    time.Now().UTC(),
	}
	s.publishEvent(ctx, events.TopicBookingEvents, events.BookingCancelled, evt)

	result := toBookingDTO(bk)
	return &result, nil
}

// ConfirmBooking transitions a pending booking to confirmed after the
// payment gateway reports success. Called by the payment event consumer.
func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID uuid.UUID, gatewayRef string) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := bk.Confirm(gatewayRef); err != nil {
		return nil, err
	}

	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, err
	}

	evt := events.BookingConfirmedEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		UserID:        bk.UserID(),
		GatewayRef:    gatewayRef,
		OccurredAt:    time.Now().UTC(),
	}
	s.publishEvent(ctx, events.TopicBookingEvents, events.BookingConfirmed, evt)

	result := toBookingDTO(bk)
	return &result, nil
}

// RecordPaymentFailure marks the payment record failed without moving the
// lifecycle status; the user can retry payment or cancel.
func (s *BookingService) RecordPaymentFailure(ctx context.Context, bookingID uuid.UUID, gatewayRef string) error {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return err
	}

	bk.MarkPaymentFailed(gatewayRef)
	bk.IncrementVersion()
	return s.repo.Update(ctx, bk)
}

// ActivateBooking marks the vehicle checked in at the lot (staff).
func (s *BookingService) ActivateBooking(ctx context.Context, bookingID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := bk.Activate(); err != nil {
		return nil, err
	}

	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, err
	}

	result := toBookingDTO(bk)
	return &result, nil
}

// CompleteBooking marks the vehicle checked out (staff) and releases its
// spot, keeping available in step with the set of capacity-holding bookings.
func (s *BookingService) CompleteBooking(ctx context.Context, bookingID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := bk.Complete(); err != nil {
		return nil, err
	}

	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, err
	}

	s.releaseAfterTerminal(ctx, bk)

	evt := events.BookingCompletedEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		UserID:        bk.UserID(),
		LocationID:    bk.LocationID(),
		Total:         bk.Pricing().Total,
		LoyaltyPoints: bk.LoyaltyPointsEarned(),
		OccurredAt:    time.Now().UTC(),
	}
	s.publishEvent(ctx, events.TopicBookingEvents, events.BookingCompleted, evt)

	result := toBookingDTO(bk)
	return &result, nil
}

// releaseAfterTerminal releases the booking's spot after a committed
// transition out of the capacity-holding states. Failures are logged, never
// surfaced: the transition has already committed.
func (s *BookingService) releaseAfterTerminal(ctx context.Context, bk *bookingDomain.Booking) {
	if _, err := s.ledger.Release(ctx, bk.LocationID()); err != nil {
		s.logger.Warn("capacity release failed after booking left capacity-holding state",
			zap.String("booking_id", bk.ID().String()),
			zap.String("location_id", bk.LocationID().String()),
			zap.String("status", bk.Status().String()),
			zap.Error(err),
		)
	}
}

// --- Admin methods ---

// BookingStatsDTO holds booking statistics for the admin dashboard.
type BookingStatsDTO struct {
	TotalBookings int64            `json:"total_bookings"`
	ByStatus      map[string]int64 `json:"by_status"`
}

// DashboardDTO aggregates the headline numbers for the admin dashboard.
type DashboardDTO struct {
	TotalBookings  int64   `json:"total_bookings"`
	ActiveBookings int64   `json:"active_bookings"`
	TotalRevenue   float64 `json:"total_revenue"`
}

// ListAllBookings returns a paginated list of all bookings (admin).
func (s *BookingService) ListAllBookings(ctx context.Context, page, limit int) ([]BookingDTO, int64, error) {
	bookings, total, err := s.repo.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}
	return dtos, total, nil
}

// GetBookingStats returns aggregate booking statistics (admin).
func (s *BookingService) GetBookingStats(ctx context.Context) (*BookingStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	return &BookingStatsDTO{
		TotalBookings: total,
		ByStatus:      counts,
	}, nil
}

// GetDashboard returns the admin dashboard headline numbers.
func (s *BookingService) GetDashboard(ctx context.Context) (*DashboardDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count bookings: %w", err)
	}
	revenue, err := s.repo.RevenueBetween(ctx, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate revenue: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	return &DashboardDTO{
		TotalBookings:  total,
		ActiveBookings: counts[string(bookingDomain.StatusActive)],
		TotalRevenue:   revenue.Total,
	}, nil
}

// GetRevenue aggregates revenue over completed payments in an optional
// creation-time window (admin).
func (s *BookingService) GetRevenue(ctx context.Context, from, to *time.Time) (*bookingDomain.RevenueSummary, error) {
	revenue, err := s.repo.RevenueBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate revenue: %w", err)
	}
	return &revenue, nil
}

// --- Helpers ---

func toBookingDTO(bk *bookingDomain.Booking) BookingDTO {
	return BookingDTO{
		ID:                 bk.ID(),
		BookingNumber:      bk.BookingNumber(),
		UserID:             bk.UserID(),
		LocationID:         bk.LocationID(),
		Status:             string(bk.Status()),
		Vehicle:            bk.Vehicle(),
		CheckIn:            bk.CheckIn(),
		CheckOut:           bk.CheckOut(),
		Pricing:            bk.Pricing(),
		Payment:            bk.Payment(),
		Notes:              bk.Notes(),
		CancellationReason: bk.CancellationReason(),
		CancelledAt:        bk.CancelledAt(),
		ActivatedAt:        bk.ActivatedAt(),
		CompletedAt:        bk.CompletedAt(),
		Version:            bk.Version(),
		CreatedAt:          bk.CreatedAt(),
		UpdatedAt:          bk.UpdatedAt(),
	}
}

func (s *BookingService) publishBookingCreated(ctx context.Context, bk *bookingDomain.Booking) {
	evt := events.BookingCreatedEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		UserID:        bk.UserID(),
		LocationID:    bk.LocationID(),
		CheckIn:       bk.CheckIn(),
		CheckOut:      bk.CheckOut(),
		Total:         bk.Pricing().Total,
		OccurredAt:    time.Now().UTC(),
	}
	s.publishEvent(ctx, events.TopicBookingEvents, events.BookingCreated, evt)
}

func (s *BookingService) publishEvent(ctx context.Context, topic, eventType string, data interface{}) {
	cloudEvent, err := kafka.NewCloudEvent("service-parking", eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := s.producer.PublishEvent(ctx, topic, cloudEvent); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
