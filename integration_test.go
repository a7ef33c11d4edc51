//go:build integration

package main_test

import (
	"context"
	"testing"
	"time"

	"github.com/aerolot/service-parking/internal/application"
	bookingDomain "github.com/aerolot/service-parking/internal/domain/booking"
	bookingEvents "github.com/aerolot/service-parking/internal/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPaymentCompleted_ConfirmsBooking verifies that when a PaymentCompletedEvent
// is published to payment.events, the parking service picks it up and
// transitions the booking to "confirmed" status.
func TestPaymentCompleted_ConfirmsBooking(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupParkingStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	defer func() { _ = stack.Consumer.Close() }()

	loc := seedLocation(t, stack.LocationRepo, 5)
	userID := uuid.New()

	dto, err := stack.Bookings.CreateBooking(context.Background(), userID, application.CreateBookingRequest{
		LocationID: loc.ID(),
		Vehicle: bookingDomain.Vehicle{
			Make: "Subaru", Model: "Outback", Year: 2022, Color: "green", LicensePlate: "INT-0001",
		},
		CheckIn:       time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour),
		CheckOut:      time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour),
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	require.Equal(t, "pending", dto.Status)
	require.Equal(t, 4, readAvailable(t, infra.DB, loc.ID()))

	// Start the consumer.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stack.Consumer.Start(ctx) }()
	time.Sleep(3 * time.Second) // Wait for consumer group join.

	evt := bookingEvents.PaymentCompletedEvent{
		BookingID:  dto.ID,
		PaymentID:  uuid.New(),
		GatewayRef: "ch_integration_1",
		OccurredAt: time.Now().UTC(),
	}
	publishTestEvent(t, infra.KafkaBrokers, bookingEvents.TopicPaymentEvents,
		"service-payment", bookingEvents.PaymentCompleted, evt)

	// Assert: booking transitions to "confirmed" with a completed payment.
	model := waitForBookingStatus(t, infra.DB, dto.ID, "confirmed", 15*time.Second)
	assert.Equal(t, "completed", model.PaymentStatus)
	assert.Equal(t, "ch_integration_1", model.PaymentGatewayRef)
	assert.NotNil(t, model.PaidAt)
	// Confirmation holds the spot.
	assert.Equal(t, 4, readAvailable(t, infra.DB, loc.ID()))

	// Assert: BookingConfirmedEvent on booking.events.
	ce := consumeOneEvent(t, infra.KafkaBrokers, bookingEvents.TopicBookingEvents,
		bookingEvents.BookingConfirmed, 15*time.Second)

	var confirmed bookingEvents.BookingConfirmedEvent
	require.NoError(t, ce.ParseData(&confirmed))
	assert.Equal(t, dto.ID, confirmed.BookingID)
	assert.Equal(t, dto.BookingNumber, confirmed.BookingNumber)
	assert.Equal(t, "ch_integration_1", confirmed.GatewayRef)
}

// TestBookingLifecycle_CapacityRoundTrip runs the whole lifecycle against real
// Postgres and asserts the spot count at each step.
func TestBookingLifecycle_CapacityRoundTrip(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupParkingStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	defer func() { _ = stack.Consumer.Close() }()

	loc := seedLocation(t, stack.LocationRepo, 1)
	userID := uuid.New()
	ctx := context.Background()

	dto, err := stack.Bookings.CreateBooking(ctx, userID, application.CreateBookingRequest{
		LocationID: loc.ID(),
		Vehicle: bookingDomain.Vehicle{
			Make: "Mazda", Model: "CX-5", Year: 2023, Color: "white", LicensePlate: "INT-0002",
		},
		CheckIn:       time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour),
		CheckOut:      time.Now().UTC().Add(48 * time.Hour).Truncate(time.Hour),
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	require.Equal(t, 0, readAvailable(t, infra.DB, loc.ID()))

	// The lot is full: a second booking must be rejected.
	_, err = stack.Bookings.CreateBooking(ctx, uuid.New(), application.CreateBookingRequest{
		LocationID: loc.ID(),
		Vehicle: bookingDomain.Vehicle{
			Make: "Kia", Model: "Soul", Year: 2020, Color: "black", LicensePlate: "INT-0003",
		},
		CheckIn:       time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour),
		CheckOut:      time.Now().UTC().Add(48 * time.Hour).Truncate(time.Hour),
		PaymentMethod: "card",
	})
	require.Error(t, err)

	_, err = stack.Bookings.ConfirmBooking(ctx, dto.ID, "ch_integration_2")
	require.NoError(t, err)

	_, err = stack.Bookings.ActivateBooking(ctx, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, readAvailable(t, infra.DB, loc.ID()))

	completed, err := stack.Bookings.CompleteBooking(ctx, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, "completed", completed.Status)
	assert.Equal(t, 1, readAvailable(t, infra.DB, loc.ID()))

	// The freed spot accepts the retry.
	retry, err := stack.Bookings.CreateBooking(ctx, uuid.New(), application.CreateBookingRequest{
		LocationID: loc.ID(),
		Vehicle: bookingDomain.Vehicle{
			Make: "Kia", Model: "Soul", Year: 2020, Color: "black", LicensePlate: "INT-0003",
		},
		CheckIn:       time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour),
		CheckOut:      time.Now().UTC().Add(48 * time.Hour).Truncate(time.Hour),
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	assert.Equal(t, "pending", retry.Status)
	assert.Equal(t, 0, readAvailable(t, infra.DB, loc.ID()))
}
