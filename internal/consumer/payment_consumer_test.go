package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/aerolot/service-parking/internal/application"
	bookingDomain "github.com/aerolot/service-parking/internal/domain/booking"
	locationDomain "github.com/aerolot/service-parking/internal/domain/location"
	"github.com/aerolot/service-parking/internal/events"
	"github.com/aerolot/service-parking/internal/kafka"
	"github.com/aerolot/service-parking/internal/repository"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type nopPublisher struct{}

func (nopPublisher) PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error {
	return nil
}

type consumerFixture struct {
	consumer *PaymentEventConsumer
	service  *application.BookingService
	owner    uuid.UUID
	booking  uuid.UUID
}

func newConsumerFixture(t *testing.T) *consumerFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&repository.LocationModel{}, &repository.BookingModel{}))

	bookings := repository.NewGormBookingRepository(db)
	locations := repository.NewGormLocationRepository(db)
	ledger := application.NewCapacityLedger(locations, zap.NewNop())
	svc := application.NewBookingService(
		bookings,
		locations,
		bookingDomain.NewStandardPricingCalculator(),
		ledger,
		nopPublisher{},
		zap.NewNop(),
	)

	loc, err := locationDomain.NewLocation(
		"Consumer Lot",
		locationDomain.Airport{Code: "DEN", Name: "Denver International"},
		locationDomain.Address{Street: "8500 Pena Blvd", City: "Denver", State: "CO", ZipCode: "80249", Country: "US"},
		locationDomain.Coordinates{Lat: 39.86, Lng: -104.67},
		locationDomain.Rates{Daily: 80},
		nil,
		3,
		locationDomain.OperatingHours{Open: "00:00", Close: "24:00"},
	)
	require.NoError(t, err)
	require.NoError(t, locations.Save(context.Background(), loc))

	owner := uuid.New()
	dto, err := svc.CreateBooking(context.Background(), owner, application.CreateBookingRequest{
		LocationID: loc.ID(),
		Vehicle: bookingDomain.Vehicle{
			Make: "Volvo", Model: "XC60", Year: 2022, Color: "gray", LicensePlate: "CSM-1000",
		},
		CheckIn:       time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:      time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC),
		PaymentMethod: "card",
	})
	require.NoError(t, err)

	return &consumerFixture{
		consumer: NewPaymentEventConsumer([]string{"localhost:9092"}, "test-group", svc, zap.NewNop()),
		service:  svc,
		owner:    owner,
		booking:  dto.ID,
	}
}

func paymentMessage(t *testing.T, eventType string, data interface{}) kafkago.Message {
	t.Helper()
	ce, err := kafka.NewCloudEvent("service-payment", eventType, data)
	require.NoError(t, err)
	value, err := json.Marshal(ce)
	require.NoError(t, err)
	return kafkago.Message{Topic: events.TopicPaymentEvents, Value: value}
}

func TestPaymentEventConsumer_CompletedConfirmsBooking(t *testing.T) {
	f := newConsumerFixture(t)

	msg := paymentMessage(t, events.PaymentCompleted, events.PaymentCompletedEvent{
		BookingID:  f.booking,
		PaymentID:  uuid.New(),
		GatewayRef: "ch_42",
		OccurredAt: time.Now().UTC(),
	})
	require.NoError(t, f.consumer.handleMessage(context.Background(), msg))

	dto, err := f.service.GetBooking(context.Background(), f.booking, f.owner)
	require.NoError(t, err)
	assert.Equal(t, "confirmed", dto.Status)
	assert.Equal(t, "completed", string(dto.Payment.Status))
	assert.Equal(t, "ch_42", dto.Payment.GatewayRef)
}

func TestPaymentEventConsumer_FailedRecordsFailure(t *testing.T) {
	f := newConsumerFixture(t)

	msg := paymentMessage(t, events.PaymentFailed, events.PaymentFailedEvent{
		BookingID:  f.booking,
		PaymentID:  uuid.New(),
		GatewayRef: "ch_43",
		Reason:     "card declined",
		OccurredAt: time.Now().UTC(),
	})
	require.NoError(t, f.consumer.handleMessage(context.Background(), msg))

	dto, err := f.service.GetBooking(context.Background(), f.booking, f.owner)
	require.NoError(t, err)
	assert.Equal(t, "pending", dto.Status)
	assert.Equal(t, "failed", string(dto.Payment.Status))
}

func TestPaymentEventConsumer_MalformedMessageNotRetried(t *testing.T) {
	f := newConsumerFixture(t)

	msg := kafkago.Message{Topic: events.TopicPaymentEvents, Value: []byte("not json")}
	assert.NoError(t, f.consumer.handleMessage(context.Background(), msg))
}

func TestPaymentEventConsumer_UnknownTypeIgnored(t *testing.T) {
	f := newConsumerFixture(t)

	msg := paymentMessage(t, "payment.authorized", map[string]string{"noise": "yes"})
	require.NoError(t, f.consumer.handleMessage(context.Background(), msg))

	dto, err := f.service.GetBooking(context.Background(), f.booking, f.owner)
	require.NoError(t, err)
	assert.Equal(t, "pending", dto.Status)
}
