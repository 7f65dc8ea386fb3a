package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/smarttransit/trip-booking-backend/internal/models"
)

func newReconcilerFixture(t *testing.T) (*WebhookReconciler, *fakeTripRepo, *fakeBookingRepo, *models.Booking, *models.Trip) {
	t.Helper()
	tripRepo := newFakeTripRepo()
	bookingRepo := newFakeBookingRepo()
	reconciler := NewWebhookReconciler(&fakeTxRunner{}, tripRepo, bookingRepo, newTestLogger())

	trip := seedTrip(t, tripRepo, 40, 1000.00, 30*24*time.Hour)

	booking := &models.Booking{
		TripID:       trip.ID,
		UserID:       uuid.New(),
		SeatCount:    2,
		State:        models.BookingStatePendingPayment,
		PriceCharged: 2000.00,
		ExpiresAt:    time.Now().Add(15 * time.Minute),
	}
	require.NoError(t, bookingRepo.Create(context.Background(), booking))

	reserved, err := tripRepo.TryReserve(context.Background(), trip.ID, booking.SeatCount)
	require.NoError(t, err)
	require.True(t, reserved)

	return reconciler, tripRepo, bookingRepo, booking, trip
}

func TestApplyOutcome(t *testing.T) {
	t.Run("Success Confirms Booking", func(t *testing.T) {
		reconciler, tripRepo, bookingRepo, booking, trip := newReconcilerFixture(t)

		result, err := reconciler.ApplyOutcome(context.Background(), booking.ID, models.PaymentOutcomeSucceeded, "evt_1")
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeApplied, result.Status)
		assert.Equal(t, models.BookingStateConfirmed, result.Booking.State)

		stored := bookingRepo.get(booking.ID)
		assert.Equal(t, models.BookingStateConfirmed, stored.State)
		require.NotNil(t, stored.IdempotencyKey)
		assert.Equal(t, "evt_1", *stored.IdempotencyKey)

		// Seats were reserved at creation; confirmation changes nothing
		assert.Equal(t, 38, tripRepo.seats(trip.ID))
	})

	t.Run("Failure Expires Booking And Releases Seats", func(t *testing.T) {
		reconciler, tripRepo, bookingRepo, booking, trip := newReconcilerFixture(t)

		result, err := reconciler.ApplyOutcome(context.Background(), booking.ID, models.PaymentOutcomeFailed, "evt_2")
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeApplied, result.Status)
		assert.Equal(t, models.BookingStateExpired, result.Booking.State)

		assert.Equal(t, models.BookingStateExpired, bookingRepo.get(booking.ID).State)
		assert.Equal(t, 40, tripRepo.seats(trip.ID))
	})

	t.Run("Duplicate Delivery Is Side Effect Free", func(t *testing.T) {
		reconciler, tripRepo, bookingRepo, booking, trip := newReconcilerFixture(t)

		first, err := reconciler.ApplyOutcome(context.Background(), booking.ID, models.PaymentOutcomeSucceeded, "evt_3")
		require.NoError(t, err)
		require.Equal(t, models.OutcomeApplied, first.Status)

		second, err := reconciler.ApplyOutcome(context.Background(), booking.ID, models.PaymentOutcomeSucceeded, "evt_3")
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeDuplicateDelivery, second.Status)
		assert.Equal(t, models.BookingStateConfirmed, second.Booking.State)

		assert.Equal(t, models.BookingStateConfirmed, bookingRepo.get(booking.ID).State)
		assert.Equal(t, 38, tripRepo.seats(trip.ID))
	})

	t.Run("Duplicate Failed Delivery Releases Seats Once", func(t *testing.T) {
		reconciler, tripRepo, _, booking, trip := newReconcilerFixture(t)

		_, err := reconciler.ApplyOutcome(context.Background(), booking.ID, models.PaymentOutcomeFailed, "evt_4")
		require.NoError(t, err)
		require.Equal(t, 40, tripRepo.seats(trip.ID))

		second, err := reconciler.ApplyOutcome(context.Background(), booking.ID, models.PaymentOutcomeFailed, "evt_4")
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeDuplicateDelivery, second.Status)
		assert.Equal(t, 40, tripRepo.seats(trip.ID))
	})

	t.Run("Key Already Owned By Another Booking", func(t *testing.T) {
		reconciler, _, bookingRepo, booking, trip := newReconcilerFixture(t)

		other := &models.Booking{
			TripID:       trip.ID,
			UserID:       uuid.New(),
			SeatCount:    1,
			State:        models.BookingStatePendingPayment,
			PriceCharged: 1000.00,
			ExpiresAt:    time.Now().Add(15 * time.Minute),
		}
		require.NoError(t, bookingRepo.Create(context.Background(), other))

		_, err := reconciler.ApplyOutcome(context.Background(), other.ID, models.PaymentOutcomeSucceeded, "evt_5")
		require.NoError(t, err)

		result, err := reconciler.ApplyOutcome(context.Background(), booking.ID, models.PaymentOutcomeSucceeded, "evt_5")
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeDuplicateKeyConflict, result.Status)

		// Target booking untouched
		assert.Equal(t, models.BookingStatePendingPayment, bookingRepo.get(booking.ID).State)
	})

	t.Run("Booking Not Found", func(t *testing.T) {
		reconciler, _, _, _, _ := newReconcilerFixture(t)

		result, err := reconciler.ApplyOutcome(context.Background(), uuid.New(), models.PaymentOutcomeSucceeded, "evt_6")
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeBookingNotFound, result.Status)
	})

	t.Run("Stale Outcome On Cancelled Booking", func(t *testing.T) {
		reconciler, tripRepo, bookingRepo, booking, trip := newReconcilerFixture(t)

		booking.State = models.BookingStateCancelled
		bookingRepo.put(booking)

		result, err := reconciler.ApplyOutcome(context.Background(), booking.ID, models.PaymentOutcomeSucceeded, "evt_7")
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeStale, result.Status)
		assert.Equal(t, models.BookingStateCancelled, result.Booking.State)
		assert.Equal(t, 38, tripRepo.seats(trip.ID))
	})

	t.Run("Missing Idempotency Key", func(t *testing.T) {
		reconciler, _, _, booking, _ := newReconcilerFixture(t)

		_, err := reconciler.ApplyOutcome(context.Background(), booking.ID, models.PaymentOutcomeSucceeded, "")
		assert.True(t, models.IsValidation(err))
	})

	t.Run("Unknown Outcome", func(t *testing.T) {
		reconciler, _, _, booking, _ := newReconcilerFixture(t)

		_, err := reconciler.ApplyOutcome(context.Background(), booking.ID, models.PaymentOutcome("refunded"), "evt_8")
		assert.True(t, models.IsValidation(err))
	})
}
