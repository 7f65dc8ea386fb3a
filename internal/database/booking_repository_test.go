package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/smarttransit/trip-booking-backend/internal/models"
)

func bookingRows(booking *models.Booking) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "trip_id", "user_id", "booking_reference", "seat_count", "state",
		"price_charged", "refund_amount", "idempotency_key",
		"expires_at", "cancelled_at", "created_at", "updated_at",
	}).AddRow(
		booking.ID, booking.TripID, booking.UserID, booking.BookingReference,
		booking.SeatCount, booking.State, booking.PriceCharged,
		booking.RefundAmount, booking.IdempotencyKey,
		booking.ExpiresAt, booking.CancelledAt, booking.CreatedAt, booking.UpdatedAt,
	)
}

func TestBookingRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)

	mock.ExpectExec(`INSERT INTO bookings`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	booking := &models.Booking{
		TripID:       uuid.New(),
		UserID:       uuid.New(),
		SeatCount:    2,
		State:        models.BookingStatePendingPayment,
		PriceCharged: 3000.00,
		ExpiresAt:    time.Now().Add(15 * time.Minute),
	}
	err := repo.Create(context.Background(), booking)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, booking.ID)
	assert.True(t, strings.HasPrefix(booking.BookingReference, "BK-"))
	assert.Len(t, booking.BookingReference, 13)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_SetOutcome(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)
	bookingID := uuid.New()

	t.Run("Pending Booking Transitions", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(bookingID, models.BookingStateConfirmed, "evt_1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		applied, err := repo.SetOutcome(context.Background(), bookingID, models.BookingStateConfirmed, "evt_1")
		require.NoError(t, err)
		assert.True(t, applied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("No Longer Pending", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(bookingID, models.BookingStateConfirmed, "evt_1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		applied, err := repo.SetOutcome(context.Background(), bookingID, models.BookingStateConfirmed, "evt_1")
		require.NoError(t, err)
		assert.False(t, applied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(bookingID, models.BookingStateConfirmed, "evt_1").
			WillReturnError(fmt.Errorf("connection reset"))

		_, err := repo.SetOutcome(context.Background(), bookingID, models.BookingStateConfirmed, "evt_1")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to record payment outcome")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingRepository_SetCancelled(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)
	bookingID := uuid.New()
	cancelledAt := time.Now()

	t.Run("Active Booking Cancelled", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(bookingID, models.BookingStateCancelled, 1800.00, cancelledAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		updated, err := repo.SetCancelled(context.Background(), bookingID, models.BookingStateCancelled, 1800.00, cancelledAt)
		require.NoError(t, err)
		assert.True(t, updated)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already Terminal", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(bookingID, models.BookingStateCancelled, 1800.00, cancelledAt).
			WillReturnResult(sqlmock.NewResult(0, 0))

		updated, err := repo.SetCancelled(context.Background(), bookingID, models.BookingStateCancelled, 1800.00, cancelledAt)
		require.NoError(t, err)
		assert.False(t, updated)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingRepository_GetByIdempotencyKey(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)

	t.Run("Key Owned", func(t *testing.T) {
		key := "evt_9"
		booking := &models.Booking{
			ID:               uuid.New(),
			TripID:           uuid.New(),
			UserID:           uuid.New(),
			BookingReference: "BK-ABCDEF1234",
			SeatCount:        1,
			State:            models.BookingStateConfirmed,
			PriceCharged:     1000.00,
			IdempotencyKey:   &key,
			ExpiresAt:        time.Now(),
			CreatedAt:        time.Now(),
			UpdatedAt:        time.Now(),
		}

		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE idempotency_key`).
			WithArgs(key).
			WillReturnRows(bookingRows(booking))

		got, err := repo.GetByIdempotencyKey(context.Background(), key)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, booking.ID, got.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Key Unused Returns Nil", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE idempotency_key`).
			WithArgs("evt_unknown").
			WillReturnError(sql.ErrNoRows)

		got, err := repo.GetByIdempotencyKey(context.Background(), "evt_unknown")
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingRepository_FindExpiredPending(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)
	now := time.Now()

	t.Run("Returns Candidates", func(t *testing.T) {
		booking := &models.Booking{
			ID:               uuid.New(),
			TripID:           uuid.New(),
			UserID:           uuid.New(),
			BookingReference: "BK-1234567890",
			SeatCount:        2,
			State:            models.BookingStatePendingPayment,
			PriceCharged:     2000.00,
			ExpiresAt:        now.Add(-time.Minute),
			CreatedAt:        now.Add(-20 * time.Minute),
			UpdatedAt:        now.Add(-20 * time.Minute),
		}

		mock.ExpectQuery(`SELECT (.+) FROM bookings`).
			WithArgs(now, 100).
			WillReturnRows(bookingRows(booking))

		got, err := repo.FindExpiredPending(context.Background(), now, 100)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, booking.ID, got[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Empty", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM bookings`).
			WithArgs(now, 100).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		got, err := repo.FindExpiredPending(context.Background(), now, 100)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGenerateBookingReference(t *testing.T) {
	id := uuid.MustParse("a1b2c3d4-e5f6-7890-abcd-ef0123456789")
	ref := generateBookingReference(id)
	assert.Equal(t, "BK-A1B2C3D4E5", ref)

	// Stable for the same ID
	assert.Equal(t, ref, generateBookingReference(id))
}
