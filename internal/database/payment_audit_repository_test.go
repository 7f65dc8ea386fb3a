package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/smarttransit/trip-booking-backend/internal/models"
)

func auditRows(audits ...*models.PaymentAudit) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "booking_id", "event_source", "outcome", "idempotency_key", "result",
		"is_duplicate", "error_message", "raw_body",
		"ip_address", "user_agent", "device_type", "created_at",
	})
	for _, a := range audits {
		rows.AddRow(
			a.ID, a.BookingID, a.EventSource, a.Outcome, a.IdempotencyKey, a.Result,
			a.IsDuplicate, a.ErrorMessage, a.RawBody,
			a.IPAddress, a.UserAgent, a.DeviceType, a.CreatedAt,
		)
	}
	return rows
}

func TestPaymentAuditRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentAuditRepository(db)

	bookingID := uuid.New()
	audit := models.NewPaymentAudit(models.PaymentSourceWebhook).
		SetBooking(bookingID).
		SetOutcome("succeeded", "evt_1").
		SetResult("applied")

	mock.ExpectExec(`INSERT INTO payment_audits`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), audit))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentAuditRepository_ListByBooking(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentAuditRepository(db)
	bookingID := uuid.New()

	t.Run("Returns The Delivery Log", func(t *testing.T) {
		first := models.NewPaymentAudit(models.PaymentSourceWebhook).
			SetBooking(bookingID).
			SetOutcome("succeeded", "evt_1").
			SetResult("applied")
		second := models.NewPaymentAudit(models.PaymentSourceWebhook).
			SetBooking(bookingID).
			SetOutcome("succeeded", "evt_1").
			SetResult("duplicate_delivery").
			MarkAsDuplicate()

		mock.ExpectQuery(`FROM payment_audits`).
			WithArgs(bookingID).
			WillReturnRows(auditRows(first, second))

		audits, err := repo.ListByBooking(context.Background(), bookingID)
		require.NoError(t, err)
		require.Len(t, audits, 2)
		assert.False(t, audits[0].IsDuplicate)
		assert.True(t, audits[1].IsDuplicate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("No Deliveries Yields Empty Slice", func(t *testing.T) {
		mock.ExpectQuery(`FROM payment_audits`).
			WithArgs(bookingID).
			WillReturnRows(auditRows())

		audits, err := repo.ListByBooking(context.Background(), bookingID)
		require.NoError(t, err)
		assert.NotNil(t, audits)
		assert.Empty(t, audits)
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectQuery(`FROM payment_audits`).
			WithArgs(bookingID).
			WillReturnError(fmt.Errorf("connection reset"))

		_, err := repo.ListByBooking(context.Background(), bookingID)
		assert.Error(t, err)
	})
}
