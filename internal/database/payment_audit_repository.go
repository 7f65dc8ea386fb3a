package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/trip-booking-backend/internal/models"
)

// PaymentAuditRepository handles the immutable webhook delivery log
type PaymentAuditRepository struct {
	db *sqlx.DB
}

// NewPaymentAuditRepository creates a new PaymentAuditRepository
func NewPaymentAuditRepository(db *sqlx.DB) *PaymentAuditRepository {
	return &PaymentAuditRepository{db: db}
}

// Create inserts an audit entry. Runs on the base connection, never inside
// the reconciler's transaction, so the delivery is recorded even when
// reconciliation rolls back.
func (r *PaymentAuditRepository) Create(ctx context.Context, audit *models.PaymentAudit) error {
	query := `
		INSERT INTO payment_audits (
			id, booking_id, event_source, outcome, idempotency_key, result,
			is_duplicate, error_message, raw_body,
			ip_address, user_agent, device_type, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.ExecContext(ctx, query,
		audit.ID, audit.BookingID, audit.EventSource, audit.Outcome,
		audit.IdempotencyKey, audit.Result, audit.IsDuplicate,
		audit.ErrorMessage, audit.RawBody,
		audit.IPAddress, audit.UserAgent, audit.DeviceType, audit.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment audit: %w", err)
	}
	return nil
}

// ListByBooking retrieves the delivery log for a booking, oldest first
func (r *PaymentAuditRepository) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.PaymentAudit, error) {
	audits := []models.PaymentAudit{}
	query := `
		SELECT id, booking_id, event_source, outcome, idempotency_key, result,
		       is_duplicate, error_message, raw_body,
		       ip_address, user_agent, device_type, created_at
		FROM payment_audits
		WHERE booking_id = $1
		ORDER BY created_at`

	err := sqlx.SelectContext(ctx, r.db, &audits, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment audits: %w", err)
	}
	return audits, nil
}
