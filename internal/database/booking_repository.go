package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/trip-booking-backend/internal/models"
)

// BookingRepository handles booking database operations
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `
	id, trip_id, user_id, booking_reference, seat_count, state,
	price_charged, refund_amount, idempotency_key,
	expires_at, cancelled_at, created_at, updated_at`

// Create inserts a new booking row. The caller decides the state; creation
// always happens inside the same transaction as the seat reservation.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	booking.ID = uuid.New()
	booking.BookingReference = generateBookingReference(booking.ID)
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt

	query := `
		INSERT INTO bookings (
			id, trip_id, user_id, booking_reference, seat_count, state,
			price_charged, refund_amount, idempotency_key,
			expires_at, cancelled_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := ext(ctx, r.db).ExecContext(ctx, query,
		booking.ID, booking.TripID, booking.UserID, booking.BookingReference,
		booking.SeatCount, booking.State, booking.PriceCharged,
		booking.RefundAmount, booking.IdempotencyKey,
		booking.ExpiresAt, booking.CancelledAt, booking.CreatedAt, booking.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// GetByID retrieves a booking by ID, returning nil when it does not exist
func (r *BookingRepository) GetByID(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	err := sqlx.GetContext(ctx, ext(ctx, r.db), &booking, query, bookingID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

// GetByIDForUpdate retrieves a booking by ID with a row-level write lock so
// the caller acts on current state, not a pre-transaction snapshot. Must be
// called inside a transaction.
func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`

	err := sqlx.GetContext(ctx, ext(ctx, r.db), &booking, query, bookingID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking for update: %w", err)
	}
	return &booking, nil
}

// GetByIdempotencyKey retrieves the booking that owns an idempotency key,
// returning nil when no outcome with that key has been applied yet
func (r *BookingRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE idempotency_key = $1`

	err := sqlx.GetContext(ctx, ext(ctx, r.db), &booking, query, key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking by idempotency key: %w", err)
	}
	return &booking, nil
}

// ListByUser retrieves a user's bookings, newest first
func (r *BookingRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Booking, error) {
	bookings := []models.Booking{}
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	err := sqlx.SelectContext(ctx, ext(ctx, r.db), &bookings, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// SetOutcome moves a pending booking to next and records the idempotency key
// of the outcome that produced the transition. Returns false when the booking
// is no longer pending.
func (r *BookingRepository) SetOutcome(ctx context.Context, bookingID uuid.UUID, next models.BookingState, idempotencyKey string) (bool, error) {
	query := `
		UPDATE bookings
		SET state = $2, idempotency_key = $3, updated_at = NOW()
		WHERE id = $1 AND state = 'pending_payment'`

	result, err := ext(ctx, r.db).ExecContext(ctx, query, bookingID, next, idempotencyKey)
	if err != nil {
		return false, fmt.Errorf("failed to record payment outcome: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// SetExpired moves a pending booking to next on timeout. Returns false when
// the booking is no longer pending.
func (r *BookingRepository) SetExpired(ctx context.Context, bookingID uuid.UUID, next models.BookingState) (bool, error) {
	query := `
		UPDATE bookings
		SET state = $2, updated_at = NOW()
		WHERE id = $1 AND state = 'pending_payment'`

	result, err := ext(ctx, r.db).ExecContext(ctx, query, bookingID, next)
	if err != nil {
		return false, fmt.Errorf("failed to expire booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// SetCancelled moves a non-terminal booking to next and records the refund.
// Returns false when the booking has already reached a terminal state.
func (r *BookingRepository) SetCancelled(ctx context.Context, bookingID uuid.UUID, next models.BookingState, refundAmount float64, cancelledAt time.Time) (bool, error) {
	query := `
		UPDATE bookings
		SET state = $2, refund_amount = $3, cancelled_at = $4, updated_at = NOW()
		WHERE id = $1 AND state IN ('pending_payment', 'confirmed')`

	result, err := ext(ctx, r.db).ExecContext(ctx, query, bookingID, next, refundAmount, cancelledAt)
	if err != nil {
		return false, fmt.Errorf("failed to cancel booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// FindExpiredPending returns pending bookings whose hold has lapsed. This is
// a snapshot read for the expiry sweep; each candidate is re-checked inside
// its own transaction before being transitioned.
func (r *BookingRepository) FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.Booking, error) {
	bookings := []models.Booking{}
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE state = 'pending_payment' AND expires_at < $1
		ORDER BY expires_at
		LIMIT $2`

	err := sqlx.SelectContext(ctx, ext(ctx, r.db), &bookings, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired bookings: %w", err)
	}
	return bookings, nil
}

// generateBookingReference derives a short human-facing code from the booking ID
func generateBookingReference(id uuid.UUID) string {
	return "BK-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:10])
}
