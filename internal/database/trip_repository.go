package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/trip-booking-backend/internal/models"
)

// TripRepository handles trip and seat inventory database operations
type TripRepository struct {
	db *sqlx.DB
}

// NewTripRepository creates a new TripRepository
func NewTripRepository(db *sqlx.DB) *TripRepository {
	return &TripRepository{db: db}
}

const tripColumns = `
	id, route_name, capacity, available_seats, price_per_seat,
	refundable_until_days_before, cancellation_fee_percent,
	status, departure_at, created_at, updated_at`

// Create inserts a new trip in draft status with a full seat inventory
func (r *TripRepository) Create(ctx context.Context, trip *models.Trip) error {
	trip.ID = uuid.New()
	trip.AvailableSeats = trip.Capacity
	trip.Status = models.TripStatusDraft
	trip.CreatedAt = time.Now()
	trip.UpdatedAt = trip.CreatedAt

	query := `
		INSERT INTO trips (
			id, route_name, capacity, available_seats, price_per_seat,
			refundable_until_days_before, cancellation_fee_percent,
			status, departure_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := ext(ctx, r.db).ExecContext(ctx, query,
		trip.ID, trip.RouteName, trip.Capacity, trip.AvailableSeats, trip.PricePerSeat,
		trip.RefundableUntilDaysBefore, trip.CancellationFeePercent,
		trip.Status, trip.DepartureAt, trip.CreatedAt, trip.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create trip: %w", err)
	}
	return nil
}

// GetByID retrieves a trip by ID, returning nil when it does not exist
func (r *TripRepository) GetByID(ctx context.Context, tripID uuid.UUID) (*models.Trip, error) {
	var trip models.Trip
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	err := sqlx.GetContext(ctx, ext(ctx, r.db), &trip, query, tripID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return &trip, nil
}

// GetByIDForUpdate retrieves a trip by ID with a row-level write lock. Must
// be called inside a transaction.
func (r *TripRepository) GetByIDForUpdate(ctx context.Context, tripID uuid.UUID) (*models.Trip, error) {
	var trip models.Trip
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1 FOR UPDATE`

	err := sqlx.GetContext(ctx, ext(ctx, r.db), &trip, query, tripID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip for update: %w", err)
	}
	return &trip, nil
}

// ListPublished retrieves published trips ordered by departure time
func (r *TripRepository) ListPublished(ctx context.Context, limit, offset int) ([]models.Trip, error) {
	trips := []models.Trip{}
	query := `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE status = 'published'
		ORDER BY departure_at
		LIMIT $1 OFFSET $2`

	err := sqlx.SelectContext(ctx, ext(ctx, r.db), &trips, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list published trips: %w", err)
	}
	return trips, nil
}

// Publish moves a draft trip to published. Returns false when the trip does
// not exist or is not in draft.
func (r *TripRepository) Publish(ctx context.Context, tripID uuid.UUID) (bool, error) {
	query := `
		UPDATE trips
		SET status = 'published', updated_at = NOW()
		WHERE id = $1 AND status = 'draft'`

	result, err := ext(ctx, r.db).ExecContext(ctx, query, tripID)
	if err != nil {
		return false, fmt.Errorf("failed to publish trip: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// TryReserve atomically decrements available_seats by seats if the trip is
// published and has enough remaining. This single conditional UPDATE is the
// sole admission-control point; availability is never checked and written as
// two separate statements.
func (r *TripRepository) TryReserve(ctx context.Context, tripID uuid.UUID, seats int) (bool, error) {
	query := `
		UPDATE trips
		SET available_seats = available_seats - $2, updated_at = NOW()
		WHERE id = $1
		  AND status = 'published'
		  AND available_seats >= $2`

	result, err := ext(ctx, r.db).ExecContext(ctx, query, tripID, seats)
	if err != nil {
		return false, fmt.Errorf("failed to reserve seats: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read reservation result: %w", err)
	}
	return rows > 0, nil
}

// Release returns seats to the trip's inventory, clamped at capacity to
// guard against duplicate releases.
func (r *TripRepository) Release(ctx context.Context, tripID uuid.UUID, seats int) error {
	query := `
		UPDATE trips
		SET available_seats = LEAST(capacity, available_seats + $2), updated_at = NOW()
		WHERE id = $1`

	_, err := ext(ctx, r.db).ExecContext(ctx, query, tripID, seats)
	if err != nil {
		return fmt.Errorf("failed to release seats: %w", err)
	}
	return nil
}
