package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TripStatus represents the publication status of a trip
type TripStatus string

const (
	TripStatusDraft     TripStatus = "draft"
	TripStatusPublished TripStatus = "published"
)

// Trip represents a scheduled trip with a fungible seat inventory.
// AvailableSeats is the single source of truth for admission and is only
// mutated through the trip repository inside a transaction.
type Trip struct {
	ID                        uuid.UUID  `json:"id" db:"id"`
	RouteName                 string     `json:"route_name" db:"route_name"`
	Capacity                  int        `json:"capacity" db:"capacity"`
	AvailableSeats            int        `json:"available_seats" db:"available_seats"`
	PricePerSeat              float64    `json:"price_per_seat" db:"price_per_seat"`
	RefundableUntilDaysBefore int        `json:"refundable_until_days_before" db:"refundable_until_days_before"`
	CancellationFeePercent    int        `json:"cancellation_fee_percent" db:"cancellation_fee_percent"`
	Status                    TripStatus `json:"status" db:"status"`
	DepartureAt               time.Time  `json:"departure_at" db:"departure_at"`
	CreatedAt                 time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt                 time.Time  `json:"updated_at" db:"updated_at"`
}

// IsPublished reports whether the trip accepts bookings
func (t *Trip) IsPublished() bool {
	return t.Status == TripStatusPublished
}

// DaysUntilDeparture returns the number of whole days between now and departure
func (t *Trip) DaysUntilDeparture(now time.Time) int {
	return int(t.DepartureAt.Sub(now).Hours() / 24)
}

// IsRefundableAt reports whether a cancellation at the given instant falls
// before the trip's refund cutoff
func (t *Trip) IsRefundableAt(now time.Time) bool {
	return t.DaysUntilDeparture(now) > t.RefundableUntilDaysBefore
}

// CreateTripRequest represents the admin request to create a trip
type CreateTripRequest struct {
	RouteName                 string    `json:"route_name" binding:"required"`
	Capacity                  int       `json:"capacity" binding:"required,min=1"`
	PricePerSeat              float64   `json:"price_per_seat" binding:"required"`
	DepartureAt               time.Time `json:"departure_at" binding:"required"`
	RefundableUntilDaysBefore int       `json:"refundable_until_days_before"`
	CancellationFeePercent    int       `json:"cancellation_fee_percent"`
}

// Validate validates the create trip request
func (r *CreateTripRequest) Validate() error {
	if r.RouteName == "" {
		return errors.New("route_name is required")
	}

	if r.Capacity <= 0 {
		return errors.New("capacity must be at least 1")
	}

	if r.PricePerSeat < 0 {
		return errors.New("price_per_seat cannot be negative")
	}

	if r.RefundableUntilDaysBefore < 0 {
		return errors.New("refundable_until_days_before cannot be negative")
	}

	if r.CancellationFeePercent < 0 || r.CancellationFeePercent > 100 {
		return errors.New("cancellation_fee_percent must be between 0 and 100")
	}

	return nil
}
