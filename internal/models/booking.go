package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// BookingState represents the lifecycle state of a booking
type BookingState string

const (
	BookingStatePendingPayment BookingState = "pending_payment"
	BookingStateConfirmed      BookingState = "confirmed"
	BookingStateCancelled      BookingState = "cancelled"
	BookingStateExpired        BookingState = "expired"
)

// IsTerminal reports whether the state has no outgoing transitions
func (s BookingState) IsTerminal() bool {
	return s == BookingStateCancelled || s == BookingStateExpired
}

// BookingEvent represents an event applied to a booking's state machine
type BookingEvent string

const (
	EventPaymentSucceeded      BookingEvent = "payment_succeeded"
	EventPaymentFailed         BookingEvent = "payment_failed"
	EventTimedOut              BookingEvent = "timed_out"
	EventCancelledBeforeCutoff BookingEvent = "cancelled_before_cutoff"
	EventCancelledAfterCutoff  BookingEvent = "cancelled_after_cutoff"
)

// Booking represents one purchase attempt against a trip's seat inventory.
// PriceCharged is a snapshot taken at creation; later trip price changes do
// not affect it. IdempotencyKey is set once, by the first externally-reported
// payment outcome applied to this booking.
type Booking struct {
	ID               uuid.UUID    `json:"id" db:"id"`
	TripID           uuid.UUID    `json:"trip_id" db:"trip_id"`
	UserID           uuid.UUID    `json:"user_id" db:"user_id"`
	BookingReference string       `json:"booking_reference" db:"booking_reference"`
	SeatCount        int          `json:"seat_count" db:"seat_count"`
	State            BookingState `json:"state" db:"state"`
	PriceCharged     float64      `json:"price_charged" db:"price_charged"`
	RefundAmount     *float64     `json:"refund_amount,omitempty" db:"refund_amount"`
	IdempotencyKey   *string      `json:"idempotency_key,omitempty" db:"idempotency_key"`
	ExpiresAt        time.Time    `json:"expires_at" db:"expires_at"`
	CancelledAt      *time.Time   `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at" db:"updated_at"`
}

// HasRecordedOutcome reports whether a payment outcome has already been
// applied to this booking
func (b *Booking) HasRecordedOutcome() bool {
	return b.IdempotencyKey != nil && *b.IdempotencyKey != ""
}

// CreateBookingRequest represents the request to create a booking
type CreateBookingRequest struct {
	TripID    string `json:"trip_id" binding:"required"`
	SeatCount int    `json:"seat_count" binding:"required,min=1"`
}

// Validate validates the create booking request
func (r *CreateBookingRequest) Validate() error {
	if r.TripID == "" {
		return errors.New("trip_id is required")
	}

	if r.SeatCount <= 0 {
		return errors.New("seat_count must be at least 1")
	}

	if r.SeatCount > 10 {
		return errors.New("maximum 10 seats can be booked at once")
	}

	return nil
}

// PaymentOutcome is the already-decided result reported by the payment gateway
type PaymentOutcome string

const (
	PaymentOutcomeSucceeded PaymentOutcome = "succeeded"
	PaymentOutcomeFailed    PaymentOutcome = "failed"
)

// PaymentWebhookRequest represents the webhook payload from the payment gateway
type PaymentWebhookRequest struct {
	BookingID      string `json:"booking_id"`
	Outcome        string `json:"outcome"`
	IdempotencyKey string `json:"idempotency_key"`
}

// OutcomeStatus identifies which branch the reconciler took for a delivery
type OutcomeStatus string

const (
	OutcomeApplied              OutcomeStatus = "applied"
	OutcomeDuplicateDelivery    OutcomeStatus = "duplicate_delivery"
	OutcomeDuplicateKeyConflict OutcomeStatus = "duplicate_key_conflict"
	OutcomeBookingNotFound      OutcomeStatus = "booking_not_found"
	OutcomeStale                OutcomeStatus = "stale_outcome"
)

// OutcomeResult is what the reconciler returns to the webhook boundary. The
// boundary acknowledges every delivery regardless of the branch taken, so the
// branch is reported as data rather than as an error.
type OutcomeResult struct {
	Status  OutcomeStatus `json:"status"`
	Booking *Booking      `json:"booking,omitempty"`
}
