package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/trip-booking-backend/internal/models"
)

// WebhookReconciler applies externally-reported payment outcomes to bookings.
// Its job is to make repeated delivery safe: every branch other than the
// first application is side-effect-free, and branches are reported as result
// statuses so the webhook boundary can acknowledge unconditionally.
type WebhookReconciler struct {
	tx          TxRunner
	tripRepo    TripRepository
	bookingRepo BookingRepository
	logger      *logrus.Logger
}

// NewWebhookReconciler creates a new webhook reconciler
func NewWebhookReconciler(
	tx TxRunner,
	tripRepo TripRepository,
	bookingRepo BookingRepository,
	logger *logrus.Logger,
) *WebhookReconciler {
	return &WebhookReconciler{
		tx:          tx,
		tripRepo:    tripRepo,
		bookingRepo: bookingRepo,
		logger:      logger,
	}
}

// ApplyOutcome applies a payment outcome to a booking exactly once. The
// booking is re-read under a write lock inside the transaction; the snapshot
// the caller may hold from before the transaction is never trusted.
func (r *WebhookReconciler) ApplyOutcome(ctx context.Context, bookingID uuid.UUID, outcome models.PaymentOutcome, idempotencyKey string) (*models.OutcomeResult, error) {
	if idempotencyKey == "" {
		return nil, models.NewValidationError("idempotency key is required")
	}
	if outcome != models.PaymentOutcomeSucceeded && outcome != models.PaymentOutcomeFailed {
		return nil, models.NewValidationError("unknown payment outcome %q", outcome)
	}

	var result *models.OutcomeResult
	err := r.tx.RunInTx(ctx, func(txCtx context.Context) error {
		owner, err := r.bookingRepo.GetByIdempotencyKey(txCtx, idempotencyKey)
		if err != nil {
			return models.NewInternalError("failed to check idempotency key", err)
		}
		if owner != nil && owner.ID != bookingID {
			result = &models.OutcomeResult{Status: models.OutcomeDuplicateKeyConflict}
			return nil
		}

		booking, err := r.bookingRepo.GetByIDForUpdate(txCtx, bookingID)
		if err != nil {
			return models.NewInternalError("failed to load booking", err)
		}
		if booking == nil {
			result = &models.OutcomeResult{Status: models.OutcomeBookingNotFound}
			return nil
		}

		if booking.IdempotencyKey != nil && *booking.IdempotencyKey == idempotencyKey {
			result = &models.OutcomeResult{Status: models.OutcomeDuplicateDelivery, Booking: booking}
			return nil
		}

		if booking.State != models.BookingStatePendingPayment {
			result = &models.OutcomeResult{Status: models.OutcomeStale, Booking: booking}
			return nil
		}

		event := models.EventPaymentSucceeded
		if outcome == models.PaymentOutcomeFailed {
			event = models.EventPaymentFailed
		}
		next, err := NextState(booking.State, event)
		if err != nil {
			return err
		}

		applied, err := r.bookingRepo.SetOutcome(txCtx, booking.ID, next, idempotencyKey)
		if err != nil {
			return models.NewInternalError("failed to record payment outcome", err)
		}
		if !applied {
			return models.NewConflictError("booking state changed concurrently")
		}

		// Seats were reserved at creation, so success changes no inventory;
		// a failed payment hands them back.
		if outcome == models.PaymentOutcomeFailed {
			if err := r.tripRepo.Release(txCtx, booking.TripID, booking.SeatCount); err != nil {
				return models.NewInternalError("failed to release seats", err)
			}
		}

		booking.State = next
		booking.IdempotencyKey = &idempotencyKey
		result = &models.OutcomeResult{Status: models.OutcomeApplied, Booking: booking}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{
		"booking_id":      bookingID,
		"outcome":         outcome,
		"idempotency_key": idempotencyKey,
		"status":          result.Status,
	}
	if result.Status == models.OutcomeApplied {
		r.logger.WithFields(fields).Info("Payment outcome applied")
	} else {
		r.logger.WithFields(fields).Info("Payment outcome delivery resolved without mutation")
	}

	return result, nil
}
