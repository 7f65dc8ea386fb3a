package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/trip-booking-backend/internal/models"
)

// TxRunner executes a unit of work as one atomic transaction. Nested calls
// join the outer transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TripRepository is the seat inventory ledger plus trip persistence
type TripRepository interface {
	Create(ctx context.Context, trip *models.Trip) error
	GetByID(ctx context.Context, tripID uuid.UUID) (*models.Trip, error)
	GetByIDForUpdate(ctx context.Context, tripID uuid.UUID) (*models.Trip, error)
	ListPublished(ctx context.Context, limit, offset int) ([]models.Trip, error)
	Publish(ctx context.Context, tripID uuid.UUID) (bool, error)
	TryReserve(ctx context.Context, tripID uuid.UUID, seats int) (bool, error)
	Release(ctx context.Context, tripID uuid.UUID, seats int) error
}

// BookingRepository persists booking rows
type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
	GetByIDForUpdate(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Booking, error)
	SetOutcome(ctx context.Context, bookingID uuid.UUID, next models.BookingState, idempotencyKey string) (bool, error)
	SetExpired(ctx context.Context, bookingID uuid.UUID, next models.BookingState) (bool, error)
	SetCancelled(ctx context.Context, bookingID uuid.UUID, next models.BookingState, refundAmount float64, cancelledAt time.Time) (bool, error)
	FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.Booking, error)
}

// BookingServiceConfig holds configuration for the booking service
type BookingServiceConfig struct {
	HoldDuration time.Duration // how long a pending payment holds its seats
}

// DefaultBookingServiceConfig returns default configuration
func DefaultBookingServiceConfig() BookingServiceConfig {
	return BookingServiceConfig{
		HoldDuration: 15 * time.Minute,
	}
}

// BookingService orchestrates booking creation and cancellation. All
// read-modify-write sequences run inside a single transaction and re-read
// the rows they change under a write lock.
type BookingService struct {
	tx          TxRunner
	tripRepo    TripRepository
	bookingRepo BookingRepository
	config      BookingServiceConfig
	logger      *logrus.Logger
	now         func() time.Time
}

// NewBookingService creates a new booking service
func NewBookingService(
	tx TxRunner,
	tripRepo TripRepository,
	bookingRepo BookingRepository,
	config BookingServiceConfig,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		tx:          tx,
		tripRepo:    tripRepo,
		bookingRepo: bookingRepo,
		config:      config,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateBooking atomically reserves seats and inserts a pending booking. The
// reservation and the insert commit together or not at all; a failed
// admission leaves no partial booking row behind.
func (s *BookingService) CreateBooking(ctx context.Context, userID uuid.UUID, req *models.CreateBookingRequest) (*models.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, models.NewValidationError("%s", err.Error())
	}

	tripID, err := uuid.Parse(req.TripID)
	if err != nil {
		return nil, models.NewValidationError("invalid trip_id")
	}

	var booking *models.Booking
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		trip, err := s.tripRepo.GetByID(txCtx, tripID)
		if err != nil {
			return models.NewInternalError("failed to load trip", err)
		}
		if trip == nil || !trip.IsPublished() {
			return models.NewNotFoundError("trip not found")
		}

		reserved, err := s.tripRepo.TryReserve(txCtx, trip.ID, req.SeatCount)
		if err != nil {
			return models.NewInternalError("failed to reserve seats", err)
		}
		if !reserved {
			return models.NewConflictError("insufficient seats")
		}

		now := s.now()
		booking = &models.Booking{
			TripID:       trip.ID,
			UserID:       userID,
			SeatCount:    req.SeatCount,
			State:        models.BookingStatePendingPayment,
			PriceCharged: round2(trip.PricePerSeat * float64(req.SeatCount)),
			ExpiresAt:    now.Add(s.config.HoldDuration),
		}
		if err := s.bookingRepo.Create(txCtx, booking); err != nil {
			return models.NewInternalError("failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"trip_id":    booking.TripID,
		"user_id":    userID,
		"seat_count": booking.SeatCount,
		"expires_at": booking.ExpiresAt,
	}).Info("Booking created")

	return booking, nil
}

// CancelBooking cancels a booking and computes its refund. Seats return to
// inventory only for refundable cancellations; a cancellation past the
// cutoff keeps the seats reserved because the trip is imminent and they
// cannot be resold in time.
// A zero requestedBy skips the ownership check (system and admin callers).
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, requestedBy uuid.UUID) (*models.Booking, error) {
	var booking *models.Booking
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		b, err := s.bookingRepo.GetByIDForUpdate(txCtx, bookingID)
		if err != nil {
			return models.NewInternalError("failed to load booking", err)
		}
		if b == nil {
			return models.NewNotFoundError("booking not found")
		}
		if requestedBy != uuid.Nil && b.UserID != requestedBy {
			// Do not reveal other users' bookings
			return models.NewNotFoundError("booking not found")
		}

		if b.State.IsTerminal() {
			return models.NewConflictError("booking is already %s", b.State)
		}
		if b.State == models.BookingStatePendingPayment && b.HasRecordedOutcome() {
			return models.NewConflictError("booking has a recorded payment outcome and cannot be cancelled")
		}

		trip, err := s.tripRepo.GetByID(txCtx, b.TripID)
		if err != nil {
			return models.NewInternalError("failed to load trip", err)
		}
		if trip == nil {
			return models.NewNotFoundError("trip not found")
		}

		now := s.now()
		refundable := trip.IsRefundableAt(now)
		if b.State == models.BookingStatePendingPayment && !refundable {
			return models.NewConflictError("cannot cancel a pending payment past the refund cutoff")
		}

		event := models.EventCancelledAfterCutoff
		if refundable {
			event = models.EventCancelledBeforeCutoff
		}
		next, err := NextState(b.State, event)
		if err != nil {
			return err
		}

		refund := CalculateRefund(b.PriceCharged, trip.CancellationFeePercent, refundable)
		updated, err := s.bookingRepo.SetCancelled(txCtx, b.ID, next, refund, now)
		if err != nil {
			return models.NewInternalError("failed to cancel booking", err)
		}
		if !updated {
			return models.NewConflictError("booking state changed concurrently")
		}

		if refundable {
			if err := s.tripRepo.Release(txCtx, b.TripID, b.SeatCount); err != nil {
				return models.NewInternalError("failed to release seats", err)
			}
		}

		b.State = next
		b.RefundAmount = &refund
		b.CancelledAt = &now
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":    booking.ID,
		"trip_id":       booking.TripID,
		"refund_amount": *booking.RefundAmount,
	}).Info("Booking cancelled")

	return booking, nil
}

// GetBooking returns a booking by ID
func (s *BookingService) GetBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, models.NewInternalError("failed to get booking", err)
	}
	if booking == nil {
		return nil, models.NewNotFoundError("booking not found")
	}
	return booking, nil
}

// ListBookingsByUser returns a user's bookings with pagination
func (s *BookingService) ListBookingsByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Booking, error) {
	bookings, err := s.bookingRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, models.NewInternalError("failed to list bookings", err)
	}
	return bookings, nil
}
