package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/trip-booking-backend/internal/models"
)

// ExpirySweeperConfig holds configuration for the expiry sweeper
type ExpirySweeperConfig struct {
	Interval  time.Duration // how often the sweep runs
	BatchSize int           // max candidates per run
}

// DefaultExpirySweeperConfig returns default configuration
func DefaultExpirySweeperConfig() ExpirySweeperConfig {
	return ExpirySweeperConfig{
		Interval:  1 * time.Minute,
		BatchSize: 100,
	}
}

// ExpirySweeper reclaims inventory from abandoned pending bookings. The
// candidate query is a snapshot read outside any transaction; each candidate
// is then processed in its own transaction so one failure cannot block the
// rest of the sweep.
type ExpirySweeper struct {
	tx          TxRunner
	tripRepo    TripRepository
	bookingRepo BookingRepository
	config      ExpirySweeperConfig
	logger      *logrus.Logger
	stopCh      chan struct{}
	now         func() time.Time
}

// NewExpirySweeper creates a new expiry sweeper
func NewExpirySweeper(
	tx TxRunner,
	tripRepo TripRepository,
	bookingRepo BookingRepository,
	config ExpirySweeperConfig,
	logger *logrus.Logger,
) *ExpirySweeper {
	return &ExpirySweeper{
		tx:          tx,
		tripRepo:    tripRepo,
		bookingRepo: bookingRepo,
		config:      config,
		logger:      logger,
		stopCh:      make(chan struct{}),
		now:         time.Now,
	}
}

// Start begins the background sweep loop
func (s *ExpirySweeper) Start() {
	s.logger.WithField("interval", s.config.Interval).Info("Starting expiry sweeper")
	go s.run()
}

// Stop stops the background sweep loop
func (s *ExpirySweeper) Stop() {
	s.logger.Info("Stopping expiry sweeper")
	close(s.stopCh)
}

func (s *ExpirySweeper) run() {
	// Run immediately on start, then on the ticker
	s.RunOnce(context.Background())

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(context.Background())
		case <-s.stopCh:
			s.logger.Info("Expiry sweeper stopped")
			return
		}
	}
}

// RunOnce performs a single sweep. Exported for manual triggering and tests.
func (s *ExpirySweeper) RunOnce(ctx context.Context) {
	candidates, err := s.bookingRepo.FindExpiredPending(ctx, s.now(), s.config.BatchSize)
	if err != nil {
		s.logger.WithError(err).Error("Failed to find expired bookings")
		return
	}
	if len(candidates) == 0 {
		return
	}

	s.logger.WithField("count", len(candidates)).Info("Processing expired bookings")

	for _, candidate := range candidates {
		if err := s.expireOne(ctx, candidate.ID); err != nil {
			s.logger.WithError(err).WithField("booking_id", candidate.ID).Error("Failed to expire booking")
		}
	}
}

// expireOne transitions a single booking to Expired and releases its seats.
// The booking is re-read under a write lock; a candidate that has already
// been reconciled or cancelled by a racing operation is skipped.
func (s *ExpirySweeper) expireOne(ctx context.Context, bookingID uuid.UUID) error {
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		booking, err := s.bookingRepo.GetByIDForUpdate(txCtx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil || booking.State != models.BookingStatePendingPayment {
			return nil
		}
		if booking.ExpiresAt.After(s.now()) {
			return nil
		}

		next, err := NextState(booking.State, models.EventTimedOut)
		if err != nil {
			return err
		}

		expired, err := s.bookingRepo.SetExpired(txCtx, booking.ID, next)
		if err != nil {
			return err
		}
		if !expired {
			return nil
		}

		if err := s.tripRepo.Release(txCtx, booking.TripID, booking.SeatCount); err != nil {
			return err
		}

		s.logger.WithFields(logrus.Fields{
			"booking_id": booking.ID,
			"trip_id":    booking.TripID,
			"seat_count": booking.SeatCount,
		}).Info("Booking expired and seats released")
		return nil
	})
}
