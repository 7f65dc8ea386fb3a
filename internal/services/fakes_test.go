package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smarttransit/trip-booking-backend/internal/models"
)

// fakeTxRunner serializes units of work with a mutex, which models the
// row-lock serialization the real runner gets from the database.
type fakeTxRunner struct {
	mu sync.Mutex
}

func (f *fakeTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(ctx)
}

// fakeTripRepo is an in-memory TripRepository. All mutations hold the mutex
// so TryReserve stays check-and-decrement atomic under concurrent callers.
type fakeTripRepo struct {
	mu    sync.Mutex
	trips map[uuid.UUID]*models.Trip
}

func newFakeTripRepo() *fakeTripRepo {
	return &fakeTripRepo{trips: make(map[uuid.UUID]*models.Trip)}
}

func (f *fakeTripRepo) Create(ctx context.Context, trip *models.Trip) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	trip.ID = uuid.New()
	trip.AvailableSeats = trip.Capacity
	trip.Status = models.TripStatusDraft
	trip.CreatedAt = time.Now()
	trip.UpdatedAt = trip.CreatedAt
	copied := *trip
	f.trips[trip.ID] = &copied
	return nil
}

func (f *fakeTripRepo) GetByID(ctx context.Context, tripID uuid.UUID) (*models.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	trip, ok := f.trips[tripID]
	if !ok {
		return nil, nil
	}
	copied := *trip
	return &copied, nil
}

func (f *fakeTripRepo) GetByIDForUpdate(ctx context.Context, tripID uuid.UUID) (*models.Trip, error) {
	return f.GetByID(ctx, tripID)
}

func (f *fakeTripRepo) ListPublished(ctx context.Context, limit, offset int) ([]models.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	trips := []models.Trip{}
	for _, trip := range f.trips {
		if trip.Status == models.TripStatusPublished {
			trips = append(trips, *trip)
		}
	}
	return trips, nil
}

func (f *fakeTripRepo) Publish(ctx context.Context, tripID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	trip, ok := f.trips[tripID]
	if !ok || trip.Status != models.TripStatusDraft {
		return false, nil
	}
	trip.Status = models.TripStatusPublished
	return true, nil
}

func (f *fakeTripRepo) TryReserve(ctx context.Context, tripID uuid.UUID, seats int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	trip, ok := f.trips[tripID]
	if !ok || trip.Status != models.TripStatusPublished || trip.AvailableSeats < seats {
		return false, nil
	}
	trip.AvailableSeats -= seats
	return true, nil
}

func (f *fakeTripRepo) Release(ctx context.Context, tripID uuid.UUID, seats int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	trip, ok := f.trips[tripID]
	if !ok {
		return nil
	}
	trip.AvailableSeats += seats
	if trip.AvailableSeats > trip.Capacity {
		trip.AvailableSeats = trip.Capacity
	}
	return nil
}

// seats reads the current availability for assertions
func (f *fakeTripRepo) seats(tripID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trips[tripID].AvailableSeats
}

// fakeBookingRepo is an in-memory BookingRepository with the same guarded
// transitions as the SQL implementation.
type fakeBookingRepo struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*models.Booking

	// setExpiredErr injects a failure for a specific booking
	setExpiredErr map[uuid.UUID]error
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{
		bookings:      make(map[uuid.UUID]*models.Booking),
		setExpiredErr: make(map[uuid.UUID]error),
	}
}

func (f *fakeBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	booking.ID = uuid.New()
	booking.BookingReference = "BK-" + booking.ID.String()[:10]
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt
	copied := *booking
	f.bookings[booking.ID] = &copied
	return nil
}

func (f *fakeBookingRepo) GetByID(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	booking, ok := f.bookings[bookingID]
	if !ok {
		return nil, nil
	}
	copied := *booking
	return &copied, nil
}

func (f *fakeBookingRepo) GetByIDForUpdate(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	return f.GetByID(ctx, bookingID)
}

func (f *fakeBookingRepo) GetByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, booking := range f.bookings {
		if booking.IdempotencyKey != nil && *booking.IdempotencyKey == key {
			copied := *booking
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeBookingRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bookings := []models.Booking{}
	for _, booking := range f.bookings {
		if booking.UserID == userID {
			bookings = append(bookings, *booking)
		}
	}
	return bookings, nil
}

func (f *fakeBookingRepo) SetOutcome(ctx context.Context, bookingID uuid.UUID, next models.BookingState, idempotencyKey string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	booking, ok := f.bookings[bookingID]
	if !ok || booking.State != models.BookingStatePendingPayment {
		return false, nil
	}
	booking.State = next
	key := idempotencyKey
	booking.IdempotencyKey = &key
	booking.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeBookingRepo) SetExpired(ctx context.Context, bookingID uuid.UUID, next models.BookingState) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.setExpiredErr[bookingID]; err != nil {
		return false, err
	}
	booking, ok := f.bookings[bookingID]
	if !ok || booking.State != models.BookingStatePendingPayment {
		return false, nil
	}
	booking.State = next
	booking.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeBookingRepo) SetCancelled(ctx context.Context, bookingID uuid.UUID, next models.BookingState, refundAmount float64, cancelledAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	booking, ok := f.bookings[bookingID]
	if !ok {
		return false, nil
	}
	if booking.State != models.BookingStatePendingPayment && booking.State != models.BookingStateConfirmed {
		return false, nil
	}
	booking.State = next
	booking.RefundAmount = &refundAmount
	booking.CancelledAt = &cancelledAt
	booking.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeBookingRepo) FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bookings := []models.Booking{}
	for _, booking := range f.bookings {
		if booking.State == models.BookingStatePendingPayment && booking.ExpiresAt.Before(now) {
			bookings = append(bookings, *booking)
			if len(bookings) == limit {
				break
			}
		}
	}
	return bookings, nil
}

// get reads the current stored booking for assertions
func (f *fakeBookingRepo) get(bookingID uuid.UUID) *models.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *f.bookings[bookingID]
	return &copied
}

// put stores a booking directly, bypassing Create's field resets
func (f *fakeBookingRepo) put(booking *models.Booking) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *booking
	f.bookings[booking.ID] = &copied
}
