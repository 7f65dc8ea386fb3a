package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/trip-booking-backend/internal/models"
)

// TripService handles the admin trip surface: creation, publication and reads
type TripService struct {
	tripRepo TripRepository
	logger   *logrus.Logger
}

// NewTripService creates a new trip service
func NewTripService(tripRepo TripRepository, logger *logrus.Logger) *TripService {
	return &TripService{
		tripRepo: tripRepo,
		logger:   logger,
	}
}

// CreateTrip creates a draft trip with a full seat inventory
func (s *TripService) CreateTrip(ctx context.Context, req *models.CreateTripRequest) (*models.Trip, error) {
	if err := req.Validate(); err != nil {
		return nil, models.NewValidationError("%s", err.Error())
	}

	trip := &models.Trip{
		RouteName:                 req.RouteName,
		Capacity:                  req.Capacity,
		PricePerSeat:              req.PricePerSeat,
		DepartureAt:               req.DepartureAt,
		RefundableUntilDaysBefore: req.RefundableUntilDaysBefore,
		CancellationFeePercent:    req.CancellationFeePercent,
	}
	if err := s.tripRepo.Create(ctx, trip); err != nil {
		return nil, models.NewInternalError("failed to create trip", err)
	}

	s.logger.WithFields(logrus.Fields{
		"trip_id":  trip.ID,
		"route":    trip.RouteName,
		"capacity": trip.Capacity,
	}).Info("Trip created")

	return trip, nil
}

// PublishTrip opens a draft trip for bookings
func (s *TripService) PublishTrip(ctx context.Context, tripID uuid.UUID) (*models.Trip, error) {
	published, err := s.tripRepo.Publish(ctx, tripID)
	if err != nil {
		return nil, models.NewInternalError("failed to publish trip", err)
	}
	if !published {
		trip, err := s.tripRepo.GetByID(ctx, tripID)
		if err != nil {
			return nil, models.NewInternalError("failed to load trip", err)
		}
		if trip == nil {
			return nil, models.NewNotFoundError("trip not found")
		}
		return nil, models.NewConflictError("trip is already %s", trip.Status)
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, models.NewInternalError("failed to load trip", err)
	}

	s.logger.WithField("trip_id", tripID).Info("Trip published")
	return trip, nil
}

// GetTrip returns a trip by ID
func (s *TripService) GetTrip(ctx context.Context, tripID uuid.UUID) (*models.Trip, error) {
	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, models.NewInternalError("failed to get trip", err)
	}
	if trip == nil {
		return nil, models.NewNotFoundError("trip not found")
	}
	return trip, nil
}

// ListPublishedTrips returns published trips with pagination
func (s *TripService) ListPublishedTrips(ctx context.Context, limit, offset int) ([]models.Trip, error) {
	trips, err := s.tripRepo.ListPublished(ctx, limit, offset)
	if err != nil {
		return nil, models.NewInternalError("failed to list trips", err)
	}
	return trips, nil
}
