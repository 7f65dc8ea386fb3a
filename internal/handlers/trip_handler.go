package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/smarttransit/trip-booking-backend/internal/models"
	"github.com/smarttransit/trip-booking-backend/internal/services"
)

// TripHandler handles trip operations
type TripHandler struct {
	tripService *services.TripService
}

// NewTripHandler creates a new TripHandler
func NewTripHandler(tripService *services.TripService) *TripHandler {
	return &TripHandler{
		tripService: tripService,
	}
}

// CreateTrip creates a new draft trip
// @Summary Create a trip
// @Description Create a draft trip with a full seat inventory (admin only)
// @Tags Trips
// @Accept json
// @Produce json
// @Param request body models.CreateTripRequest true "Trip details"
// @Success 201 {object} models.Trip
// @Failure 400 {object} map[string]interface{} "Invalid request"
// @Security BearerAuth
// @Router /api/v1/admin/trips [post]
func (h *TripHandler) CreateTrip(c *gin.Context) {
	var req models.CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	trip, err := h.tripService.CreateTrip(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, trip)
}

// PublishTrip opens a draft trip for bookings
// @Summary Publish a trip
// @Description Open a draft trip for bookings (admin only)
// @Tags Trips
// @Produce json
// @Param id path string true "Trip ID"
// @Success 200 {object} models.Trip
// @Failure 404 {object} map[string]interface{} "Trip not found"
// @Failure 409 {object} map[string]interface{} "Trip is not a draft"
// @Security BearerAuth
// @Router /api/v1/admin/trips/{id}/publish [post]
func (h *TripHandler) PublishTrip(c *gin.Context) {
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}

	trip, err := h.tripService.PublishTrip(c.Request.Context(), tripID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, trip)
}

// GetTrip returns a single trip
// @Summary Get a trip
// @Description Get a trip by ID
// @Tags Trips
// @Produce json
// @Param id path string true "Trip ID"
// @Success 200 {object} models.Trip
// @Failure 404 {object} map[string]interface{} "Trip not found"
// @Router /api/v1/trips/{id} [get]
func (h *TripHandler) GetTrip(c *gin.Context) {
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}

	trip, err := h.tripService.GetTrip(c.Request.Context(), tripID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, trip)
}

// ListTrips returns published trips
// @Summary List published trips
// @Description List trips open for booking with pagination
// @Tags Trips
// @Produce json
// @Param limit query int false "Page size (default 20, max 100)"
// @Param offset query int false "Offset (default 0)"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/trips [get]
func (h *TripHandler) ListTrips(c *gin.Context) {
	limit, offset := parsePagination(c)

	trips, err := h.tripService.ListPublishedTrips(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	if trips == nil {
		trips = []models.Trip{}
	}

	c.JSON(http.StatusOK, gin.H{
		"trips":  trips,
		"limit":  limit,
		"offset": offset,
	})
}
