package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/trip-booking-backend/internal/models"
	"github.com/smarttransit/trip-booking-backend/internal/utils"
)

// PaymentReconciler applies a payment outcome to a booking exactly once
type PaymentReconciler interface {
	ApplyOutcome(ctx context.Context, bookingID uuid.UUID, outcome models.PaymentOutcome, idempotencyKey string) (*models.OutcomeResult, error)
}

// PaymentAuditStore persists and reads back webhook delivery audit entries
type PaymentAuditStore interface {
	Create(ctx context.Context, audit *models.PaymentAudit) error
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.PaymentAudit, error)
}

// WebhookHandler handles payment gateway webhook deliveries
type WebhookHandler struct {
	reconciler PaymentReconciler
	auditRepo  PaymentAuditStore
	logger     *logrus.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(reconciler PaymentReconciler, auditRepo PaymentAuditStore, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{
		reconciler: reconciler,
		auditRepo:  auditRepo,
		logger:     logger,
	}
}

// HandlePaymentWebhook applies an externally-reported payment outcome.
// Deliveries are at-least-once, so every resolvable delivery is acknowledged
// with 200 regardless of the reconciliation branch taken. Only a payload the
// gateway must fix gets a 400, and only a transient failure worth retrying
// gets a 500.
// @Summary Payment gateway webhook
// @Description Apply a payment outcome reported by the payment gateway
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body models.PaymentWebhookRequest true "Webhook payload"
// @Success 200 {object} models.OutcomeResult
// @Failure 400 {object} map[string]interface{} "Malformed payload"
// @Failure 500 {object} map[string]interface{} "Transient failure, retry"
// @Router /api/v1/payments/webhook [post]
func (h *WebhookHandler) HandlePaymentWebhook(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(rawBody))

	deviceInfo := utils.ParseUserAgent(c.Request.UserAgent())
	audit := models.NewPaymentAudit(models.PaymentSourceWebhook).
		SetRawBody(string(rawBody)).
		SetMetadata(c.ClientIP(), deviceInfo.Raw, deviceInfo.DeviceType)

	var req models.PaymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		audit.SetError("malformed payload: " + err.Error())
		h.safeRecordAudit(c.Request.Context(), audit)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	audit.SetOutcome(req.Outcome, req.IdempotencyKey)

	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		audit.SetError("invalid booking_id")
		h.safeRecordAudit(c.Request.Context(), audit)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking_id"})
		return
	}
	audit.SetBooking(bookingID)

	result, err := h.reconciler.ApplyOutcome(c.Request.Context(), bookingID, models.PaymentOutcome(req.Outcome), req.IdempotencyKey)
	if err != nil {
		audit.SetError(err.Error())
		h.safeRecordAudit(c.Request.Context(), audit)
		if models.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
			return
		}
		// Conflicts here mean a racing writer; the gateway retry will land on
		// a side-effect-free branch.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "Failed to process payment outcome, please retry"})
		return
	}

	audit.SetResult(string(result.Status))
	if result.Status == models.OutcomeDuplicateDelivery {
		audit.MarkAsDuplicate()
	}
	h.safeRecordAudit(c.Request.Context(), audit)

	c.JSON(http.StatusOK, result)
}

// ListBookingAudits returns the webhook delivery log for a booking
// @Summary List payment audit entries for a booking
// @Description Retrieve every recorded webhook delivery for a booking, oldest first
// @Tags Payments
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{} "Invalid booking ID"
// @Security BearerAuth
// @Router /api/v1/admin/bookings/{id}/audits [get]
func (h *WebhookHandler) ListBookingAudits(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	audits, err := h.auditRepo.ListByBooking(c.Request.Context(), bookingID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list payment audits")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve payment audits"})
		return
	}
	if audits == nil {
		audits = []models.PaymentAudit{}
	}

	c.JSON(http.StatusOK, gin.H{
		"booking_id": bookingID,
		"audits":     audits,
		"count":      len(audits),
	})
}

// safeRecordAudit logs audit persistence failures without failing the delivery
func (h *WebhookHandler) safeRecordAudit(ctx context.Context, audit *models.PaymentAudit) {
	if err := h.auditRepo.Create(ctx, audit); err != nil {
		h.logger.WithError(err).Error("Failed to record payment audit entry")
	}
}
