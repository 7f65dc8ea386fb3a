package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentEventSource identifies where a payment event originated
type PaymentEventSource string

const (
	PaymentSourceWebhook PaymentEventSource = "gateway_webhook"
	PaymentSourceSystem  PaymentEventSource = "system"
)

// PaymentAudit is an immutable log entry recording one webhook delivery and
// the reconciliation branch it took. Written outside the reconciler's
// transaction so a delivery is recorded even when reconciliation fails.
type PaymentAudit struct {
	ID             uuid.UUID          `json:"id" db:"id"`
	BookingID      *uuid.UUID         `json:"booking_id,omitempty" db:"booking_id"`
	EventSource    PaymentEventSource `json:"event_source" db:"event_source"`
	Outcome        *string            `json:"outcome,omitempty" db:"outcome"`
	IdempotencyKey *string            `json:"idempotency_key,omitempty" db:"idempotency_key"`
	Result         *string            `json:"result,omitempty" db:"result"`
	IsDuplicate    bool               `json:"is_duplicate" db:"is_duplicate"`
	ErrorMessage   *string            `json:"error_message,omitempty" db:"error_message"`
	RawBody        *string            `json:"raw_body,omitempty" db:"raw_body"`
	IPAddress      *string            `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent      *string            `json:"user_agent,omitempty" db:"user_agent"`
	DeviceType     *string            `json:"device_type,omitempty" db:"device_type"`
	CreatedAt      time.Time          `json:"created_at" db:"created_at"`
}

// NewPaymentAudit creates a new payment audit entry
func NewPaymentAudit(source PaymentEventSource) *PaymentAudit {
	return &PaymentAudit{
		ID:          uuid.New(),
		EventSource: source,
		CreatedAt:   time.Now(),
	}
}

// SetBooking sets the booking the delivery targeted
func (pa *PaymentAudit) SetBooking(bookingID uuid.UUID) *PaymentAudit {
	pa.BookingID = &bookingID
	return pa
}

// SetOutcome records the reported outcome and its idempotency key
func (pa *PaymentAudit) SetOutcome(outcome, idempotencyKey string) *PaymentAudit {
	if outcome != "" {
		pa.Outcome = &outcome
	}
	if idempotencyKey != "" {
		pa.IdempotencyKey = &idempotencyKey
	}
	return pa
}

// SetResult records which reconciliation branch was taken
func (pa *PaymentAudit) SetResult(result string) *PaymentAudit {
	pa.Result = &result
	return pa
}

// MarkAsDuplicate marks this delivery as a repeat of an earlier one
func (pa *PaymentAudit) MarkAsDuplicate() *PaymentAudit {
	pa.IsDuplicate = true
	return pa
}

// SetError records a reconciliation failure
func (pa *PaymentAudit) SetError(message string) *PaymentAudit {
	pa.ErrorMessage = &message
	return pa
}

// SetRawBody stores the raw delivery body before parsing
func (pa *PaymentAudit) SetRawBody(body string) *PaymentAudit {
	pa.RawBody = &body
	return pa
}

// SetMetadata records caller metadata for the delivery
func (pa *PaymentAudit) SetMetadata(ip, userAgent, deviceType string) *PaymentAudit {
	if ip != "" {
		pa.IPAddress = &ip
	}
	if userAgent != "" {
		pa.UserAgent = &userAgent
	}
	if deviceType != "" {
		pa.DeviceType = &deviceType
	}
	return pa
}
