package services

import (
	"github.com/smarttransit/trip-booking-backend/internal/models"
)

// transitionTable is the single definition of the booking lifecycle. Every
// orchestrator consults it instead of branching on state ad hoc; Cancelled
// and Expired have no entries because they are terminal.
var transitionTable = map[models.BookingState]map[models.BookingEvent]models.BookingState{
	models.BookingStatePendingPayment: {
		models.EventPaymentSucceeded:      models.BookingStateConfirmed,
		models.EventPaymentFailed:         models.BookingStateExpired,
		models.EventTimedOut:              models.BookingStateExpired,
		models.EventCancelledBeforeCutoff: models.BookingStateCancelled,
	},
	models.BookingStateConfirmed: {
		models.EventCancelledBeforeCutoff: models.BookingStateCancelled,
		models.EventCancelledAfterCutoff:  models.BookingStateCancelled,
	},
}

// NextState returns the state produced by applying event in the current
// state. Pairs absent from the table are illegal and fail with a conflict
// naming both; they never silently no-op.
func NextState(current models.BookingState, event models.BookingEvent) (models.BookingState, error) {
	if next, ok := transitionTable[current][event]; ok {
		return next, nil
	}
	return "", models.NewConflictError("illegal transition: event %q cannot be applied in state %q", event, current)
}

// CanTransition reports whether the pair (current, event) is in the table
func CanTransition(current models.BookingState, event models.BookingEvent) bool {
	_, ok := transitionTable[current][event]
	return ok
}
