// Package events defines the domain event contract. Every component emits
// events after a successful state change; delivery is fire-and-forget and a
// publish failure must never roll back the operation that produced it.
package events

import (
	"context"
	"time"
)

// Event is a notification about a completed state change.
type Event struct {
	Type       string         `json:"event_type"`
	Source     string         `json:"source_module"`
	Payload    map[string]any `json:"data"`
	OccurredAt time.Time      `json:"timestamp"`
}

// Publisher delivers events to an external bus. Implementations swallow
// delivery failures (logging them) rather than surfacing an error.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Event types emitted by the engine.
const (
	TypeReservationCreated   = "RESERVATION_CREATED"
	TypeReservationConfirmed = "RESERVATION_CONFIRMED"
	TypeReservationCancelled = "RESERVATION_CANCELLED"
	TypeReservationExpired   = "RESERVATION_EXPIRED"

	TypeBookingCreated    = "BOOKING_CREATED"
	TypeBookingConfirmed  = "BOOKING_CONFIRMED"
	TypeBookingCheckedIn  = "BOOKING_CHECKED_IN"
	TypeBookingCheckedOut = "BOOKING_CHECKED_OUT"
	TypeBookingCancelled  = "BOOKING_CANCELLED"

	TypeWalletCreated           = "WALLET_CREATED"
	TypeWalletCredited          = "WALLET_CREDITED"
	TypeWalletDebited           = "WALLET_DEBITED"
	TypeWorkspaceWalletCreated  = "WORKSPACE_WALLET_CREATED"
	TypeWorkspaceWalletCredited = "WORKSPACE_WALLET_CREDITED"
	TypeWorkspaceWalletDebited  = "WORKSPACE_WALLET_DEBITED"

	TypeBookingPaymentHeld     = "BOOKING_PAYMENT_HELD"
	TypeBookingPaymentReleased = "BOOKING_PAYMENT_RELEASED"
	TypeBookingRefundProcessed = "BOOKING_REFUND_PROCESSED"

	TypeCancellationApproved = "CANCELLATION_APPROVED"
	TypeCancellationRejected = "CANCELLATION_REJECTED"

	TypeDepositInitiated     = "DEPOSIT_INITIATED"
	TypeDepositCompleted     = "DEPOSIT_COMPLETED"
	TypeWithdrawalRequested  = "WITHDRAWAL_REQUESTED"
	TypeWithdrawalProcessing = "WITHDRAWAL_PROCESSING"
	TypeWithdrawalCompleted  = "WITHDRAWAL_COMPLETED"
)

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Event) {}

// New builds an event stamped with the current time.
func New(eventType string, source string, payload map[string]any) Event {
	return Event{
		Type:       eventType,
		Source:     source,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}
