package booking

import (
	"time"

	"github.com/hivedesk/hivedesk/pkg/ledger"
	"github.com/hivedesk/hivedesk/pkg/reservation"
)

// Status is the booking lifecycle state. The canonical in-progress state is
// StatusInProgress; it is set at check-in and cleared to StatusCompleted at
// check-out.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// ActiveStatuses are the states that occupy a space for conflict checks.
var ActiveStatuses = []Status{StatusConfirmed, StatusInProgress}

// Booking is the durable record of an occupancy. It is never physically
// deleted; cancellation is a status transition owned by the cancellation
// engine.
type Booking struct {
	BookingID      string
	SpaceID        string
	WorkspaceID    string
	UserID         string
	BookingType    reservation.BookingType
	CheckIn        time.Time
	CheckOut       time.Time
	Guests         int
	BasePrice      ledger.Amount
	DiscountAmount ledger.Amount
	TaxAmount      ledger.Amount
	TotalPrice     ledger.Amount
	Status         Status
	IsCheckedIn    bool
	IsCheckedOut   bool
	CancelledAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CartItem records the cart origin of a pending booking. Cart items pointing
// at a reservation are removed when that reservation is cancelled.
type CartItem struct {
	CartItemID    string
	UserID        string
	SpaceID       string
	ReservationID string
	CreatedAt     time.Time
}
