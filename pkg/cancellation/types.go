// Package cancellation decides booking cancellations: it applies the tiered
// refund policy, routes late cancellations through admin approval, and is the
// only writer of the booking cancelled status.
package cancellation

import (
	"time"

	"github.com/hivedesk/hivedesk/pkg/ledger"
)

// Status is the lifecycle state of a cancellation record.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusRefunded Status = "refunded"
)

// RefundStatus tracks whether the refund leg of a cancellation settled.
type RefundStatus string

const (
	RefundPending   RefundStatus = "pending"
	RefundCompleted RefundStatus = "completed"
	RefundFailed    RefundStatus = "failed"
)

// BookingCancellation is the durable record of a cancellation request and its
// refund outcome. At most one exists per booking.
type BookingCancellation struct {
	CancellationID    string
	BookingID         string
	CancelledBy       string
	Reason            string
	ReasonDescription string
	Status            Status
	OriginalAmount    ledger.Amount
	RefundPercent     int64
	RefundAmount      ledger.Amount
	PenaltyAmount     ledger.Amount
	HoursUntilCheckIn float64
	RefundStatus      RefundStatus
	RefundReference   string
	ApprovedBy        string
	ApprovedAt        *time.Time
	RefundedAt        *time.Time
	AdminNotes        string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
