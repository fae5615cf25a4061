package cancellation

import "github.com/hivedesk/hivedesk/pkg/faults"

// Domain-level error values returned by the cancellation engine.
var (
	ErrBookingCancelled      = faults.New(faults.KindState, "booking is already cancelled")
	ErrBookingCompleted      = faults.New(faults.KindState, "completed bookings cannot be cancelled")
	ErrBookingInProgress     = faults.New(faults.KindState, "checked-in bookings cannot be cancelled")
	ErrDuplicateCancellation = faults.New(faults.KindConflict, "a cancellation already exists for this booking")
	ErrNotPending            = faults.New(faults.KindState, "cancellation is not pending")
	ErrInvalidOverride       = faults.New(faults.KindValidation, "refund override must be between zero and the original amount")
	ErrNotFound              = faults.New(faults.KindNotFound, "cancellation not found")
)
