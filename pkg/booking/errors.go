package booking

import "github.com/hivedesk/hivedesk/pkg/faults"

// Domain-level error values returned by the booking lifecycle.
var (
	ErrInvalidWindow     = faults.New(faults.KindValidation, "check-in must be before check-out")
	ErrInvalidGuests     = faults.New(faults.KindValidation, "guest count must be positive")
	ErrInvalidPrice      = faults.New(faults.KindValidation, "total price must match base minus discount plus tax")
	ErrNotFound          = faults.New(faults.KindNotFound, "booking not found")
	ErrNotPending        = faults.New(faults.KindState, "booking is not pending")
	ErrNotConfirmed      = faults.New(faults.KindState, "booking must be confirmed before check-in")
	ErrAlreadyCheckedIn  = faults.New(faults.KindState, "booking is already checked in")
	ErrNotCheckedIn      = faults.New(faults.KindState, "must check in before checking out")
	ErrAlreadyCheckedOut = faults.New(faults.KindState, "booking is already checked out")
)
