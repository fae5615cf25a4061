package reservation

import "github.com/hivedesk/hivedesk/pkg/faults"

// Domain-level error values returned by the reservation manager.
var (
	ErrInvalidWindow        = faults.New(faults.KindValidation, "reservation start must be before end")
	ErrInvalidExpiry        = faults.New(faults.KindValidation, "reservation expiry must be positive")
	ErrSlotTaken            = faults.New(faults.KindConflict, "space is already reserved for this time slot")
	ErrSpaceBooked          = faults.New(faults.KindConflict, "space is already booked for this time slot")
	ErrNotActive            = faults.New(faults.KindState, "reservation is not active")
	ErrConfirmedReservation = faults.New(faults.KindState, "confirmed reservation must be cancelled through its booking")
	ErrNotFound             = faults.New(faults.KindNotFound, "reservation not found")
)
