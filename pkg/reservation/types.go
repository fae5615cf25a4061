package reservation

import "time"

// Status is the lifecycle state of a hold.
type Status string

const (
	StatusActive    Status = "active"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// SlotStatus is the state of a calendar cell.
type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotReserved  SlotStatus = "reserved"
	SlotBooked    SlotStatus = "booked"
	SlotBlocked   SlotStatus = "blocked"
)

// BookingType is the granularity a slot or booking was sold at.
type BookingType string

const (
	TypeHourly  BookingType = "hourly"
	TypeDaily   BookingType = "daily"
	TypeMonthly BookingType = "monthly"
)

// DefaultExpiryMinutes is how long a hold survives without confirmation.
const DefaultExpiryMinutes = 15

// Reservation is a short-lived claim on a space-time interval that keeps
// other users from booking it during checkout.
type Reservation struct {
	ReservationID string
	SpaceID       string
	UserID        string
	Start         time.Time
	End           time.Time
	Status        Status
	ExpiresAt     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Expired reports whether the hold's soft deadline has passed.
func (reservation *Reservation) Expired(now time.Time) bool {
	return reservation.Status == StatusActive && reservation.ExpiresAt.Before(now)
}

// CalendarSlot is one bookable cell of a space's calendar. Exactly one slot
// exists per (space, date, time bucket, booking type); only this package
// mutates its status.
type CalendarSlot struct {
	SlotID      string
	SpaceID     string
	Date        time.Time
	StartMinute int
	EndMinute   int
	BookingType BookingType
	Status      SlotStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
