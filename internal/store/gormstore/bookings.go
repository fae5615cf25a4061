package gormstore

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/hivedesk/hivedesk/pkg/booking"
	"github.com/hivedesk/hivedesk/pkg/cancellation"
	"github.com/hivedesk/hivedesk/pkg/faults"
	"github.com/hivedesk/hivedesk/pkg/ledger"
	"github.com/hivedesk/hivedesk/pkg/reservation"
)

func activeBookingStatuses() []string {
	statuses := make([]string, 0, len(booking.ActiveStatuses))
	for _, status := range booking.ActiveStatuses {
		statuses = append(statuses, string(status))
	}
	return statuses
}

// CreateBooking persists a new booking.
func (store *Store) CreateBooking(ctx context.Context, record *booking.Booking) error {
	model := &Booking{
		BookingID:      record.BookingID,
		SpaceID:        record.SpaceID,
		WorkspaceID:    record.WorkspaceID,
		UserID:         record.UserID,
		BookingType:    string(record.BookingType),
		CheckIn:        record.CheckIn,
		CheckOut:       record.CheckOut,
		Guests:         record.Guests,
		BasePrice:      record.BasePrice.Int64(),
		DiscountAmount: record.DiscountAmount.Int64(),
		TaxAmount:      record.TaxAmount.Int64(),
		TotalPrice:     record.TotalPrice.Int64(),
		Status:         string(record.Status),
		IsCheckedIn:    record.IsCheckedIn,
		IsCheckedOut:   record.IsCheckedOut,
	}
	if err := store.conn(ctx).Create(model).Error; err != nil {
		return mapError("booking", booking.ErrNotFound, err)
	}
	record.BookingID = model.BookingID
	record.CreatedAt = model.CreatedAt
	record.UpdatedAt = model.UpdatedAt
	return nil
}

// GetBooking fetches a booking under an exclusive row lock.
func (store *Store) GetBooking(ctx context.Context, bookingID string) (*booking.Booking, error) {
	var model Booking
	err := store.locked(store.conn(ctx)).Where("booking_id = ?", bookingID).Take(&model).Error
	if err != nil {
		return nil, mapError("booking", booking.ErrNotFound, err)
	}
	return bookingFromModel(&model), nil
}

// SaveBooking persists a booking's mutable fields.
func (store *Store) SaveBooking(ctx context.Context, record *booking.Booking) error {
	updates := map[string]any{
		"status":         string(record.Status),
		"is_checked_in":  record.IsCheckedIn,
		"is_checked_out": record.IsCheckedOut,
		"cancelled_at":   record.CancelledAt,
	}
	err := store.conn(ctx).
		Model(&Booking{}).
		Where("booking_id = ?", record.BookingID).
		Updates(updates).Error
	if err != nil {
		return mapError("booking", booking.ErrNotFound, err)
	}
	return nil
}

// CreateCartItem persists a cart entry pointing at a reservation.
func (store *Store) CreateCartItem(ctx context.Context, item *booking.CartItem) error {
	model := &CartItem{
		CartItemID:    item.CartItemID,
		UserID:        item.UserID,
		SpaceID:       item.SpaceID,
		ReservationID: item.ReservationID,
	}
	if err := store.conn(ctx).Create(model).Error; err != nil {
		return faults.Wrap(faults.KindInternal, "cart item create failed", err)
	}
	item.CartItemID = model.CartItemID
	item.CreatedAt = model.CreatedAt
	return nil
}

// CountCartItemsByReservation counts cart entries referencing a reservation.
func (store *Store) CountCartItemsByReservation(ctx context.Context, reservationID string) (int64, error) {
	var count int64
	err := store.conn(ctx).
		Model(&CartItem{}).
		Where("reservation_id = ?", reservationID).
		Count(&count).Error
	if err != nil {
		return 0, faults.Wrap(faults.KindInternal, "cart item count failed", err)
	}
	return count, nil
}

// CreateCancellation persists a new cancellation record. The unique index on
// booking_id turns a concurrent duplicate into a conflict.
func (store *Store) CreateCancellation(ctx context.Context, record *cancellation.BookingCancellation) error {
	model := cancellationToModel(record)
	if err := store.conn(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return cancellation.ErrDuplicateCancellation
		}
		return mapError("cancellation", cancellation.ErrNotFound, err)
	}
	record.CancellationID = model.CancellationID
	record.CreatedAt = model.CreatedAt
	record.UpdatedAt = model.UpdatedAt
	return nil
}

// GetCancellation fetches a cancellation record under an exclusive row lock.
func (store *Store) GetCancellation(ctx context.Context, cancellationID string) (*cancellation.BookingCancellation, error) {
	var model BookingCancellation
	err := store.locked(store.conn(ctx)).Where("cancellation_id = ?", cancellationID).Take(&model).Error
	if err != nil {
		return nil, mapError("cancellation", cancellation.ErrNotFound, err)
	}
	return cancellationFromModel(&model), nil
}

// CancellationByBooking returns the booking's cancellation record, or nil
// when none exists.
func (store *Store) CancellationByBooking(ctx context.Context, bookingID string) (*cancellation.BookingCancellation, error) {
	var model BookingCancellation
	err := store.conn(ctx).Where("booking_id = ?", bookingID).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, faults.Wrap(faults.KindInternal, "cancellation lookup failed", err)
	}
	return cancellationFromModel(&model), nil
}

// SaveCancellation persists a cancellation record's mutable fields.
func (store *Store) SaveCancellation(ctx context.Context, record *cancellation.BookingCancellation) error {
	updates := map[string]any{
		"status":           string(record.Status),
		"refund_percent":   record.RefundPercent,
		"refund_amount":    record.RefundAmount.Int64(),
		"penalty_amount":   record.PenaltyAmount.Int64(),
		"refund_status":    string(record.RefundStatus),
		"refund_reference": record.RefundReference,
		"approved_by":      record.ApprovedBy,
		"approved_at":      record.ApprovedAt,
		"refunded_at":      record.RefundedAt,
		"admin_notes":      record.AdminNotes,
	}
	err := store.conn(ctx).
		Model(&BookingCancellation{}).
		Where("cancellation_id = ?", record.CancellationID).
		Updates(updates).Error
	if err != nil {
		return mapError("cancellation", cancellation.ErrNotFound, err)
	}
	return nil
}

func bookingFromModel(model *Booking) *booking.Booking {
	return &booking.Booking{
		BookingID:      model.BookingID,
		SpaceID:        model.SpaceID,
		WorkspaceID:    model.WorkspaceID,
		UserID:         model.UserID,
		BookingType:    reservation.BookingType(model.BookingType),
		CheckIn:        model.CheckIn,
		CheckOut:       model.CheckOut,
		Guests:         model.Guests,
		BasePrice:      ledger.Amount(model.BasePrice),
		DiscountAmount: ledger.Amount(model.DiscountAmount),
		TaxAmount:      ledger.Amount(model.TaxAmount),
		TotalPrice:     ledger.Amount(model.TotalPrice),
		Status:         booking.Status(model.Status),
		IsCheckedIn:    model.IsCheckedIn,
		IsCheckedOut:   model.IsCheckedOut,
		CancelledAt:    model.CancelledAt,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}

func cancellationToModel(record *cancellation.BookingCancellation) *BookingCancellation {
	return &BookingCancellation{
		CancellationID:    record.CancellationID,
		BookingID:         record.BookingID,
		CancelledBy:       record.CancelledBy,
		Reason:            record.Reason,
		ReasonDescription: record.ReasonDescription,
		Status:            string(record.Status),
		OriginalAmount:    record.OriginalAmount.Int64(),
		RefundPercent:     record.RefundPercent,
		RefundAmount:      record.RefundAmount.Int64(),
		PenaltyAmount:     record.PenaltyAmount.Int64(),
		HoursUntilCheckIn: record.HoursUntilCheckIn,
		RefundStatus:      string(record.RefundStatus),
		RefundReference:   record.RefundReference,
		ApprovedBy:        record.ApprovedBy,
		ApprovedAt:        record.ApprovedAt,
		RefundedAt:        record.RefundedAt,
		AdminNotes:        record.AdminNotes,
	}
}

func cancellationFromModel(model *BookingCancellation) *cancellation.BookingCancellation {
	return &cancellation.BookingCancellation{
		CancellationID:    model.CancellationID,
		BookingID:         model.BookingID,
		CancelledBy:       model.CancelledBy,
		Reason:            model.Reason,
		ReasonDescription: model.ReasonDescription,
		Status:            cancellation.Status(model.Status),
		OriginalAmount:    ledger.Amount(model.OriginalAmount),
		RefundPercent:     model.RefundPercent,
		RefundAmount:      ledger.Amount(model.RefundAmount),
		PenaltyAmount:     ledger.Amount(model.PenaltyAmount),
		HoursUntilCheckIn: model.HoursUntilCheckIn,
		RefundStatus:      cancellation.RefundStatus(model.RefundStatus),
		RefundReference:   model.RefundReference,
		ApprovedBy:        model.ApprovedBy,
		ApprovedAt:        model.ApprovedAt,
		RefundedAt:        model.RefundedAt,
		AdminNotes:        model.AdminNotes,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}
}
