package gormstore

import (
	"context"
	"time"

	"github.com/hivedesk/hivedesk/pkg/faults"
	"github.com/hivedesk/hivedesk/pkg/reservation"
)

// ExpireStaleReservations flips stale active holds for one space to expired
// and releases their reserved slots.
func (store *Store) ExpireStaleReservations(ctx context.Context, spaceID string, now time.Time) (int64, error) {
	stale, err := store.staleReservations(ctx, spaceID, now)
	if err != nil {
		return 0, err
	}
	return store.expireReservations(ctx, stale, now)
}

// ExpireAllStaleReservations is the global safety-net sweep across every
// space.
func (store *Store) ExpireAllStaleReservations(ctx context.Context, now time.Time) (int64, error) {
	stale, err := store.staleReservations(ctx, "", now)
	if err != nil {
		return 0, err
	}
	return store.expireReservations(ctx, stale, now)
}

func (store *Store) staleReservations(ctx context.Context, spaceID string, now time.Time) ([]Reservation, error) {
	query := store.locked(store.conn(ctx)).
		Where("status = ? AND expires_at < ?", string(reservation.StatusActive), now)
	if spaceID != "" {
		query = query.Where("space_id = ?", spaceID)
	}
	var stale []Reservation
	if err := query.Find(&stale).Error; err != nil {
		return nil, faults.Wrap(faults.KindInternal, "stale reservation lookup failed", err)
	}
	return stale, nil
}

// expireReservations flips the given holds to expired and resets their
// reserved slots to available, unless another live hold still covers the
// same window.
func (store *Store) expireReservations(ctx context.Context, stale []Reservation, now time.Time) (int64, error) {
	if len(stale) == 0 {
		return 0, nil
	}
	ids := make([]string, 0, len(stale))
	for _, hold := range stale {
		ids = append(ids, hold.ReservationID)
	}
	result := store.conn(ctx).
		Model(&Reservation{}).
		Where("reservation_id IN ? AND status = ?", ids, string(reservation.StatusActive)).
		Update("status", string(reservation.StatusExpired))
	if result.Error != nil {
		return 0, faults.Wrap(faults.KindInternal, "reservation expiry failed", result.Error)
	}
	for _, hold := range stale {
		covered, err := store.HasOverlappingReservation(ctx, hold.SpaceID, hold.StartTime, hold.EndTime, now)
		if err != nil {
			return 0, err
		}
		if covered {
			continue
		}
		_, err = store.TransitionSlots(ctx, hold.SpaceID, reservation.SlotReserved, reservation.SlotAvailable, dateOnly(hold.StartTime), dateOnly(hold.EndTime))
		if err != nil {
			return 0, err
		}
	}
	return result.RowsAffected, nil
}

// HasOverlappingReservation reports whether a live hold intersects
// [start, end) on the space. The matching rows are locked so a concurrent
// check-then-create serializes instead of racing.
func (store *Store) HasOverlappingReservation(ctx context.Context, spaceID string, start, end, now time.Time) (bool, error) {
	var count int64
	err := store.locked(store.conn(ctx)).
		Model(&Reservation{}).
		Where("space_id = ? AND status IN ?", spaceID, []string{string(reservation.StatusActive), string(reservation.StatusConfirmed)}).
		Where("(status = ? OR expires_at > ?)", string(reservation.StatusConfirmed), now).
		Where("start_time < ? AND end_time > ?", end, start).
		Count(&count).Error
	if err != nil {
		return false, faults.Wrap(faults.KindInternal, "reservation overlap check failed", err)
	}
	return count > 0, nil
}

// HasOverlappingBooking reports whether a confirmed or in-progress booking
// intersects [start, end) on the space.
func (store *Store) HasOverlappingBooking(ctx context.Context, spaceID string, start, end time.Time) (bool, error) {
	var count int64
	err := store.conn(ctx).
		Model(&Booking{}).
		Where("space_id = ? AND status IN ?", spaceID, activeBookingStatuses()).
		Where("check_in < ? AND check_out > ?", end, start).
		Count(&count).Error
	if err != nil {
		return false, faults.Wrap(faults.KindInternal, "booking overlap check failed", err)
	}
	return count > 0, nil
}

// CreateReservation persists a new hold.
func (store *Store) CreateReservation(ctx context.Context, hold *reservation.Reservation) error {
	model := &Reservation{
		ReservationID: hold.ReservationID,
		SpaceID:       hold.SpaceID,
		UserID:        hold.UserID,
		StartTime:     hold.Start,
		EndTime:       hold.End,
		Status:        string(hold.Status),
		ExpiresAt:     hold.ExpiresAt,
	}
	if err := store.conn(ctx).Create(model).Error; err != nil {
		return mapError("reservation", reservation.ErrNotFound, err)
	}
	hold.ReservationID = model.ReservationID
	hold.CreatedAt = model.CreatedAt
	hold.UpdatedAt = model.UpdatedAt
	return nil
}

// GetReservation fetches a hold under an exclusive row lock.
func (store *Store) GetReservation(ctx context.Context, reservationID string) (*reservation.Reservation, error) {
	var model Reservation
	err := store.locked(store.conn(ctx)).Where("reservation_id = ?", reservationID).Take(&model).Error
	if err != nil {
		return nil, mapError("reservation", reservation.ErrNotFound, err)
	}
	return reservationFromModel(&model), nil
}

// SaveReservation persists a hold's mutable fields.
func (store *Store) SaveReservation(ctx context.Context, hold *reservation.Reservation) error {
	updates := map[string]any{
		"status":     string(hold.Status),
		"expires_at": hold.ExpiresAt,
	}
	err := store.conn(ctx).
		Model(&Reservation{}).
		Where("reservation_id = ?", hold.ReservationID).
		Updates(updates).Error
	if err != nil {
		return mapError("reservation", reservation.ErrNotFound, err)
	}
	return nil
}

// MarkSlotsReserved flips available slots to reserved by id.
func (store *Store) MarkSlotsReserved(ctx context.Context, slotIDs []string) (int64, error) {
	result := store.conn(ctx).
		Model(&CalendarSlot{}).
		Where("slot_id IN ? AND status = ?", slotIDs, string(reservation.SlotAvailable)).
		Update("status", string(reservation.SlotReserved))
	if result.Error != nil {
		return 0, faults.Wrap(faults.KindInternal, "slot reservation failed", result.Error)
	}
	return result.RowsAffected, nil
}

// TransitionSlots flips every slot of the space in [fromDate, toDate]
// currently in the from status to the to status.
func (store *Store) TransitionSlots(ctx context.Context, spaceID string, from, to reservation.SlotStatus, fromDate, toDate time.Time) (int64, error) {
	result := store.conn(ctx).
		Model(&CalendarSlot{}).
		Where("space_id = ? AND status = ? AND date >= ? AND date <= ?", spaceID, string(from), fromDate, toDate).
		Update("status", string(to))
	if result.Error != nil {
		return 0, faults.Wrap(faults.KindInternal, "slot transition failed", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteCartItemsByReservation removes cart items referencing a hold.
func (store *Store) DeleteCartItemsByReservation(ctx context.Context, reservationID string) error {
	err := store.conn(ctx).Where("reservation_id = ?", reservationID).Delete(&CartItem{}).Error
	if err != nil {
		return faults.Wrap(faults.KindInternal, "cart item cleanup failed", err)
	}
	return nil
}

func reservationFromModel(model *Reservation) *reservation.Reservation {
	return &reservation.Reservation{
		ReservationID: model.ReservationID,
		SpaceID:       model.SpaceID,
		UserID:        model.UserID,
		Start:         model.StartTime,
		End:           model.EndTime,
		Status:        reservation.Status(model.Status),
		ExpiresAt:     model.ExpiresAt,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

func dateOnly(value time.Time) time.Time {
	year, month, day := value.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
