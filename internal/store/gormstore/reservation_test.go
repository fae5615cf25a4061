package gormstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hivedesk/hivedesk/pkg/booking"
	"github.com/hivedesk/hivedesk/pkg/reservation"
)

func seedSlot(test *testing.T, store *Store, spaceID string, date time.Time, startMinute, endMinute int) *CalendarSlot {
	test.Helper()
	slot := &CalendarSlot{
		SpaceID:     spaceID,
		Date:        date,
		StartMinute: startMinute,
		EndMinute:   endMinute,
		BookingType: string(reservation.TypeHourly),
		Status:      string(reservation.SlotAvailable),
	}
	if err := store.db.Create(slot).Error; err != nil {
		test.Fatalf("seed slot: %v", err)
	}
	return slot
}

func slotStatus(test *testing.T, store *Store, slotID string) string {
	test.Helper()
	var slot CalendarSlot
	if err := store.db.Where("slot_id = ?", slotID).Take(&slot).Error; err != nil {
		test.Fatalf("load slot: %v", err)
	}
	return slot.Status
}

func TestCreateReservationConflicts(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	service := mustReservationService(test, store, reservation.WithClock(fixedClock(now)))
	ctx := context.Background()

	start := now.Add(24 * time.Hour)
	end := start.Add(4 * time.Hour)
	first, err := service.CreateReservation(ctx, reservation.CreateInput{
		SpaceID: "space-1",
		UserID:  "user-1",
		Start:   start,
		End:     end,
	})
	if err != nil {
		test.Fatalf("create reservation: %v", err)
	}
	if first.ExpiresAt != now.Add(reservation.DefaultExpiryMinutes*time.Minute) {
		test.Fatalf("unexpected expiry %v", first.ExpiresAt)
	}

	_, err = service.CreateReservation(ctx, reservation.CreateInput{
		SpaceID: "space-1",
		UserID:  "user-2",
		Start:   start.Add(time.Hour),
		End:     end.Add(time.Hour),
	})
	if !errors.Is(err, reservation.ErrSlotTaken) {
		test.Fatalf("expected slot taken, got %v", err)
	}

	// A different space is unaffected.
	if _, err = service.CreateReservation(ctx, reservation.CreateInput{
		SpaceID: "space-2",
		UserID:  "user-2",
		Start:   start,
		End:     end,
	}); err != nil {
		test.Fatalf("other space must accept the window: %v", err)
	}
}

func TestCreateReservationRejectsBookedWindow(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	service := mustReservationService(test, store, reservation.WithClock(fixedClock(now)))
	ctx := context.Background()

	start := now.Add(24 * time.Hour)
	end := start.Add(4 * time.Hour)
	record := &booking.Booking{
		SpaceID:     "space-1",
		WorkspaceID: "workspace-1",
		UserID:      "user-1",
		BookingType: reservation.TypeDaily,
		CheckIn:     start,
		CheckOut:    end,
		Guests:      1,
		BasePrice:   1_000,
		TotalPrice:  1_000,
		Status:      booking.StatusConfirmed,
	}
	if err := store.CreateBooking(ctx, record); err != nil {
		test.Fatalf("seed booking: %v", err)
	}

	_, err := service.CreateReservation(ctx, reservation.CreateInput{
		SpaceID: "space-1",
		UserID:  "user-2",
		Start:   start,
		End:     end,
	})
	if !errors.Is(err, reservation.ErrSpaceBooked) {
		test.Fatalf("expected space booked, got %v", err)
	}
}

func TestStaleHoldIsSweptOnNextCreate(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	early := mustReservationService(test, store, reservation.WithClock(fixedClock(now)))
	ctx := context.Background()

	start := now.Add(24 * time.Hour)
	end := start.Add(4 * time.Hour)
	slot := seedSlot(test, store, "space-1", dateOnly(start), 9*60, 13*60)
	stale, err := early.CreateReservation(ctx, reservation.CreateInput{
		SpaceID: "space-1",
		UserID:  "user-1",
		Start:   start,
		End:     end,
		SlotIDs: []string{slot.SlotID},
	})
	if err != nil {
		test.Fatalf("create reservation: %v", err)
	}
	if status := slotStatus(test, store, slot.SlotID); status != string(reservation.SlotReserved) {
		test.Fatalf("expected reserved slot, got %s", status)
	}

	// Twenty minutes later the hold is stale and the window opens again.
	later := mustReservationService(test, store, reservation.WithClock(fixedClock(now.Add(20*time.Minute))))
	fresh, err := later.CreateReservation(ctx, reservation.CreateInput{
		SpaceID: "space-1",
		UserID:  "user-2",
		Start:   start,
		End:     end,
	})
	if err != nil {
		test.Fatalf("create over stale hold: %v", err)
	}
	if fresh.ReservationID == stale.ReservationID {
		test.Fatal("expected a fresh reservation")
	}

	swept, err := store.GetReservation(ctx, stale.ReservationID)
	if err != nil {
		test.Fatalf("reload stale reservation: %v", err)
	}
	if swept.Status != reservation.StatusExpired {
		test.Fatalf("expected expired, got %s", swept.Status)
	}
}

func TestSweepExpiredReleasesSlots(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	early := mustReservationService(test, store, reservation.WithClock(fixedClock(now)))
	ctx := context.Background()

	start := now.Add(24 * time.Hour)
	slot := seedSlot(test, store, "space-1", dateOnly(start), 9*60, 13*60)
	if _, err := early.CreateReservation(ctx, reservation.CreateInput{
		SpaceID: "space-1",
		UserID:  "user-1",
		Start:   start,
		End:     start.Add(4 * time.Hour),
		SlotIDs: []string{slot.SlotID},
	}); err != nil {
		test.Fatalf("create reservation: %v", err)
	}

	later := mustReservationService(test, store, reservation.WithClock(fixedClock(now.Add(time.Hour))))
	expired, err := later.SweepExpired(ctx)
	if err != nil {
		test.Fatalf("sweep expired: %v", err)
	}
	if expired != 1 {
		test.Fatalf("expected 1 expired hold, got %d", expired)
	}
	if status := slotStatus(test, store, slot.SlotID); status != string(reservation.SlotAvailable) {
		test.Fatalf("expected released slot, got %s", status)
	}
}

func TestConfirmAndCancelReservation(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	service := mustReservationService(test, store, reservation.WithClock(fixedClock(now)))
	ctx := context.Background()

	start := now.Add(24 * time.Hour)
	slot := seedSlot(test, store, "space-1", dateOnly(start), 9*60, 13*60)
	hold, err := service.CreateReservation(ctx, reservation.CreateInput{
		SpaceID: "space-1",
		UserID:  "user-1",
		Start:   start,
		End:     start.Add(4 * time.Hour),
		SlotIDs: []string{slot.SlotID},
	})
	if err != nil {
		test.Fatalf("create reservation: %v", err)
	}

	confirmed, err := service.ConfirmReservation(ctx, hold.ReservationID)
	if err != nil {
		test.Fatalf("confirm reservation: %v", err)
	}
	if confirmed.Status != reservation.StatusConfirmed {
		test.Fatalf("expected confirmed, got %s", confirmed.Status)
	}
	if status := slotStatus(test, store, slot.SlotID); status != string(reservation.SlotBooked) {
		test.Fatalf("expected booked slot, got %s", status)
	}

	if _, err = service.CancelReservation(ctx, hold.ReservationID); !errors.Is(err, reservation.ErrConfirmedReservation) {
		test.Fatalf("confirmed holds must not be cancellable, got %v", err)
	}
}

func TestCancelReservationReleasesSlotsAndCart(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	service := mustReservationService(test, store, reservation.WithClock(fixedClock(now)))
	ctx := context.Background()

	start := now.Add(24 * time.Hour)
	slot := seedSlot(test, store, "space-1", dateOnly(start), 9*60, 13*60)
	hold, err := service.CreateReservation(ctx, reservation.CreateInput{
		SpaceID: "space-1",
		UserID:  "user-1",
		Start:   start,
		End:     start.Add(4 * time.Hour),
		SlotIDs: []string{slot.SlotID},
	})
	if err != nil {
		test.Fatalf("create reservation: %v", err)
	}
	if err = store.CreateCartItem(ctx, &booking.CartItem{
		UserID:        "user-1",
		SpaceID:       "space-1",
		ReservationID: hold.ReservationID,
	}); err != nil {
		test.Fatalf("create cart item: %v", err)
	}

	cancelled, err := service.CancelReservation(ctx, hold.ReservationID)
	if err != nil {
		test.Fatalf("cancel reservation: %v", err)
	}
	if cancelled.Status != reservation.StatusCancelled {
		test.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if status := slotStatus(test, store, slot.SlotID); status != string(reservation.SlotAvailable) {
		test.Fatalf("expected released slot, got %s", status)
	}
	remaining, err := store.CountCartItemsByReservation(ctx, hold.ReservationID)
	if err != nil {
		test.Fatalf("count cart items: %v", err)
	}
	if remaining != 0 {
		test.Fatalf("expected cart cleared, got %d items", remaining)
	}
}
