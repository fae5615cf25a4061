package gormstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hivedesk/hivedesk/pkg/booking"
	"github.com/hivedesk/hivedesk/pkg/cancellation"
	"github.com/hivedesk/hivedesk/pkg/escrow"
	"github.com/hivedesk/hivedesk/pkg/events"
	"github.com/hivedesk/hivedesk/pkg/ledger"
)

type cancellationFixture struct {
	store         *Store
	ledgerService *ledger.Service
	escrowService *escrow.Service
	bookings      *booking.Service
	cancellations *cancellation.Service
	now           time.Time
}

func newCancellationFixture(test *testing.T) *cancellationFixture {
	test.Helper()
	store := newTestStore(test)
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	ledgerService := mustLedgerService(test, store)
	escrowService := mustEscrowService(test, store, ledgerService)
	bookings := mustBookingService(test, store, escrowService, booking.WithClock(fixedClock(now)))
	cancellations := mustCancellationService(test, store, escrowService, cancellation.WithClock(fixedClock(now)))
	return &cancellationFixture{
		store:         store,
		ledgerService: ledgerService,
		escrowService: escrowService,
		bookings:      bookings,
		cancellations: cancellations,
		now:           now,
	}
}

// paidBooking creates a confirmed booking with its payment held in escrow,
// checking in hoursAhead hours from the fixture clock.
func (fixture *cancellationFixture) paidBooking(test *testing.T, hoursAhead float64, total ledger.Amount) *booking.Booking {
	test.Helper()
	ctx := context.Background()
	record, err := fixture.bookings.CreateBooking(ctx, booking.CreateInput{
		SpaceID:     "space-1",
		WorkspaceID: "workspace-1",
		UserID:      "user-1",
		BookingType: "daily",
		CheckIn:     fixture.now.Add(time.Duration(hoursAhead * float64(time.Hour))),
		CheckOut:    fixture.now.Add(time.Duration((hoursAhead + 8) * float64(time.Hour))),
		Guests:      2,
		BasePrice:   total,
		TotalPrice:  total,
	})
	if err != nil {
		test.Fatalf("create booking: %v", err)
	}
	if _, err = fixture.bookings.ConfirmBooking(ctx, record.BookingID); err != nil {
		test.Fatalf("confirm booking: %v", err)
	}
	if _, _, err = fixture.escrowService.HoldBookingPayment(ctx, escrow.HoldInput{
		BookingID:   record.BookingID,
		WorkspaceID: record.WorkspaceID,
		Amount:      total,
	}); err != nil {
		test.Fatalf("hold payment: %v", err)
	}
	return record
}

func TestCancelBookingRefundTiers(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name          string
		hoursAhead    float64
		wantPercent   int64
		wantRefund    ledger.Amount
		wantPenalty   ledger.Amount
		wantsApproval bool
	}{
		{name: "full refund beyond 24h", hoursAhead: 30, wantPercent: 100, wantRefund: 10_000, wantPenalty: 0},
		{name: "half refund between 6h and 24h", hoursAhead: 10, wantPercent: 50, wantRefund: 5_000, wantPenalty: 5_000},
		{name: "no refund and approval below 6h", hoursAhead: 2, wantPercent: 0, wantRefund: 0, wantPenalty: 10_000, wantsApproval: true},
	}

	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			fixture := newCancellationFixture(test)
			ctx := context.Background()
			record := fixture.paidBooking(test, testCase.hoursAhead, 10_000)

			result, err := fixture.cancellations.CancelBooking(ctx, cancellation.CancelInput{
				BookingID:   record.BookingID,
				CancelledBy: "user-1",
				Reason:      "change_of_plans",
			})
			if err != nil {
				test.Fatalf("cancel booking: %v", err)
			}
			if result.RequiresApproval != testCase.wantsApproval {
				test.Fatalf("requires approval: want %v got %v", testCase.wantsApproval, result.RequiresApproval)
			}
			got := result.Cancellation
			if got.RefundPercent != testCase.wantPercent {
				test.Fatalf("refund percent: want %d got %d", testCase.wantPercent, got.RefundPercent)
			}
			if got.RefundAmount != testCase.wantRefund {
				test.Fatalf("refund amount: want %d got %d", testCase.wantRefund, got.RefundAmount)
			}
			if got.PenaltyAmount != testCase.wantPenalty {
				test.Fatalf("penalty amount: want %d got %d", testCase.wantPenalty, got.PenaltyAmount)
			}

			reloaded, err := fixture.bookings.GetBooking(ctx, record.BookingID)
			if err != nil {
				test.Fatalf("reload booking: %v", err)
			}
			if testCase.wantsApproval {
				if reloaded.Status != booking.StatusConfirmed {
					test.Fatalf("approval path must leave the booking untouched, got %s", reloaded.Status)
				}
				if got.Status != cancellation.StatusPending {
					test.Fatalf("expected pending record, got %s", got.Status)
				}
				return
			}
			if reloaded.Status != booking.StatusCancelled {
				test.Fatalf("auto path must cancel the booking, got %s", reloaded.Status)
			}
			if got.Status != cancellation.StatusRefunded {
				test.Fatalf("expected refunded record, got %s", got.Status)
			}
			userWallet, err := fixture.ledgerService.WalletByUser(ctx, "user-1")
			if err != nil {
				test.Fatalf("reload user wallet: %v", err)
			}
			if userWallet.Balance != testCase.wantRefund {
				test.Fatalf("user refund: want %d got %d", testCase.wantRefund, userWallet.Balance)
			}
		})
	}
}

func TestCancelBookingRejectsDuplicates(test *testing.T) {
	test.Parallel()
	fixture := newCancellationFixture(test)
	ctx := context.Background()
	record := fixture.paidBooking(test, 2, 10_000)

	if _, err := fixture.cancellations.CancelBooking(ctx, cancellation.CancelInput{
		BookingID:   record.BookingID,
		CancelledBy: "user-1",
	}); err != nil {
		test.Fatalf("first cancellation: %v", err)
	}
	_, err := fixture.cancellations.CancelBooking(ctx, cancellation.CancelInput{
		BookingID:   record.BookingID,
		CancelledBy: "user-1",
	})
	if !errors.Is(err, cancellation.ErrDuplicateCancellation) {
		test.Fatalf("expected duplicate cancellation, got %v", err)
	}
}

func TestCancelBookingRejectsCheckedInStays(test *testing.T) {
	test.Parallel()
	fixture := newCancellationFixture(test)
	ctx := context.Background()
	record := fixture.paidBooking(test, 2, 10_000)

	if _, err := fixture.bookings.CheckIn(ctx, record.BookingID); err != nil {
		test.Fatalf("check in: %v", err)
	}
	_, err := fixture.cancellations.CancelBooking(ctx, cancellation.CancelInput{
		BookingID:   record.BookingID,
		CancelledBy: "user-1",
	})
	if !errors.Is(err, cancellation.ErrBookingInProgress) {
		test.Fatalf("expected in-progress rejection, got %v", err)
	}
}

func TestApproveCancellationWithOverride(test *testing.T) {
	test.Parallel()
	fixture := newCancellationFixture(test)
	ctx := context.Background()
	record := fixture.paidBooking(test, 2, 10_000)

	pending, err := fixture.cancellations.CancelBooking(ctx, cancellation.CancelInput{
		BookingID:   record.BookingID,
		CancelledBy: "user-1",
	})
	if err != nil {
		test.Fatalf("cancel booking: %v", err)
	}
	if !pending.RequiresApproval {
		test.Fatal("a 2h cancellation must require approval")
	}

	override := ledger.Amount(2_500)
	approved, err := fixture.cancellations.ApproveCancellation(ctx, cancellation.ApproveInput{
		CancellationID: pending.Cancellation.CancellationID,
		ApprovedBy:     "admin-1",
		RefundOverride: &override,
	})
	if err != nil {
		test.Fatalf("approve cancellation: %v", err)
	}
	got := approved.Cancellation
	if got.RefundAmount != 2_500 || got.PenaltyAmount != 7_500 || got.RefundPercent != 25 {
		test.Fatalf("override split: refund %d penalty %d percent %d", got.RefundAmount, got.PenaltyAmount, got.RefundPercent)
	}
	if got.Status != cancellation.StatusRefunded {
		test.Fatalf("expected refunded record, got %s", got.Status)
	}

	reloaded, err := fixture.bookings.GetBooking(ctx, record.BookingID)
	if err != nil {
		test.Fatalf("reload booking: %v", err)
	}
	if reloaded.Status != booking.StatusCancelled {
		test.Fatalf("approval must cancel the booking, got %s", reloaded.Status)
	}
	userWallet, err := fixture.ledgerService.WalletByUser(ctx, "user-1")
	if err != nil {
		test.Fatalf("reload user wallet: %v", err)
	}
	if userWallet.Balance != 2_500 {
		test.Fatalf("expected overridden refund 2500, got %d", userWallet.Balance)
	}
}

func TestApproveCancellationRejectsExcessiveOverride(test *testing.T) {
	test.Parallel()
	fixture := newCancellationFixture(test)
	ctx := context.Background()
	record := fixture.paidBooking(test, 2, 10_000)

	pending, err := fixture.cancellations.CancelBooking(ctx, cancellation.CancelInput{
		BookingID:   record.BookingID,
		CancelledBy: "user-1",
	})
	if err != nil {
		test.Fatalf("cancel booking: %v", err)
	}

	override := ledger.Amount(10_001)
	_, err = fixture.cancellations.ApproveCancellation(ctx, cancellation.ApproveInput{
		CancellationID: pending.Cancellation.CancellationID,
		ApprovedBy:     "admin-1",
		RefundOverride: &override,
	})
	if !errors.Is(err, cancellation.ErrInvalidOverride) {
		test.Fatalf("expected invalid override, got %v", err)
	}
}

// failingCancellationStore lets a test fail the final cancellation write so
// the surrounding transaction rolls back.
type failingCancellationStore struct {
	*Store
	fail bool
}

func (store *failingCancellationStore) SaveCancellation(ctx context.Context, record *cancellation.BookingCancellation) error {
	if store.fail {
		return errors.New("cancellation table unavailable")
	}
	return store.Store.SaveCancellation(ctx, record)
}

type capturePublisher struct {
	mu    sync.Mutex
	types []string
}

func (publisher *capturePublisher) Publish(_ context.Context, event events.Event) {
	publisher.mu.Lock()
	publisher.types = append(publisher.types, event.Type)
	publisher.mu.Unlock()
}

func (publisher *capturePublisher) seen() []string {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	return append([]string(nil), publisher.types...)
}

func TestRolledBackCancellationEmitsNoEvents(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	recorder := &capturePublisher{}
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	ledgerService := mustLedgerService(test, store, ledger.WithEventPublisher(recorder))
	escrowService := mustEscrowService(test, store, ledgerService, escrow.WithEventPublisher(recorder))
	bookings := mustBookingService(test, store, escrowService, booking.WithClock(fixedClock(now)))
	flaky := &failingCancellationStore{Store: store, fail: true}
	cancellations, err := cancellation.NewService(flaky, escrowService,
		cancellation.WithClock(fixedClock(now)),
		cancellation.WithEventPublisher(recorder))
	if err != nil {
		test.Fatalf("cancellation service: %v", err)
	}
	ctx := context.Background()

	record, err := bookings.CreateBooking(ctx, booking.CreateInput{
		SpaceID:     "space-1",
		WorkspaceID: "workspace-1",
		UserID:      "user-1",
		BookingType: "daily",
		CheckIn:     now.Add(30 * time.Hour),
		CheckOut:    now.Add(38 * time.Hour),
		Guests:      2,
		BasePrice:   10_000,
		TotalPrice:  10_000,
	})
	if err != nil {
		test.Fatalf("create booking: %v", err)
	}
	if _, err = bookings.ConfirmBooking(ctx, record.BookingID); err != nil {
		test.Fatalf("confirm booking: %v", err)
	}
	if _, _, err = escrowService.HoldBookingPayment(ctx, escrow.HoldInput{
		BookingID:   record.BookingID,
		WorkspaceID: record.WorkspaceID,
		Amount:      10_000,
	}); err != nil {
		test.Fatalf("hold payment: %v", err)
	}
	baseline := len(recorder.seen())

	input := cancellation.CancelInput{BookingID: record.BookingID, CancelledBy: "user-1"}
	if _, err = cancellations.CancelBooking(ctx, input); err == nil {
		test.Fatal("expected the cancellation write failure to surface")
	}
	if got := recorder.seen(); len(got) != baseline {
		test.Fatalf("a rolled-back cancellation must not emit events, got %v", got[baseline:])
	}
	if _, err = ledgerService.WalletByUser(ctx, "user-1"); !errors.Is(err, ledger.ErrWalletNotFound) {
		test.Fatalf("the rolled-back refund must not leave a wallet behind, got %v", err)
	}
	reloaded, err := bookings.GetBooking(ctx, record.BookingID)
	if err != nil {
		test.Fatalf("reload booking: %v", err)
	}
	if reloaded.Status != booking.StatusConfirmed {
		test.Fatalf("the rolled-back cancellation must leave the booking confirmed, got %s", reloaded.Status)
	}

	flaky.fail = false
	result, err := cancellations.CancelBooking(ctx, input)
	if err != nil {
		test.Fatalf("retry cancellation: %v", err)
	}
	if result.Cancellation.Status != cancellation.StatusRefunded {
		test.Fatalf("expected refunded record on retry, got %s", result.Cancellation.Status)
	}
	emitted := recorder.seen()[baseline:]
	for _, want := range []string{events.TypeWalletCredited, events.TypeBookingRefundProcessed, events.TypeBookingCancelled} {
		found := false
		for _, got := range emitted {
			if got == want {
				found = true
				break
			}
		}
		if !found {
			test.Fatalf("retry must emit %s, got %v", want, emitted)
		}
	}
}

func TestRejectCancellationLeavesBookingAlone(test *testing.T) {
	test.Parallel()
	fixture := newCancellationFixture(test)
	ctx := context.Background()
	record := fixture.paidBooking(test, 2, 10_000)

	pending, err := fixture.cancellations.CancelBooking(ctx, cancellation.CancelInput{
		BookingID:   record.BookingID,
		CancelledBy: "user-1",
	})
	if err != nil {
		test.Fatalf("cancel booking: %v", err)
	}

	rejected, err := fixture.cancellations.RejectCancellation(ctx, pending.Cancellation.CancellationID, "admin-1", "too close to check-in")
	if err != nil {
		test.Fatalf("reject cancellation: %v", err)
	}
	if rejected.Status != cancellation.StatusRejected {
		test.Fatalf("expected rejected record, got %s", rejected.Status)
	}

	reloaded, err := fixture.bookings.GetBooking(ctx, record.BookingID)
	if err != nil {
		test.Fatalf("reload booking: %v", err)
	}
	if reloaded.Status != booking.StatusConfirmed {
		test.Fatalf("rejection must leave the booking untouched, got %s", reloaded.Status)
	}

	_, err = fixture.cancellations.RejectCancellation(ctx, pending.Cancellation.CancellationID, "admin-1", "")
	if !errors.Is(err, cancellation.ErrNotPending) {
		test.Fatalf("expected not-pending, got %v", err)
	}
}
