package gormstore

import (
	"context"
	"testing"

	"github.com/hivedesk/hivedesk/pkg/escrow"
	"github.com/hivedesk/hivedesk/pkg/ledger"
)

func TestHoldThenReleaseSettlesEarning(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	ledgerService := mustLedgerService(test, store)
	escrowService := mustEscrowService(test, store, ledgerService)
	ctx := context.Background()

	wallet, held, err := escrowService.HoldBookingPayment(ctx, escrow.HoldInput{
		BookingID:   "booking-1",
		WorkspaceID: "workspace-1",
		Amount:      5_000,
	})
	if err != nil {
		test.Fatalf("hold payment: %v", err)
	}
	if held.Status != ledger.TransactionPending {
		test.Fatalf("expected pending hold, got %s", held.Status)
	}
	if held.BalanceBefore != held.BalanceAfter {
		test.Fatal("a pending hold must not move the balance")
	}
	if wallet.Balance != 0 {
		test.Fatalf("workspace balance must stay 0 while held, got %d", wallet.Balance)
	}

	released, err := escrowService.ReleasePendingPayment(ctx, "booking-1", "workspace-1")
	if err != nil {
		test.Fatalf("release payment: %v", err)
	}
	if released == nil {
		test.Fatal("expected a released transaction")
	}
	if released.Status != ledger.TransactionCompleted {
		test.Fatalf("expected completed, got %s", released.Status)
	}
	if released.Category != ledger.CategoryBookingEarning {
		test.Fatalf("release must recategorize to booking_earning, got %s", released.Category)
	}
	if released.BalanceBefore != 0 || released.BalanceAfter != 5_000 {
		test.Fatalf("release snapshots: before %d after %d", released.BalanceBefore, released.BalanceAfter)
	}

	reloaded, err := ledgerService.WorkspaceWalletByWorkspace(ctx, "workspace-1")
	if err != nil {
		test.Fatalf("reload workspace wallet: %v", err)
	}
	if reloaded.Balance != 5_000 || reloaded.TotalEarnings != 5_000 {
		test.Fatalf("expected settled earning of 5000, got balance %d earnings %d", reloaded.Balance, reloaded.TotalEarnings)
	}
}

func TestReleaseIsIdempotent(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	ledgerService := mustLedgerService(test, store)
	escrowService := mustEscrowService(test, store, ledgerService)
	ctx := context.Background()

	if _, _, err := escrowService.HoldBookingPayment(ctx, escrow.HoldInput{
		BookingID:   "booking-2",
		WorkspaceID: "workspace-2",
		Amount:      3_000,
	}); err != nil {
		test.Fatalf("hold payment: %v", err)
	}

	first, err := escrowService.ReleasePendingPayment(ctx, "booking-2", "workspace-2")
	if err != nil {
		test.Fatalf("first release: %v", err)
	}
	if first == nil {
		test.Fatal("first release must settle the hold")
	}
	second, err := escrowService.ReleasePendingPayment(ctx, "booking-2", "workspace-2")
	if err != nil {
		test.Fatalf("second release: %v", err)
	}
	if second != nil {
		test.Fatal("second release must be a no-op")
	}

	wallet, err := ledgerService.WorkspaceWalletByWorkspace(ctx, "workspace-2")
	if err != nil {
		test.Fatalf("reload workspace wallet: %v", err)
	}
	if wallet.Balance != 3_000 {
		test.Fatalf("double release must not double the balance, got %d", wallet.Balance)
	}
}

func TestRefundBeforeReleaseReversesPendingHold(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	ledgerService := mustLedgerService(test, store)
	escrowService := mustEscrowService(test, store, ledgerService)
	ctx := context.Background()

	_, held, err := escrowService.HoldBookingPayment(ctx, escrow.HoldInput{
		BookingID:   "booking-3",
		WorkspaceID: "workspace-3",
		Amount:      4_000,
	})
	if err != nil {
		test.Fatalf("hold payment: %v", err)
	}

	result, err := escrowService.RefundBookingPayment(ctx, escrow.RefundInput{
		BookingID:   "booking-3",
		UserID:      "user-3",
		WorkspaceID: "workspace-3",
		Amount:      4_000,
	})
	if err != nil {
		test.Fatalf("refund payment: %v", err)
	}
	if result.Source != escrow.RefundFromPending {
		test.Fatalf("expected refund from pending, got %s", result.Source)
	}
	if result.WorkspaceDebited != 0 {
		test.Fatalf("workspace must stay untouched, debited %d", result.WorkspaceDebited)
	}
	if result.Transaction.Category != ledger.CategoryCancellationRefund {
		test.Fatalf("expected cancellation_refund, got %s", result.Transaction.Category)
	}

	userWallet, err := ledgerService.WalletByUser(ctx, "user-3")
	if err != nil {
		test.Fatalf("reload user wallet: %v", err)
	}
	if userWallet.Balance != 4_000 {
		test.Fatalf("expected user credited in full, got %d", userWallet.Balance)
	}
	workspaceWallet, err := ledgerService.WorkspaceWalletByWorkspace(ctx, "workspace-3")
	if err != nil {
		test.Fatalf("reload workspace wallet: %v", err)
	}
	if workspaceWallet.Balance != 0 {
		test.Fatalf("workspace balance must stay 0, got %d", workspaceWallet.Balance)
	}

	reversed, err := store.FindPendingBookingPayment(ctx, "booking-3")
	if err != nil {
		test.Fatalf("find pending payment: %v", err)
	}
	if reversed != nil {
		test.Fatalf("hold %s must no longer be pending", held.TransactionID)
	}

	released, err := escrowService.ReleasePendingPayment(ctx, "booking-3", "workspace-3")
	if err != nil {
		test.Fatalf("release after refund: %v", err)
	}
	if released != nil {
		test.Fatal("a reversed hold must not be releasable")
	}
}

func TestRefundAfterReleaseDebitsWorkspaceUpToBalance(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	ledgerService := mustLedgerService(test, store)
	escrowService := mustEscrowService(test, store, ledgerService)
	ctx := context.Background()

	if _, _, err := escrowService.HoldBookingPayment(ctx, escrow.HoldInput{
		BookingID:   "booking-4",
		WorkspaceID: "workspace-4",
		Amount:      5_000,
	}); err != nil {
		test.Fatalf("hold payment: %v", err)
	}
	if _, err := escrowService.ReleasePendingPayment(ctx, "booking-4", "workspace-4"); err != nil {
		test.Fatalf("release payment: %v", err)
	}

	// Drain part of the earnings so the refund cannot be fully covered.
	wallet, err := ledgerService.WorkspaceWalletByWorkspace(ctx, "workspace-4")
	if err != nil {
		test.Fatalf("reload workspace wallet: %v", err)
	}
	if _, err = ledgerService.DebitWorkspaceWallet(ctx, wallet.WalletID, 3_000, ledger.CategoryWithdrawal, ledger.Detail{}); err != nil {
		test.Fatalf("drain workspace wallet: %v", err)
	}

	result, err := escrowService.RefundBookingPayment(ctx, escrow.RefundInput{
		BookingID:   "booking-4",
		UserID:      "user-4",
		WorkspaceID: "workspace-4",
		Amount:      5_000,
	})
	if err != nil {
		test.Fatalf("refund payment: %v", err)
	}
	if result.Source != escrow.RefundFromWorkspace {
		test.Fatalf("expected refund from workspace, got %s", result.Source)
	}
	if result.WorkspaceDebited != 2_000 {
		test.Fatalf("expected workspace debited 2000, got %d", result.WorkspaceDebited)
	}
	if result.Shortfall != 3_000 {
		test.Fatalf("expected shortfall 3000, got %d", result.Shortfall)
	}

	userWallet, err := ledgerService.WalletByUser(ctx, "user-4")
	if err != nil {
		test.Fatalf("reload user wallet: %v", err)
	}
	if userWallet.Balance != 5_000 {
		test.Fatalf("user must be credited in full, got %d", userWallet.Balance)
	}
	workspaceWallet, err := ledgerService.WorkspaceWalletByWorkspace(ctx, "workspace-4")
	if err != nil {
		test.Fatalf("reload workspace wallet: %v", err)
	}
	if workspaceWallet.Balance != 0 {
		test.Fatalf("workspace must be drained to 0, got %d", workspaceWallet.Balance)
	}
}
