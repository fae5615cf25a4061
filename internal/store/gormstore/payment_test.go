package gormstore

import (
	"context"
	"errors"
	"testing"

	"github.com/hivedesk/hivedesk/pkg/faults"
	"github.com/hivedesk/hivedesk/pkg/ledger"
	"github.com/hivedesk/hivedesk/pkg/payment"
)

// stubGateway scripts gateway responses so deposit flows can be driven
// without talking to Paystack.
type stubGateway struct {
	initResult   *payment.InitializeResult
	initErr      error
	verifyResult *payment.VerifyResult
	verifyErr    error
	verifyCalls  int
}

func (gateway *stubGateway) InitializeTransaction(_ context.Context, _ string, _ ledger.Amount, reference string, _ map[string]any) (*payment.InitializeResult, error) {
	if gateway.initErr != nil {
		return nil, gateway.initErr
	}
	result := *gateway.initResult
	if result.Reference == "" {
		result.Reference = reference
	}
	return &result, nil
}

func (gateway *stubGateway) VerifyTransaction(_ context.Context, reference string) (*payment.VerifyResult, error) {
	gateway.verifyCalls++
	if gateway.verifyErr != nil {
		return nil, gateway.verifyErr
	}
	result := *gateway.verifyResult
	if result.Reference == "" {
		result.Reference = reference
	}
	return &result, nil
}

func mustPaymentService(test *testing.T, store *Store, ledgerService *ledger.Service, gateway payment.Gateway, options ...payment.Option) *payment.Service {
	test.Helper()
	service, err := payment.NewService(store, ledgerService, gateway, options...)
	if err != nil {
		test.Fatalf("payment service: %v", err)
	}
	return service
}

func TestInitiateDepositRecordsGatewayFailure(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	ledgerService := mustLedgerService(test, store)
	gateway := &stubGateway{initErr: errors.New("paystack unreachable")}
	service := mustPaymentService(test, store, ledgerService, gateway)
	ctx := context.Background()

	deposit, _, err := service.InitiateDeposit(ctx, payment.DepositInput{
		UserID:        "user-1",
		Email:         "user-1@example.com",
		Amount:        2_000,
		PaymentMethod: "card",
	})
	if !faults.IsKind(err, faults.KindGateway) {
		test.Fatalf("expected gateway fault, got %v", err)
	}
	if deposit == nil {
		test.Fatal("the failed deposit must still be returned")
	}

	reloaded, err := store.DepositByReference(ctx, deposit.Reference)
	if err != nil {
		test.Fatalf("reload deposit: %v", err)
	}
	if reloaded.Status != payment.StatusFailed {
		test.Fatalf("expected failed deposit, got %s", reloaded.Status)
	}
	if reloaded.FailureReason != "paystack unreachable" {
		test.Fatalf("unexpected failure reason %q", reloaded.FailureReason)
	}
}

func TestVerifyDepositCreditsWalletOnce(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	ledgerService := mustLedgerService(test, store)
	gateway := &stubGateway{
		initResult:   &payment.InitializeResult{Success: true, AuthorizationURL: "https://checkout.example/abc"},
		verifyResult: &payment.VerifyResult{Success: true, Status: "success", Amount: 2_000},
	}
	service := mustPaymentService(test, store, ledgerService, gateway)
	ctx := context.Background()

	deposit, result, err := service.InitiateDeposit(ctx, payment.DepositInput{
		UserID:        "user-2",
		Email:         "user-2@example.com",
		Amount:        2_000,
		PaymentMethod: "card",
	})
	if err != nil {
		test.Fatalf("initiate deposit: %v", err)
	}
	if result.AuthorizationURL == "" {
		test.Fatal("expected an authorization URL")
	}

	verified, transaction, err := service.VerifyDeposit(ctx, deposit.Reference)
	if err != nil {
		test.Fatalf("verify deposit: %v", err)
	}
	if verified.Status != payment.StatusCompleted {
		test.Fatalf("expected completed deposit, got %s", verified.Status)
	}
	if transaction == nil {
		test.Fatal("expected a ledger credit")
	}
	if transaction.Category != ledger.CategoryDeposit || transaction.Reference != deposit.Reference {
		test.Fatalf("unexpected credit %s/%s", transaction.Category, transaction.Reference)
	}

	again, repeat, err := service.VerifyDeposit(ctx, deposit.Reference)
	if err != nil {
		test.Fatalf("second verify: %v", err)
	}
	if again.Status != payment.StatusCompleted {
		test.Fatalf("expected completed deposit, got %s", again.Status)
	}
	if repeat != nil {
		test.Fatal("a settled deposit must not be credited twice")
	}

	wallet, err := ledgerService.WalletByUser(ctx, "user-2")
	if err != nil {
		test.Fatalf("reload wallet: %v", err)
	}
	if wallet.Balance != 2_000 {
		test.Fatalf("expected balance 2000, got %d", wallet.Balance)
	}
}

func TestVerifyDepositAcceptsSuccessfulStatus(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	ledgerService := mustLedgerService(test, store)
	gateway := &stubGateway{
		initResult:   &payment.InitializeResult{Success: true, AuthorizationURL: "https://checkout.example/abc"},
		verifyResult: &payment.VerifyResult{Success: true, Status: "successful", Amount: 2_000},
	}
	service := mustPaymentService(test, store, ledgerService, gateway)
	ctx := context.Background()

	deposit, _, err := service.InitiateDeposit(ctx, payment.DepositInput{
		UserID:        "user-6",
		Email:         "user-6@example.com",
		Amount:        2_000,
		PaymentMethod: "card",
	})
	if err != nil {
		test.Fatalf("initiate deposit: %v", err)
	}

	verified, transaction, err := service.VerifyDeposit(ctx, deposit.Reference)
	if err != nil {
		test.Fatalf("verify deposit: %v", err)
	}
	if verified.Status != payment.StatusCompleted {
		test.Fatalf("a %q gateway status must settle the deposit, got %s", "successful", verified.Status)
	}
	if transaction == nil {
		test.Fatal("expected a ledger credit")
	}

	wallet, err := ledgerService.WalletByUser(ctx, "user-6")
	if err != nil {
		test.Fatalf("reload wallet: %v", err)
	}
	if wallet.Balance != 2_000 {
		test.Fatalf("expected balance 2000, got %d", wallet.Balance)
	}
}

func TestVerifyDepositRejectsShortPayment(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	ledgerService := mustLedgerService(test, store)
	gateway := &stubGateway{
		initResult:   &payment.InitializeResult{Success: true, AuthorizationURL: "https://checkout.example/abc"},
		verifyResult: &payment.VerifyResult{Success: true, Status: "success", Amount: 1_500},
	}
	service := mustPaymentService(test, store, ledgerService, gateway)
	ctx := context.Background()

	deposit, _, err := service.InitiateDeposit(ctx, payment.DepositInput{
		UserID:        "user-3",
		Email:         "user-3@example.com",
		Amount:        2_000,
		PaymentMethod: "card",
	})
	if err != nil {
		test.Fatalf("initiate deposit: %v", err)
	}

	_, _, err = service.VerifyDeposit(ctx, deposit.Reference)
	if !faults.IsKind(err, faults.KindGateway) {
		test.Fatalf("expected gateway fault, got %v", err)
	}

	reloaded, err := store.DepositByReference(ctx, deposit.Reference)
	if err != nil {
		test.Fatalf("reload deposit: %v", err)
	}
	if reloaded.Status != payment.StatusFailed {
		test.Fatalf("expected failed deposit, got %s", reloaded.Status)
	}
	wallet, err := ledgerService.WalletByUser(ctx, "user-3")
	if err != nil {
		test.Fatalf("reload wallet: %v", err)
	}
	if wallet.Balance != 0 {
		test.Fatalf("a short payment must not credit the wallet, got %d", wallet.Balance)
	}
}

func TestWithdrawalFlow(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	ledgerService := mustLedgerService(test, store)
	gateway := &stubGateway{initResult: &payment.InitializeResult{Success: true}}
	service := mustPaymentService(test, store, ledgerService, gateway)
	ctx := context.Background()

	wallet, err := ledgerService.GetOrCreateWorkspaceWallet(ctx, "workspace-1")
	if err != nil {
		test.Fatalf("get or create workspace wallet: %v", err)
	}
	if _, err = ledgerService.CreditWorkspaceWallet(ctx, wallet.WalletID, 10_000, ledger.CategoryBookingEarning, ledger.Detail{}); err != nil {
		test.Fatalf("credit workspace wallet: %v", err)
	}

	request, err := service.RequestWithdrawal(ctx, payment.WithdrawalInput{
		WorkspaceID:   "workspace-1",
		Amount:        5_000,
		AccountNumber: "0123456789",
		AccountName:   "Hive Desk Ltd",
		BankCode:      "058",
	})
	if err != nil {
		test.Fatalf("request withdrawal: %v", err)
	}
	if request.Fee != 100 || request.NetAmount != 4_900 {
		test.Fatalf("fee split: fee %d net %d", request.Fee, request.NetAmount)
	}
	if request.Status != payment.StatusPending {
		test.Fatalf("expected pending request, got %s", request.Status)
	}

	processed, err := service.ProcessWithdrawal(ctx, request.WithdrawalID)
	if err != nil {
		test.Fatalf("process withdrawal: %v", err)
	}
	if processed.Status != payment.StatusProcessing {
		test.Fatalf("expected processing request, got %s", processed.Status)
	}
	reloaded, err := ledgerService.WorkspaceWalletByWorkspace(ctx, "workspace-1")
	if err != nil {
		test.Fatalf("reload workspace wallet: %v", err)
	}
	if reloaded.Balance != 5_000 || reloaded.TotalWithdrawn != 5_000 {
		test.Fatalf("expected balance 5000 and total withdrawn 5000, got %d/%d", reloaded.Balance, reloaded.TotalWithdrawn)
	}

	if _, err = service.ProcessWithdrawal(ctx, request.WithdrawalID); !errors.Is(err, payment.ErrWithdrawalNotPending) {
		test.Fatalf("expected not-pending, got %v", err)
	}

	completed, err := service.CompleteWithdrawal(ctx, request.WithdrawalID)
	if err != nil {
		test.Fatalf("complete withdrawal: %v", err)
	}
	if completed.Status != payment.StatusCompleted || completed.CompletedAt == nil {
		test.Fatalf("expected completed request, got %s", completed.Status)
	}
	if _, err = service.CompleteWithdrawal(ctx, request.WithdrawalID); !errors.Is(err, payment.ErrWithdrawalNotInFlight) {
		test.Fatalf("expected not-in-flight, got %v", err)
	}
}

func TestRequestWithdrawalRequiresFunds(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	ledgerService := mustLedgerService(test, store)
	gateway := &stubGateway{initResult: &payment.InitializeResult{Success: true}}
	service := mustPaymentService(test, store, ledgerService, gateway)
	ctx := context.Background()

	wallet, err := ledgerService.GetOrCreateWorkspaceWallet(ctx, "workspace-2")
	if err != nil {
		test.Fatalf("get or create workspace wallet: %v", err)
	}
	if _, err = ledgerService.CreditWorkspaceWallet(ctx, wallet.WalletID, 1_000, ledger.CategoryBookingEarning, ledger.Detail{}); err != nil {
		test.Fatalf("credit workspace wallet: %v", err)
	}

	_, err = service.RequestWithdrawal(ctx, payment.WithdrawalInput{
		WorkspaceID:   "workspace-2",
		Amount:        2_000,
		AccountNumber: "0123456789",
		AccountName:   "Hive Desk Ltd",
		BankCode:      "058",
	})
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		test.Fatalf("expected insufficient funds, got %v", err)
	}
}
