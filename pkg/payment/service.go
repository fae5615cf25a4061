package payment

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hivedesk/hivedesk/pkg/events"
	"github.com/hivedesk/hivedesk/pkg/faults"
	"github.com/hivedesk/hivedesk/pkg/ledger"
)

// Store is the persistence contract used by Service.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateDeposit(ctx context.Context, deposit *Deposit) error
	DepositByReference(ctx context.Context, reference string) (*Deposit, error)
	SaveDeposit(ctx context.Context, deposit *Deposit) error
	// ClaimDeposit conditionally flips a deposit out of pending into the
	// given status. Returns false when the deposit already settled, so a
	// repeated verification never credits twice.
	ClaimDeposit(ctx context.Context, depositID string, to Status) (bool, error)
	CreateWithdrawal(ctx context.Context, request *WithdrawalRequest) error
	GetWithdrawal(ctx context.Context, withdrawalID string) (*WithdrawalRequest, error)
	SaveWithdrawal(ctx context.Context, request *WithdrawalRequest) error
}

// Ledger is the slice of the ledger service payments rely on.
type Ledger interface {
	GetOrCreateWallet(ctx context.Context, userID string) (*ledger.Wallet, error)
	WorkspaceWalletByWorkspace(ctx context.Context, workspaceID string) (*ledger.WorkspaceWallet, error)
	CreditWallet(ctx context.Context, walletID string, amount ledger.Amount, category ledger.Category, detail ledger.Detail) (*ledger.Transaction, error)
	DebitWorkspaceWallet(ctx context.Context, walletID string, amount ledger.Amount, category ledger.Category, detail ledger.Detail) (*ledger.Transaction, error)
}

// DepositInput describes a user top-up.
type DepositInput struct {
	UserID        string
	Email         string
	Amount        ledger.Amount
	PaymentMethod string
}

// WithdrawalInput describes a workspace payout request.
type WithdrawalInput struct {
	WorkspaceID   string
	Amount        ledger.Amount
	AccountNumber string
	AccountName   string
	BankCode      string
	Notes         string
}

// Service drives deposits and withdrawals against the gateway and ledger.
type Service struct {
	store      Store
	ledger     Ledger
	gateway    Gateway
	feePercent int64
	nowFn      func() time.Time
	publisher  events.Publisher
	logger     *zap.Logger
}

// NewService wires a Service.
func NewService(store Store, ledgerService Ledger, gateway Gateway, options ...Option) (*Service, error) {
	if store == nil || ledgerService == nil || gateway == nil {
		return nil, faults.New(faults.KindInternal, "payment dependencies are nil")
	}
	service := &Service{
		store:      store,
		ledger:     ledgerService,
		gateway:    gateway,
		feePercent: DefaultWithdrawalFeePercent,
		nowFn:      func() time.Time { return time.Now().UTC() },
		publisher:  events.NopPublisher{},
		logger:     zap.NewNop(),
	}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// InitiateDeposit files a pending deposit and asks the gateway for a payment
// authorization. A gateway failure is recorded on the deposit before the
// error is returned, so the failed attempt stays auditable.
func (service *Service) InitiateDeposit(ctx context.Context, input DepositInput) (*Deposit, *InitializeResult, error) {
	if input.Amount <= 0 {
		return nil, nil, ErrInvalidAmount
	}
	wallet, err := service.ledger.GetOrCreateWallet(ctx, input.UserID)
	if err != nil {
		return nil, nil, err
	}

	deposit := &Deposit{
		WalletID:      wallet.WalletID,
		UserID:        input.UserID,
		Amount:        input.Amount,
		PaymentMethod: input.PaymentMethod,
		Reference:     ledger.NewReference("DEP"),
		Status:        StatusPending,
	}
	err = service.store.WithTx(ctx, func(ctx context.Context) error {
		return service.store.CreateDeposit(ctx, deposit)
	})
	if err != nil {
		return nil, nil, err
	}

	result, gatewayErr := service.gateway.InitializeTransaction(ctx, input.Email, input.Amount, deposit.Reference, map[string]any{
		"deposit_id": deposit.DepositID,
		"wallet_id":  wallet.WalletID,
		"user_id":    input.UserID,
	})
	if gatewayErr != nil || !result.Success {
		reason := "gateway initialization failed"
		if gatewayErr != nil {
			reason = gatewayErr.Error()
		} else if result.Message != "" {
			reason = result.Message
		}
		if markErr := service.markDepositFailed(ctx, deposit, reason); markErr != nil {
			service.logger.Error("failed to record deposit failure",
				zap.String("deposit_id", deposit.DepositID),
				zap.Error(markErr))
		}
		if gatewayErr != nil {
			return deposit, nil, faults.Wrap(faults.KindGateway, "deposit initialization failed", gatewayErr)
		}
		return deposit, nil, faults.New(faults.KindGateway, "deposit initialization failed: "+reason)
	}

	deposit.GatewayReference = result.Reference
	err = service.store.WithTx(ctx, func(ctx context.Context) error {
		return service.store.SaveDeposit(ctx, deposit)
	})
	if err != nil {
		return nil, nil, err
	}

	service.publish(ctx, events.TypeDepositInitiated, map[string]any{
		"deposit_id": deposit.DepositID,
		"wallet_id":  deposit.WalletID,
		"user_id":    deposit.UserID,
		"amount":     deposit.Amount.Int64(),
		"reference":  deposit.Reference,
	})
	return deposit, result, nil
}

// VerifyDeposit confirms a deposit with the gateway and credits the wallet.
// A deposit that already completed is returned as-is; the claim guard makes
// repeated verification harmless.
func (service *Service) VerifyDeposit(ctx context.Context, reference string) (*Deposit, *ledger.Transaction, error) {
	deposit, err := service.store.DepositByReference(ctx, reference)
	if err != nil {
		return nil, nil, err
	}
	if deposit.Status == StatusCompleted {
		return deposit, nil, nil
	}

	ctx, flush := events.Stage(ctx)
	verification, gatewayErr := service.gateway.VerifyTransaction(ctx, reference)
	if gatewayErr != nil {
		return deposit, nil, faults.Wrap(faults.KindGateway, "deposit verification failed", gatewayErr)
	}
	if !verification.Charged() {
		reason := fmt.Sprintf("gateway reported status %q", verification.Status)
		if markErr := service.markDepositFailed(ctx, deposit, reason); markErr != nil {
			return deposit, nil, markErr
		}
		return deposit, nil, faults.New(faults.KindGateway, "deposit charge did not succeed")
	}
	if verification.Amount < deposit.Amount {
		reason := fmt.Sprintf("gateway paid %d, expected %d", verification.Amount.Int64(), deposit.Amount.Int64())
		if markErr := service.markDepositFailed(ctx, deposit, reason); markErr != nil {
			return deposit, nil, markErr
		}
		return deposit, nil, faults.New(faults.KindGateway, "paid amount is below the deposit amount")
	}

	var transaction *ledger.Transaction
	err = service.store.WithTx(ctx, func(ctx context.Context) error {
		claimed, txErr := service.store.ClaimDeposit(ctx, deposit.DepositID, StatusCompleted)
		if txErr != nil {
			return txErr
		}
		if !claimed {
			return nil
		}
		transaction, txErr = service.ledger.CreditWallet(ctx, deposit.WalletID, deposit.Amount, ledger.CategoryDeposit, ledger.Detail{
			Description: "Wallet deposit via " + deposit.PaymentMethod,
			Reference:   deposit.Reference,
			Metadata: map[string]any{
				"deposit_id":        deposit.DepositID,
				"gateway_reference": verification.Reference,
			},
		})
		if txErr != nil {
			return txErr
		}
		completedAt := service.nowFn()
		deposit.Status = StatusCompleted
		deposit.CompletedAt = &completedAt
		return service.store.SaveDeposit(ctx, deposit)
	})
	if err != nil {
		return nil, nil, err
	}
	if transaction == nil {
		flush()
		return deposit, nil, nil
	}

	service.publish(ctx, events.TypeDepositCompleted, map[string]any{
		"deposit_id":     deposit.DepositID,
		"wallet_id":      deposit.WalletID,
		"user_id":        deposit.UserID,
		"amount":         deposit.Amount.Int64(),
		"reference":      deposit.Reference,
		"transaction_id": transaction.TransactionID,
	})
	flush()
	return deposit, transaction, nil
}

// RequestWithdrawal files a payout request for a workspace. The fee is taken
// off the requested amount; the wallet itself is only debited at processing.
func (service *Service) RequestWithdrawal(ctx context.Context, input WithdrawalInput) (*WithdrawalRequest, error) {
	if input.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	wallet, err := service.ledger.WorkspaceWalletByWorkspace(ctx, input.WorkspaceID)
	if err != nil {
		return nil, err
	}
	if !wallet.CanWithdraw(input.Amount) {
		return nil, ledger.ErrInsufficientFunds
	}

	fee := ledger.Amount(input.Amount.Int64() * service.feePercent / 100)
	request := &WithdrawalRequest{
		WorkspaceWalletID: wallet.WalletID,
		WorkspaceID:       input.WorkspaceID,
		Amount:            input.Amount,
		Fee:               fee,
		NetAmount:         input.Amount - fee,
		AccountNumber:     input.AccountNumber,
		AccountName:       input.AccountName,
		BankCode:          input.BankCode,
		Reference:         ledger.NewReference("WDR"),
		Status:            StatusPending,
		Notes:             input.Notes,
	}
	err = service.store.WithTx(ctx, func(ctx context.Context) error {
		return service.store.CreateWithdrawal(ctx, request)
	})
	if err != nil {
		return nil, err
	}

	service.publish(ctx, events.TypeWithdrawalRequested, map[string]any{
		"withdrawal_id": request.WithdrawalID,
		"workspace_id":  request.WorkspaceID,
		"amount":        request.Amount.Int64(),
		"fee":           request.Fee.Int64(),
		"net_amount":    request.NetAmount.Int64(),
		"reference":     request.Reference,
	})
	return request, nil
}

// ProcessWithdrawal debits the workspace wallet and hands the payout to the
// banking rail. The debit and the status flip share one transaction.
func (service *Service) ProcessWithdrawal(ctx context.Context, withdrawalID string) (*WithdrawalRequest, error) {
	ctx, flush := events.Stage(ctx)
	var request *WithdrawalRequest
	err := service.store.WithTx(ctx, func(ctx context.Context) error {
		var txErr error
		request, txErr = service.store.GetWithdrawal(ctx, withdrawalID)
		if txErr != nil {
			return txErr
		}
		if request.Status != StatusPending {
			return ErrWithdrawalNotPending
		}
		_, txErr = service.ledger.DebitWorkspaceWallet(ctx, request.WorkspaceWalletID, request.Amount, ledger.CategoryWithdrawal, ledger.Detail{
			Description: "Withdrawal to account " + request.AccountNumber,
			Reference:   request.Reference,
			Metadata:    map[string]any{"withdrawal_id": request.WithdrawalID},
		})
		if txErr != nil {
			return txErr
		}
		processedAt := service.nowFn()
		request.Status = StatusProcessing
		request.ProcessedAt = &processedAt
		return service.store.SaveWithdrawal(ctx, request)
	})
	if err != nil {
		return nil, err
	}

	service.publish(ctx, events.TypeWithdrawalProcessing, map[string]any{
		"withdrawal_id": request.WithdrawalID,
		"workspace_id":  request.WorkspaceID,
		"amount":        request.Amount.Int64(),
		"reference":     request.Reference,
	})
	flush()
	return request, nil
}

// CompleteWithdrawal marks a processing payout as settled.
func (service *Service) CompleteWithdrawal(ctx context.Context, withdrawalID string) (*WithdrawalRequest, error) {
	var request *WithdrawalRequest
	err := service.store.WithTx(ctx, func(ctx context.Context) error {
		var txErr error
		request, txErr = service.store.GetWithdrawal(ctx, withdrawalID)
		if txErr != nil {
			return txErr
		}
		if request.Status != StatusProcessing {
			return ErrWithdrawalNotInFlight
		}
		completedAt := service.nowFn()
		request.Status = StatusCompleted
		request.CompletedAt = &completedAt
		return service.store.SaveWithdrawal(ctx, request)
	})
	if err != nil {
		return nil, err
	}

	service.publish(ctx, events.TypeWithdrawalCompleted, map[string]any{
		"withdrawal_id": request.WithdrawalID,
		"workspace_id":  request.WorkspaceID,
		"net_amount":    request.NetAmount.Int64(),
		"reference":     request.Reference,
	})
	return request, nil
}

func (service *Service) markDepositFailed(ctx context.Context, deposit *Deposit, reason string) error {
	deposit.Status = StatusFailed
	deposit.FailureReason = reason
	return service.store.WithTx(ctx, func(ctx context.Context) error {
		return service.store.SaveDeposit(ctx, deposit)
	})
}

func (service *Service) publish(ctx context.Context, eventType string, payload map[string]any) {
	events.Emit(ctx, service.publisher, events.New(eventType, "payment", payload))
}
