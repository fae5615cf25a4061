// Package escrow holds booking payments as pending ledger entries until
// guest check-in, releases them to the workspace, and routes refunds based
// on whether the hold was ever released.
package escrow

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hivedesk/hivedesk/pkg/events"
	"github.com/hivedesk/hivedesk/pkg/faults"
	"github.com/hivedesk/hivedesk/pkg/ledger"
)

// RefundSource says where refund money came from.
type RefundSource string

const (
	// RefundFromPending: the hold was never released, so the workspace
	// wallet was never touched and the pending entry is simply reversed.
	RefundFromPending RefundSource = "pending"
	// RefundFromWorkspace: the hold was already released, so the workspace
	// wallet is debited to fund the refund.
	RefundFromWorkspace RefundSource = "workspace"
)

// Store is the persistence contract used by Service.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	InsertTransaction(ctx context.Context, transaction *ledger.Transaction) error
	SaveTransaction(ctx context.Context, transaction *ledger.Transaction) error
	// FindPendingBookingPayment returns the single pending booking_payment
	// entry for the booking, or nil when none exists.
	FindPendingBookingPayment(ctx context.Context, bookingID string) (*ledger.Transaction, error)
	// ClaimPendingTransaction conditionally flips a transaction from
	// pending to the given status. Returns false when another caller won
	// the race or the entry was already settled.
	ClaimPendingTransaction(ctx context.Context, transactionID string, to ledger.TransactionStatus) (bool, error)
}

// Ledger is the slice of the ledger service escrow relies on; wallet
// balances are only ever mutated through it.
type Ledger interface {
	GetOrCreateWallet(ctx context.Context, userID string) (*ledger.Wallet, error)
	GetOrCreateWorkspaceWallet(ctx context.Context, workspaceID string) (*ledger.WorkspaceWallet, error)
	WorkspaceWalletByWorkspace(ctx context.Context, workspaceID string) (*ledger.WorkspaceWallet, error)
	CreditWallet(ctx context.Context, walletID string, amount ledger.Amount, category ledger.Category, detail ledger.Detail) (*ledger.Transaction, error)
	DebitWorkspaceWallet(ctx context.Context, walletID string, amount ledger.Amount, category ledger.Category, detail ledger.Detail) (*ledger.Transaction, error)
	SettleWorkspaceEarning(ctx context.Context, walletID string, amount ledger.Amount) (ledger.Amount, ledger.Amount, error)
}

// HoldInput describes a payment to hold for a booking.
type HoldInput struct {
	BookingID   string
	WorkspaceID string
	Amount      ledger.Amount
	PaymentID   string
}

// RefundInput describes a refund to process for a cancelled booking.
type RefundInput struct {
	BookingID   string
	UserID      string
	WorkspaceID string
	Amount      ledger.Amount
	Description string
}

// RefundResult reports where the refund came from and what moved.
type RefundResult struct {
	Wallet           *ledger.Wallet
	Transaction      *ledger.Transaction
	Reference        string
	Source           RefundSource
	WorkspaceDebited ledger.Amount
	Shortfall        ledger.Amount
}

// Service mediates the pending-payment lifecycle.
type Service struct {
	store     Store
	ledger    Ledger
	nowFn     func() time.Time
	publisher events.Publisher
	logger    *zap.Logger
}

// NewService wires a Service.
func NewService(store Store, ledgerService Ledger, options ...Option) (*Service, error) {
	if store == nil || ledgerService == nil {
		return nil, faults.New(faults.KindInternal, "escrow dependencies are nil")
	}
	service := &Service{
		store:     store,
		ledger:    ledgerService,
		nowFn:     func() time.Time { return time.Now().UTC() },
		publisher: events.NopPublisher{},
		logger:    zap.NewNop(),
	}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// HoldBookingPayment records a paid booking as a pending entry on the
// workspace wallet: money collected but not yet earned, so BalanceBefore
// equals BalanceAfter until release.
func (service *Service) HoldBookingPayment(ctx context.Context, input HoldInput) (*ledger.WorkspaceWallet, *ledger.Transaction, error) {
	if input.Amount <= 0 {
		return nil, nil, ledger.ErrInvalidAmount
	}
	ctx, flush := events.Stage(ctx)
	var wallet *ledger.WorkspaceWallet
	var transaction *ledger.Transaction
	err := service.store.WithTx(ctx, func(ctx context.Context) error {
		var txErr error
		wallet, txErr = service.ledger.GetOrCreateWorkspaceWallet(ctx, input.WorkspaceID)
		if txErr != nil {
			return txErr
		}
		transaction = &ledger.Transaction{
			Reference:         ledger.NewReference("TXN"),
			Type:              ledger.TransactionCredit,
			Category:          ledger.CategoryBookingPayment,
			Amount:            input.Amount,
			Currency:          wallet.Currency,
			WorkspaceWalletID: wallet.WalletID,
			BookingID:         input.BookingID,
			BalanceBefore:     wallet.Balance,
			BalanceAfter:      wallet.Balance,
			Status:            ledger.TransactionPending,
			Description:       "Pending booking payment (released on check-in)",
			Metadata: map[string]any{
				"booking_id": input.BookingID,
				"payment_id": input.PaymentID,
				"held_until": "check_in",
			},
		}
		return service.store.InsertTransaction(ctx, transaction)
	})
	if err != nil {
		return nil, nil, err
	}

	service.publish(ctx, events.TypeBookingPaymentHeld, map[string]any{
		"transaction_id": transaction.TransactionID,
		"reference":      transaction.Reference,
		"wallet_id":      wallet.WalletID,
		"workspace_id":   input.WorkspaceID,
		"booking_id":     input.BookingID,
		"amount":         input.Amount.Int64(),
		"status":         string(ledger.TransactionPending),
	})
	flush()
	return wallet, transaction, nil
}

// ReleasePendingPayment settles the booking's pending entry into workspace
// earnings. Returns nil when no pending entry exists: the call is idempotent
// and safe under a double check-in race, because only one caller can win the
// conditional pending-to-completed flip.
func (service *Service) ReleasePendingPayment(ctx context.Context, bookingID, workspaceID string) (*ledger.Transaction, error) {
	ctx, flush := events.Stage(ctx)
	var transaction *ledger.Transaction
	err := service.store.WithTx(ctx, func(ctx context.Context) error {
		pending, txErr := service.store.FindPendingBookingPayment(ctx, bookingID)
		if txErr != nil {
			return txErr
		}
		if pending == nil {
			return nil
		}
		claimed, txErr := service.store.ClaimPendingTransaction(ctx, pending.TransactionID, ledger.TransactionCompleted)
		if txErr != nil {
			return txErr
		}
		if !claimed {
			return nil
		}
		wallet, txErr := service.ledger.GetOrCreateWorkspaceWallet(ctx, workspaceID)
		if txErr != nil {
			return txErr
		}
		balanceBefore, balanceAfter, txErr := service.ledger.SettleWorkspaceEarning(ctx, wallet.WalletID, pending.Amount)
		if txErr != nil {
			return txErr
		}
		processedAt := service.nowFn()
		pending.Status = ledger.TransactionCompleted
		pending.Category = ledger.CategoryBookingEarning
		pending.BalanceBefore = balanceBefore
		pending.BalanceAfter = balanceAfter
		pending.ProcessedAt = &processedAt
		pending.Description = "Booking payment released after check-in"
		if txErr = service.store.SaveTransaction(ctx, pending); txErr != nil {
			return txErr
		}
		transaction = pending
		return nil
	})
	if err != nil {
		return nil, err
	}
	if transaction == nil {
		flush()
		return nil, nil
	}

	service.publish(ctx, events.TypeBookingPaymentReleased, map[string]any{
		"transaction_id": transaction.TransactionID,
		"reference":      transaction.Reference,
		"workspace_id":   workspaceID,
		"booking_id":     bookingID,
		"amount":         transaction.Amount.Int64(),
		"balance":        transaction.BalanceAfter.Int64(),
	})
	flush()
	return transaction, nil
}

// RefundBookingPayment credits the user's wallet for a cancelled booking.
// If the booking's payment is still held, the pending entry is reversed and
// the workspace wallet is never touched. If it was already released, the
// workspace wallet funds the refund, debited up to its available balance;
// the user is credited in full either way and any shortfall is reported.
func (service *Service) RefundBookingPayment(ctx context.Context, input RefundInput) (RefundResult, error) {
	if input.Amount <= 0 {
		return RefundResult{}, ledger.ErrInvalidAmount
	}
	description := input.Description
	if description == "" {
		description = "Refund for cancelled booking"
	}

	ctx, flush := events.Stage(ctx)
	var result RefundResult
	err := service.store.WithTx(ctx, func(ctx context.Context) error {
		wallet, txErr := service.ledger.GetOrCreateWallet(ctx, input.UserID)
		if txErr != nil {
			return txErr
		}
		pending, txErr := service.store.FindPendingBookingPayment(ctx, input.BookingID)
		if txErr != nil {
			return txErr
		}
		if pending != nil {
			return service.refundFromPending(ctx, wallet, pending, input, description, &result)
		}
		return service.refundFromWorkspace(ctx, wallet, input, description, &result)
	})
	if err != nil {
		return RefundResult{}, err
	}

	service.publish(ctx, events.TypeBookingRefundProcessed, map[string]any{
		"booking_id":        input.BookingID,
		"user_id":           input.UserID,
		"workspace_id":      input.WorkspaceID,
		"refund_amount":     input.Amount.Int64(),
		"refund_reference":  result.Reference,
		"refund_from":       string(result.Source),
		"workspace_debited": result.WorkspaceDebited.Int64(),
		"shortfall":         result.Shortfall.Int64(),
	})
	flush()
	return result, nil
}

func (service *Service) refundFromPending(ctx context.Context, wallet *ledger.Wallet, pending *ledger.Transaction, input RefundInput, description string, result *RefundResult) error {
	reversed, err := service.store.ClaimPendingTransaction(ctx, pending.TransactionID, ledger.TransactionReversed)
	if err != nil {
		return err
	}
	if reversed {
		failedAt := service.nowFn()
		pending.Status = ledger.TransactionReversed
		pending.FailedAt = &failedAt
		pending.FailureReason = "Booking cancelled before check-in"
		if err = service.store.SaveTransaction(ctx, pending); err != nil {
			return err
		}
	}
	refund, err := service.ledger.CreditWallet(ctx, wallet.WalletID, input.Amount, ledger.CategoryCancellationRefund, ledger.Detail{
		Description: description + " (from pending payment)",
		BookingID:   input.BookingID,
		Metadata: map[string]any{
			"booking_id":              input.BookingID,
			"refund_from":             string(RefundFromPending),
			"reversed_transaction_id": pending.TransactionID,
		},
	})
	if err != nil {
		return err
	}
	result.Wallet = wallet
	result.Transaction = refund
	result.Reference = refund.Reference
	result.Source = RefundFromPending
	return nil
}

func (service *Service) refundFromWorkspace(ctx context.Context, wallet *ledger.Wallet, input RefundInput, description string, result *RefundResult) error {
	debited, shortfall, err := service.debitWorkspaceForRefund(ctx, input)
	if err != nil {
		return err
	}
	refund, err := service.ledger.CreditWallet(ctx, wallet.WalletID, input.Amount, ledger.CategoryCancellationRefund, ledger.Detail{
		Description: description + " (from workspace)",
		BookingID:   input.BookingID,
		Metadata: map[string]any{
			"booking_id":  input.BookingID,
			"refund_from": string(RefundFromWorkspace),
		},
	})
	if err != nil {
		return err
	}
	result.Wallet = wallet
	result.Transaction = refund
	result.Reference = refund.Reference
	result.Source = RefundFromWorkspace
	result.WorkspaceDebited = debited
	result.Shortfall = shortfall
	return nil
}

// debitWorkspaceForRefund takes as much of the refund as the workspace
// balance covers; the remainder is reported as a shortfall instead of being
// silently dropped.
func (service *Service) debitWorkspaceForRefund(ctx context.Context, input RefundInput) (ledger.Amount, ledger.Amount, error) {
	workspaceWallet, err := service.ledger.WorkspaceWalletByWorkspace(ctx, input.WorkspaceID)
	if err != nil {
		if faults.IsKind(err, faults.KindNotFound) {
			return 0, input.Amount, nil
		}
		return 0, 0, err
	}
	debitAmount := input.Amount
	if workspaceWallet.Balance < debitAmount {
		debitAmount = workspaceWallet.Balance
	}
	if debitAmount <= 0 {
		return 0, input.Amount, nil
	}
	detail := ledger.Detail{
		Description: "Refund for cancelled booking " + input.BookingID,
		BookingID:   input.BookingID,
		Metadata:    map[string]any{"booking_id": input.BookingID},
	}
	if _, err = service.ledger.DebitWorkspaceWallet(ctx, workspaceWallet.WalletID, debitAmount, ledger.CategoryRefund, detail); err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			service.logger.Warn("workspace wallet could not fund refund",
				zap.String("workspace_id", input.WorkspaceID),
				zap.Int64("refund_amount", input.Amount.Int64()))
			return 0, input.Amount, nil
		}
		return 0, 0, err
	}
	return debitAmount, input.Amount - debitAmount, nil
}

func (service *Service) publish(ctx context.Context, eventType string, payload map[string]any) {
	events.Emit(ctx, service.publisher, events.New(eventType, "escrow", payload))
}
