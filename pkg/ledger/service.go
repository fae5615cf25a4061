package ledger

import (
	"context"
	"time"

	"github.com/hivedesk/hivedesk/pkg/events"
)

// Store is the persistence contract used by Service. WithTx starts a unit of
// work, or joins one already carried by the context, so that composed
// operations commit or roll back together.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetOrCreateWallet(ctx context.Context, userID string) (*Wallet, bool, error)
	GetOrCreateWorkspaceWallet(ctx context.Context, workspaceID string) (*WorkspaceWallet, bool, error)
	WalletByUser(ctx context.Context, userID string) (*Wallet, error)
	WorkspaceWalletByWorkspace(ctx context.Context, workspaceID string) (*WorkspaceWallet, error)
	// WalletForUpdate and WorkspaceWalletForUpdate acquire an exclusive row
	// lock held until the surrounding transaction ends.
	WalletForUpdate(ctx context.Context, walletID string) (*Wallet, error)
	WorkspaceWalletForUpdate(ctx context.Context, walletID string) (*WorkspaceWallet, error)
	SaveWallet(ctx context.Context, wallet *Wallet) error
	SaveWorkspaceWallet(ctx context.Context, wallet *WorkspaceWallet) error
	InsertTransaction(ctx context.Context, transaction *Transaction) error
	SumCompletedByWallet(ctx context.Context, walletID string) (int64, error)
	SumCompletedByWorkspaceWallet(ctx context.Context, walletID string) (int64, error)
}

// Detail carries the optional fields of a ledger entry.
type Detail struct {
	Description string
	BookingID   string
	Reference   string
	Metadata    map[string]any
}

// Service owns every wallet balance mutation. Balance reads for mutation go
// through row locks so concurrent debits can never observe the same
// balance_before.
type Service struct {
	store     Store
	nowFn     func() time.Time
	publisher events.Publisher
}

// NewService wires a Service.
func NewService(store Store, options ...Option) (*Service, error) {
	if store == nil {
		return nil, ErrInvalidService
	}
	service := &Service{
		store:     store,
		nowFn:     func() time.Time { return time.Now().UTC() },
		publisher: events.NopPublisher{},
	}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// GetOrCreateWallet returns the user's wallet, creating it on first use.
func (service *Service) GetOrCreateWallet(ctx context.Context, userID string) (*Wallet, error) {
	var wallet *Wallet
	var created bool
	err := service.store.WithTx(ctx, func(ctx context.Context) error {
		var txErr error
		wallet, created, txErr = service.store.GetOrCreateWallet(ctx, userID)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	if created {
		service.publish(ctx, events.TypeWalletCreated, map[string]any{
			"wallet_id": wallet.WalletID,
			"user_id":   wallet.UserID,
			"balance":   wallet.Balance.Int64(),
			"currency":  wallet.Currency,
		})
	}
	return wallet, nil
}

// GetOrCreateWorkspaceWallet returns the workspace's wallet, creating it on first use.
func (service *Service) GetOrCreateWorkspaceWallet(ctx context.Context, workspaceID string) (*WorkspaceWallet, error) {
	var wallet *WorkspaceWallet
	var created bool
	err := service.store.WithTx(ctx, func(ctx context.Context) error {
		var txErr error
		wallet, created, txErr = service.store.GetOrCreateWorkspaceWallet(ctx, workspaceID)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	if created {
		service.publish(ctx, events.TypeWorkspaceWalletCreated, map[string]any{
			"wallet_id":    wallet.WalletID,
			"workspace_id": wallet.WorkspaceID,
			"balance":      wallet.Balance.Int64(),
			"currency":     wallet.Currency,
		})
	}
	return wallet, nil
}

// WalletByUser returns the user's wallet without creating it.
func (service *Service) WalletByUser(ctx context.Context, userID string) (*Wallet, error) {
	return service.store.WalletByUser(ctx, userID)
}

// WorkspaceWalletByWorkspace returns the workspace's wallet without creating it.
func (service *Service) WorkspaceWalletByWorkspace(ctx context.Context, workspaceID string) (*WorkspaceWallet, error) {
	return service.store.WorkspaceWalletByWorkspace(ctx, workspaceID)
}

// CreditWallet adds amount to a user wallet and records a completed transaction.
func (service *Service) CreditWallet(ctx context.Context, walletID string, amount Amount, category Category, detail Detail) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	var transaction *Transaction
	var wallet *Wallet
	err := service.store.WithTx(ctx, func(ctx context.Context) error {
		var txErr error
		wallet, txErr = service.store.WalletForUpdate(ctx, walletID)
		if txErr != nil {
			return txErr
		}
		balanceBefore := wallet.Balance
		wallet.Balance += amount
		if txErr = service.store.SaveWallet(ctx, wallet); txErr != nil {
			return txErr
		}
		transaction = service.newTransaction(TransactionCredit, category, amount, wallet.Currency, balanceBefore, wallet.Balance, detail)
		transaction.WalletID = wallet.WalletID
		return service.store.InsertTransaction(ctx, transaction)
	})
	if err != nil {
		return nil, err
	}
	service.publish(ctx, events.TypeWalletCredited, walletEventPayload(wallet, transaction))
	return transaction, nil
}

// DebitWallet removes amount from a user wallet; the wallet must be unlocked
// and hold at least amount.
func (service *Service) DebitWallet(ctx context.Context, walletID string, amount Amount, category Category, detail Detail) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	var transaction *Transaction
	var wallet *Wallet
	err := service.store.WithTx(ctx, func(ctx context.Context) error {
		var txErr error
		wallet, txErr = service.store.WalletForUpdate(ctx, walletID)
		if txErr != nil {
			return txErr
		}
		if !wallet.CanDebit(amount) {
			return ErrInsufficientFunds
		}
		balanceBefore := wallet.Balance
		wallet.Balance -= amount
		if txErr = service.store.SaveWallet(ctx, wallet); txErr != nil {
			return txErr
		}
		transaction = service.newTransaction(TransactionDebit, category, amount, wallet.Currency, balanceBefore, wallet.Balance, detail)
		transaction.WalletID = wallet.WalletID
		return service.store.InsertTransaction(ctx, transaction)
	})
	if err != nil {
		return nil, err
	}
	service.publish(ctx, events.TypeWalletDebited, walletEventPayload(wallet, transaction))
	return transaction, nil
}

// CreditWorkspaceWallet adds amount to a workspace wallet, bumping lifetime earnings.
func (service *Service) CreditWorkspaceWallet(ctx context.Context, walletID string, amount Amount, category Category, detail Detail) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	var transaction *Transaction
	var wallet *WorkspaceWallet
	err := service.store.WithTx(ctx, func(ctx context.Context) error {
		var txErr error
		wallet, txErr = service.store.WorkspaceWalletForUpdate(ctx, walletID)
		if txErr != nil {
			return txErr
		}
		balanceBefore := wallet.Balance
		wallet.Balance += amount
		wallet.TotalEarnings += amount
		if txErr = service.store.SaveWorkspaceWallet(ctx, wallet); txErr != nil {
			return txErr
		}
		transaction = service.newTransaction(TransactionCredit, category, amount, wallet.Currency, balanceBefore, wallet.Balance, detail)
		transaction.WorkspaceWalletID = wallet.WalletID
		return service.store.InsertTransaction(ctx, transaction)
	})
	if err != nil {
		return nil, err
	}
	service.publish(ctx, events.TypeWorkspaceWalletCredited, workspaceWalletEventPayload(wallet, transaction))
	return transaction, nil
}

// DebitWorkspaceWallet removes amount from a workspace wallet. Withdrawal
// debits also bump the lifetime withdrawn counter.
func (service *Service) DebitWorkspaceWallet(ctx context.Context, walletID string, amount Amount, category Category, detail Detail) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	var transaction *Transaction
	var wallet *WorkspaceWallet
	err := service.store.WithTx(ctx, func(ctx context.Context) error {
		var txErr error
		wallet, txErr = service.store.WorkspaceWalletForUpdate(ctx, walletID)
		if txErr != nil {
			return txErr
		}
		if !wallet.CanWithdraw(amount) {
			return ErrInsufficientFunds
		}
		balanceBefore := wallet.Balance
		wallet.Balance -= amount
		if category == CategoryWithdrawal {
			wallet.TotalWithdrawn += amount
		}
		if txErr = service.store.SaveWorkspaceWallet(ctx, wallet); txErr != nil {
			return txErr
		}
		transaction = service.newTransaction(TransactionDebit, category, amount, wallet.Currency, balanceBefore, wallet.Balance, detail)
		transaction.WorkspaceWalletID = wallet.WalletID
		return service.store.InsertTransaction(ctx, transaction)
	})
	if err != nil {
		return nil, err
	}
	service.publish(ctx, events.TypeWorkspaceWalletDebited, workspaceWalletEventPayload(wallet, transaction))
	return transaction, nil
}

// SettleWorkspaceEarning credits a workspace wallet balance for a hold that
// already has its own transaction row: the caller owns that row and updates
// it, so no new transaction is written here. Returns the balance snapshots.
func (service *Service) SettleWorkspaceEarning(ctx context.Context, walletID string, amount Amount) (Amount, Amount, error) {
	if amount <= 0 {
		return 0, 0, ErrInvalidAmount
	}
	var balanceBefore, balanceAfter Amount
	err := service.store.WithTx(ctx, func(ctx context.Context) error {
		wallet, txErr := service.store.WorkspaceWalletForUpdate(ctx, walletID)
		if txErr != nil {
			return txErr
		}
		balanceBefore = wallet.Balance
		wallet.Balance += amount
		wallet.TotalEarnings += amount
		balanceAfter = wallet.Balance
		return service.store.SaveWorkspaceWallet(ctx, wallet)
	})
	if err != nil {
		return 0, 0, err
	}
	return balanceBefore, balanceAfter, nil
}

// VerifyWalletBalance recomputes the completed-transaction sum for a user
// wallet and reports whether it matches the stored balance.
func (service *Service) VerifyWalletBalance(ctx context.Context, walletID string) (bool, error) {
	wallet, err := service.store.WalletForUpdate(ctx, walletID)
	if err != nil {
		return false, err
	}
	sum, err := service.store.SumCompletedByWallet(ctx, walletID)
	if err != nil {
		return false, err
	}
	return sum == wallet.Balance.Int64(), nil
}

func (service *Service) newTransaction(transactionType TransactionType, category Category, amount Amount, currency string, before, after Amount, detail Detail) *Transaction {
	reference := detail.Reference
	if reference == "" {
		reference = NewReference("TXN")
	}
	processedAt := service.nowFn()
	return &Transaction{
		Reference:     reference,
		Type:          transactionType,
		Category:      category,
		Amount:        amount,
		Currency:      currency,
		BookingID:     detail.BookingID,
		BalanceBefore: before,
		BalanceAfter:  after,
		Status:        TransactionCompleted,
		Description:   detail.Description,
		Metadata:      detail.Metadata,
		ProcessedAt:   &processedAt,
	}
}

func (service *Service) publish(ctx context.Context, eventType string, payload map[string]any) {
	events.Emit(ctx, service.publisher, events.New(eventType, "ledger", payload))
}

func walletEventPayload(wallet *Wallet, transaction *Transaction) map[string]any {
	return map[string]any{
		"transaction_id": transaction.TransactionID,
		"reference":      transaction.Reference,
		"wallet_id":      wallet.WalletID,
		"user_id":        wallet.UserID,
		"amount":         transaction.Amount.Int64(),
		"balance":        wallet.Balance.Int64(),
		"category":       string(transaction.Category),
		"description":    transaction.Description,
	}
}

func workspaceWalletEventPayload(wallet *WorkspaceWallet, transaction *Transaction) map[string]any {
	return map[string]any{
		"transaction_id": transaction.TransactionID,
		"reference":      transaction.Reference,
		"wallet_id":      wallet.WalletID,
		"workspace_id":   wallet.WorkspaceID,
		"amount":         transaction.Amount.Int64(),
		"balance":        wallet.Balance.Int64(),
		"total_earnings": wallet.TotalEarnings.Int64(),
		"category":       string(transaction.Category),
		"description":    transaction.Description,
	}
}
