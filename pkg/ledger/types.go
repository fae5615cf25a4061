package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Amount is integer money in the currency's minor unit.
type Amount int64

// Int64 returns the raw minor-unit value.
func (amount Amount) Int64() int64 { return int64(amount) }

// DefaultCurrency is the fixed wallet currency.
const DefaultCurrency = "NGN"

// Wallet is a user's in-app balance for deposits and refunds.
type Wallet struct {
	WalletID  string
	UserID    string
	Balance   Amount
	Currency  string
	IsActive  bool
	IsLocked  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanDebit reports whether the wallet can cover the amount right now.
func (wallet *Wallet) CanDebit(amount Amount) bool {
	return wallet.Balance >= amount && wallet.IsActive && !wallet.IsLocked
}

// WorkspaceWallet is the earnings account of a space-owning tenant.
type WorkspaceWallet struct {
	WalletID       string
	WorkspaceID    string
	Balance        Amount
	TotalEarnings  Amount
	TotalWithdrawn Amount
	Currency       string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CanWithdraw reports whether the workspace balance covers the amount.
func (wallet *WorkspaceWallet) CanWithdraw(amount Amount) bool {
	return wallet.Balance >= amount && wallet.IsActive
}

// TransactionType distinguishes the direction of a ledger entry.
type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// Category classifies what a transaction was for.
type Category string

const (
	CategoryDeposit            Category = "deposit"
	CategoryWithdrawal         Category = "withdrawal"
	CategoryRefund             Category = "refund"
	CategoryBookingPayment     Category = "booking_payment"
	CategoryBookingEarning     Category = "booking_earning"
	CategoryCancellationRefund Category = "cancellation_refund"
)

// TransactionStatus is the lifecycle state of a ledger entry.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
	TransactionReversed  TransactionStatus = "reversed"
)

// Transaction is an immutable ledger entry against exactly one wallet.
// For a pending booking_payment hold, BalanceBefore equals BalanceAfter
// until the hold is released.
type Transaction struct {
	TransactionID     string
	Reference         string
	Type              TransactionType
	Category          Category
	Amount            Amount
	Currency          string
	WalletID          string
	WorkspaceWalletID string
	BookingID         string
	BalanceBefore     Amount
	BalanceAfter      Amount
	Status            TransactionStatus
	Description       string
	Metadata          map[string]any
	ProcessedAt       *time.Time
	FailedAt          *time.Time
	FailureReason     string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SignedAmount is the amount with the debit/credit sign applied.
func (transaction *Transaction) SignedAmount() Amount {
	if transaction.Type == TransactionDebit {
		return -transaction.Amount
	}
	return transaction.Amount
}

// NewAmount validates that a raw value is strictly positive.
func NewAmount(raw int64) (Amount, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	return Amount(raw), nil
}

// NewReference generates a prefixed reference such as TXN-0F3A9C2B41DE.
func NewReference(prefix string) string {
	hex := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return prefix + "-" + hex[:12]
}
