// Package payment moves money across the platform boundary: user deposits
// through the card gateway and workspace withdrawals to bank accounts.
package payment

import (
	"time"

	"github.com/hivedesk/hivedesk/pkg/ledger"
)

// Status is shared by deposits and withdrawal requests.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// DefaultWithdrawalFeePercent is the platform fee taken off every
// withdrawal.
const DefaultWithdrawalFeePercent = 2

// Deposit is a user top-up initiated through the gateway. The wallet is
// credited only after the gateway confirms the charge.
type Deposit struct {
	DepositID        string
	WalletID         string
	UserID           string
	Amount           ledger.Amount
	PaymentMethod    string
	Reference        string
	GatewayReference string
	Status           Status
	FailureReason    string
	CompletedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// WithdrawalRequest is a workspace payout. The wallet is debited when the
// request moves to processing, not when it is filed.
type WithdrawalRequest struct {
	WithdrawalID      string
	WorkspaceWalletID string
	WorkspaceID       string
	Amount            ledger.Amount
	Fee               ledger.Amount
	NetAmount         ledger.Amount
	AccountNumber     string
	AccountName       string
	BankCode          string
	Reference         string
	Status            Status
	Notes             string
	ProcessedAt       *time.Time
	CompletedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
