package ledger

import "github.com/hivedesk/hivedesk/pkg/faults"

// Domain-level error values returned by the ledger service.
var (
	ErrInvalidAmount     = faults.New(faults.KindValidation, "invalid amount")
	ErrInsufficientFunds = faults.New(faults.KindInsufficientFunds, "insufficient balance or wallet is locked")
	ErrWalletNotFound    = faults.New(faults.KindNotFound, "wallet not found")
	ErrInvalidService    = faults.New(faults.KindInternal, "invalid service config")
)
