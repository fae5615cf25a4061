package payment

import "github.com/hivedesk/hivedesk/pkg/faults"

// Domain-level error values returned by the payment flows.
var (
	ErrInvalidAmount         = faults.New(faults.KindValidation, "amount must be positive")
	ErrDepositNotFound       = faults.New(faults.KindNotFound, "deposit not found")
	ErrWithdrawalNotFound    = faults.New(faults.KindNotFound, "withdrawal request not found")
	ErrWithdrawalNotPending  = faults.New(faults.KindState, "withdrawal request is not pending")
	ErrWithdrawalNotInFlight = faults.New(faults.KindState, "withdrawal request is not processing")
)
