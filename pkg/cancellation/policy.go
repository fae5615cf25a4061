package cancellation

import "github.com/hivedesk/hivedesk/pkg/ledger"

// Policy thresholds, in hours before check-in.
const (
	// FullRefundHours and beyond: the guest gets everything back.
	FullRefundHours = 24.0
	// PartialRefundHours up to FullRefundHours: a 50/50 split.
	PartialRefundHours = 6.0
	// Below PartialRefundHours the refund is zero and the cancellation
	// additionally needs an admin decision.
	ApprovalThresholdHours = 6.0
)

// Outcome is what the policy awards for a cancellation.
type Outcome struct {
	RefundPercent int64
	RefundAmount  ledger.Amount
	PenaltyAmount ledger.Amount
}

// RefundPolicy maps the time remaining before check-in to a refund split.
// Amounts are computed by integer percentage so refund plus penalty always
// equals the original amount.
func RefundPolicy(hoursUntilCheckIn float64, originalAmount ledger.Amount) Outcome {
	var percent int64
	switch {
	case hoursUntilCheckIn >= FullRefundHours:
		percent = 100
	case hoursUntilCheckIn >= PartialRefundHours:
		percent = 50
	default:
		percent = 0
	}
	refund := ledger.Amount(originalAmount.Int64() * percent / 100)
	return Outcome{
		RefundPercent: percent,
		RefundAmount:  refund,
		PenaltyAmount: originalAmount - refund,
	}
}

// RequiresApproval reports whether a cancellation this close to check-in
// must be approved by an admin before the booking is released.
func RequiresApproval(hoursUntilCheckIn float64) bool {
	return hoursUntilCheckIn < ApprovalThresholdHours
}
