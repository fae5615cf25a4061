package payment

import (
	"context"

	"github.com/hivedesk/hivedesk/pkg/ledger"
)

// InitializeResult is the gateway's answer to a charge initialization.
type InitializeResult struct {
	Success          bool
	AuthorizationURL string
	AccessCode       string
	Reference        string
	Message          string
}

// VerifyResult is the gateway's answer to a charge verification. Status is
// the gateway's own status string; gateways spell a settled charge either
// "success" or "successful".
type VerifyResult struct {
	Success   bool
	Status    string
	Amount    ledger.Amount
	Reference string
	Message   string
}

// Charged reports whether the verification confirms a settled charge.
func (result *VerifyResult) Charged() bool {
	return result.Success && (result.Status == "success" || result.Status == "successful")
}

// Gateway is the card-payment provider boundary.
type Gateway interface {
	InitializeTransaction(ctx context.Context, email string, amount ledger.Amount, reference string, metadata map[string]any) (*InitializeResult, error)
	VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error)
}
