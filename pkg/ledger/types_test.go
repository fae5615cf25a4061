package ledger

import (
	"errors"
	"strings"
	"testing"
)

func TestNewAmountRejectsNonPositive(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name    string
		raw     int64
		wantErr bool
	}{
		{name: "positive", raw: 1},
		{name: "zero", raw: 0, wantErr: true},
		{name: "negative", raw: -5, wantErr: true},
	}

	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			amount, err := NewAmount(testCase.raw)
			if testCase.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					test.Fatalf("expected invalid amount, got %v", err)
				}
				return
			}
			if err != nil {
				test.Fatalf("new amount: %v", err)
			}
			if amount.Int64() != testCase.raw {
				test.Fatalf("want %d got %d", testCase.raw, amount.Int64())
			}
		})
	}
}

func TestCanDebitHonoursLocks(test *testing.T) {
	test.Parallel()
	wallet := &Wallet{Balance: 1_000, IsActive: true}
	if !wallet.CanDebit(1_000) {
		test.Fatal("an active wallet with funds must allow the debit")
	}
	if wallet.CanDebit(1_001) {
		test.Fatal("a debit above the balance must be refused")
	}
	wallet.IsLocked = true
	if wallet.CanDebit(1) {
		test.Fatal("a locked wallet must refuse every debit")
	}
	wallet.IsLocked = false
	wallet.IsActive = false
	if wallet.CanDebit(1) {
		test.Fatal("an inactive wallet must refuse every debit")
	}
}

func TestSignedAmountFollowsDirection(test *testing.T) {
	test.Parallel()
	credit := &Transaction{Type: TransactionCredit, Amount: 250}
	if credit.SignedAmount() != 250 {
		test.Fatalf("credit sign: got %d", credit.SignedAmount())
	}
	debit := &Transaction{Type: TransactionDebit, Amount: 250}
	if debit.SignedAmount() != -250 {
		test.Fatalf("debit sign: got %d", debit.SignedAmount())
	}
}

func TestNewReferenceShape(test *testing.T) {
	test.Parallel()
	reference := NewReference("DEP")
	if !strings.HasPrefix(reference, "DEP-") {
		test.Fatalf("missing prefix in %q", reference)
	}
	if len(reference) != len("DEP-")+12 {
		test.Fatalf("unexpected length for %q", reference)
	}
	if reference == NewReference("DEP") {
		test.Fatal("references must not repeat")
	}
	if strings.ToUpper(reference) != reference {
		test.Fatalf("reference must be upper case, got %q", reference)
	}
}
