package faults

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapNilCauseReturnsNil(test *testing.T) {
	test.Parallel()
	if err := Wrap(KindGateway, "should vanish", nil); err != nil {
		test.Fatalf("wrapping nil must stay nil, got %v", err)
	}
}

func TestKindOfWalksTheChain(test *testing.T) {
	test.Parallel()
	cause := New(KindInsufficientFunds, "balance too low")
	wrapped := fmt.Errorf("debit wallet: %w", Wrap(KindState, "wallet busy", cause))

	if kind := KindOf(wrapped); kind != KindState {
		test.Fatalf("expected the outermost kind, got %s", kind)
	}
	if !IsKind(wrapped, KindState) {
		test.Fatal("IsKind must see through fmt wrapping")
	}
	if KindOf(errors.New("plain")) != KindInternal {
		test.Fatal("unclassified errors default to internal")
	}
}

func TestSentinelFaultsComposeWithErrorsIs(test *testing.T) {
	test.Parallel()
	sentinel := New(KindConflict, "reservation overlaps an existing hold")
	wrapped := fmt.Errorf("create reservation: %w", sentinel)

	if !errors.Is(wrapped, sentinel) {
		test.Fatal("a wrapped sentinel must match itself")
	}
	if errors.Is(wrapped, New(KindConflict, "a different conflict")) {
		test.Fatal("sentinels with different messages must not match")
	}
}

func TestErrorMessageIncludesCause(test *testing.T) {
	test.Parallel()
	cause := errors.New("connection refused")
	err := Wrap(KindGateway, "verify charge", cause)
	if err.Error() != "verify charge: connection refused" {
		test.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, cause) {
		test.Fatal("the cause must stay reachable through Unwrap")
	}
}
