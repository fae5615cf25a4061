// Package faults classifies domain errors by kind so that callers can
// branch on the failure class without matching message strings.
package faults

import (
	"errors"
	"fmt"
)

// Kind is a stable failure class shared by every component.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindConflict          Kind = "conflict"
	KindState             Kind = "state"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindNotFound          Kind = "not_found"
	KindGateway           Kind = "gateway"
	KindInternal          Kind = "internal"
)

// Fault carries a kind alongside a human-readable message and an optional cause.
type Fault struct {
	kind    Kind
	message string
	cause   error
}

// New builds a Fault with no underlying cause.
func New(kind Kind, message string) *Fault {
	return &Fault{kind: kind, message: message}
}

// Newf builds a Fault with a formatted message.
func Newf(kind Kind, format string, args ...any) *Fault {
	return &Fault{kind: kind, message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, message string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Fault{kind: kind, message: message, cause: cause}
}

// Error returns the formatted error message.
func (fault *Fault) Error() string {
	if fault.cause == nil {
		return fault.message
	}
	return fmt.Sprintf("%s: %v", fault.message, fault.cause)
}

// Unwrap returns the underlying cause.
func (fault *Fault) Unwrap() error {
	return fault.cause
}

// Kind returns the failure class.
func (fault *Fault) Kind() Kind {
	return fault.kind
}

// Is matches any Fault of the same kind, so sentinel faults compose with errors.Is.
func (fault *Fault) Is(target error) bool {
	var other *Fault
	if !errors.As(target, &other) {
		return false
	}
	return fault.kind == other.kind && (other.message == "" || other.message == fault.message)
}

// KindOf walks the error chain and returns the first Fault kind found,
// defaulting to KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var fault *Fault
	if errors.As(err, &fault) {
		return fault.kind
	}
	return KindInternal
}

// IsKind reports whether the error chain carries a Fault of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
