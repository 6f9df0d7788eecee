package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound               = errors.New("order not found")
	ErrUnauthorized           = errors.New("not authorized")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrSellerNotFound         = errors.New("seller not found")
	ErrLedgerOperationFailed  = errors.New("ledger operation failed")
	ErrLedgerEventMissing     = errors.New("ledger event missing")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrValidation             = errors.New("validation failed")
	ErrDuplicateOrder         = errors.New("order already exists")
	ErrUserNotFound           = errors.New("user not found")
)

// TransitionError reports a transition requested from a status that is not a
// valid source for it.
type TransitionError struct {
	Current   Status
	Requested Transition
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: cannot %s order in status %s", e.Requested, e.Current)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidStateTransition
}

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Retryable reports whether the same request may succeed if repeated. A
// confirmed ledger transaction without its expected event is not retryable:
// repeating it would write to the ledger again.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrLedgerEventMissing) {
		return false
	}
	return errors.Is(err, ErrLedgerOperationFailed) || errors.Is(err, ErrConcurrentModification)
}
