package ledger

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a ledger operation for a rejected
// call wraps exactly one of them, so callers can branch with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrAlreadyResolved = errors.New("already resolved")
	ErrInvalidInput    = errors.New("invalid input")
	ErrTransferFailed  = errors.New("transfer failed")
)

var kinds = []error{ErrNotFound, ErrUnauthorized, ErrAlreadyResolved, ErrInvalidInput, ErrTransferFailed}

type ledgerError struct {
	kind error
	msg  string
}

func (e *ledgerError) Error() string { return e.msg }
func (e *ledgerError) Unwrap() error { return e.kind }

func newError(kind error, msg string) error {
	return &ledgerError{kind: kind, msg: msg}
}

var (
	ErrPlanNotFound         = newError(ErrNotFound, "plan not found")
	ErrSubscriptionNotFound = newError(ErrNotFound, "subscription not found")
	ErrReportNotFound       = newError(ErrNotFound, "report not found")

	ErrNotRelayer    = newError(ErrUnauthorized, "caller is not the relayer")
	ErrNotChallenger = newError(ErrUnauthorized, "caller is not the designated challenger")
	ErrNotReporter   = newError(ErrUnauthorized, "caller is not the reporter")
	ErrNotOwner      = newError(ErrUnauthorized, "caller is not the owner")

	ErrReportClosed = newError(ErrAlreadyResolved, "report is no longer open")

	ErrInvalidDuration    = newError(ErrInvalidInput, "invalid subscription duration")
	ErrSelfSubscription   = newError(ErrInvalidInput, "relayer cannot subscribe to its own plan")
	ErrIncorrectPayment   = newError(ErrInvalidInput, "attached value does not match the amount due")
	ErrUnexpectedValue    = newError(ErrInvalidInput, "operation does not accept attached value")
	ErrAlreadySubscribed  = newError(ErrInvalidInput, "subscription to this plan is still active")
	ErrZeroStake          = newError(ErrInvalidInput, "stake amount must be positive")
	ErrAmountOutOfRange   = newError(ErrInvalidInput, "amount out of range")
	ErrTimestampOverflow  = newError(ErrInvalidInput, "timestamp overflow")
	ErrEvidenceTooLarge   = newError(ErrInvalidInput, "evidence exceeds size limit")
	ErrZeroAccount        = newError(ErrInvalidInput, "zero account")
	ErrInvalidRole        = newError(ErrInvalidInput, "invalid role name")
	ErrAlreadyInitialized = newError(ErrInvalidInput, "ledger genesis already applied")
)

// KindOf returns the error kind err wraps, or nil for infrastructure faults
// and nil errors.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// transferError wraps a host transfer failure into the TransferFailed kind
// while keeping the host error reachable.
func transferError(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransferFailed, what, err)
}
