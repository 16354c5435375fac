package domain

import (
	"errors"
	"fmt"
)

// Failure taxonomy for the grant lifecycle. Precondition failures happen
// before any ledger call and leave zero side effects; ledger failures abort
// the whole operation; post-confirmation failures degrade to warnings.
var (
	ErrUserCancelled       = errors.New("transaction cancelled by signer")
	ErrNotOwner            = errors.New("caller is not the record owner")
	ErrInsufficientFunds   = errors.New("insufficient funds for transaction fee")
	ErrWrongNetwork        = errors.New("connected ledger network is not supported")
	ErrNetworkUnavailable  = errors.New("ledger network unavailable")
	ErrInvalidPrincipal    = errors.New("invalid principal address")
	ErrPartialWrite        = errors.New("ledger confirmed but mirror write failed")
	ErrConfirmationPending = errors.New("transaction submitted, confirmation still pending")
	ErrUnauthorized        = errors.New("requester identity missing")
	ErrInvalidInput        = errors.New("invalid request")
)

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// LedgerError carries the raw revert reason of a ledger failure that does not
// map onto the taxonomy.
type LedgerError struct {
	Reason string
}

func (e LedgerError) Error() string {
	if e.Reason == "" {
		return "ledger call failed"
	}
	return fmt.Sprintf("ledger call failed: %s", e.Reason)
}

func (e LedgerError) Is(target error) bool {
	_, ok := target.(LedgerError)
	if ok {
		return true
	}
	_, ok = target.(*LedgerError)
	return ok
}

// UserMessage renders a failure as a short human-readable string. Cancellation
// is an expected outcome and reads differently from genuine errors.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrUserCancelled):
		return "Transaction cancelled. You rejected the request in your wallet."
	case errors.Is(err, ErrInsufficientFunds):
		return "Insufficient funds. Add more to your wallet to pay the transaction fee."
	case errors.Is(err, ErrNotOwner):
		return "Access denied: only the record owner can manage access."
	case errors.Is(err, ErrWrongNetwork):
		return "Wrong network. Switch your wallet to a supported network."
	case errors.Is(err, ErrNetworkUnavailable):
		return "Network error. Check your connection and try again."
	case errors.Is(err, ErrInvalidPrincipal):
		return "Invalid recipient address."
	case errors.Is(err, ErrConfirmationPending):
		return "Transaction submitted. Confirmation is still pending."
	case errors.Is(err, ErrNotFound):
		return "Not found."
	default:
		return err.Error()
	}
}
