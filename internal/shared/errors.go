package shared

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the posting pipeline. Write-path errors abort
// the enclosing transaction fully; ErrDuplicatePosting is idempotent success
// to the caller and ErrConcurrencyConflict is safe to retry as a whole.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates missing or invalid document fields.
	ErrValidation = errors.New("validation failed")
	// ErrUnbalancedEntry indicates total debits do not equal total credits.
	ErrUnbalancedEntry = errors.New("journal entry does not balance")
	// ErrZeroAmountLine indicates a journal line with no amount on either side.
	ErrZeroAmountLine = errors.New("journal line amount must be non-zero")
	// ErrMissingAccount indicates a posting rule account is not configured.
	ErrMissingAccount = errors.New("ledger account mapping not configured")
	// ErrDuplicatePosting indicates an AUTO entry already exists for the reference.
	ErrDuplicatePosting = errors.New("document already posted to the ledger")
	// ErrAlreadyPosted indicates the journal entry status is already POSTED.
	ErrAlreadyPosted = errors.New("journal entry already posted")
	// ErrCreditLimitExceeded indicates the customer credit gate rejected the document.
	ErrCreditLimitExceeded = errors.New("customer credit limit exceeded")
	// ErrConcurrencyConflict indicates a transient transaction conflict.
	ErrConcurrencyConflict = errors.New("concurrent update conflict")
	// ErrInvalidTransition indicates a document status transition that is not allowed.
	ErrInvalidTransition = errors.New("invalid document status transition")
)

// UnbalancedEntryError reports the exact imbalance so operators can diagnose
// posting-rule defects; it must never be collapsed into a generic failure.
type UnbalancedEntryError struct {
	TotalDebit  float64
	TotalCredit float64
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("journal entry does not balance: debit %.2f, credit %.2f, difference %.2f",
		e.TotalDebit, e.TotalCredit, e.TotalDebit-e.TotalCredit)
}

// Is makes the error match ErrUnbalancedEntry in errors.Is chains.
func (e *UnbalancedEntryError) Is(target error) bool {
	return target == ErrUnbalancedEntry
}

// MissingAccountError names the mapping that must be fixed in the chart of
// accounts configuration. Posting never falls back to a default account.
type MissingAccountError struct {
	DocumentType string
	Key          string
}

func (e *MissingAccountError) Error() string {
	return fmt.Sprintf("ledger account mapping not configured for %s/%s", e.DocumentType, e.Key)
}

// Is makes the error match ErrMissingAccount in errors.Is chains.
func (e *MissingAccountError) Is(target error) bool {
	return target == ErrMissingAccount
}

// CreditLimitError carries the figures behind a credit gate rejection.
type CreditLimitError struct {
	CustomerID int64
	Requested  float64
	Available  float64
}

func (e *CreditLimitError) Error() string {
	return fmt.Sprintf("customer %d credit limit exceeded: requested %.2f, available %.2f",
		e.CustomerID, e.Requested, e.Available)
}

// Is makes the error match ErrCreditLimitExceeded in errors.Is chains.
func (e *CreditLimitError) Is(target error) bool {
	return target == ErrCreditLimitExceeded
}
