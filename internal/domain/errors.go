package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Lookup errors
	ErrLedgerNotFound      = errors.New("ledger not found")
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInvalidRequestBody rejects a request whose body fails to decode.
	ErrInvalidRequestBody = errors.New("invalid request body")

	// Transaction request errors
	ErrInvalidAmount    = errors.New("entry amount must be positive")
	ErrNoEntries        = errors.New("transaction requires at least one entry")
	ErrTooManyEntries   = errors.New("transaction exceeds maximum entry count")
	ErrInvalidDirection = errors.New("entry direction must be debit or credit")
	ErrMixedLedgers     = errors.New("all accounts in a transaction must belong to one ledger")

	// ErrRecordNotFound is the generic miss repositories return for
	// lookups that have no more specific sentinel.
	ErrRecordNotFound = errors.New("record not found")

	// Idempotency errors
	ErrIdempotencyConflict = errors.New("idempotency key reused with a different request body")
	ErrIdempotencyInFlight = errors.New("idempotency key is held by a concurrent request")

	// Lifecycle errors
	ErrDuplicateExternalID   = errors.New("external id already exists")
	ErrTransactionNotPending = errors.New("transaction is not pending")

	// Engine errors
	ErrEngineUnavailable = errors.New("ledger engine unavailable")

	// Pagination errors
	ErrInvalidCursor = errors.New("invalid pagination cursor")
)

// CurrencyImbalance describes one currency whose debits and credits differ.
type CurrencyImbalance struct {
	Currency string
	Debits   uint64
	Credits  uint64
}

// UnbalancedTransactionError reports every currency that fails the
// double-entry balancing rule.
type UnbalancedTransactionError struct {
	Imbalances []CurrencyImbalance
}

func (e *UnbalancedTransactionError) Error() string {
	parts := make([]string, len(e.Imbalances))
	for i, im := range e.Imbalances {
		parts[i] = fmt.Sprintf("%s debits=%d credits=%d", im.Currency, im.Debits, im.Credits)
	}

	return "transaction does not balance: " + strings.Join(parts, ", ")
}

// TransferRejection identifies one rejected entry by its position in the
// submitted transaction and the raw engine code.
type TransferRejection struct {
	Position int
	Code     string
}

// InsufficientBalanceError is the engine refusing an entry because the
// account would exceed its credit or debit limit.
type InsufficientBalanceError struct {
	TransferRejection
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for entry %d (%s)", e.Position, e.Code)
}

// TransferRejectedError is any other engine rejection; the raw code is
// preserved for operators.
type TransferRejectedError struct {
	TransferRejection
}

func (e *TransferRejectedError) Error() string {
	return fmt.Sprintf("engine rejected entry %d (%s)", e.Position, e.Code)
}

// Rejections collects every TransferRejection in err, including errors
// joined with errors.Join. Returns nil when err carries none.
func Rejections(err error) []TransferRejection {
	if err == nil {
		return nil
	}

	var out []TransferRejection

	switch e := err.(type) {
	case *InsufficientBalanceError:
		out = append(out, e.TransferRejection)
	case *TransferRejectedError:
		out = append(out, e.TransferRejection)
	}

	switch e := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			out = append(out, Rejections(inner)...)
		}
	case interface{ Unwrap() error }:
		out = append(out, Rejections(e.Unwrap())...)
	}

	return out
}
