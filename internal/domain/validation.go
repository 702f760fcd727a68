package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validation errors
var (
	ErrInvalidName             = errors.New("invalid name")
	ErrInvalidCurrency         = errors.New("invalid currency code")
	ErrInvalidExponent         = errors.New("invalid currency exponent")
	ErrMetadataTooLarge        = errors.New("metadata size exceeds limit")
	ErrUnsupportedBalanceLimit = errors.New("unsupported balance limit")
)

// Validation constants
const (
	MaxNameLength       = 255
	MaxMetadataSize     = 10240 // 10KB
	MaxCurrencyExponent = 18
)

// Valid currency codes (ISO 4217)
var validCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true,
	"CNY": true, "AUD": true, "CAD": true, "CHF": true,
	"SEK": true, "NZD": true, "KRW": true, "SGD": true,
	"NOK": true, "MXN": true, "INR": true, "BRL": true,
	"ZAR": true, "RUB": true, "TRY": true, "HKD": true,
}

// EntryCheck is the slice of an entry the balancing rule needs: its side,
// its amount and the currency of the account it touches.
type EntryCheck struct {
	Direction Direction
	Amount    uint64
	Currency  string
}

// ValidateBalanced enforces the double-entry invariants on a transaction
// request before any engine call: entry count bounds, positive amounts,
// explicit directions, and per-currency debit/credit equality.
func ValidateBalanced(entries []EntryCheck, maxEntries int) error {
	if len(entries) == 0 {
		return ErrNoEntries
	}

	if maxEntries > 0 && len(entries) > maxEntries {
		return fmt.Errorf("%w: %d entries, maximum is %d", ErrTooManyEntries, len(entries), maxEntries)
	}

	type totals struct{ debits, credits uint64 }
	perCurrency := make(map[string]*totals)

	for i, e := range entries {
		if !e.Direction.Valid() {
			return fmt.Errorf("%w: entry %d", ErrInvalidDirection, i)
		}

		if e.Amount == 0 {
			return fmt.Errorf("%w: entry %d", ErrInvalidAmount, i)
		}

		t := perCurrency[e.Currency]
		if t == nil {
			t = &totals{}
			perCurrency[e.Currency] = t
		}

		if e.Direction == DirectionDebit {
			t.debits += e.Amount
		} else {
			t.credits += e.Amount
		}
	}

	var imbalances []CurrencyImbalance
	for currency, t := range perCurrency {
		if t.debits != t.credits {
			imbalances = append(imbalances, CurrencyImbalance{
				Currency: currency,
				Debits:   t.debits,
				Credits:  t.credits,
			})
		}
	}

	if len(imbalances) > 0 {
		sort.Slice(imbalances, func(i, j int) bool {
			return imbalances[i].Currency < imbalances[j].Currency
		})

		return &UnbalancedTransactionError{Imbalances: imbalances}
	}

	return nil
}

// ValidateName validates a ledger or account name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)

	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}

	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, MaxNameLength)
	}

	return nil
}

// ValidateCurrency validates an ISO 4217 currency code.
func ValidateCurrency(currency string) error {
	if !validCurrencies[strings.ToUpper(strings.TrimSpace(currency))] {
		return fmt.Errorf("%w: %s is not a valid ISO 4217 currency code", ErrInvalidCurrency, currency)
	}

	return nil
}

// ValidateExponent validates a currency's decimal-place count.
func ValidateExponent(exponent int32) error {
	if exponent < 0 || exponent > MaxCurrencyExponent {
		return fmt.Errorf("%w: %d is outside 0..%d", ErrInvalidExponent, exponent, MaxCurrencyExponent)
	}

	return nil
}

// ValidateBalanceLimits validates an account's optional balance limits. The
// engine enforces limits as directional overdraft constraints, which can only
// express a bound of exactly zero, so any other value is rejected up front
// rather than stored as a constraint nothing enforces.
func ValidateBalanceLimits(minBalance, maxBalance *int64) error {
	if minBalance != nil && *minBalance != 0 {
		return fmt.Errorf("%w: min balance must be 0, got %d", ErrUnsupportedBalanceLimit, *minBalance)
	}

	if maxBalance != nil && *maxBalance != 0 {
		return fmt.Errorf("%w: max balance must be 0, got %d", ErrUnsupportedBalanceLimit, *maxBalance)
	}

	return nil
}

// ValidateMetadata validates metadata size.
func ValidateMetadata(metadata Metadata) error {
	if metadata == nil {
		return nil
	}

	size := 0
	for k, v := range metadata {
		size += len(k) + len(v)
	}

	if size > MaxMetadataSize {
		return fmt.Errorf("%w: %d bytes, limit is %d bytes", ErrMetadataTooLarge, size, MaxMetadataSize)
	}

	return nil
}
