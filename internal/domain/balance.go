package domain

import "github.com/shopspring/decimal"

// BalanceTotals are the raw minor-unit totals the engine reports for an
// account.
type BalanceTotals struct {
	PendingDebits  uint64
	PendingCredits uint64
	PostedDebits   uint64
	PostedCredits  uint64
}

// Balance is one reported balance in major currency units.
type Balance struct {
	Credits          decimal.Decimal
	Debits           decimal.Decimal
	Amount           decimal.Decimal
	Currency         string
	CurrencyExponent int32
}

// AccountBalances is the pending/posted/available view of one account.
type AccountBalances struct {
	Pending   Balance
	Posted    Balance
	Available Balance
}

// ComputeBalances turns raw engine totals into the three reported balances.
// Amount is credits-debits for credit-normal accounts and debits-credits
// for debit-normal ones. The available balance is conservative: the side
// that increases the normal balance counts posted totals only, while the
// side that decreases it also reserves pending totals, since a pending
// reduction may still settle.
func ComputeBalances(t BalanceTotals, direction Direction, currency string, exponent int32) AccountBalances {
	var availCredits, availDebits uint64
	if direction == DirectionCredit {
		availCredits = t.PostedCredits
		availDebits = t.PostedDebits + t.PendingDebits
	} else {
		availDebits = t.PostedDebits
		availCredits = t.PostedCredits + t.PendingCredits
	}

	return AccountBalances{
		Pending:   newBalance(t.PendingCredits, t.PendingDebits, direction, currency, exponent),
		Posted:    newBalance(t.PostedCredits, t.PostedDebits, direction, currency, exponent),
		Available: newBalance(availCredits, availDebits, direction, currency, exponent),
	}
}

func newBalance(credits, debits uint64, direction Direction, currency string, exponent int32) Balance {
	c := minorToMajor(credits, exponent)
	d := minorToMajor(debits, exponent)

	amount := c.Sub(d)
	if direction == DirectionDebit {
		amount = d.Sub(c)
	}

	return Balance{
		Credits:          c,
		Debits:           d,
		Amount:           amount,
		Currency:         currency,
		CurrencyExponent: exponent,
	}
}

func minorToMajor(v uint64, exponent int32) decimal.Decimal {
	return decimal.NewFromUint64(v).Shift(-exponent)
}
