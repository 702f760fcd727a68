package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func assertBalance(t *testing.T, name string, got Balance, credits, debits, amount string) {
	t.Helper()

	if !got.Credits.Equal(dec(credits)) {
		t.Errorf("%s credits = %s, want %s", name, got.Credits, credits)
	}
	if !got.Debits.Equal(dec(debits)) {
		t.Errorf("%s debits = %s, want %s", name, got.Debits, debits)
	}
	if !got.Amount.Equal(dec(amount)) {
		t.Errorf("%s amount = %s, want %s", name, got.Amount, amount)
	}
}

func TestComputeBalancesCreditNormal(t *testing.T) {
	totals := BalanceTotals{
		PendingCredits: 5000,
		PendingDebits:  1000,
		PostedCredits:  20000,
		PostedDebits:   4000,
	}

	b := ComputeBalances(totals, DirectionCredit, "USD", 2)

	assertBalance(t, "pending", b.Pending, "50", "10", "40")
	assertBalance(t, "posted", b.Posted, "200", "40", "160")
	assertBalance(t, "available", b.Available, "200", "50", "150")

	if b.Available.Currency != "USD" || b.Available.CurrencyExponent != 2 {
		t.Errorf("currency metadata not carried: %+v", b.Available)
	}
}

func TestComputeBalancesDebitNormal(t *testing.T) {
	totals := BalanceTotals{
		PendingCredits: 2000,
		PendingDebits:  6000,
		PostedCredits:  1000,
		PostedDebits:   15000,
	}

	b := ComputeBalances(totals, DirectionDebit, "USD", 2)

	if !b.Pending.Amount.Equal(dec("40")) {
		t.Errorf("pending amount = %s, want 40", b.Pending.Amount)
	}
	if !b.Posted.Amount.Equal(dec("140")) {
		t.Errorf("posted amount = %s, want 140", b.Posted.Amount)
	}
	assertBalance(t, "available", b.Available, "30", "150", "120")
}

func TestComputeBalancesAllZero(t *testing.T) {
	for _, direction := range []Direction{DirectionDebit, DirectionCredit} {
		b := ComputeBalances(BalanceTotals{}, direction, "EUR", 2)

		for name, bal := range map[string]Balance{
			"pending":   b.Pending,
			"posted":    b.Posted,
			"available": b.Available,
		} {
			assertBalance(t, string(direction)+" "+name, bal, "0", "0", "0")
		}
	}
}

func TestComputeBalancesZeroExponent(t *testing.T) {
	totals := BalanceTotals{PostedCredits: 500, PostedDebits: 200}

	b := ComputeBalances(totals, DirectionCredit, "JPY", 0)
	assertBalance(t, "posted", b.Posted, "500", "200", "300")
}

func TestComputeBalancesNegativeAmount(t *testing.T) {
	// An overdrawn credit-normal account reports a negative amount.
	totals := BalanceTotals{PostedCredits: 1000, PostedDebits: 2500}

	b := ComputeBalances(totals, DirectionCredit, "USD", 2)
	if !b.Posted.Amount.Equal(dec("-15")) {
		t.Errorf("posted amount = %s, want -15", b.Posted.Amount)
	}
}
