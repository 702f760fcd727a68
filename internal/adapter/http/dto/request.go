package dto

import (
	"time"

	"github.com/orfin/ledgerapi/internal/domain"
	"github.com/orfin/ledgerapi/internal/usecase"
)

// CreateLedgerRequest represents a request to create a ledger.
type CreateLedgerRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateLedgerRequest) ToUseCaseInput() usecase.CreateLedgerInput {
	return usecase.CreateLedgerInput{
		Name:        r.Name,
		Description: r.Description,
		Metadata:    r.Metadata,
	}
}

// CreateAccountRequest represents a request to create a ledger account.
type CreateAccountRequest struct {
	LedgerID         string            `json:"ledger_id"`
	Name             string            `json:"name"`
	Currency         string            `json:"currency"`
	CurrencyExponent int32             `json:"currency_exponent"`
	NormalBalance    string            `json:"normal_balance"`
	ExternalID       *string           `json:"external_id,omitempty"`
	MinBalance       *int64            `json:"min_balance,omitempty"`
	MaxBalance       *int64            `json:"max_balance,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput() usecase.CreateAccountInput {
	return usecase.CreateAccountInput{
		LedgerID:         r.LedgerID,
		Name:             r.Name,
		Currency:         r.Currency,
		CurrencyExponent: r.CurrencyExponent,
		NormalBalance:    domain.Direction(r.NormalBalance),
		ExternalID:       r.ExternalID,
		MinBalance:       r.MinBalance,
		MaxBalance:       r.MaxBalance,
		Metadata:         r.Metadata,
	}
}

// EntryItem represents a single entry in a transaction request. Amount is in
// minor currency units.
type EntryItem struct {
	AccountID string            `json:"account_id"`
	Direction string            `json:"direction"`
	Amount    uint64            `json:"amount"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// CreateTransactionRequest represents a request to create a transaction.
type CreateTransactionRequest struct {
	ExternalID  string            `json:"external_id,omitempty"`
	Description string            `json:"description,omitempty"`
	EffectiveAt *time.Time        `json:"effective_at,omitempty"`
	Pending     bool              `json:"pending,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Entries     []EntryItem       `json:"entries"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateTransactionRequest) ToUseCaseInput() usecase.CreateTransactionInput {
	entries := make([]usecase.EntryInput, len(r.Entries))
	for i, e := range r.Entries {
		entries[i] = usecase.EntryInput{
			AccountID: e.AccountID,
			Direction: domain.Direction(e.Direction),
			Amount:    e.Amount,
			Metadata:  e.Metadata,
		}
	}

	return usecase.CreateTransactionInput{
		ExternalID:  r.ExternalID,
		Description: r.Description,
		EffectiveAt: r.EffectiveAt,
		Pending:     r.Pending,
		Metadata:    r.Metadata,
		Entries:     entries,
	}
}
