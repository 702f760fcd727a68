package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/orfin/ledgerapi/internal/domain"
	"github.com/orfin/ledgerapi/internal/usecase"
)

// LedgerResponse represents a ledger in API responses.
type LedgerResponse struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Description    string            `json:"description,omitempty"`
	EngineLedgerID uint32            `json:"engine_ledger_id"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	DeletedAt      *time.Time        `json:"deleted_at,omitempty"`
}

// LedgerFromDomain converts a domain ledger to a response.
func LedgerFromDomain(l *domain.Ledger) *LedgerResponse {
	return &LedgerResponse{
		ID:             l.ID,
		Name:           l.Name,
		Description:    l.Description,
		EngineLedgerID: l.EngineLedgerID,
		Metadata:       l.Metadata,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
		DeletedAt:      l.DeletedAt,
	}
}

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID               string            `json:"id"`
	LedgerID         string            `json:"ledger_id"`
	Name             string            `json:"name"`
	Currency         string            `json:"currency"`
	CurrencyExponent int32             `json:"currency_exponent"`
	NormalBalance    string            `json:"normal_balance"`
	EngineAccountID  string            `json:"engine_account_id"`
	ExternalID       *string           `json:"external_id,omitempty"`
	MinBalance       *int64            `json:"min_balance,omitempty"`
	MaxBalance       *int64            `json:"max_balance,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	DeletedAt        *time.Time        `json:"deleted_at,omitempty"`
}

// AccountFromDomain converts a domain account to a response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:               a.ID,
		LedgerID:         a.LedgerID,
		Name:             a.Name,
		Currency:         a.Currency,
		CurrencyExponent: a.CurrencyExponent,
		NormalBalance:    string(a.NormalBalance),
		EngineAccountID:  a.EngineAccountID.String(),
		ExternalID:       a.ExternalID,
		MinBalance:       a.MinBalance,
		MaxBalance:       a.MaxBalance,
		Metadata:         a.Metadata,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
		DeletedAt:        a.DeletedAt,
	}
}

// BalanceDetail is one reported balance in major currency units.
type BalanceDetail struct {
	Credits  decimal.Decimal `json:"credits"`
	Debits   decimal.Decimal `json:"debits"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// BalancesResponse is the pending/posted/available balance view.
type BalancesResponse struct {
	AccountID string        `json:"account_id"`
	Pending   BalanceDetail `json:"pending"`
	Posted    BalanceDetail `json:"posted"`
	Available BalanceDetail `json:"available"`
}

// BalancesFromDomain converts computed balances to a response.
func BalancesFromDomain(accountID string, b *domain.AccountBalances) *BalancesResponse {
	return &BalancesResponse{
		AccountID: accountID,
		Pending:   balanceDetail(b.Pending),
		Posted:    balanceDetail(b.Posted),
		Available: balanceDetail(b.Available),
	}
}

func balanceDetail(b domain.Balance) BalanceDetail {
	return BalanceDetail{
		Credits:  b.Credits,
		Debits:   b.Debits,
		Amount:   b.Amount,
		Currency: b.Currency,
	}
}

// EntryResponse represents an entry in API responses.
type EntryResponse struct {
	ID               string            `json:"id"`
	AccountID        string            `json:"account_id"`
	Amount           uint64            `json:"amount"`
	Direction        string            `json:"direction"`
	EngineTransferID string            `json:"engine_transfer_id"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID            string            `json:"id"`
	ExternalID    string            `json:"external_id,omitempty"`
	Description   string            `json:"description,omitempty"`
	Status        string            `json:"status"`
	EffectiveAt   time.Time         `json:"effective_at"`
	EngineGroupID string            `json:"engine_group_id"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Entries       []*EntryResponse  `json:"entries"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// TransactionFromDomain converts a domain transaction to a response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	entries := make([]*EntryResponse, len(t.Entries))
	for i, e := range t.Entries {
		entries[i] = &EntryResponse{
			ID:               e.ID,
			AccountID:        e.AccountID,
			Amount:           e.Amount,
			Direction:        string(e.Direction),
			EngineTransferID: e.EngineTransferID.String(),
			Metadata:         e.Metadata,
			CreatedAt:        e.CreatedAt,
		}
	}

	return &TransactionResponse{
		ID:            t.ID,
		ExternalID:    t.ExternalID,
		Description:   t.Description,
		Status:        string(t.Status),
		EffectiveAt:   t.EffectiveAt,
		EngineGroupID: t.EngineGroupID.String(),
		Metadata:      t.Metadata,
		Entries:       entries,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

// ListResponse is one keyset-paginated page.
type ListResponse[T any] struct {
	Data       []T    `json:"data"`
	NextCursor string `json:"next_cursor,omitempty"`
	PrevCursor string `json:"prev_cursor,omitempty"`
	HasNext    bool   `json:"has_next"`
	HasPrev    bool   `json:"has_prev"`
}

// ListFromPage converts a use case page to a response, mapping each row.
func ListFromPage[D, R any](p usecase.Page[D], convert func(D) R) ListResponse[R] {
	data := make([]R, len(p.Data))
	for i, d := range p.Data {
		data[i] = convert(d)
	}

	return ListResponse[R]{
		Data:       data,
		NextCursor: p.NextCursor,
		PrevCursor: p.PrevCursor,
		HasNext:    p.HasNext,
		HasPrev:    p.HasPrev,
	}
}

// DriftResponse reports one account whose local totals disagree with the
// engine.
type DriftResponse struct {
	AccountID     string `json:"account_id"`
	LocalDebits   uint64 `json:"local_debits"`
	LocalCredits  uint64 `json:"local_credits"`
	EngineDebits  uint64 `json:"engine_debits"`
	EngineCredits uint64 `json:"engine_credits"`
}

// ConsistencyResponse is the outcome of reconciling one ledger.
type ConsistencyResponse struct {
	LedgerID        string          `json:"ledger_id"`
	Consistent      bool            `json:"consistent"`
	AccountsChecked int             `json:"accounts_checked"`
	Drifts          []DriftResponse `json:"drifts,omitempty"`
}

// ConsistencyFromReport converts a reconciliation report to a response.
func ConsistencyFromReport(r *usecase.ConsistencyReport) *ConsistencyResponse {
	drifts := make([]DriftResponse, len(r.Drifts))
	for i, d := range r.Drifts {
		drifts[i] = DriftResponse{
			AccountID:     d.AccountID,
			LocalDebits:   d.LocalDebits,
			LocalCredits:  d.LocalCredits,
			EngineDebits:  d.EngineDebits,
			EngineCredits: d.EngineCredits,
		}
	}

	return &ConsistencyResponse{
		LedgerID:        r.LedgerID,
		Consistent:      r.Consistent(),
		AccountsChecked: r.AccountsChecked,
		Drifts:          drifts,
	}
}

// RejectionDetail names one entry the engine refused.
type RejectionDetail struct {
	Position int    `json:"position"`
	Code     string `json:"code"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error      string            `json:"error"`
	Message    string            `json:"message,omitempty"`
	Rejections []RejectionDetail `json:"rejections,omitempty"`
}
