package domain

import "time"

// Metadata is an ordered-by-key set of caller-supplied string pairs.
type Metadata map[string]string

// Ledger groups accounts that settle against one engine ledger.
type Ledger struct {
	ID             string
	Name           string
	Description    string
	EngineLedgerID uint32
	Metadata       Metadata
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

// Deleted reports whether the ledger is soft-deleted.
func (l *Ledger) Deleted() bool {
	return l.DeletedAt != nil
}

// SettlementAccountID derives the engine ID of the ledger's settlement
// account. Every entry is cleared against this account, so a balanced
// transaction nets to zero on it.
func (l *Ledger) SettlementAccountID() Uint128 {
	id, _ := DeriveID(TagLedgerSettlement, l.ID)
	return id
}
