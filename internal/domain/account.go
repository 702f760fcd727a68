package domain

import "time"

// Direction is the side of a double-entry posting.
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionDebit || d == DirectionCredit
}

// Opposite returns the other side.
func (d Direction) Opposite() Direction {
	if d == DirectionDebit {
		return DirectionCredit
	}
	return DirectionDebit
}

// Account is a ledger account. Currency, normal-balance direction and the
// engine account ID are fixed at creation and never mutate.
type Account struct {
	ID               string
	LedgerID         string
	Name             string
	Currency         string
	CurrencyExponent int32
	NormalBalance    Direction
	EngineAccountID  Uint128
	ExternalID       *string
	MinBalance       *int64
	MaxBalance       *int64
	Metadata         Metadata
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}

// Deleted reports whether the account is soft-deleted.
func (a *Account) Deleted() bool {
	return a.DeletedAt != nil
}

// ControlAccountID derives the engine ID of the account's control account,
// reproducible from the account ID alone.
func (a *Account) ControlAccountID() Uint128 {
	id, _ := DeriveID(TagAccountControl, a.ID)
	return id
}
