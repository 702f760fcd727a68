package domain

import "time"

// TransactionStatus is the lifecycle state of a ledger transaction.
type TransactionStatus string

const (
	// StatusPending marks a two-phase transaction whose transfers are
	// provisionally reserved by the engine.
	StatusPending TransactionStatus = "pending"
	// StatusPosted marks a transaction the engine has finally applied.
	StatusPosted TransactionStatus = "posted"
	// StatusArchived marks a voided pending transaction.
	StatusArchived TransactionStatus = "archived"
)

// Transaction is a double-entry ledger transaction. It is created together
// with its entries as one unit, either fully persisted and submitted to the
// engine or not at all.
type Transaction struct {
	ID            string
	ExternalID    string
	Description   string
	Status        TransactionStatus
	EffectiveAt   time.Time
	EngineGroupID Uint128
	Metadata      Metadata
	Entries       []*Entry
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Entry is a single debit or credit against one account. Amount is in
// minor currency units and never negative; the direction is explicit.
type Entry struct {
	ID               string
	TransactionID    string
	AccountID        string
	Amount           uint64
	Direction        Direction
	EngineTransferID Uint128
	Metadata         Metadata
	CreatedAt        time.Time
}

// IdempotencyRecord stores the outcome of the first execution of a write
// keyed by (caller idempotency key, endpoint).
type IdempotencyRecord struct {
	Key            string
	Endpoint       string
	RequestBody    []byte
	ResponseStatus int
	ResponseBody   []byte
	CreatedAt      time.Time
}
