package usecase

import (
	"context"
	"time"

	"github.com/orfin/ledgerapi/internal/domain"
)

// LedgerRepository defines data access for ledgers.
type LedgerRepository interface {
	Create(ctx context.Context, tx Transaction, ledger *domain.Ledger) error
	AllocateEngineID(ctx context.Context, tx Transaction) (uint32, error)
	GetByID(ctx context.Context, id string) (*domain.Ledger, error)
	List(ctx context.Context, q ListQuery) ([]*domain.Ledger, error)
	SoftDelete(ctx context.Context, tx Transaction, id string, deletedAt time.Time) error
}

// AccountRepository defines data access for ledger accounts.
type AccountRepository interface {
	Create(ctx context.Context, tx Transaction, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Account, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.Account, error)
	List(ctx context.Context, q ListQuery) ([]*domain.Account, error)
	SoftDelete(ctx context.Context, tx Transaction, id string, deletedAt time.Time) error
}

// TransactionRepository defines data access for ledger transactions and
// their entries.
type TransactionRepository interface {
	// Create persists the transaction and all of its entries as one unit.
	Create(ctx context.Context, tx Transaction, txn *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.Transaction, error)
	UpdateStatus(ctx context.Context, tx Transaction, id string, status domain.TransactionStatus, updatedAt time.Time) error
	List(ctx context.Context, q ListQuery) ([]*domain.Transaction, error)
	// SumPostedByAccount returns the local posted debit and credit totals
	// for one account, in minor units.
	SumPostedByAccount(ctx context.Context, accountID string) (debits, credits uint64, err error)
}

// IdempotencyRepository defines data access for idempotency records. Create
// relies on a storage-level unique constraint on (key, endpoint) and returns
// domain.ErrIdempotencyInFlight when the row already exists.
type IdempotencyRepository interface {
	Get(ctx context.Context, tx Transaction, key, endpoint string) (*domain.IdempotencyRecord, error)
	Create(ctx context.Context, tx Transaction, rec *domain.IdempotencyRecord) error
	SetResponse(ctx context.Context, tx Transaction, key, endpoint string, status int, body []byte) error
}

// Transaction represents a database transaction. Begin opens a nested
// savepoint scope on an already-open transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Begin(ctx context.Context) (Transaction, error)
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique, time-ordered IDs.
type IDGenerator interface {
	Generate() string
}

// Retrier retries an operation on transient storage conflicts.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// AccountInstruction asks the engine to create one account.
type AccountInstruction struct {
	ID     domain.Uint128
	Ledger uint32
	Code   uint16
	// DebitsMustNotExceedCredits rejects transfers that would push the
	// account's debits past its credits.
	DebitsMustNotExceedCredits bool
	// CreditsMustNotExceedDebits is the mirror constraint.
	CreditsMustNotExceedDebits bool
}

// TransferInstruction asks the engine to apply one transfer leg.
type TransferInstruction struct {
	ID            domain.Uint128
	DebitAccount  domain.Uint128
	CreditAccount domain.Uint128
	Amount        uint64
	Ledger        uint32
	Code          uint16
	GroupID       domain.Uint128
	// Pending reserves the transfer for a later post or void.
	Pending bool
	// PendingID targets a previously created pending transfer.
	PendingID domain.Uint128
	// PostPending finalizes the pending transfer named by PendingID.
	PostPending bool
	// VoidPending cancels the pending transfer named by PendingID.
	VoidPending bool
	// Linked chains this instruction to the next one; the engine applies a
	// linked chain all-or-nothing.
	Linked bool
}

// InstructionResult reports one failed instruction by batch index. A batch
// with no results succeeded in full.
type InstructionResult struct {
	Index int
	Code  string
}

// AccountTotals are the engine's authoritative totals for one account.
type AccountTotals struct {
	ID             domain.Uint128
	PendingDebits  uint64
	PendingCredits uint64
	PostedDebits   uint64
	PostedCredits  uint64
}

// Engine result codes the orchestrator gives distinct treatment.
const (
	EngineCodeExceedsCredits = "exceeds_credits"
	EngineCodeExceedsDebits  = "exceeds_debits"
	EngineCodeExists         = "exists"
)

// EngineClient is the external authoritative balance engine. It applies a
// linked transfer batch atomically; callers see either full success or
// per-index failures. Transport failures and timeouts surface as
// domain.ErrEngineUnavailable.
type EngineClient interface {
	CreateAccounts(ctx context.Context, batch []AccountInstruction) ([]InstructionResult, error)
	CreateTransfers(ctx context.Context, batch []TransferInstruction) ([]InstructionResult, error)
	LookupAccounts(ctx context.Context, ids []domain.Uint128) ([]AccountTotals, error)
}
