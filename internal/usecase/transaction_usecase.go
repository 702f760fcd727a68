package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/orfin/ledgerapi/internal/domain"
	"github.com/orfin/ledgerapi/internal/infrastructure/metrics"
)

// TransactionUseCase is the bridge between a validated ledger transaction
// and the engine's transfer primitive. Every entry becomes one engine
// transfer leg against the ledger's settlement account; the legs of one
// transaction are linked so the engine applies them all-or-nothing.
type TransactionUseCase struct {
	ledgerRepo  LedgerRepository
	accountRepo AccountRepository
	txnRepo     TransactionRepository
	engine      EngineClient
	idGen       IDGenerator
	accounts    *AccountUseCase
	maxEntries  int
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

// NewTransactionUseCase creates a new TransactionUseCase. accounts is used
// only for balance-cache invalidation and may be nil; metrics may be nil.
func NewTransactionUseCase(
	ledgerRepo LedgerRepository,
	accountRepo AccountRepository,
	txnRepo TransactionRepository,
	engine EngineClient,
	idGen IDGenerator,
	accounts *AccountUseCase,
	maxEntries int,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *TransactionUseCase {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxTransactionEntries
	}

	return &TransactionUseCase{
		ledgerRepo:  ledgerRepo,
		accountRepo: accountRepo,
		txnRepo:     txnRepo,
		engine:      engine,
		idGen:       idGen,
		accounts:    accounts,
		maxEntries:  maxEntries,
		logger:      logger,
		metrics:     m,
	}
}

// EntryInput is one requested posting.
type EntryInput struct {
	AccountID string
	Direction domain.Direction
	Amount    uint64
	Metadata  domain.Metadata
}

// CreateTransactionInput represents input for creating a transaction.
type CreateTransactionInput struct {
	ExternalID  string
	Description string
	EffectiveAt *time.Time
	// Pending requests a two-phase transaction that is later posted or
	// archived by a separate call.
	Pending  bool
	Metadata domain.Metadata
	Entries  []EntryInput
}

// Create validates, submits and persists one transaction. Validation runs
// before any engine call; the engine call happens before any persistence;
// the transaction, its entries and their engine transfer IDs are persisted
// in the caller's database transaction, which also carries the idempotency
// record.
func (uc *TransactionUseCase) Create(ctx context.Context, tx Transaction, input CreateTransactionInput) (*domain.Transaction, error) {
	if input.ExternalID == "" {
		return nil, fmt.Errorf("%w: external id required", domain.ErrInvalidName)
	}
	if err := domain.ValidateMetadata(input.Metadata); err != nil {
		return nil, err
	}

	if _, err := uc.txnRepo.GetByExternalID(ctx, input.ExternalID); err == nil {
		return nil, domain.ErrDuplicateExternalID
	} else if !errors.Is(err, domain.ErrTransactionNotFound) {
		return nil, err
	}

	accounts, ledger, err := uc.resolveAccounts(ctx, input.Entries)
	if err != nil {
		return nil, err
	}

	checks := make([]domain.EntryCheck, len(input.Entries))
	for i, e := range input.Entries {
		checks[i] = domain.EntryCheck{
			Direction: e.Direction,
			Amount:    e.Amount,
			Currency:  accounts[e.AccountID].Currency,
		}
	}
	if err := domain.ValidateBalanced(checks, uc.maxEntries); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	effectiveAt := now
	if input.EffectiveAt != nil {
		effectiveAt = input.EffectiveAt.UTC()
	}

	id := uc.idGen.Generate()
	groupID, err := domain.DeriveID(domain.TagTransferGroup, id)
	if err != nil {
		return nil, err
	}

	status := domain.StatusPosted
	if input.Pending {
		status = domain.StatusPending
	}

	txn := &domain.Transaction{
		ID:            id,
		ExternalID:    input.ExternalID,
		Description:   input.Description,
		Status:        status,
		EffectiveAt:   effectiveAt,
		EngineGroupID: groupID,
		Metadata:      input.Metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	settlement := ledger.SettlementAccountID()
	batch := make([]TransferInstruction, len(input.Entries))

	for i, e := range input.Entries {
		account := accounts[e.AccountID]

		transferID, err := domain.DeriveID(domain.TagTransfer, fmt.Sprintf("%s/%d", id, i))
		if err != nil {
			return nil, err
		}

		instr := TransferInstruction{
			ID:      transferID,
			Amount:  e.Amount,
			Ledger:  ledger.EngineLedgerID,
			Code:    transferCode,
			GroupID: groupID,
			Pending: input.Pending,
			Linked:  i < len(input.Entries)-1,
		}

		// A debit entry moves value out of the account toward settlement; a
		// credit entry moves it the other way. Linked legs net to zero on
		// the settlement account for a balanced transaction.
		if e.Direction == domain.DirectionDebit {
			instr.DebitAccount = account.EngineAccountID
			instr.CreditAccount = settlement
		} else {
			instr.DebitAccount = settlement
			instr.CreditAccount = account.EngineAccountID
		}

		batch[i] = instr

		txn.Entries = append(txn.Entries, &domain.Entry{
			ID:               uc.idGen.Generate(),
			TransactionID:    id,
			AccountID:        account.ID,
			Amount:           e.Amount,
			Direction:        e.Direction,
			EngineTransferID: transferID,
			Metadata:         e.Metadata,
			CreatedAt:        now,
		})
	}

	results, err := uc.engine.CreateTransfers(ctx, batch)
	if err != nil {
		return nil, err
	}
	if err := transferResultsError(results); err != nil {
		if uc.metrics != nil {
			uc.metrics.TransactionsRejected.WithLabelValues("engine").Inc()
		}
		return nil, err
	}

	if err := uc.txnRepo.Create(ctx, tx, txn); err != nil {
		// The engine has already applied the transfers; a retry would
		// double-apply them under a fresh group.
		uc.logger.Error().Err(err).
			Str("transaction_id", id).
			Str("external_id", input.ExternalID).
			Str("engine_group_id", groupID.String()).
			Msg("persist failed after engine success, manual reconciliation required")

		return nil, fmt.Errorf("persist after engine success: %w", err)
	}

	if uc.metrics != nil {
		uc.metrics.TransactionsCreated.WithLabelValues(string(status)).Inc()
		uc.metrics.EntriesPerTransaction.Observe(float64(len(input.Entries)))
	}

	uc.invalidate(ctx, txn)

	return txn, nil
}

// Post finalizes a pending transaction: each reserved leg is posted on the
// engine and the local status flips to posted.
func (uc *TransactionUseCase) Post(ctx context.Context, tx Transaction, id string) (*domain.Transaction, error) {
	return uc.resolvePending(ctx, tx, id, domain.StatusPosted)
}

// Archive voids a pending transaction: each reserved leg is cancelled on
// the engine and the local status flips to archived.
func (uc *TransactionUseCase) Archive(ctx context.Context, tx Transaction, id string) (*domain.Transaction, error) {
	return uc.resolvePending(ctx, tx, id, domain.StatusArchived)
}

func (uc *TransactionUseCase) resolvePending(ctx context.Context, tx Transaction, id string, target domain.TransactionStatus) (*domain.Transaction, error) {
	txn, err := uc.txnRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if txn.Status != domain.StatusPending {
		return nil, domain.ErrTransactionNotPending
	}

	phase := "post"
	if target == domain.StatusArchived {
		phase = "void"
	}

	batch := make([]TransferInstruction, len(txn.Entries))
	for i, e := range txn.Entries {
		resolveID, err := domain.DeriveID(domain.TagTransfer, fmt.Sprintf("%s/%s/%d", id, phase, i))
		if err != nil {
			return nil, err
		}

		batch[i] = TransferInstruction{
			ID:          resolveID,
			Amount:      e.Amount,
			Ledger:      0, // the engine resolves the ledger from the pending transfer
			Code:        transferCode,
			GroupID:     txn.EngineGroupID,
			PendingID:   e.EngineTransferID,
			PostPending: target == domain.StatusPosted,
			VoidPending: target == domain.StatusArchived,
			Linked:      i < len(txn.Entries)-1,
		}
	}

	results, err := uc.engine.CreateTransfers(ctx, batch)
	if err != nil {
		return nil, err
	}
	if err := transferResultsError(results); err != nil {
		if uc.metrics != nil {
			uc.metrics.TransactionsRejected.WithLabelValues("engine").Inc()
		}
		return nil, err
	}

	now := time.Now().UTC()
	if err := uc.txnRepo.UpdateStatus(ctx, tx, id, target, now); err != nil {
		uc.logger.Error().Err(err).
			Str("transaction_id", id).
			Str("status", string(target)).
			Msg("status persist failed after engine success, manual reconciliation required")

		return nil, fmt.Errorf("persist after engine success: %w", err)
	}

	txn.Status = target
	txn.UpdatedAt = now

	if uc.metrics != nil {
		if target == domain.StatusPosted {
			uc.metrics.TransactionsPosted.Inc()
		} else {
			uc.metrics.TransactionsArchived.Inc()
		}
	}

	uc.invalidate(ctx, txn)

	return txn, nil
}

// Get retrieves a transaction with its entries.
func (uc *TransactionUseCase) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	return uc.txnRepo.GetByID(ctx, id)
}

// GetByExternalID retrieves a transaction by its caller-supplied ID.
func (uc *TransactionUseCase) GetByExternalID(ctx context.Context, externalID string) (*domain.Transaction, error) {
	return uc.txnRepo.GetByExternalID(ctx, externalID)
}

// List lists transactions with keyset pagination.
func (uc *TransactionUseCase) List(ctx context.Context, q ListQuery) (Page[*domain.Transaction], error) {
	q, err := q.Normalize()
	if err != nil {
		return Page[*domain.Transaction]{}, err
	}

	txns, err := uc.txnRepo.List(ctx, q)
	if err != nil {
		return Page[*domain.Transaction]{}, err
	}

	return NewPage(txns, q, func(t *domain.Transaction) string { return t.ID }), nil
}

// resolveAccounts loads every referenced account once and pins the single
// ledger the transaction settles in.
func (uc *TransactionUseCase) resolveAccounts(ctx context.Context, entries []EntryInput) (map[string]*domain.Account, *domain.Ledger, error) {
	if len(entries) == 0 {
		return nil, nil, domain.ErrNoEntries
	}

	seen := make(map[string]bool, len(entries))
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if !seen[e.AccountID] {
			seen[e.AccountID] = true
			ids = append(ids, e.AccountID)
		}
	}

	accounts, err := uc.accountRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	if len(accounts) != len(ids) {
		return nil, nil, domain.ErrAccountNotFound
	}

	byID := make(map[string]*domain.Account, len(accounts))
	ledgerID := ""
	for _, a := range accounts {
		if a.Deleted() {
			return nil, nil, domain.ErrAccountNotFound
		}
		if ledgerID == "" {
			ledgerID = a.LedgerID
		} else if a.LedgerID != ledgerID {
			return nil, nil, domain.ErrMixedLedgers
		}
		byID[a.ID] = a
	}

	ledger, err := uc.ledgerRepo.GetByID(ctx, ledgerID)
	if err != nil {
		return nil, nil, err
	}

	return byID, ledger, nil
}

func (uc *TransactionUseCase) invalidate(ctx context.Context, txn *domain.Transaction) {
	if uc.accounts == nil {
		return
	}

	seen := make(map[string]bool, len(txn.Entries))
	ids := make([]string, 0, len(txn.Entries))
	for _, e := range txn.Entries {
		if !seen[e.AccountID] {
			seen[e.AccountID] = true
			ids = append(ids, e.AccountID)
		}
	}

	uc.accounts.InvalidateBalances(ctx, ids)
}

// transferResultsError translates per-index engine failures into the domain
// taxonomy, collecting every failed entry rather than stopping at the first.
func transferResultsError(results []InstructionResult) error {
	if len(results) == 0 {
		return nil
	}

	errs := make([]error, 0, len(results))
	for _, res := range results {
		rejection := domain.TransferRejection{Position: res.Index, Code: res.Code}

		switch res.Code {
		case EngineCodeExceedsCredits, EngineCodeExceedsDebits:
			errs = append(errs, &domain.InsufficientBalanceError{TransferRejection: rejection})
		default:
			errs = append(errs, &domain.TransferRejectedError{TransferRejection: rejection})
		}
	}

	if len(errs) == 1 {
		return errs[0]
	}

	return errors.Join(errs...)
}
