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

// LedgerUseCase handles ledger lifecycle and ledger-wide reconciliation.
type LedgerUseCase struct {
	ledgerRepo  LedgerRepository
	accountRepo AccountRepository
	txnRepo     TransactionRepository
	engine      EngineClient
	idGen       IDGenerator
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

// NewLedgerUseCase creates a new LedgerUseCase. metrics may be nil.
func NewLedgerUseCase(
	ledgerRepo LedgerRepository,
	accountRepo AccountRepository,
	txnRepo TransactionRepository,
	engine EngineClient,
	idGen IDGenerator,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *LedgerUseCase {
	return &LedgerUseCase{
		ledgerRepo:  ledgerRepo,
		accountRepo: accountRepo,
		txnRepo:     txnRepo,
		engine:      engine,
		idGen:       idGen,
		logger:      logger,
		metrics:     m,
	}
}

// CreateLedgerInput represents input for creating a ledger.
type CreateLedgerInput struct {
	Name        string
	Description string
	Metadata    domain.Metadata
}

// Create creates a ledger, allocates its immutable engine ledger ID and
// creates the ledger's settlement account on the engine.
func (uc *LedgerUseCase) Create(ctx context.Context, tx Transaction, input CreateLedgerInput) (*domain.Ledger, error) {
	if err := domain.ValidateName(input.Name); err != nil {
		return nil, err
	}
	if err := domain.ValidateMetadata(input.Metadata); err != nil {
		return nil, err
	}

	engineLedgerID, err := uc.ledgerRepo.AllocateEngineID(ctx, tx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ledger := &domain.Ledger{
		ID:             uc.idGen.Generate(),
		Name:           input.Name,
		Description:    input.Description,
		EngineLedgerID: engineLedgerID,
		Metadata:       input.Metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// The settlement account clears every entry of this ledger; all sides of
	// funding allowed, so no balance constraint flags.
	results, err := uc.engine.CreateAccounts(ctx, []AccountInstruction{{
		ID:     ledger.SettlementAccountID(),
		Ledger: engineLedgerID,
		Code:   controlAccountCode,
	}})
	if err != nil {
		return nil, err
	}
	if err := accountResultsError(results); err != nil {
		return nil, err
	}

	if err := uc.ledgerRepo.Create(ctx, tx, ledger); err != nil {
		return nil, err
	}

	return ledger, nil
}

// Get retrieves a ledger by ID.
func (uc *LedgerUseCase) Get(ctx context.Context, id string) (*domain.Ledger, error) {
	return uc.ledgerRepo.GetByID(ctx, id)
}

// List lists ledgers with keyset pagination.
func (uc *LedgerUseCase) List(ctx context.Context, q ListQuery) (Page[*domain.Ledger], error) {
	q, err := q.Normalize()
	if err != nil {
		return Page[*domain.Ledger]{}, err
	}

	ledgers, err := uc.ledgerRepo.List(ctx, q)
	if err != nil {
		return Page[*domain.Ledger]{}, err
	}

	return NewPage(ledgers, q, func(l *domain.Ledger) string { return l.ID }), nil
}

// SoftDelete marks a ledger deleted. The row is kept for audit integrity.
func (uc *LedgerUseCase) SoftDelete(ctx context.Context, tx Transaction, id string) error {
	ledger, err := uc.ledgerRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if ledger.Deleted() {
		return nil
	}

	return uc.ledgerRepo.SoftDelete(ctx, tx, id, time.Now().UTC())
}

// AccountDrift reports one account whose local posted totals disagree with
// the engine's.
type AccountDrift struct {
	AccountID     string
	LocalDebits   uint64
	LocalCredits  uint64
	EngineDebits  uint64
	EngineCredits uint64
}

// ConsistencyReport is the outcome of reconciling one ledger against the
// engine.
type ConsistencyReport struct {
	LedgerID        string
	AccountsChecked int
	Drifts          []AccountDrift
}

// Consistent reports whether no drift was found.
func (r *ConsistencyReport) Consistent() bool {
	return len(r.Drifts) == 0
}

// CheckConsistency compares local posted entry totals per account against
// the engine's authoritative totals. The engine is the source of truth;
// drift means a persistence failure after an engine success and needs
// manual reconciliation.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context, ledgerID string) (*ConsistencyReport, error) {
	ledger, err := uc.ledgerRepo.GetByID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}

	accounts, err := uc.accountRepo.List(ctx, ListQuery{Limit: MaxPageSize, Order: OrderAsc, LedgerID: ledger.ID})
	if err != nil {
		return nil, err
	}

	report := &ConsistencyReport{LedgerID: ledger.ID}
	if len(accounts) == 0 {
		return report, nil
	}

	ids := make([]domain.Uint128, len(accounts))
	for i, a := range accounts {
		ids[i] = a.EngineAccountID
	}

	totals, err := uc.engine.LookupAccounts(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[domain.Uint128]AccountTotals, len(totals))
	for _, t := range totals {
		byID[t.ID] = t
	}

	for _, a := range accounts {
		localDebits, localCredits, err := uc.txnRepo.SumPostedByAccount(ctx, a.ID)
		if err != nil {
			return nil, err
		}

		engineTotals := byID[a.EngineAccountID]
		report.AccountsChecked++

		if localDebits != engineTotals.PostedDebits || localCredits != engineTotals.PostedCredits {
			report.Drifts = append(report.Drifts, AccountDrift{
				AccountID:     a.ID,
				LocalDebits:   localDebits,
				LocalCredits:  localCredits,
				EngineDebits:  engineTotals.PostedDebits,
				EngineCredits: engineTotals.PostedCredits,
			})
		}
	}

	if uc.metrics != nil {
		uc.metrics.ConsistencyChecks.Inc()
		uc.metrics.ConsistencyDrifts.Add(float64(len(report.Drifts)))
	}

	if !report.Consistent() {
		uc.logger.Error().Str("ledger_id", ledger.ID).Int("accounts", len(report.Drifts)).
			Msg("ledger drift detected, manual reconciliation required")
	}

	return report, nil
}

// accountResultsError interprets per-index results of an account batch.
// "exists" means an idempotent re-creation and is success.
func accountResultsError(results []InstructionResult) error {
	var errs []error
	for _, res := range results {
		if res.Code == EngineCodeExists {
			continue
		}
		errs = append(errs, &domain.TransferRejectedError{
			TransferRejection: domain.TransferRejection{Position: res.Index, Code: res.Code},
		})
	}

	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return fmt.Errorf("engine account creation failed: %w", errs[0])
	}

	return fmt.Errorf("engine account creation failed: %w", errors.Join(errs...))
}
