package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/orfin/ledgerapi/internal/domain"
	"github.com/orfin/ledgerapi/internal/infrastructure/metrics"
)

// AccountUseCase handles ledger-account lifecycle and balance reads.
type AccountUseCase struct {
	ledgerRepo  LedgerRepository
	accountRepo AccountRepository
	engine      EngineClient
	idGen       IDGenerator
	cache       Cache
	cacheTTL    time.Duration
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

// NewAccountUseCase creates a new AccountUseCase. cache may be nil to
// disable balance caching; metrics may be nil.
func NewAccountUseCase(
	ledgerRepo LedgerRepository,
	accountRepo AccountRepository,
	engine EngineClient,
	idGen IDGenerator,
	cache Cache,
	cacheTTL time.Duration,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *AccountUseCase {
	if cacheTTL <= 0 {
		cacheTTL = DefaultBalanceCacheTTL
	}

	return &AccountUseCase{
		ledgerRepo:  ledgerRepo,
		accountRepo: accountRepo,
		engine:      engine,
		idGen:       idGen,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger,
		metrics:     m,
	}
}

// CreateAccountInput represents input for creating a ledger account.
type CreateAccountInput struct {
	LedgerID         string
	Name             string
	Currency         string
	CurrencyExponent int32
	NormalBalance    domain.Direction
	ExternalID       *string
	MinBalance       *int64
	MaxBalance       *int64
	Metadata         domain.Metadata
}

// Create creates the account row and its engine-side accounts: the primary
// account plus a deterministically derived control account, in one engine
// batch. The engine account ID is the account's own ULID reinterpreted as a
// 128-bit integer and never changes afterwards.
func (uc *AccountUseCase) Create(ctx context.Context, tx Transaction, input CreateAccountInput) (*domain.Account, error) {
	if err := domain.ValidateName(input.Name); err != nil {
		return nil, err
	}
	if err := domain.ValidateCurrency(input.Currency); err != nil {
		return nil, err
	}
	if err := domain.ValidateExponent(input.CurrencyExponent); err != nil {
		return nil, err
	}
	if !input.NormalBalance.Valid() {
		return nil, domain.ErrInvalidDirection
	}
	if err := domain.ValidateBalanceLimits(input.MinBalance, input.MaxBalance); err != nil {
		return nil, err
	}
	if err := domain.ValidateMetadata(input.Metadata); err != nil {
		return nil, err
	}

	ledger, err := uc.ledgerRepo.GetByID(ctx, input.LedgerID)
	if err != nil {
		return nil, err
	}
	if ledger.Deleted() {
		return nil, domain.ErrLedgerNotFound
	}

	if input.ExternalID != nil {
		_, err := uc.accountRepo.GetByExternalID(ctx, *input.ExternalID)
		if err == nil {
			return nil, domain.ErrDuplicateExternalID
		}
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return nil, err
		}
	}

	id := uc.idGen.Generate()

	rowID, err := ulid.ParseStrict(id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:               id,
		LedgerID:         ledger.ID,
		Name:             input.Name,
		Currency:         input.Currency,
		CurrencyExponent: input.CurrencyExponent,
		NormalBalance:    input.NormalBalance,
		EngineAccountID:  domain.Uint128FromBytes([16]byte(rowID)),
		ExternalID:       input.ExternalID,
		MinBalance:       input.MinBalance,
		MaxBalance:       input.MaxBalance,
		Metadata:         input.Metadata,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	primary := AccountInstruction{
		ID:     account.EngineAccountID,
		Ledger: ledger.EngineLedgerID,
		Code:   accountCode,
	}
	// A zero floor maps onto the engine's directional overdraft constraint;
	// a zero ceiling maps onto the mirror constraint. ValidateBalanceLimits
	// has already rejected every other value.
	if input.MinBalance != nil {
		if input.NormalBalance == domain.DirectionCredit {
			primary.DebitsMustNotExceedCredits = true
		} else {
			primary.CreditsMustNotExceedDebits = true
		}
	}
	if input.MaxBalance != nil {
		if input.NormalBalance == domain.DirectionCredit {
			primary.CreditsMustNotExceedDebits = true
		} else {
			primary.DebitsMustNotExceedCredits = true
		}
	}

	results, err := uc.engine.CreateAccounts(ctx, []AccountInstruction{
		primary,
		{
			ID:     account.ControlAccountID(),
			Ledger: ledger.EngineLedgerID,
			Code:   controlAccountCode,
		},
	})
	if err != nil {
		return nil, err
	}
	if err := accountResultsError(results); err != nil {
		return nil, err
	}

	if err := uc.accountRepo.Create(ctx, tx, account); err != nil {
		return nil, err
	}

	return account, nil
}

// Get retrieves an account by ID.
func (uc *AccountUseCase) Get(ctx context.Context, id string) (*domain.Account, error) {
	return uc.accountRepo.GetByID(ctx, id)
}

// List lists accounts with keyset pagination, optionally filtered by ledger.
func (uc *AccountUseCase) List(ctx context.Context, q ListQuery) (Page[*domain.Account], error) {
	q, err := q.Normalize()
	if err != nil {
		return Page[*domain.Account]{}, err
	}

	accounts, err := uc.accountRepo.List(ctx, q)
	if err != nil {
		return Page[*domain.Account]{}, err
	}

	return NewPage(accounts, q, func(a *domain.Account) string { return a.ID }), nil
}

// SoftDelete marks an account deleted without dropping its history.
func (uc *AccountUseCase) SoftDelete(ctx context.Context, tx Transaction, id string) error {
	account, err := uc.accountRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if account.Deleted() {
		return nil
	}

	uc.invalidateBalance(ctx, id)

	return uc.accountRepo.SoftDelete(ctx, tx, id, time.Now().UTC())
}

// GetBalance computes the pending/posted/available view from the engine's
// authoritative totals. Totals are cached briefly; writes invalidate.
func (uc *AccountUseCase) GetBalance(ctx context.Context, id string) (*domain.AccountBalances, error) {
	account, err := uc.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	totals, err := uc.lookupTotals(ctx, account)
	if err != nil {
		return nil, err
	}

	balances := domain.ComputeBalances(*totals, account.NormalBalance, account.Currency, account.CurrencyExponent)

	return &balances, nil
}

func (uc *AccountUseCase) lookupTotals(ctx context.Context, account *domain.Account) (*domain.BalanceTotals, error) {
	cacheKey := "balance:" + account.ID

	if uc.cache != nil {
		if raw, err := uc.cache.Get(ctx, cacheKey); err == nil {
			var totals domain.BalanceTotals
			if json.Unmarshal(raw, &totals) == nil {
				if uc.metrics != nil {
					uc.metrics.BalanceCacheHits.Inc()
				}
				return &totals, nil
			}
		}
		if uc.metrics != nil {
			uc.metrics.BalanceCacheMisses.Inc()
		}
	}

	engineTotals, err := uc.engine.LookupAccounts(ctx, []domain.Uint128{account.EngineAccountID})
	if err != nil {
		return nil, err
	}
	if len(engineTotals) == 0 {
		return nil, domain.ErrAccountNotFound
	}

	totals := domain.BalanceTotals{
		PendingDebits:  engineTotals[0].PendingDebits,
		PendingCredits: engineTotals[0].PendingCredits,
		PostedDebits:   engineTotals[0].PostedDebits,
		PostedCredits:  engineTotals[0].PostedCredits,
	}

	if uc.cache != nil {
		if raw, err := json.Marshal(totals); err == nil {
			if err := uc.cache.Set(ctx, cacheKey, raw, uc.cacheTTL); err != nil {
				uc.logger.Debug().Err(err).Str("account_id", account.ID).Msg("balance cache set failed")
			}
		}
	}

	return &totals, nil
}

func (uc *AccountUseCase) invalidateBalance(ctx context.Context, accountID string) {
	if uc.cache == nil {
		return
	}

	if err := uc.cache.Delete(ctx, "balance:"+accountID); err != nil {
		uc.logger.Debug().Err(err).Str("account_id", accountID).Msg("balance cache invalidation failed")
	}
}

// InvalidateBalances drops cached totals for the given accounts. The
// transaction orchestrator calls this after a successful write.
func (uc *AccountUseCase) InvalidateBalances(ctx context.Context, accountIDs []string) {
	for _, id := range accountIDs {
		uc.invalidateBalance(ctx, id)
	}
}
