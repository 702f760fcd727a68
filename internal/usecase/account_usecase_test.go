package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"

	"github.com/orfin/ledgerapi/internal/domain"
	"github.com/orfin/ledgerapi/internal/usecase"
	"github.com/orfin/ledgerapi/internal/usecase/mocks"
)

type accountFixture struct {
	ledgerRepo  *mocks.MockLedgerRepository
	accountRepo *mocks.MockAccountRepository
	engine      *mocks.MockEngineClient
	cache       *mocks.MockCache
	uc          *usecase.AccountUseCase
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	f := &accountFixture{
		ledgerRepo:  mocks.NewMockLedgerRepository(),
		accountRepo: mocks.NewMockAccountRepository(),
		engine:      mocks.NewMockEngineClient(ctrl),
		cache:       mocks.NewMockCache(),
	}

	f.uc = usecase.NewAccountUseCase(
		f.ledgerRepo, f.accountRepo, f.engine,
		mocks.NewMockIDGenerator(), f.cache, time.Second, zerolog.Nop(), nil,
	)

	f.ledgerRepo.Create(context.Background(), nil, &domain.Ledger{ID: "ledger-1", Name: "main", EngineLedgerID: 3})

	return f
}

func TestAccountCreate(t *testing.T) {
	f := newAccountFixture(t)

	var created []usecase.AccountInstruction
	f.engine.EXPECT().CreateAccounts(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, batch []usecase.AccountInstruction) ([]usecase.InstructionResult, error) {
			created = batch
			return nil, nil
		})

	account, err := f.uc.Create(context.Background(), &mocks.MockTx{}, usecase.CreateAccountInput{
		LedgerID:         "ledger-1",
		Name:             "operating cash",
		Currency:         "USD",
		CurrencyExponent: 2,
		NormalBalance:    domain.DirectionDebit,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if account.EngineAccountID.IsZero() {
		t.Error("engine account ID must be assigned at creation")
	}

	if len(created) != 2 {
		t.Fatalf("expected primary and control account instructions, got %d", len(created))
	}
	if created[0].ID != account.EngineAccountID {
		t.Error("primary instruction must carry the account's engine ID")
	}
	if created[1].ID != account.ControlAccountID() {
		t.Error("second instruction must carry the derived control account ID")
	}
	if created[0].Ledger != 3 || created[1].Ledger != 3 {
		t.Error("instructions must target the ledger's engine ID")
	}

	if _, err := f.accountRepo.GetByID(context.Background(), account.ID); err != nil {
		t.Errorf("account not persisted: %v", err)
	}
}

func TestAccountCreateZeroFloorSetsConstraint(t *testing.T) {
	f := newAccountFixture(t)

	f.engine.EXPECT().CreateAccounts(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, batch []usecase.AccountInstruction) ([]usecase.InstructionResult, error) {
			if !batch[0].DebitsMustNotExceedCredits {
				t.Error("credit-normal account with a zero floor must forbid overdrafts")
			}
			return nil, nil
		})

	zero := int64(0)
	_, err := f.uc.Create(context.Background(), &mocks.MockTx{}, usecase.CreateAccountInput{
		LedgerID:         "ledger-1",
		Name:             "customer wallet",
		Currency:         "USD",
		CurrencyExponent: 2,
		NormalBalance:    domain.DirectionCredit,
		MinBalance:       &zero,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAccountCreateZeroCeilingSetsMirrorConstraint(t *testing.T) {
	f := newAccountFixture(t)

	f.engine.EXPECT().CreateAccounts(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, batch []usecase.AccountInstruction) ([]usecase.InstructionResult, error) {
			if !batch[0].DebitsMustNotExceedCredits {
				t.Error("debit-normal account with a zero ceiling must cap its balance at zero")
			}
			if batch[0].CreditsMustNotExceedDebits {
				t.Error("a ceiling alone must not also pin the floor")
			}
			return nil, nil
		})

	zero := int64(0)
	_, err := f.uc.Create(context.Background(), &mocks.MockTx{}, usecase.CreateAccountInput{
		LedgerID:         "ledger-1",
		Name:             "clearing",
		Currency:         "USD",
		CurrencyExponent: 2,
		NormalBalance:    domain.DirectionDebit,
		MaxBalance:       &zero,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAccountCreateRejectsNonZeroLimits(t *testing.T) {
	f := newAccountFixture(t)

	// No engine EXPECT: rejection happens before any engine call.
	min := int64(500)
	max := int64(100000)

	tests := []struct {
		name   string
		mutate func(*usecase.CreateAccountInput)
	}{
		{"non-zero min", func(in *usecase.CreateAccountInput) { in.MinBalance = &min }},
		{"non-zero max", func(in *usecase.CreateAccountInput) { in.MaxBalance = &max }},
		{"both", func(in *usecase.CreateAccountInput) { in.MinBalance = &min; in.MaxBalance = &max }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := usecase.CreateAccountInput{
				LedgerID:         "ledger-1",
				Name:             "cash",
				Currency:         "USD",
				CurrencyExponent: 2,
				NormalBalance:    domain.DirectionDebit,
			}
			tt.mutate(&input)

			_, err := f.uc.Create(context.Background(), &mocks.MockTx{}, input)
			if !errors.Is(err, domain.ErrUnsupportedBalanceLimit) {
				t.Errorf("expected ErrUnsupportedBalanceLimit, got %v", err)
			}
		})
	}
}

func TestAccountCreateValidation(t *testing.T) {
	f := newAccountFixture(t)

	tests := []struct {
		name    string
		mutate  func(*usecase.CreateAccountInput)
		wantErr error
	}{
		{"bad currency", func(in *usecase.CreateAccountInput) { in.Currency = "WAT" }, domain.ErrInvalidCurrency},
		{"bad exponent", func(in *usecase.CreateAccountInput) { in.CurrencyExponent = 30 }, domain.ErrInvalidExponent},
		{"bad direction", func(in *usecase.CreateAccountInput) { in.NormalBalance = "sideways" }, domain.ErrInvalidDirection},
		{"empty name", func(in *usecase.CreateAccountInput) { in.Name = "  " }, domain.ErrInvalidName},
		{"unknown ledger", func(in *usecase.CreateAccountInput) { in.LedgerID = "nope" }, domain.ErrLedgerNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := usecase.CreateAccountInput{
				LedgerID:         "ledger-1",
				Name:             "cash",
				Currency:         "USD",
				CurrencyExponent: 2,
				NormalBalance:    domain.DirectionDebit,
			}
			tt.mutate(&input)

			_, err := f.uc.Create(context.Background(), &mocks.MockTx{}, input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAccountCreateDuplicateExternalID(t *testing.T) {
	f := newAccountFixture(t)

	ext := "wallet-42"
	f.accountRepo.Create(context.Background(), nil, &domain.Account{ID: "acc-1", LedgerID: "ledger-1", ExternalID: &ext})

	_, err := f.uc.Create(context.Background(), &mocks.MockTx{}, usecase.CreateAccountInput{
		LedgerID:         "ledger-1",
		Name:             "cash",
		Currency:         "USD",
		CurrencyExponent: 2,
		NormalBalance:    domain.DirectionDebit,
		ExternalID:       &ext,
	})
	if !errors.Is(err, domain.ErrDuplicateExternalID) {
		t.Fatalf("expected ErrDuplicateExternalID, got %v", err)
	}
}

func TestAccountGetBalance(t *testing.T) {
	f := newAccountFixture(t)

	engineID, _ := domain.DeriveID(domain.TagAccountControl, "acc-1")
	f.accountRepo.Create(context.Background(), nil, &domain.Account{
		ID:               "acc-1",
		LedgerID:         "ledger-1",
		Currency:         "USD",
		CurrencyExponent: 2,
		NormalBalance:    domain.DirectionCredit,
		EngineAccountID:  engineID,
	})

	f.engine.EXPECT().LookupAccounts(gomock.Any(), []domain.Uint128{engineID}).Return([]usecase.AccountTotals{{
		ID:             engineID,
		PendingCredits: 5000,
		PendingDebits:  1000,
		PostedCredits:  20000,
		PostedDebits:   4000,
	}}, nil)

	balances, err := f.uc.GetBalance(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if balances.Available.Amount.String() != "150" {
		t.Errorf("available amount = %s, want 150", balances.Available.Amount)
	}

	// Second read is served from cache: no further EXPECT on the engine.
	cached, err := f.uc.GetBalance(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cached.Posted.Amount.String() != "160" {
		t.Errorf("posted amount = %s, want 160", cached.Posted.Amount)
	}
}
