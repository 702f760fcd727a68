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

type txnFixture struct {
	ledgerRepo  *mocks.MockLedgerRepository
	accountRepo *mocks.MockAccountRepository
	txnRepo     *mocks.MockTransactionRepository
	engine      *mocks.MockEngineClient
	uc          *usecase.TransactionUseCase
}

func newTxnFixture(t *testing.T) *txnFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	f := &txnFixture{
		ledgerRepo:  mocks.NewMockLedgerRepository(),
		accountRepo: mocks.NewMockAccountRepository(),
		txnRepo:     mocks.NewMockTransactionRepository(),
		engine:      mocks.NewMockEngineClient(ctrl),
	}

	f.uc = usecase.NewTransactionUseCase(
		f.ledgerRepo, f.accountRepo, f.txnRepo, f.engine,
		mocks.NewMockIDGenerator(), nil, 10, zerolog.Nop(), nil,
	)

	ledger := &domain.Ledger{ID: "ledger-1", Name: "main", EngineLedgerID: 7}
	f.ledgerRepo.Create(context.Background(), nil, ledger)

	for i, id := range []string{"acc-cash", "acc-revenue"} {
		engineID, _ := domain.DeriveID(domain.TagAccountControl, id)
		direction := domain.DirectionDebit
		if i == 1 {
			direction = domain.DirectionCredit
		}
		f.accountRepo.Create(context.Background(), nil, &domain.Account{
			ID:               id,
			LedgerID:         "ledger-1",
			Currency:         "USD",
			CurrencyExponent: 2,
			NormalBalance:    direction,
			EngineAccountID:  engineID,
		})
	}

	return f
}

func balancedInput() usecase.CreateTransactionInput {
	return usecase.CreateTransactionInput{
		ExternalID:  "inv-1001",
		Description: "invoice 1001",
		Entries: []usecase.EntryInput{
			{AccountID: "acc-cash", Direction: domain.DirectionDebit, Amount: 100},
			{AccountID: "acc-revenue", Direction: domain.DirectionCredit, Amount: 100},
		},
	}
}

func TestTransactionCreatePosted(t *testing.T) {
	f := newTxnFixture(t)

	var submitted []usecase.TransferInstruction
	f.engine.EXPECT().CreateTransfers(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, batch []usecase.TransferInstruction) ([]usecase.InstructionResult, error) {
			submitted = batch
			return nil, nil
		})

	txn, err := f.uc.Create(context.Background(), &mocks.MockTx{}, balancedInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if txn.Status != domain.StatusPosted {
		t.Errorf("status = %s, want posted", txn.Status)
	}
	if len(txn.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(txn.Entries))
	}

	if len(submitted) != 2 {
		t.Fatalf("expected 2 transfer instructions, got %d", len(submitted))
	}
	if !submitted[0].Linked || submitted[1].Linked {
		t.Error("all instructions but the last must be linked")
	}
	if submitted[0].GroupID != submitted[1].GroupID || submitted[0].GroupID.IsZero() {
		t.Error("legs must share a non-zero transfer group")
	}
	if submitted[0].Ledger != 7 {
		t.Errorf("engine ledger = %d, want 7", submitted[0].Ledger)
	}

	// Debit leg moves value from the account to settlement, credit leg back.
	settlement := (&domain.Ledger{ID: "ledger-1"}).SettlementAccountID()
	if submitted[0].CreditAccount != settlement {
		t.Error("debit entry must credit the settlement account")
	}
	if submitted[1].DebitAccount != settlement {
		t.Error("credit entry must debit the settlement account")
	}

	persisted, err := f.txnRepo.GetByID(context.Background(), txn.ID)
	if err != nil {
		t.Fatalf("transaction not persisted: %v", err)
	}
	if persisted.Entries[0].EngineTransferID != submitted[0].ID {
		t.Error("persisted entry must carry the engine transfer ID")
	}
}

func TestTransactionCreateUnbalancedSkipsEngine(t *testing.T) {
	f := newTxnFixture(t)
	// No EXPECT on CreateTransfers: any engine call fails the test.

	input := balancedInput()
	input.Entries[1].Amount = 90

	_, err := f.uc.Create(context.Background(), &mocks.MockTx{}, input)

	var unbalanced *domain.UnbalancedTransactionError
	if !errors.As(err, &unbalanced) {
		t.Fatalf("expected UnbalancedTransactionError, got %v", err)
	}

	if _, err := f.txnRepo.GetByExternalID(context.Background(), "inv-1001"); !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Error("rejected transaction must not be persisted")
	}
}

func TestTransactionCreateEngineRejection(t *testing.T) {
	f := newTxnFixture(t)

	f.engine.EXPECT().CreateTransfers(gomock.Any(), gomock.Any()).Return([]usecase.InstructionResult{
		{Index: 0, Code: usecase.EngineCodeExceedsCredits},
		{Index: 1, Code: "linked_event_failed"},
	}, nil)

	_, err := f.uc.Create(context.Background(), &mocks.MockTx{}, balancedInput())

	var insufficient *domain.InsufficientBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientBalanceError, got %v", err)
	}
	if insufficient.Position != 0 {
		t.Errorf("position = %d, want 0", insufficient.Position)
	}

	rejections := domain.Rejections(err)
	if len(rejections) != 2 {
		t.Fatalf("expected both failures reported, got %d", len(rejections))
	}

	if _, err := f.txnRepo.GetByExternalID(context.Background(), "inv-1001"); !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Error("no entry of a rejected batch may be persisted")
	}
}

func TestTransactionCreateEngineUnavailable(t *testing.T) {
	f := newTxnFixture(t)

	f.engine.EXPECT().CreateTransfers(gomock.Any(), gomock.Any()).
		Return(nil, domain.ErrEngineUnavailable)

	_, err := f.uc.Create(context.Background(), &mocks.MockTx{}, balancedInput())
	if !errors.Is(err, domain.ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}

	if _, err := f.txnRepo.GetByExternalID(context.Background(), "inv-1001"); !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Error("an ambiguous outcome must not persist a posted row")
	}
}

func TestTransactionCreateDuplicateExternalID(t *testing.T) {
	f := newTxnFixture(t)

	f.txnRepo.Create(context.Background(), nil, &domain.Transaction{ID: "txn-0", ExternalID: "inv-1001"})

	_, err := f.uc.Create(context.Background(), &mocks.MockTx{}, balancedInput())
	if !errors.Is(err, domain.ErrDuplicateExternalID) {
		t.Fatalf("expected ErrDuplicateExternalID, got %v", err)
	}
}

func TestTransactionCreateMixedLedgers(t *testing.T) {
	f := newTxnFixture(t)

	f.ledgerRepo.Create(context.Background(), nil, &domain.Ledger{ID: "ledger-2", EngineLedgerID: 8})
	f.accountRepo.Create(context.Background(), nil, &domain.Account{
		ID: "acc-other", LedgerID: "ledger-2", Currency: "USD", CurrencyExponent: 2,
		NormalBalance: domain.DirectionCredit,
	})

	input := balancedInput()
	input.Entries[1].AccountID = "acc-other"

	_, err := f.uc.Create(context.Background(), &mocks.MockTx{}, input)
	if !errors.Is(err, domain.ErrMixedLedgers) {
		t.Fatalf("expected ErrMixedLedgers, got %v", err)
	}
}

func TestTransactionPendingLifecycle(t *testing.T) {
	f := newTxnFixture(t)

	f.engine.EXPECT().CreateTransfers(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, batch []usecase.TransferInstruction) ([]usecase.InstructionResult, error) {
			for _, instr := range batch {
				if !instr.Pending {
					t.Error("first phase must submit pending transfers")
				}
			}
			return nil, nil
		})

	input := balancedInput()
	input.Pending = true

	txn, err := f.uc.Create(context.Background(), &mocks.MockTx{}, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txn.Status != domain.StatusPending {
		t.Fatalf("status = %s, want pending", txn.Status)
	}

	f.engine.EXPECT().CreateTransfers(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, batch []usecase.TransferInstruction) ([]usecase.InstructionResult, error) {
			if len(batch) != 2 {
				t.Fatalf("expected 2 post instructions, got %d", len(batch))
			}
			for i, instr := range batch {
				if !instr.PostPending {
					t.Error("second phase must post the pending transfers")
				}
				if instr.PendingID != txn.Entries[i].EngineTransferID {
					t.Error("post instruction must reference the reserved transfer")
				}
			}
			return nil, nil
		})

	posted, err := f.uc.Post(context.Background(), &mocks.MockTx{}, txn.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if posted.Status != domain.StatusPosted {
		t.Errorf("status = %s, want posted", posted.Status)
	}

	// A resolved transaction cannot be resolved again.
	if _, err := f.uc.Post(context.Background(), &mocks.MockTx{}, txn.ID); !errors.Is(err, domain.ErrTransactionNotPending) {
		t.Errorf("expected ErrTransactionNotPending, got %v", err)
	}
}

func TestTransactionArchiveVoids(t *testing.T) {
	f := newTxnFixture(t)

	now := time.Now().UTC()
	pendingID, _ := domain.DeriveID(domain.TagTransfer, "seed")
	f.txnRepo.Create(context.Background(), nil, &domain.Transaction{
		ID:         "txn-1",
		ExternalID: "inv-2",
		Status:     domain.StatusPending,
		CreatedAt:  now,
		Entries: []*domain.Entry{
			{ID: "e1", TransactionID: "txn-1", AccountID: "acc-cash", Amount: 50, Direction: domain.DirectionDebit, EngineTransferID: pendingID},
			{ID: "e2", TransactionID: "txn-1", AccountID: "acc-revenue", Amount: 50, Direction: domain.DirectionCredit, EngineTransferID: pendingID},
		},
	})

	f.engine.EXPECT().CreateTransfers(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, batch []usecase.TransferInstruction) ([]usecase.InstructionResult, error) {
			for _, instr := range batch {
				if !instr.VoidPending {
					t.Error("archive must void the pending transfers")
				}
			}
			return nil, nil
		})

	archived, err := f.uc.Archive(context.Background(), &mocks.MockTx{}, "txn-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if archived.Status != domain.StatusArchived {
		t.Errorf("status = %s, want archived", archived.Status)
	}
}
