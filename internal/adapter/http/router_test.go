package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"

	"github.com/orfin/ledgerapi/internal/adapter/http/handler"
	"github.com/orfin/ledgerapi/internal/domain"
	"github.com/orfin/ledgerapi/internal/usecase"
	"github.com/orfin/ledgerapi/internal/usecase/mocks"
)

type routerFixture struct {
	engine *mocks.MockEngineClient
	router http.Handler
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	engine := mocks.NewMockEngineClient(ctrl)

	ledgerRepo := mocks.NewMockLedgerRepository()
	accountRepo := mocks.NewMockAccountRepository()
	txnRepo := mocks.NewMockTransactionRepository()
	idGen := mocks.NewMockIDGenerator()
	logger := zerolog.Nop()

	ledgerUC := usecase.NewLedgerUseCase(ledgerRepo, accountRepo, txnRepo, engine, idGen, logger, nil)
	accountUC := usecase.NewAccountUseCase(ledgerRepo, accountRepo, engine, idGen, nil, 0, logger, nil)
	txnUC := usecase.NewTransactionUseCase(ledgerRepo, accountRepo, txnRepo, engine, idGen, accountUC, 10, logger, nil)

	runner := usecase.NewIdempotencyRunner(
		mocks.NewMockTransactionManager(),
		mocks.NewMockIdempotencyRepository(),
		nil,
		logger,
		nil,
	)

	ctx := context.Background()
	ledgerRepo.Create(ctx, nil, &domain.Ledger{ID: "ledger-1", Name: "main", EngineLedgerID: 7})
	for i, id := range []string{"acc-cash", "acc-revenue"} {
		engineID, _ := domain.DeriveID(domain.TagAccountControl, id)
		direction := domain.DirectionDebit
		if i == 1 {
			direction = domain.DirectionCredit
		}
		accountRepo.Create(ctx, nil, &domain.Account{
			ID:               id,
			LedgerID:         "ledger-1",
			Currency:         "USD",
			CurrencyExponent: 2,
			NormalBalance:    direction,
			EngineAccountID:  engineID,
		})
	}

	router := NewRouter(RouterConfig{
		LedgerHandler:      handler.NewLedgerHandler(ledgerUC, runner),
		AccountHandler:     handler.NewAccountHandler(accountUC, runner),
		TransactionHandler: handler.NewTransactionHandler(txnUC, runner),
		HealthHandler:      handler.NewHealthHandler(nil, nil),
		Logger:             logger,
	})

	return &routerFixture{engine: engine, router: router}
}

func (f *routerFixture) do(method, path, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	return rec
}

func TestRouterHealth(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCreateTransactionRequiresIdempotencyKey(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(http.MethodPost, "/v1/transactions", "", `{"entries":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without Idempotency-Key, got %d", rec.Code)
	}
}

func TestCreateTransactionAndReplay(t *testing.T) {
	f := newRouterFixture(t)

	f.engine.EXPECT().CreateTransfers(gomock.Any(), gomock.Any()).Return(nil, nil)

	body := `{"external_id":"inv-1","entries":[` +
		`{"account_id":"acc-cash","direction":"debit","amount":100},` +
		`{"account_id":"acc-revenue","direction":"credit","amount":100}]}`

	rec := f.do(http.MethodPost, "/v1/transactions", "key-1", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	// Same key and body: replayed verbatim, the engine is not called again.
	replay := f.do(http.MethodPost, "/v1/transactions", "key-1", body)
	if replay.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201, got %d", replay.Code)
	}
	if replay.Header().Get("X-Idempotency-Replay") != "true" {
		t.Error("expected replay marker header")
	}
	if replay.Body.String() != rec.Body.String() {
		t.Error("replayed body must match the original byte for byte")
	}

	// Same key, different body: conflict.
	conflict := f.do(http.MethodPost, "/v1/transactions", "key-1", `{"external_id":"inv-2","entries":[]}`)
	if conflict.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", conflict.Code)
	}
}

func TestCreateTransactionUnbalanced(t *testing.T) {
	f := newRouterFixture(t)

	body := `{"external_id":"inv-3","entries":[` +
		`{"account_id":"acc-cash","direction":"debit","amount":100},` +
		`{"account_id":"acc-revenue","direction":"credit","amount":90}]}`

	rec := f.do(http.MethodPost, "/v1/transactions", "key-2", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "unbalanced_transaction") {
		t.Errorf("expected unbalanced taxonomy label, got %s", rec.Body.String())
	}
}

func TestCreateTransactionEngineRejection(t *testing.T) {
	f := newRouterFixture(t)

	f.engine.EXPECT().CreateTransfers(gomock.Any(), gomock.Any()).
		Return([]usecase.InstructionResult{{Index: 0, Code: usecase.EngineCodeExceedsCredits}}, nil)

	body := `{"external_id":"inv-4","entries":[` +
		`{"account_id":"acc-cash","direction":"debit","amount":100},` +
		`{"account_id":"acc-revenue","direction":"credit","amount":100}]}`

	rec := f.do(http.MethodPost, "/v1/transactions", "key-3", body)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "rejections") {
		t.Errorf("expected rejection details, got %s", rec.Body.String())
	}
}

func TestPostPendingKeyScopedToResource(t *testing.T) {
	f := newRouterFixture(t)

	// Two pending creates and two posts each reach the engine.
	f.engine.EXPECT().CreateTransfers(gomock.Any(), gomock.Any()).Return(nil, nil).Times(4)

	var ids []string
	for _, ext := range []string{"inv-5", "inv-6"} {
		body := `{"external_id":"` + ext + `","pending":true,"entries":[` +
			`{"account_id":"acc-cash","direction":"debit","amount":100},` +
			`{"account_id":"acc-revenue","direction":"credit","amount":100}]}`

		rec := f.do(http.MethodPost, "/v1/transactions", "create-"+ext, body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}

		var created struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
			t.Fatalf("invalid create response: %v", err)
		}
		ids = append(ids, created.ID)
	}

	// The same key with an empty body posts each transaction independently;
	// the second must not be answered with the first one's recorded response.
	first := f.do(http.MethodPost, "/v1/transactions/"+ids[0]+"/post", "post-key", "")
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", first.Code, first.Body.String())
	}

	second := f.do(http.MethodPost, "/v1/transactions/"+ids[1]+"/post", "post-key", "")
	if second.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", second.Code, second.Body.String())
	}
	if second.Header().Get("X-Idempotency-Replay") == "true" {
		t.Error("a different transaction under the same key must not replay")
	}

	var posted struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(second.Body.Bytes(), &posted); err != nil {
		t.Fatalf("invalid post response: %v", err)
	}
	if posted.ID != ids[1] {
		t.Errorf("expected response for %s, got %s", ids[1], posted.ID)
	}
	if posted.Status != string(domain.StatusPosted) {
		t.Errorf("expected posted status, got %s", posted.Status)
	}
}

func TestGetMissingTransaction(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(http.MethodGet, "/v1/transactions/nope", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
