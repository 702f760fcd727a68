package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orfin/ledgerapi/internal/adapter/http/dto"
	"github.com/orfin/ledgerapi/internal/domain"
	"github.com/orfin/ledgerapi/internal/usecase"
)

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	accountUC *usecase.AccountUseCase
	runner    *usecase.IdempotencyRunner
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountUC *usecase.AccountUseCase, runner *usecase.IdempotencyRunner) *AccountHandler {
	return &AccountHandler{accountUC: accountUC, runner: runner}
}

// Create creates a new ledger account.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	runIdempotent(w, r, h.runner, func(body []byte) usecase.IdempotentFunc {
		return func(ctx context.Context, tx usecase.Transaction) (int, []byte, error) {
			var req dto.CreateAccountRequest
			if err := json.Unmarshal(body, &req); err != nil {
				return 0, nil, domain.ErrInvalidRequestBody
			}

			account, err := h.accountUC.Create(ctx, tx, req.ToUseCaseInput())
			if err != nil {
				return 0, nil, err
			}

			return http.StatusCreated, mustJSON(dto.AccountFromDomain(account)), nil
		}
	})
}

// Get retrieves an account by ID.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	account, err := h.accountUC.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// List lists accounts with keyset pagination, optionally filtered by ledger.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	q := parseListQuery(r)
	q.LedgerID = r.URL.Query().Get("ledger_id")

	page, err := h.accountUC.List(r.Context(), q)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListFromPage(page, dto.AccountFromDomain))
}

// GetBalance returns the pending/posted/available balance view computed
// from the engine's authoritative totals.
func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	balances, err := h.accountUC.GetBalance(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalancesFromDomain(id, balances))
}

// Delete soft-deletes an account.
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	runIdempotent(w, r, h.runner, func(body []byte) usecase.IdempotentFunc {
		return func(ctx context.Context, tx usecase.Transaction) (int, []byte, error) {
			if err := h.accountUC.SoftDelete(ctx, tx, id); err != nil {
				return 0, nil, err
			}

			return http.StatusNoContent, nil, nil
		}
	})
}
