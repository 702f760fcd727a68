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

// LedgerHandler handles ledger-related HTTP requests.
type LedgerHandler struct {
	ledgerUC *usecase.LedgerUseCase
	runner   *usecase.IdempotencyRunner
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerUC *usecase.LedgerUseCase, runner *usecase.IdempotencyRunner) *LedgerHandler {
	return &LedgerHandler{ledgerUC: ledgerUC, runner: runner}
}

// Create creates a new ledger.
func (h *LedgerHandler) Create(w http.ResponseWriter, r *http.Request) {
	runIdempotent(w, r, h.runner, func(body []byte) usecase.IdempotentFunc {
		return func(ctx context.Context, tx usecase.Transaction) (int, []byte, error) {
			var req dto.CreateLedgerRequest
			if err := json.Unmarshal(body, &req); err != nil {
				return 0, nil, domain.ErrInvalidRequestBody
			}

			ledger, err := h.ledgerUC.Create(ctx, tx, req.ToUseCaseInput())
			if err != nil {
				return 0, nil, err
			}

			return http.StatusCreated, mustJSON(dto.LedgerFromDomain(ledger)), nil
		}
	})
}

// Get retrieves a ledger by ID.
func (h *LedgerHandler) Get(w http.ResponseWriter, r *http.Request) {
	ledger, err := h.ledgerUC.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LedgerFromDomain(ledger))
}

// List lists ledgers with keyset pagination.
func (h *LedgerHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.ledgerUC.List(r.Context(), parseListQuery(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListFromPage(page, dto.LedgerFromDomain))
}

// Delete soft-deletes a ledger.
func (h *LedgerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	runIdempotent(w, r, h.runner, func(body []byte) usecase.IdempotentFunc {
		return func(ctx context.Context, tx usecase.Transaction) (int, []byte, error) {
			if err := h.ledgerUC.SoftDelete(ctx, tx, id); err != nil {
				return 0, nil, err
			}

			return http.StatusNoContent, nil, nil
		}
	})
}

// CheckConsistency reconciles a ledger's local totals against the engine.
func (h *LedgerHandler) CheckConsistency(w http.ResponseWriter, r *http.Request) {
	report, err := h.ledgerUC.CheckConsistency(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ConsistencyFromReport(report))
}
