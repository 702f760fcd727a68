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

// TransactionHandler handles transaction-related HTTP requests.
type TransactionHandler struct {
	txnUC  *usecase.TransactionUseCase
	runner *usecase.IdempotencyRunner
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(txnUC *usecase.TransactionUseCase, runner *usecase.IdempotencyRunner) *TransactionHandler {
	return &TransactionHandler{txnUC: txnUC, runner: runner}
}

// Create creates a new double-entry transaction.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	runIdempotent(w, r, h.runner, func(body []byte) usecase.IdempotentFunc {
		return func(ctx context.Context, tx usecase.Transaction) (int, []byte, error) {
			var req dto.CreateTransactionRequest
			if err := json.Unmarshal(body, &req); err != nil {
				return 0, nil, domain.ErrInvalidRequestBody
			}

			txn, err := h.txnUC.Create(ctx, tx, req.ToUseCaseInput())
			if err != nil {
				return 0, nil, err
			}

			return http.StatusCreated, mustJSON(dto.TransactionFromDomain(txn)), nil
		}
	})
}

// Get retrieves a transaction by ID, or by external ID with the external_id
// query parameter.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	txn, err := h.txnUC.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(txn))
}

// List lists transactions with keyset pagination, optionally filtered to
// those touching one account. With external_id set it returns the single
// matching transaction.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	if externalID := r.URL.Query().Get("external_id"); externalID != "" {
		txn, err := h.txnUC.GetByExternalID(r.Context(), externalID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, dto.ListResponse[*dto.TransactionResponse]{
			Data: []*dto.TransactionResponse{dto.TransactionFromDomain(txn)},
		})

		return
	}

	q := parseListQuery(r)
	q.AccountID = r.URL.Query().Get("account_id")

	page, err := h.txnUC.List(r.Context(), q)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListFromPage(page, dto.TransactionFromDomain))
}

// Post finalizes a pending transaction.
func (h *TransactionHandler) Post(w http.ResponseWriter, r *http.Request) {
	h.secondPhase(w, r, h.txnUC.Post)
}

// Archive voids a pending transaction.
func (h *TransactionHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.secondPhase(w, r, h.txnUC.Archive)
}

func (h *TransactionHandler) secondPhase(w http.ResponseWriter, r *http.Request, resolve func(context.Context, usecase.Transaction, string) (*domain.Transaction, error)) {
	id := chi.URLParam(r, "id")

	runIdempotent(w, r, h.runner, func(body []byte) usecase.IdempotentFunc {
		return func(ctx context.Context, tx usecase.Transaction) (int, []byte, error) {
			txn, err := resolve(ctx, tx, id)
			if err != nil {
				return 0, nil, err
			}

			return http.StatusOK, mustJSON(dto.TransactionFromDomain(txn)), nil
		}
	})
}
