package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/orfin/ledgerapi/internal/adapter/http/dto"
	"github.com/orfin/ledgerapi/internal/domain"
)

func TestParseIntQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/accounts?limit=50", nil)
	if got := parseIntQuery(req, "limit", 10); got != 50 {
		t.Fatalf("expected limit=50, got %d", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/accounts?limit=invalid", nil)
	if got := parseIntQuery(req, "limit", 10); got != 10 {
		t.Fatalf("expected fallback to default, got %d", got)
	}

	req.URL = &url.URL{RawQuery: ""}
	if got := parseIntQuery(req, "limit", 25); got != 25 {
		t.Fatalf("expected default when missing, got %d", got)
	}
}

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"ledger not found", domain.ErrLedgerNotFound, http.StatusNotFound},
		{"account not found", domain.ErrAccountNotFound, http.StatusNotFound},
		{"transaction not found", domain.ErrTransactionNotFound, http.StatusNotFound},
		{"invalid amount", domain.ErrInvalidAmount, http.StatusBadRequest},
		{"mixed ledgers", domain.ErrMixedLedgers, http.StatusBadRequest},
		{"invalid cursor", domain.ErrInvalidCursor, http.StatusBadRequest},
		{"unbalanced", &domain.UnbalancedTransactionError{}, http.StatusBadRequest},
		{"idempotency conflict", domain.ErrIdempotencyConflict, http.StatusConflict},
		{"duplicate external id", domain.ErrDuplicateExternalID, http.StatusConflict},
		{"not pending", domain.ErrTransactionNotPending, http.StatusConflict},
		{"insufficient balance", &domain.InsufficientBalanceError{}, http.StatusUnprocessableEntity},
		{"transfer rejected", &domain.TransferRejectedError{}, http.StatusUnprocessableEntity},
		{"engine unavailable", domain.ErrEngineUnavailable, http.StatusServiceUnavailable},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := mapDomainError(tt.err); got != tt.expected {
				t.Fatalf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestMapDomainErrorWrapped(t *testing.T) {
	err := errors.Join(
		&domain.InsufficientBalanceError{TransferRejection: domain.TransferRejection{Position: 0, Code: "exceeds_credits"}},
		&domain.TransferRejectedError{TransferRejection: domain.TransferRejection{Position: 2, Code: "other"}},
	)

	status, label := mapDomainError(err)
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", status)
	}
	if label != "insufficient_balance" {
		t.Fatalf("expected insufficient_balance, got %s", label)
	}
}

func TestWriteDomainErrorIncludesRejections(t *testing.T) {
	rr := httptest.NewRecorder()
	err := errors.Join(
		&domain.InsufficientBalanceError{TransferRejection: domain.TransferRejection{Position: 1, Code: "exceeds_credits"}},
	)

	writeDomainError(rr, err)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}

	var resp dto.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Rejections) != 1 || resp.Rejections[0].Position != 1 || resp.Rejections[0].Code != "exceeds_credits" {
		t.Fatalf("unexpected rejections %+v", resp.Rejections)
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()

	writeJSON(rr, http.StatusCreated, map[string]string{"status": "ok"})

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %s", ct)
	}
}
