package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/orfin/ledgerapi/internal/adapter/http/dto"
	"github.com/orfin/ledgerapi/internal/domain"
	"github.com/orfin/ledgerapi/internal/usecase"
)

// Replay marker header on idempotent re-delivery.
const headerIdempotencyReplay = "X-Idempotency-Replay"

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// writeDomainError maps a domain error to an HTTP status and, for engine
// rejections, attaches the per-entry details.
func writeDomainError(w http.ResponseWriter, err error) {
	status, label := mapDomainError(err)

	resp := dto.ErrorResponse{
		Error:   label,
		Message: err.Error(),
	}
	for _, rej := range domain.Rejections(err) {
		resp.Rejections = append(resp.Rejections, dto.RejectionDetail{
			Position: rej.Position,
			Code:     rej.Code,
		})
	}

	writeJSON(w, status, resp)
}

// mapDomainError maps domain errors to an HTTP status and a stable taxonomy
// identifier.
func mapDomainError(err error) (int, string) {
	var (
		unbalanced   *domain.UnbalancedTransactionError
		insufficient *domain.InsufficientBalanceError
		rejected     *domain.TransferRejectedError
	)

	switch {
	case errors.Is(err, domain.ErrLedgerNotFound),
		errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &unbalanced):
		return http.StatusBadRequest, "unbalanced_transaction"
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrNoEntries),
		errors.Is(err, domain.ErrTooManyEntries),
		errors.Is(err, domain.ErrInvalidDirection),
		errors.Is(err, domain.ErrMixedLedgers),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrInvalidCurrency),
		errors.Is(err, domain.ErrInvalidExponent),
		errors.Is(err, domain.ErrMetadataTooLarge),
		errors.Is(err, domain.ErrUnsupportedBalanceLimit),
		errors.Is(err, domain.ErrInvalidCursor),
		errors.Is(err, domain.ErrInvalidRequestBody):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, domain.ErrIdempotencyConflict):
		return http.StatusConflict, "idempotency_conflict"
	case errors.Is(err, domain.ErrIdempotencyInFlight):
		return http.StatusConflict, "idempotency_in_flight"
	case errors.Is(err, domain.ErrDuplicateExternalID):
		return http.StatusConflict, "duplicate_external_id"
	case errors.Is(err, domain.ErrTransactionNotPending):
		return http.StatusConflict, "transaction_not_pending"
	case errors.As(err, &insufficient):
		return http.StatusUnprocessableEntity, "insufficient_balance"
	case errors.As(err, &rejected):
		return http.StatusUnprocessableEntity, "transfer_rejected"
	case errors.Is(err, domain.ErrEngineUnavailable):
		return http.StatusServiceUnavailable, "engine_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// parseListQuery reads limit, cursor and order query parameters.
func parseListQuery(r *http.Request) usecase.ListQuery {
	return usecase.ListQuery{
		Limit:  parseIntQuery(r, "limit", 0),
		Cursor: r.URL.Query().Get("cursor"),
		Order:  usecase.Order(r.URL.Query().Get("order")),
	}
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}

	return i
}

// runIdempotent wraps a mutating handler in the idempotency runner. The
// endpoint identity is the method plus the resolved request path, so the
// same key may be reused across different operations and across different
// resources on the same route.
func runIdempotent(w http.ResponseWriter, r *http.Request, runner *usecase.IdempotencyRunner, fn func(body []byte) usecase.IdempotentFunc) {
	key := r.Header.Get("Idempotency-Key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "missing_idempotency_key", "Idempotency-Key header is required")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
		return
	}

	endpoint := r.Method + " " + r.URL.Path

	result, err := runner.Run(r.Context(), key, endpoint, body, fn(body))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if result.Replayed {
		w.Header().Set(headerIdempotencyReplay, "true")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(result.Status)
	w.Write(result.Body)
}

// mustJSON marshals a response produced inside an idempotent operation.
// These responses are built from domain values and always marshal.
func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	return b
}
