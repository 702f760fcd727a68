// Package engine implements the HTTP client for the external balance engine.
// The engine is the authoritative source of account balances; the local store
// keeps the descriptive record.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/orfin/ledgerapi/internal/domain"
	"github.com/orfin/ledgerapi/internal/infrastructure/metrics"
	"github.com/orfin/ledgerapi/internal/usecase"
)

// Client talks to the balance engine over HTTP JSON.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxRetries int
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

// NewClient creates a new engine Client. m may be nil.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger, m *metrics.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		maxRetries: 3,
		logger:     logger,
		metrics:    m,
	}
}

type accountPayload struct {
	ID                         string `json:"id"`
	Ledger                     uint32 `json:"ledger"`
	Code                       uint16 `json:"code"`
	DebitsMustNotExceedCredits bool   `json:"debits_must_not_exceed_credits,omitempty"`
	CreditsMustNotExceedDebits bool   `json:"credits_must_not_exceed_debits,omitempty"`
}

type transferPayload struct {
	ID            string `json:"id"`
	DebitAccount  string `json:"debit_account_id"`
	CreditAccount string `json:"credit_account_id"`
	Amount        uint64 `json:"amount"`
	Ledger        uint32 `json:"ledger"`
	Code          uint16 `json:"code"`
	GroupID       string `json:"group_id,omitempty"`
	Pending       bool   `json:"pending,omitempty"`
	PendingID     string `json:"pending_id,omitempty"`
	PostPending   bool   `json:"post_pending,omitempty"`
	VoidPending   bool   `json:"void_pending,omitempty"`
	Linked        bool   `json:"linked,omitempty"`
}

type resultPayload struct {
	Index int    `json:"index"`
	Code  string `json:"code"`
}

type accountTotalsPayload struct {
	ID             string `json:"id"`
	PendingDebits  uint64 `json:"debits_pending"`
	PendingCredits uint64 `json:"credits_pending"`
	PostedDebits   uint64 `json:"debits_posted"`
	PostedCredits  uint64 `json:"credits_posted"`
}

// CreateAccounts registers accounts on the engine. Account creation is
// idempotent on the engine side, so transient failures are retried with
// exponential backoff.
func (c *Client) CreateAccounts(ctx context.Context, batch []usecase.AccountInstruction) ([]usecase.InstructionResult, error) {
	payload := make([]accountPayload, len(batch))
	for i, in := range batch {
		payload[i] = accountPayload{
			ID:                         in.ID.String(),
			Ledger:                     in.Ledger,
			Code:                       in.Code,
			DebitsMustNotExceedCredits: in.DebitsMustNotExceedCredits,
			CreditsMustNotExceedDebits: in.CreditsMustNotExceedDebits,
		}
	}

	var results []usecase.InstructionResult
	err := c.retry(ctx, func() error {
		var err error
		results, err = c.postBatch(ctx, "/accounts", map[string]any{"accounts": payload})
		return err
	})
	return results, err
}

// CreateTransfers submits a transfer batch. Transfers are not retried here:
// a retry after an ambiguous failure could double-apply a movement, so the
// caller decides through the idempotency layer.
func (c *Client) CreateTransfers(ctx context.Context, batch []usecase.TransferInstruction) ([]usecase.InstructionResult, error) {
	payload := make([]transferPayload, len(batch))
	for i, in := range batch {
		p := transferPayload{
			ID:            in.ID.String(),
			DebitAccount:  in.DebitAccount.String(),
			CreditAccount: in.CreditAccount.String(),
			Amount:        in.Amount,
			Ledger:        in.Ledger,
			Code:          in.Code,
			Pending:       in.Pending,
			PostPending:   in.PostPending,
			VoidPending:   in.VoidPending,
			Linked:        in.Linked,
		}
		if !in.GroupID.IsZero() {
			p.GroupID = in.GroupID.String()
		}
		if !in.PendingID.IsZero() {
			p.PendingID = in.PendingID.String()
		}
		payload[i] = p
	}

	return c.postBatch(ctx, "/transfers", map[string]any{"transfers": payload})
}

// LookupAccounts fetches authoritative balance totals for the given accounts.
func (c *Client) LookupAccounts(ctx context.Context, ids []domain.Uint128) ([]usecase.AccountTotals, error) {
	hexIDs := make([]string, len(ids))
	for i, id := range ids {
		hexIDs[i] = id.String()
	}

	var body struct {
		Accounts []accountTotalsPayload `json:"accounts"`
	}
	err := c.retry(ctx, func() error {
		return c.post(ctx, "/accounts/lookup", map[string]any{"ids": hexIDs}, &body)
	})
	if err != nil {
		return nil, err
	}

	totals := make([]usecase.AccountTotals, len(body.Accounts))
	for i, a := range body.Accounts {
		id, err := domain.ParseUint128(a.ID)
		if err != nil {
			return nil, fmt.Errorf("engine returned malformed account id %q: %w", a.ID, err)
		}
		totals[i] = usecase.AccountTotals{
			ID:             id,
			PendingDebits:  a.PendingDebits,
			PendingCredits: a.PendingCredits,
			PostedDebits:   a.PostedDebits,
			PostedCredits:  a.PostedCredits,
		}
	}
	return totals, nil
}

func (c *Client) postBatch(ctx context.Context, path string, payload any) ([]usecase.InstructionResult, error) {
	var body struct {
		Results []resultPayload `json:"results"`
	}
	if err := c.post(ctx, path, payload, &body); err != nil {
		return nil, err
	}

	results := make([]usecase.InstructionResult, len(body.Results))
	for i, r := range body.Results {
		results[i] = usecase.InstructionResult{Index: r.Index, Code: r.Code}
	}
	return results, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) (err error) {
	if c.metrics != nil {
		c.metrics.EngineRequests.Inc()
		start := time.Now()
		defer func() {
			c.metrics.EngineDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
			if err != nil {
				kind := "status"
				if errors.Is(err, domain.ErrEngineUnavailable) {
					kind = "unavailable"
				}
				c.metrics.EngineErrors.WithLabelValues(kind).Inc()
			}
		}()
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal engine request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("build engine request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrEngineUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domain.ErrEngineUnavailable, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: engine returned status %d", domain.ErrEngineUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("engine returned status %d: %s", resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal engine response: %w", err)
	}
	return nil
}

// retry runs operation with exponential backoff while the engine is
// unreachable. Non-availability errors are permanent.
func (c *Client) retry(ctx context.Context, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 1 * time.Second
	b.MaxElapsedTime = 10 * time.Second

	retryCount := 0

	return backoff.Retry(func() error {
		err := operation()
		if err == nil {
			return nil
		}

		if !errors.Is(err, domain.ErrEngineUnavailable) {
			return backoff.Permanent(err)
		}

		retryCount++
		if retryCount > c.maxRetries {
			return backoff.Permanent(err)
		}

		c.logger.Warn().Err(err).Int("retry", retryCount).Msg("engine unreachable, retrying")

		return err
	}, backoff.WithContext(b, ctx))
}
