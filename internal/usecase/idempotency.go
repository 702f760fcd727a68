package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/orfin/ledgerapi/internal/domain"
	"github.com/orfin/ledgerapi/internal/infrastructure/metrics"
)

// IdempotentResult is the outcome of an idempotent write: either the fresh
// response or a byte-identical replay of the first execution.
type IdempotentResult struct {
	Status   int
	Body     []byte
	Replayed bool
}

// IdempotentFunc is the wrapped business operation. It runs inside the same
// database transaction that persists the idempotency record, so the record
// and the operation's writes commit or roll back together.
type IdempotentFunc func(ctx context.Context, tx Transaction) (status int, body []byte, err error)

// IdempotencyRunner makes a financial write safe to retry. A key is claimed
// with an insert-or-fail on the storage unique constraint before the
// operation runs, so concurrent duplicates on different processes cannot
// both execute.
type IdempotencyRunner struct {
	txManager TransactionManager
	repo      IdempotencyRepository
	retrier   Retrier
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

// NewIdempotencyRunner creates a new IdempotencyRunner. retrier and metrics
// may be nil.
func NewIdempotencyRunner(txManager TransactionManager, repo IdempotencyRepository, retrier Retrier, logger zerolog.Logger, m *metrics.Metrics) *IdempotencyRunner {
	return &IdempotencyRunner{
		txManager: txManager,
		repo:      repo,
		retrier:   retrier,
		logger:    logger,
		metrics:   m,
	}
}

// Run executes fn at most once for (key, endpoint). A retry with the same
// body replays the stored response verbatim; a retry with a different body
// fails with domain.ErrIdempotencyConflict. When fn fails nothing is
// recorded, so the caller may safely retry with the same key.
//
// A serialization conflict rolls back the whole attempt, claim included, so
// the retrier can rerun it from scratch.
func (r *IdempotencyRunner) Run(ctx context.Context, key, endpoint string, requestBody []byte, fn IdempotentFunc) (IdempotentResult, error) {
	if r.retrier == nil {
		return r.runOnce(ctx, key, endpoint, requestBody, fn)
	}

	var result IdempotentResult
	err := r.retrier.Retry(ctx, func() error {
		var err error
		result, err = r.runOnce(ctx, key, endpoint, requestBody, fn)
		return err
	})

	return result, err
}

func (r *IdempotencyRunner) runOnce(ctx context.Context, key, endpoint string, requestBody []byte, fn IdempotentFunc) (IdempotentResult, error) {
	if r.metrics != nil {
		start := time.Now()
		defer func() {
			r.metrics.WriteTxDuration.Observe(time.Since(start).Seconds())
		}()
	}

	tx, err := r.txManager.Begin(ctx)
	if err != nil {
		return IdempotentResult{}, err
	}
	defer tx.Rollback(ctx)

	rec, err := r.repo.Get(ctx, tx, key, endpoint)
	if err == nil {
		return r.replayOrConflict(rec, requestBody)
	}
	if !errors.Is(err, domain.ErrRecordNotFound) {
		return IdempotentResult{}, err
	}

	// Claim the key before executing. The insert blocks behind a concurrent
	// uncommitted claim and fails once that claim commits.
	err = r.repo.Create(ctx, tx, &domain.IdempotencyRecord{
		Key:         key,
		Endpoint:    endpoint,
		RequestBody: requestBody,
	})
	if err != nil {
		if errors.Is(err, domain.ErrIdempotencyInFlight) {
			return r.replayCommitted(ctx, key, endpoint, requestBody)
		}

		return IdempotentResult{}, err
	}

	status, body, err := fn(ctx, tx)
	if err != nil {
		// Rollback discards the claim; a timed-out engine call leaves the
		// key free for retry.
		return IdempotentResult{}, err
	}

	if err := r.repo.SetResponse(ctx, tx, key, endpoint, status, body); err != nil {
		return IdempotentResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return IdempotentResult{}, err
	}

	return IdempotentResult{Status: status, Body: body}, nil
}

// replayCommitted re-reads a record after losing the claim race. The loser's
// transaction is already poisoned by the unique violation, so the read runs
// outside it.
func (r *IdempotencyRunner) replayCommitted(ctx context.Context, key, endpoint string, requestBody []byte) (IdempotentResult, error) {
	rec, err := r.repo.Get(ctx, nil, key, endpoint)
	if err != nil {
		r.logger.Warn().Str("key", key).Str("endpoint", endpoint).Err(err).
			Msg("lost idempotency race but record is unreadable")

		return IdempotentResult{}, fmt.Errorf("%w: %s", domain.ErrIdempotencyInFlight, key)
	}

	return r.replayOrConflict(rec, requestBody)
}

func (r *IdempotencyRunner) replayOrConflict(rec *domain.IdempotencyRecord, requestBody []byte) (IdempotentResult, error) {
	if !bytes.Equal(rec.RequestBody, requestBody) {
		if r.metrics != nil {
			r.metrics.IdempotencyConflicts.Inc()
		}
		return IdempotentResult{}, domain.ErrIdempotencyConflict
	}

	if r.metrics != nil {
		r.metrics.IdempotencyReplays.Inc()
	}

	return IdempotentResult{
		Status:   rec.ResponseStatus,
		Body:     rec.ResponseBody,
		Replayed: true,
	}, nil
}
