package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orfin/ledgerapi/internal/domain"
	"github.com/orfin/ledgerapi/internal/usecase"
)

// IdempotencyRepository implements usecase.IdempotencyRepository. The
// (key, endpoint) unique constraint arbitrates concurrent writers: the
// first insert wins, later ones see ErrIdempotencyInFlight until the
// winner's transaction commits.
type IdempotencyRepository struct {
	pool *pgxpool.Pool
}

// NewIdempotencyRepository creates a new IdempotencyRepository.
func NewIdempotencyRepository(pool *pgxpool.Pool) *IdempotencyRepository {
	return &IdempotencyRepository{pool: pool}
}

// Get retrieves a committed record, or ErrRecordNotFound.
func (r *IdempotencyRepository) Get(ctx context.Context, tx usecase.Transaction, key, endpoint string) (*domain.IdempotencyRecord, error) {
	var (
		rec       domain.IdempotencyRecord
		createdAt pgtype.Timestamptz
	)

	err := withTx(r.pool, tx).QueryRow(ctx, `
		SELECT key, endpoint, request_body, response_status, response_body, created_at
		FROM idempotency_records WHERE key = $1 AND endpoint = $2 AND response_status <> 0`,
		key, endpoint,
	).Scan(&rec.Key, &rec.Endpoint, &rec.RequestBody, &rec.ResponseStatus, &rec.ResponseBody, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	rec.CreatedAt = createdAt.Time

	return &rec, nil
}

// Create claims the (key, endpoint) pair before the operation runs. The
// response fields stay zero until SetResponse.
func (r *IdempotencyRepository) Create(ctx context.Context, tx usecase.Transaction, rec *domain.IdempotencyRecord) error {
	_, err := withTx(r.pool, tx).Exec(ctx, `
		INSERT INTO idempotency_records (key, endpoint, request_body, response_status, response_body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.Key, rec.Endpoint, rec.RequestBody, rec.ResponseStatus, rec.ResponseBody,
		timeToPgTimestamptz(rec.CreatedAt),
	)
	if err != nil && isUniqueViolation(err) {
		return domain.ErrIdempotencyInFlight
	}

	return err
}

// SetResponse records the operation outcome on the claimed row.
func (r *IdempotencyRepository) SetResponse(ctx context.Context, tx usecase.Transaction, key, endpoint string, status int, body []byte) error {
	tag, err := withTx(r.pool, tx).Exec(ctx, `
		UPDATE idempotency_records SET response_status = $3, response_body = $4
		WHERE key = $1 AND endpoint = $2`,
		key, endpoint, status, body,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}

	return nil
}
