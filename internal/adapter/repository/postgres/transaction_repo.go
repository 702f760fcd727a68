package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orfin/ledgerapi/internal/domain"
	"github.com/orfin/ledgerapi/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

const transactionColumns = `id, external_id, description, status, effective_at,
	engine_group_id, metadata, created_at, updated_at`

// Create persists a transaction and all of its entries as one unit inside
// the caller's database transaction.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	q := withTx(r.pool, tx)

	metadata, err := metadataToJSON(txn.Metadata)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, `
		INSERT INTO transactions (id, external_id, description, status, effective_at,
			engine_group_id, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		txn.ID,
		nullableString(txn.ExternalID),
		txn.Description,
		string(txn.Status),
		timeToPgTimestamptz(txn.EffectiveAt),
		uint128ToBytes(txn.EngineGroupID),
		metadata,
		timeToPgTimestamptz(txn.CreatedAt),
		timeToPgTimestamptz(txn.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateExternalID
		}

		return err
	}

	batch := &pgx.Batch{}
	for _, e := range txn.Entries {
		entryMetadata, err := metadataToJSON(e.Metadata)
		if err != nil {
			return err
		}

		batch.Queue(`
			INSERT INTO entries (id, transaction_id, account_id, amount, direction,
				engine_transfer_id, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			e.ID,
			e.TransactionID,
			e.AccountID,
			int64(e.Amount),
			string(e.Direction),
			uint128ToBytes(e.EngineTransferID),
			entryMetadata,
			timeToPgTimestamptz(e.CreatedAt),
		)
	}

	return q.SendBatch(ctx, batch).Close()
}

// GetByID retrieves a transaction with its entries.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)

	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}

		return nil, err
	}

	txn.Entries, err = r.entriesFor(ctx, txn.ID)
	if err != nil {
		return nil, err
	}

	return txn, nil
}

// GetByExternalID retrieves a transaction by its caller-assigned external ID.
func (r *TransactionRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Transaction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE external_id = $1`, externalID)

	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}

		return nil, err
	}

	txn.Entries, err = r.entriesFor(ctx, txn.ID)
	if err != nil {
		return nil, err
	}

	return txn, nil
}

// UpdateStatus moves a transaction to a new lifecycle status.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.TransactionStatus, updatedAt time.Time) error {
	tag, err := withTx(r.pool, tx).Exec(ctx, `
		UPDATE transactions SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), timeToPgTimestamptz(updatedAt),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

// List lists transactions with keyset pagination, optionally filtered to
// those touching one account.
func (r *TransactionRepository) List(ctx context.Context, q usecase.ListQuery) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE TRUE`
	var args []any

	if q.AccountID != "" {
		args = append(args, q.AccountID)
		query += fmt.Sprintf(` AND id IN (SELECT transaction_id FROM entries WHERE account_id = $%d)`, len(args))
	}
	if q.Cursor != "" {
		args = append(args, q.Cursor)
		query += fmt.Sprintf(` AND id %s $%d`, cursorOperator(q.Order), len(args))
	}
	query += fmt.Sprintf(` ORDER BY id %s LIMIT %d`, orderKeyword(q.Order), q.Limit+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []*domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, txn := range txns {
		txn.Entries, err = r.entriesFor(ctx, txn.ID)
		if err != nil {
			return nil, err
		}
	}

	return txns, nil
}

// SumPostedByAccount returns the local posted debit and credit totals for
// one account, in minor units.
func (r *TransactionRepository) SumPostedByAccount(ctx context.Context, accountID string) (uint64, uint64, error) {
	var debits, credits int64
	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(e.amount) FILTER (WHERE e.direction = 'debit'), 0),
			COALESCE(SUM(e.amount) FILTER (WHERE e.direction = 'credit'), 0)
		FROM entries e
		JOIN transactions t ON t.id = e.transaction_id
		WHERE e.account_id = $1 AND t.status = 'posted'`,
		accountID,
	).Scan(&debits, &credits)
	if err != nil {
		return 0, 0, err
	}

	return uint64(debits), uint64(credits), nil
}

func (r *TransactionRepository) entriesFor(ctx context.Context, txnID string) ([]*domain.Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, transaction_id, account_id, amount, direction, engine_transfer_id, metadata, created_at
		FROM entries WHERE transaction_id = $1 ORDER BY id`,
		txnID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.Entry
	for rows.Next() {
		var (
			entry            domain.Entry
			amount           int64
			direction        string
			engineTransferID []byte
			metadata         []byte
			createdAt        pgtype.Timestamptz
		)

		err := rows.Scan(
			&entry.ID, &entry.TransactionID, &entry.AccountID, &amount,
			&direction, &engineTransferID, &metadata, &createdAt,
		)
		if err != nil {
			return nil, err
		}

		entry.Amount = uint64(amount)
		entry.Direction = domain.Direction(direction)
		entry.EngineTransferID = uint128FromBytes(engineTransferID)
		entry.Metadata, err = metadataFromJSON(metadata)
		if err != nil {
			return nil, err
		}
		entry.CreatedAt = createdAt.Time

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		txn           domain.Transaction
		externalID    *string
		status        string
		effectiveAt   pgtype.Timestamptz
		engineGroupID []byte
		metadata      []byte
		createdAt     pgtype.Timestamptz
		updatedAt     pgtype.Timestamptz
	)

	err := row.Scan(
		&txn.ID, &externalID, &txn.Description, &status, &effectiveAt,
		&engineGroupID, &metadata, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if externalID != nil {
		txn.ExternalID = *externalID
	}
	txn.Status = domain.TransactionStatus(status)
	txn.EffectiveAt = effectiveAt.Time
	txn.EngineGroupID = uint128FromBytes(engineGroupID)
	txn.Metadata, err = metadataFromJSON(metadata)
	if err != nil {
		return nil, err
	}
	txn.CreatedAt = createdAt.Time
	txn.UpdatedAt = updatedAt.Time

	return &txn, nil
}

// nullableString maps "" to NULL so partial unique indexes stay clean.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
