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

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

const ledgerColumns = `id, name, description, engine_ledger_id, metadata, created_at, updated_at, deleted_at`

// Create creates a new ledger.
func (r *LedgerRepository) Create(ctx context.Context, tx usecase.Transaction, ledger *domain.Ledger) error {
	metadata, err := metadataToJSON(ledger.Metadata)
	if err != nil {
		return err
	}

	_, err = withTx(r.pool, tx).Exec(ctx, `
		INSERT INTO ledgers (id, name, description, engine_ledger_id, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ledger.ID,
		ledger.Name,
		ledger.Description,
		int64(ledger.EngineLedgerID),
		metadata,
		timeToPgTimestamptz(ledger.CreatedAt),
		timeToPgTimestamptz(ledger.UpdatedAt),
	)

	return err
}

// AllocateEngineID draws the next engine ledger ID from the shared sequence.
// The ID is immutable once a ledger is created with it.
func (r *LedgerRepository) AllocateEngineID(ctx context.Context, tx usecase.Transaction) (uint32, error) {
	var id int64
	err := withTx(r.pool, tx).QueryRow(ctx, `SELECT nextval('ledgers_engine_id_seq')`).Scan(&id)
	if err != nil {
		return 0, err
	}

	return uint32(id), nil
}

// GetByID retrieves a ledger by ID, soft-deleted ones included.
func (r *LedgerRepository) GetByID(ctx context.Context, id string) (*domain.Ledger, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+ledgerColumns+` FROM ledgers WHERE id = $1`, id)

	ledger, err := scanLedger(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLedgerNotFound
		}

		return nil, err
	}

	return ledger, nil
}

// List lists live ledgers with keyset pagination.
func (r *LedgerRepository) List(ctx context.Context, q usecase.ListQuery) ([]*domain.Ledger, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledgers WHERE deleted_at IS NULL`
	var args []any

	if q.Cursor != "" {
		query += fmt.Sprintf(` AND id %s $1`, cursorOperator(q.Order))
		args = append(args, q.Cursor)
	}
	query += fmt.Sprintf(` ORDER BY id %s LIMIT %d`, orderKeyword(q.Order), q.Limit+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ledgers []*domain.Ledger
	for rows.Next() {
		ledger, err := scanLedger(rows)
		if err != nil {
			return nil, err
		}
		ledgers = append(ledgers, ledger)
	}

	return ledgers, rows.Err()
}

// SoftDelete marks a ledger deleted.
func (r *LedgerRepository) SoftDelete(ctx context.Context, tx usecase.Transaction, id string, deletedAt time.Time) error {
	tag, err := withTx(r.pool, tx).Exec(ctx, `
		UPDATE ledgers SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, timeToPgTimestamptz(deletedAt),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLedgerNotFound
	}

	return nil
}

func scanLedger(row pgx.Row) (*domain.Ledger, error) {
	var (
		ledger         domain.Ledger
		engineLedgerID int64
		metadata       []byte
		createdAt      pgtype.Timestamptz
		updatedAt      pgtype.Timestamptz
		deletedAt      pgtype.Timestamptz
	)

	err := row.Scan(
		&ledger.ID, &ledger.Name, &ledger.Description, &engineLedgerID,
		&metadata, &createdAt, &updatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	ledger.EngineLedgerID = uint32(engineLedgerID)
	ledger.Metadata, err = metadataFromJSON(metadata)
	if err != nil {
		return nil, err
	}
	ledger.CreatedAt = createdAt.Time
	ledger.UpdatedAt = updatedAt.Time
	ledger.DeletedAt = pgTimestamptzToTimePtr(deletedAt)

	return &ledger, nil
}

// cursorOperator picks the keyset comparison for the scan direction.
func cursorOperator(order usecase.Order) string {
	if order == usecase.OrderDesc {
		return "<"
	}
	return ">"
}

func orderKeyword(order usecase.Order) string {
	if order == usecase.OrderDesc {
		return "DESC"
	}
	return "ASC"
}
