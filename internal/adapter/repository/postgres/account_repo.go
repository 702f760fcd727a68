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

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const accountColumns = `id, ledger_id, name, currency, currency_exponent, normal_balance,
	engine_account_id, external_id, min_balance, max_balance, metadata,
	created_at, updated_at, deleted_at`

// Create creates a new account.
func (r *AccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	metadata, err := metadataToJSON(account.Metadata)
	if err != nil {
		return err
	}

	_, err = withTx(r.pool, tx).Exec(ctx, `
		INSERT INTO accounts (id, ledger_id, name, currency, currency_exponent, normal_balance,
			engine_account_id, external_id, min_balance, max_balance, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		account.ID,
		account.LedgerID,
		account.Name,
		account.Currency,
		account.CurrencyExponent,
		string(account.NormalBalance),
		uint128ToBytes(account.EngineAccountID),
		account.ExternalID,
		account.MinBalance,
		account.MaxBalance,
		metadata,
		timeToPgTimestamptz(account.CreatedAt),
		timeToPgTimestamptz(account.UpdatedAt),
	)
	if err != nil && isUniqueViolation(err) {
		return domain.ErrDuplicateExternalID
	}

	return err
}

// GetByID retrieves an account by ID, soft-deleted ones included.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return account, nil
}

// GetByIDs retrieves multiple accounts by ID. Missing IDs are not an error;
// the caller compares lengths.
func (r *AccountRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAccounts(rows)
}

// GetByExternalID retrieves an account by its caller-assigned external ID.
func (r *AccountRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE external_id = $1`, externalID)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return account, nil
}

// List lists live accounts with keyset pagination, optionally filtered by
// ledger.
func (r *AccountRepository) List(ctx context.Context, q usecase.ListQuery) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE deleted_at IS NULL`
	var args []any

	if q.LedgerID != "" {
		args = append(args, q.LedgerID)
		query += fmt.Sprintf(` AND ledger_id = $%d`, len(args))
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

	return collectAccounts(rows)
}

// SoftDelete marks an account deleted.
func (r *AccountRepository) SoftDelete(ctx context.Context, tx usecase.Transaction, id string, deletedAt time.Time) error {
	tag, err := withTx(r.pool, tx).Exec(ctx, `
		UPDATE accounts SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, timeToPgTimestamptz(deletedAt),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account         domain.Account
		normalBalance   string
		engineAccountID []byte
		metadata        []byte
		createdAt       pgtype.Timestamptz
		updatedAt       pgtype.Timestamptz
		deletedAt       pgtype.Timestamptz
	)

	err := row.Scan(
		&account.ID, &account.LedgerID, &account.Name, &account.Currency,
		&account.CurrencyExponent, &normalBalance, &engineAccountID,
		&account.ExternalID, &account.MinBalance, &account.MaxBalance,
		&metadata, &createdAt, &updatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	account.NormalBalance = domain.Direction(normalBalance)
	account.EngineAccountID = uint128FromBytes(engineAccountID)
	account.Metadata, err = metadataFromJSON(metadata)
	if err != nil {
		return nil, err
	}
	account.CreatedAt = createdAt.Time
	account.UpdatedAt = updatedAt.Time
	account.DeletedAt = pgTimestamptzToTimePtr(deletedAt)

	return &account, nil
}

func collectAccounts(rows pgx.Rows) ([]*domain.Account, error) {
	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}
