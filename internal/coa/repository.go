package coa

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository persists chart of accounts entities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const accountColumns = `id, code, name, type, opening_balance, current_balance, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.OpeningBalance, &a.CurrentBalance, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

// CreateAccount inserts a new account row.
func (r *Repository) CreateAccount(ctx context.Context, account Account) (Account, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO accounts (code, name, type, opening_balance, current_balance, is_active)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING `+accountColumns,
		account.Code, account.Name, account.Type, account.OpeningBalance, account.CurrentBalance, account.IsActive)
	created, err := scanAccount(row)
	if err != nil {
		if db.IsUniqueViolation(err, "uq_accounts_code") {
			return Account{}, ErrDuplicateCode
		}
		return Account{}, err
	}
	return created, nil
}

// GetAccount fetches one account by id.
func (r *Repository) GetAccount(ctx context.Context, id int64) (Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id))
}

// GetAccountByCode fetches one account by code.
func (r *Repository) GetAccountByCode(ctx context.Context, code string) (Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code=$1`, code))
}

// ListAccounts returns accounts ordered by code.
func (r *Repository) ListAccounts(ctx context.Context, activeOnly bool) ([]Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY code`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.OpeningBalance, &a.CurrentBalance, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// SetAccountActive toggles the active flag.
func (r *Repository) SetAccountActive(ctx context.Context, id int64, active bool) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE accounts SET is_active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// GetMapping resolves a posting rule mapping.
func (r *Repository) GetMapping(ctx context.Context, documentType, key string) (AccountMapping, error) {
	var m AccountMapping
	err := r.pool.QueryRow(ctx, `SELECT document_type, key, account_id, created_at, updated_at
FROM account_mappings WHERE document_type=$1 AND key=$2`, documentType, key).
		Scan(&m.DocumentType, &m.Key, &m.AccountID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountMapping{}, &shared.MissingAccountError{DocumentType: documentType, Key: key}
		}
		return AccountMapping{}, err
	}
	return m, nil
}

// UpsertMapping inserts or replaces a mapping row.
func (r *Repository) UpsertMapping(ctx context.Context, mapping AccountMapping) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO account_mappings (document_type, key, account_id)
VALUES ($1,$2,$3)
ON CONFLICT (document_type, key) DO UPDATE SET account_id=EXCLUDED.account_id, updated_at=NOW()`,
		mapping.DocumentType, mapping.Key, mapping.AccountID)
	return err
}
