package parties

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists customers and vendors.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxStore exposes the party operations the posting transaction needs:
// balance rows are locked and mutated inside the same transaction that posts
// the journal entry.
type TxStore interface {
	LockCustomer(ctx context.Context, id int64) (Customer, error)
	LockVendor(ctx context.Context, id int64) (Vendor, error)
	AddToCustomerBalance(ctx context.Context, id int64, delta float64) error
	AddToVendorBalance(ctx context.Context, id int64, delta float64) error
}

type txStore struct {
	tx pgx.Tx
}

// NewTxStore wraps an open transaction with party balance operations.
func NewTxStore(tx pgx.Tx) TxStore {
	return &txStore{tx: tx}
}

const customerColumns = `id, code, name, credit_limit, current_balance, is_active, created_at, updated_at`
const vendorColumns = `id, code, name, current_balance, is_active, created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.CreditLimit, &c.CurrentBalance, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, ErrCustomerNotFound
		}
		return Customer{}, err
	}
	return c, nil
}

func scanVendor(row pgx.Row) (Vendor, error) {
	var v Vendor
	err := row.Scan(&v.ID, &v.Code, &v.Name, &v.CurrentBalance, &v.IsActive, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Vendor{}, ErrVendorNotFound
		}
		return Vendor{}, err
	}
	return v, nil
}

func (s *txStore) LockCustomer(ctx context.Context, id int64) (Customer, error) {
	return scanCustomer(s.tx.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id=$1 FOR UPDATE`, id))
}

func (s *txStore) LockVendor(ctx context.Context, id int64) (Vendor, error) {
	return scanVendor(s.tx.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id=$1 FOR UPDATE`, id))
}

func (s *txStore) AddToCustomerBalance(ctx context.Context, id int64, delta float64) error {
	cmd, err := s.tx.Exec(ctx, `UPDATE customers SET current_balance = current_balance + $2, updated_at=NOW() WHERE id=$1`, id, delta)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

func (s *txStore) AddToVendorBalance(ctx context.Context, id int64, delta float64) error {
	cmd, err := s.tx.Exec(ctx, `UPDATE vendors SET current_balance = current_balance + $2, updated_at=NOW() WHERE id=$1`, id, delta)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVendorNotFound
	}
	return nil
}

// GetCustomer fetches one customer.
func (r *Repository) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	return scanCustomer(r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id=$1`, id))
}

// GetVendor fetches one vendor.
func (r *Repository) GetVendor(ctx context.Context, id int64) (Vendor, error) {
	return scanVendor(r.pool.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id=$1`, id))
}

// ListCustomerIDs returns all active customer ids, used by reconciliation.
func (r *Repository) ListCustomerIDs(ctx context.Context) ([]int64, error) {
	return r.listIDs(ctx, `SELECT id FROM customers WHERE is_active ORDER BY id`)
}

// ListVendorIDs returns all active vendor ids.
func (r *Repository) ListVendorIDs(ctx context.Context) ([]int64, error) {
	return r.listIDs(ctx, `SELECT id FROM vendors WHERE is_active ORDER BY id`)
}

func (r *Repository) listIDs(ctx context.Context, query string) ([]int64, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RecomputeCustomerBalance derives the receivable balance from open posted
// documents: remaining due on credit sales and invoices minus nothing else,
// since receipts reduce amount_paid on allocation.
func (r *Repository) RecomputeCustomerBalance(ctx context.Context, customerID int64) (float64, error) {
	var balance float64
	err := r.pool.QueryRow(ctx, `
SELECT COALESCE(SUM(total_amount - amount_paid), 0)
FROM source_documents
WHERE customer_id = $1
  AND status = 'POSTED'
  AND doc_type IN ('POS_SALE','CUSTOMER_INVOICE')
  AND payment_method IS DISTINCT FROM 'CASH'`, customerID).Scan(&balance)
	return balance, err
}

// RecomputeVendorBalance derives the payable balance from open posted bills.
// Payable carries total net of withholding.
func (r *Repository) RecomputeVendorBalance(ctx context.Context, vendorID int64) (float64, error) {
	var balance float64
	err := r.pool.QueryRow(ctx, `
SELECT COALESCE(SUM(total_amount - wht_amount - amount_paid), 0)
FROM source_documents
WHERE vendor_id = $1
  AND status = 'POSTED'
  AND doc_type = 'VENDOR_BILL'`, vendorID).Scan(&balance)
	return balance, err
}

// SetCustomerBalance overwrites the cached balance, used by reconciliation.
func (r *Repository) SetCustomerBalance(ctx context.Context, id int64, balance float64) error {
	_, err := r.pool.Exec(ctx, `UPDATE customers SET current_balance=$2, updated_at=NOW() WHERE id=$1`, id, balance)
	return err
}

// SetVendorBalance overwrites the cached balance, used by reconciliation.
func (r *Repository) SetVendorBalance(ctx context.Context, id int64, balance float64) error {
	_, err := r.pool.Exec(ctx, `UPDATE vendors SET current_balance=$2, updated_at=NOW() WHERE id=$1`, id, balance)
	return err
}
