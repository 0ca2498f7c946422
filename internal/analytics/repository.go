package analytics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRepository runs the report queries against Postgres.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the repository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// AgingReceivables buckets open customer exposure by days past due. Cash POS
// sales never enter the receivable: they are settled at posting. A NULL due
// date means not yet due, so it sits in the current bucket.
func (r *PgRepository) AgingReceivables(ctx context.Context, asOf time.Time) ([]AgingLine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.name,
			COALESCE(SUM(CASE WHEN ($2::date - COALESCE(d.due_date, $2)::date) <= 30 THEN d.total_amount - d.amount_paid ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN ($2::date - COALESCE(d.due_date, $2)::date) BETWEEN 31 AND 60 THEN d.total_amount - d.amount_paid ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN ($2::date - COALESCE(d.due_date, $2)::date) BETWEEN 61 AND 90 THEN d.total_amount - d.amount_paid ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN ($2::date - COALESCE(d.due_date, $2)::date) BETWEEN 91 AND 120 THEN d.total_amount - d.amount_paid ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN ($2::date - COALESCE(d.due_date, $2)::date) > 120 THEN d.total_amount - d.amount_paid ELSE 0 END), 0)
		FROM source_documents d
		JOIN customers c ON c.id = d.customer_id
		WHERE d.status = 'POSTED'
		  AND d.doc_type IN ('POS_SALE', 'CUSTOMER_INVOICE')
		  AND d.payment_method IS DISTINCT FROM 'CASH'
		  AND d.doc_date <= $1
		  AND d.total_amount - d.amount_paid > 0
		GROUP BY c.id, c.name
		ORDER BY c.name`, asOf, asOf)
	if err != nil {
		return nil, err
	}
	return scanAgingLines(rows)
}

// AgingPayables buckets open vendor exposure. Withholding tax never becomes
// payable, so the open amount is total minus WHT minus paid.
func (r *PgRepository) AgingPayables(ctx context.Context, asOf time.Time) ([]AgingLine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT v.id, v.name,
			COALESCE(SUM(CASE WHEN ($2::date - COALESCE(d.due_date, $2)::date) <= 30 THEN d.total_amount - d.wht_amount - d.amount_paid ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN ($2::date - COALESCE(d.due_date, $2)::date) BETWEEN 31 AND 60 THEN d.total_amount - d.wht_amount - d.amount_paid ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN ($2::date - COALESCE(d.due_date, $2)::date) BETWEEN 61 AND 90 THEN d.total_amount - d.wht_amount - d.amount_paid ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN ($2::date - COALESCE(d.due_date, $2)::date) BETWEEN 91 AND 120 THEN d.total_amount - d.wht_amount - d.amount_paid ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN ($2::date - COALESCE(d.due_date, $2)::date) > 120 THEN d.total_amount - d.wht_amount - d.amount_paid ELSE 0 END), 0)
		FROM source_documents d
		JOIN vendors v ON v.id = d.vendor_id
		WHERE d.status = 'POSTED'
		  AND d.doc_type = 'VENDOR_BILL'
		  AND d.doc_date <= $1
		  AND d.total_amount - d.wht_amount - d.amount_paid > 0
		GROUP BY v.id, v.name
		ORDER BY v.name`, asOf, asOf)
	if err != nil {
		return nil, err
	}
	return scanAgingLines(rows)
}

func scanAgingLines(rows pgx.Rows) ([]AgingLine, error) {
	defer rows.Close()
	var lines []AgingLine
	for rows.Next() {
		var line AgingLine
		if err := rows.Scan(&line.PartyID, &line.PartyName, &line.Current, &line.Days31, &line.Days61, &line.Days91, &line.Over120); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// SalesRegister lists posted sales documents in the date range, inclusive.
func (r *PgRepository) SalesRegister(ctx context.Context, from, to time.Time) ([]RegisterRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT d.id, d.doc_type, d.number, d.doc_date, c.id, c.name,
			d.subtotal, d.discount_amount, d.tax_amount, 0::float8, d.total_amount, d.amount_paid, d.payment_status
		FROM source_documents d
		JOIN customers c ON c.id = d.customer_id
		WHERE d.status = 'POSTED'
		  AND d.doc_type IN ('POS_SALE', 'CUSTOMER_INVOICE')
		  AND d.doc_date BETWEEN $1 AND $2
		ORDER BY d.doc_date, d.id`, from, to)
	if err != nil {
		return nil, err
	}
	return scanRegisterRows(rows)
}

// PurchaseRegister lists posted vendor bills in the date range, inclusive.
func (r *PgRepository) PurchaseRegister(ctx context.Context, from, to time.Time) ([]RegisterRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT d.id, d.doc_type, d.number, d.doc_date, v.id, v.name,
			d.subtotal, d.discount_amount, d.tax_amount, d.wht_amount, d.total_amount, d.amount_paid, d.payment_status
		FROM source_documents d
		JOIN vendors v ON v.id = d.vendor_id
		WHERE d.status = 'POSTED'
		  AND d.doc_type = 'VENDOR_BILL'
		  AND d.doc_date BETWEEN $1 AND $2
		ORDER BY d.doc_date, d.id`, from, to)
	if err != nil {
		return nil, err
	}
	return scanRegisterRows(rows)
}

func scanRegisterRows(rows pgx.Rows) ([]RegisterRow, error) {
	defer rows.Close()
	var out []RegisterRow
	for rows.Next() {
		var row RegisterRow
		if err := rows.Scan(&row.DocumentID, &row.DocType, &row.Number, &row.DocDate, &row.PartyID, &row.PartyName,
			&row.Subtotal, &row.Discount, &row.Tax, &row.WHT, &row.Total, &row.AmountPaid, &row.PaymentStatus); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// SalesByProduct aggregates posted sales lines per product in range.
func (r *PgRepository) SalesByProduct(ctx context.Context, from, to time.Time) ([]ProductSalesRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.product_id, COALESCE(SUM(l.qty), 0), COALESCE(SUM(l.qty * l.unit_price), 0)
		FROM source_document_lines l
		JOIN source_documents d ON d.id = l.document_id
		WHERE d.status = 'POSTED'
		  AND d.doc_type IN ('POS_SALE', 'CUSTOMER_INVOICE')
		  AND d.doc_date BETWEEN $1 AND $2
		GROUP BY l.product_id
		ORDER BY SUM(l.qty * l.unit_price) DESC`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ProductSalesRow
	for rows.Next() {
		var row ProductSalesRow
		if err := rows.Scan(&row.ProductID, &row.Qty, &row.Gross); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
