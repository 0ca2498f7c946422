package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/parties"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/posting"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository persists source documents and hands the orchestrator a
// transaction that spans the ledger, party and inventory stores.
type Repository struct {
	pool *pgxpool.Pool
	inv  *inventory.Store
}

// NewRepository constructs the repository.
func NewRepository(pool *pgxpool.Pool, inv *inventory.Store) *Repository {
	return &Repository{pool: pool, inv: inv}
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx, inv: r.inv})
	})
	if db.IsSerializationFailure(err) {
		return fmt.Errorf("%w: %v", shared.ErrConcurrencyConflict, err)
	}
	return err
}

const documentColumns = `id, public_id, doc_type, number, customer_id, vendor_id, warehouse_id, applies_to_id,
	doc_date, due_date, subtotal, discount_amount, tax_amount, wht_amount, total_amount, amount_paid,
	payment_method, status, payment_status, entry_id, created_by, created_at, updated_at`

// Get loads one document with its lines.
func (r *Repository) Get(ctx context.Context, id int64) (Document, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM source_documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if err != nil {
		return Document{}, err
	}
	doc.Lines, err = loadLines(ctx, r.pool, id)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

// List returns documents filtered by type and status, newest first.
func (r *Repository) List(ctx context.Context, docType, status string, limit int) ([]Document, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT `+documentColumns+`
		FROM source_documents
		WHERE ($1 = '' OR doc_type = $1) AND ($2 = '' OR status = $2)
		ORDER BY id DESC LIMIT $3`, docType, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

type txRepository struct {
	tx  pgx.Tx
	inv *inventory.Store
}

func (r *txRepository) Ledger() ledger.TxRepository  { return ledger.NewTxRepository(r.tx) }
func (r *txRepository) Parties() parties.TxStore     { return parties.NewTxStore(r.tx) }
func (r *txRepository) Inventory() inventory.TxStore { return r.inv.NewTxStore(r.tx) }

func (r *txRepository) GetForUpdate(ctx context.Context, id int64) (Document, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+documentColumns+` FROM source_documents WHERE id = $1 FOR UPDATE`, id)
	doc, err := scanDocument(row)
	if err != nil {
		return Document{}, err
	}
	doc.Lines, err = loadLines(ctx, r.tx, id)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (r *txRepository) Insert(ctx context.Context, doc Document) (Document, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO source_documents
		(public_id, doc_type, number, customer_id, vendor_id, warehouse_id, applies_to_id,
		 doc_date, due_date, subtotal, discount_amount, tax_amount, wht_amount, total_amount, amount_paid,
		 payment_method, status, payment_status, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		RETURNING id, created_at, updated_at`,
		doc.PublicID, doc.DocType, doc.Number, doc.CustomerID, doc.VendorID, doc.WarehouseID, doc.AppliesToID,
		doc.DocDate, nullTime(doc.DueDate), doc.Subtotal, doc.DiscountAmount, doc.TaxAmount, doc.WHTAmount,
		doc.TotalAmount, doc.AmountPaid, nullString(string(doc.PaymentMethod)), doc.Status, doc.PaymentStatus,
		doc.CreatedBy,
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "uq_source_documents_number") {
			return Document{}, fmt.Errorf("%w: document number %s already exists", shared.ErrValidation, doc.Number)
		}
		return Document{}, err
	}
	if err := r.InsertLines(ctx, doc.ID, doc.Lines); err != nil {
		return Document{}, err
	}
	lines, err := loadLines(ctx, r.tx, doc.ID)
	if err != nil {
		return Document{}, err
	}
	doc.Lines = lines
	return doc, nil
}

func (r *txRepository) InsertLines(ctx context.Context, docID int64, lines []Line) error {
	for _, line := range lines {
		_, err := r.tx.Exec(ctx, `INSERT INTO source_document_lines (document_id, product_id, qty, unit_price, unit_cost)
			VALUES ($1, $2, $3, $4, $5)`,
			docID, line.ProductID, line.Qty, line.UnitPrice, line.UnitCost)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) UpdateStatus(ctx context.Context, id int64, status Status, entryID *int64, payStatus PaymentStatus) error {
	tag, err := r.tx.Exec(ctx, `UPDATE source_documents
		SET status = $2, entry_id = $3, payment_status = $4, updated_at = NOW()
		WHERE id = $1`, id, status, entryID, payStatus)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) UpdateLineUnitCost(ctx context.Context, lineID int64, unitCost float64) error {
	_, err := r.tx.Exec(ctx, `UPDATE source_document_lines SET unit_cost = $2 WHERE id = $1`, lineID, unitCost)
	return err
}

func (r *txRepository) AddToAmountPaid(ctx context.Context, id int64, delta float64, payStatus PaymentStatus) error {
	tag, err := r.tx.Exec(ctx, `UPDATE source_documents
		SET amount_paid = ROUND((amount_paid + $2)::numeric, 2), payment_status = $3, updated_at = NOW()
		WHERE id = $1`, id, delta, payStatus)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var paymentMethod *string
	var dueDate *time.Time
	err := row.Scan(
		&doc.ID, &doc.PublicID, &doc.DocType, &doc.Number, &doc.CustomerID, &doc.VendorID,
		&doc.WarehouseID, &doc.AppliesToID, &doc.DocDate, &dueDate, &doc.Subtotal,
		&doc.DiscountAmount, &doc.TaxAmount, &doc.WHTAmount, &doc.TotalAmount, &doc.AmountPaid,
		&paymentMethod, &doc.Status, &doc.PaymentStatus, &doc.EntryID, &doc.CreatedBy,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, shared.ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	if paymentMethod != nil {
		doc.PaymentMethod = posting.PaymentMethod(*paymentMethod)
	}
	if dueDate != nil {
		doc.DueDate = *dueDate
	}
	return doc, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadLines(ctx context.Context, q querier, docID int64) ([]Line, error) {
	rows, err := q.Query(ctx, `SELECT id, document_id, product_id, qty, unit_price, unit_cost
		FROM source_document_lines WHERE document_id = $1 ORDER BY id`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.DocumentID, &line.ProductID, &line.Qty, &line.UnitPrice, &line.UnitCost); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullTime stores the zero time as NULL so "no due date" stays NULL in SQL
// instead of an ancient date the aging and overdue queries would misread.
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
