package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository persists journal entries and account balances.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository wraps an open transaction with the ledger operations. The
// documents repository uses this to post journal entries inside its own
// transaction boundary.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

// WithTx executes fn within a repeatable-read transaction. Serialization
// failures surface as the retryable conflict error.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger: repository not initialised")
	}
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
	if err != nil && db.IsSerializationFailure(err) {
		return shared.ErrConcurrencyConflict
	}
	return err
}

const entryColumns = `id, number, date, type, status, reference_type, reference_id, memo, posted_by, posted_at, total_debit, total_credit, created_at, updated_at`

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	err := row.Scan(&e.ID, &e.Number, &e.Date, &e.Type, &e.Status, &e.ReferenceType, &e.ReferenceID,
		&e.Memo, &e.PostedBy, &e.PostedAt, &e.TotalDebit, &e.TotalCredit, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrNotFound
		}
		return JournalEntry{}, err
	}
	return e, nil
}

func (r *txRepository) InsertEntry(ctx context.Context, in EntryInput, status EntryStatus) (JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (date, type, status, reference_type, reference_id, memo, posted_by)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id, number, created_at, updated_at`,
		in.Date, in.Type, status, in.ReferenceType, in.ReferenceID, in.Memo, in.PostedBy)
	entry := JournalEntry{
		Date:          in.Date,
		Type:          in.Type,
		Status:        status,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		Memo:          in.Memo,
		PostedBy:      in.PostedBy,
	}
	if err := row.Scan(&entry.ID, &entry.Number, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []LineInput) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_entry_lines (entry_id, account_id, debit_amount, credit_amount)
VALUES ($1,$2,$3,$4)`, entryID, line.AccountID, Round2(line.Debit), Round2(line.Credit)); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) LinkReference(ctx context.Context, refType string, refID uuid.UUID, entryID int64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO posting_references (reference_type, reference_id, entry_id) VALUES ($1,$2,$3)`,
		refType, refID, entryID)
	if err != nil {
		if db.IsUniqueViolation(err, "uq_posting_references") {
			return ErrReferenceConflict
		}
		return err
	}
	return nil
}

func (r *txRepository) GetEntryWithLines(ctx context.Context, entryID int64) (JournalEntry, error) {
	entry, err := scanEntry(r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1 FOR UPDATE`, entryID))
	if err != nil {
		return JournalEntry{}, err
	}
	lines, err := queryLines(ctx, r.tx, entryID)
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = lines
	return entry, nil
}

func (r *txRepository) GetEntryByReference(ctx context.Context, refType string, refID uuid.UUID) (JournalEntry, error) {
	entry, err := scanEntry(r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries e
WHERE EXISTS (SELECT 1 FROM posting_references pr WHERE pr.entry_id = e.id AND pr.reference_type=$1 AND pr.reference_id=$2)`,
		refType, refID))
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines, err = queryLines(ctx, r.tx, entry.ID)
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) MarkPosted(ctx context.Context, entryID int64, totalDebit, totalCredit float64, at time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries
SET status='POSTED', total_debit=$2, total_credit=$3, posted_at=$4, updated_at=NOW()
WHERE id=$1 AND status='DRAFT'`, entryID, totalDebit, totalCredit, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAlreadyPosted
	}
	return nil
}

func (r *txRepository) LockAccounts(ctx context.Context, ids []int64) ([]AccountRef, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, type FROM accounts WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var refs []AccountRef
	for rows.Next() {
		var ref AccountRef
		if err := rows.Scan(&ref.ID, &ref.Type); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (r *txRepository) AddToAccountBalance(ctx context.Context, accountID int64, delta float64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE accounts SET current_balance = current_balance + $2, updated_at=NOW() WHERE id=$1`,
		accountID, delta)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func queryLines(ctx context.Context, tx pgx.Tx, entryID int64) ([]JournalLine, error) {
	rows, err := tx.Query(ctx, `SELECT id, entry_id, account_id, debit_amount, credit_amount, created_at
FROM journal_entry_lines WHERE entry_id=$1 ORDER BY id`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []JournalLine
	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &line.Debit, &line.Credit, &line.CreatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// GetEntry fetches one journal entry with lines outside a transaction.
func (r *Repository) GetEntry(ctx context.Context, entryID int64) (JournalEntry, error) {
	entry, err := scanEntry(r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1`, entryID))
	if err != nil {
		return JournalEntry{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, entry_id, account_id, debit_amount, credit_amount, created_at
FROM journal_entry_lines WHERE entry_id=$1 ORDER BY id`, entryID)
	if err != nil {
		return JournalEntry{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &line.Debit, &line.Credit, &line.CreatedAt); err != nil {
			return JournalEntry{}, err
		}
		entry.Lines = append(entry.Lines, line)
	}
	return entry, rows.Err()
}

// GetAccountBalance reads the cached running balance.
func (r *Repository) GetAccountBalance(ctx context.Context, accountID int64) (float64, error) {
	var balance float64
	err := r.pool.QueryRow(ctx, `SELECT current_balance FROM accounts WHERE id=$1`, accountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	return balance, nil
}

// RecomputeAccountBalance derives the balance from scratch: opening balance
// plus the signed sum of all POSTED lines. Must reproduce the cached column
// exactly.
func (r *Repository) RecomputeAccountBalance(ctx context.Context, accountID int64) (float64, error) {
	var balance float64
	err := r.pool.QueryRow(ctx, `
SELECT a.opening_balance + COALESCE(SUM(
    CASE WHEN a.type IN ('ASSET','EXPENSE')
         THEN pl.debit_amount - pl.credit_amount
         ELSE pl.credit_amount - pl.debit_amount
    END), 0)
FROM accounts a
LEFT JOIN (
    SELECT l.account_id, l.debit_amount, l.credit_amount
    FROM journal_entry_lines l
    JOIN journal_entries e ON e.id = l.entry_id AND e.status = 'POSTED'
) pl ON pl.account_id = a.id
WHERE a.id = $1
GROUP BY a.id, a.opening_balance`, accountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	return Round2(balance), nil
}
