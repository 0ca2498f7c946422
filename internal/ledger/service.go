package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/coa"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// AccountRef carries the minimum account state the posting algorithm needs.
type AccountRef struct {
	ID   int64
	Type coa.AccountType
}

// TxRepository exposes the transactional operations of the ledger store. The
// documents orchestrator obtains one from its own transaction so that the
// journal entry, account balances, party balances, and inventory commit
// together.
type TxRepository interface {
	InsertEntry(ctx context.Context, in EntryInput, status EntryStatus) (JournalEntry, error)
	InsertLines(ctx context.Context, entryID int64, lines []LineInput) error
	LinkReference(ctx context.Context, refType string, refID uuid.UUID, entryID int64) error
	GetEntryWithLines(ctx context.Context, entryID int64) (JournalEntry, error)
	GetEntryByReference(ctx context.Context, refType string, refID uuid.UUID) (JournalEntry, error)
	MarkPosted(ctx context.Context, entryID int64, totalDebit, totalCredit float64, at time.Time) error
	LockAccounts(ctx context.Context, ids []int64) ([]AccountRef, error)
	AddToAccountBalance(ctx context.Context, accountID int64, delta float64) error
}

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	RecomputeAccountBalance(ctx context.Context, accountID int64) (float64, error)
	GetAccountBalance(ctx context.Context, accountID int64) (float64, error)
	GetEntry(ctx context.Context, entryID int64) (JournalEntry, error)
}

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates journal entry creation, posting, and reversal.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the ledger service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ErrReferenceConflict signals the unique (reference_type, reference_id) link
// already exists; callers translate it to idempotent success.
var ErrReferenceConflict = errors.New("ledger: reference already linked to an entry")

// CreateDraft stores a DRAFT entry with any initial lines. Drafts carry no
// balance effect until posted.
func (s *Service) CreateDraft(ctx context.Context, input EntryInput) (JournalEntry, error) {
	if input.Date.IsZero() {
		return JournalEntry{}, fmt.Errorf("%w: entry date required", shared.ErrValidation)
	}
	if input.Type == "" {
		input.Type = EntryTypeManual
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inserted, err := tx.InsertEntry(ctx, input, EntryStatusDraft)
		if err != nil {
			return err
		}
		if len(input.Lines) > 0 {
			if err := ValidateLines(input.Lines); err != nil {
				return err
			}
			if err := tx.InsertLines(ctx, inserted.ID, input.Lines); err != nil {
				return err
			}
		}
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// AddLines appends lines to a DRAFT entry. Balance is only enforced at post
// time so drafts can be assembled incrementally.
func (s *Service) AddLines(ctx context.Context, entryID int64, lines []LineInput) error {
	for idx, line := range lines {
		if line.AccountID == 0 {
			return fmt.Errorf("%w: line %d missing account", shared.ErrValidation, idx)
		}
		if line.Debit < 0 || line.Credit < 0 {
			return fmt.Errorf("%w: line %d negative amount", shared.ErrValidation, idx)
		}
		if line.Debit > 0 && line.Credit > 0 {
			return fmt.Errorf("%w: line %d cannot be both debit and credit", shared.ErrValidation, idx)
		}
		if cents(line.Debit) == 0 && cents(line.Credit) == 0 {
			return fmt.Errorf("%w: line %d", shared.ErrZeroAmountLine, idx)
		}
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntryWithLines(ctx, entryID)
		if err != nil {
			return err
		}
		if entry.Status != EntryStatusDraft {
			return shared.ErrAlreadyPosted
		}
		return tx.InsertLines(ctx, entryID, lines)
	})
}

// Post flips a DRAFT entry to POSTED and applies account balance deltas
// atomically. The status flip and every balance mutation share one
// transaction; no reader observes a partially updated balance.
func (s *Service) Post(ctx context.Context, entryID, actorID int64) (JournalEntry, error) {
	var posted JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntryWithLines(ctx, entryID)
		if err != nil {
			return err
		}
		if entry.Status == EntryStatusPosted {
			return shared.ErrAlreadyPosted
		}
		lines := make([]LineInput, 0, len(entry.Lines))
		for _, line := range entry.Lines {
			lines = append(lines, LineInput{AccountID: line.AccountID, Debit: line.Debit, Credit: line.Credit})
		}
		if err := ValidateLines(lines); err != nil {
			return err
		}
		if err := CheckBalanced(lines); err != nil {
			return err
		}
		if entry.Type == EntryTypeAuto {
			if err := tx.LinkReference(ctx, entry.ReferenceType, entry.ReferenceID, entry.ID); err != nil {
				if errors.Is(err, ErrReferenceConflict) {
					return shared.ErrDuplicatePosting
				}
				return err
			}
		}
		if err := applyBalances(ctx, tx, lines); err != nil {
			return err
		}
		debit, credit := Totals(lines)
		now := s.now()
		if err := tx.MarkPosted(ctx, entry.ID, debit, credit, now); err != nil {
			return err
		}
		entry.Status = EntryStatusPosted
		entry.TotalDebit = debit
		entry.TotalCredit = credit
		entry.PostedAt = &now
		posted = entry
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.recordAudit(ctx, actorID, "ledger.post", posted.ID, map[string]any{
		"number":         posted.Number,
		"reference_type": posted.ReferenceType,
	})
	return posted, nil
}

// PostEntryWith runs the full one-shot posting algorithm on an existing
// transaction. Used by the document orchestrator so the journal entry and all
// cross-aggregate side effects commit together or not at all.
func (s *Service) PostEntryWith(ctx context.Context, tx TxRepository, input EntryInput) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	if input.Type == EntryTypeAuto {
		// Claim the reference first: under concurrency exactly one poster
		// wins the unique index and the loser sees ErrDuplicatePosting.
		existing, err := tx.GetEntryByReference(ctx, input.ReferenceType, input.ReferenceID)
		if err == nil && existing.ID != 0 {
			return existing, shared.ErrDuplicatePosting
		}
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return JournalEntry{}, err
		}
	}
	entry, err := tx.InsertEntry(ctx, input, EntryStatusDraft)
	if err != nil {
		return JournalEntry{}, err
	}
	if err := tx.InsertLines(ctx, entry.ID, input.Lines); err != nil {
		return JournalEntry{}, err
	}
	if input.Type == EntryTypeAuto {
		if err := tx.LinkReference(ctx, input.ReferenceType, input.ReferenceID, entry.ID); err != nil {
			if errors.Is(err, ErrReferenceConflict) {
				return JournalEntry{}, shared.ErrDuplicatePosting
			}
			return JournalEntry{}, err
		}
	}
	if err := applyBalances(ctx, tx, input.Lines); err != nil {
		return JournalEntry{}, err
	}
	debit, credit := Totals(input.Lines)
	now := s.now()
	if err := tx.MarkPosted(ctx, entry.ID, debit, credit, now); err != nil {
		return JournalEntry{}, err
	}
	entry.Status = EntryStatusPosted
	entry.TotalDebit = debit
	entry.TotalCredit = credit
	entry.PostedAt = &now
	entry.Lines = toJournalLines(entry.ID, input.Lines, now)
	return entry, nil
}

// PostEntry posts a complete balanced entry in a single transaction.
func (s *Service) PostEntry(ctx context.Context, input EntryInput) (JournalEntry, error) {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = s.PostEntryWith(ctx, tx, input)
		return err
	})
	if err != nil {
		if errors.Is(err, shared.ErrDuplicatePosting) {
			return entry, err
		}
		return JournalEntry{}, err
	}
	s.recordAudit(ctx, input.PostedBy, "ledger.post", entry.ID, map[string]any{
		"number":         entry.Number,
		"reference_type": input.ReferenceType,
		"reference_id":   input.ReferenceID.String(),
	})
	return entry, nil
}

// ReverseWith creates the sign-flipped reversing entry for a POSTED original
// on an existing transaction. The original remains POSTED and untouched.
func (s *Service) ReverseWith(ctx context.Context, tx TxRepository, entryID, actorID int64, memo string) (JournalEntry, error) {
	original, err := tx.GetEntryWithLines(ctx, entryID)
	if err != nil {
		return JournalEntry{}, err
	}
	if original.Status != EntryStatusPosted {
		return JournalEntry{}, fmt.Errorf("%w: only POSTED entries can be reversed", shared.ErrInvalidTransition)
	}
	input := EntryInput{
		Date:          s.now(),
		Type:          EntryTypeAuto,
		ReferenceType: original.ReferenceType + ":REVERSAL",
		ReferenceID:   original.ReferenceID,
		Memo:          reversalMemo(memo, original.Number),
		PostedBy:      actorID,
		Lines:         ReverseLines(original.Lines),
	}
	if original.Type == EntryTypeManual {
		input.ReferenceType = "MANUAL:REVERSAL"
		input.ReferenceID = uuid.New()
	}
	return s.PostEntryWith(ctx, tx, input)
}

// Reverse posts a reversing entry for a POSTED original in its own transaction.
func (s *Service) Reverse(ctx context.Context, entryID, actorID int64, memo string) (JournalEntry, error) {
	var reversal JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		reversal, err = s.ReverseWith(ctx, tx, entryID, actorID, memo)
		return err
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.recordAudit(ctx, actorID, "ledger.reverse", entryID, map[string]any{
		"reversal_id":     reversal.ID,
		"reversal_number": reversal.Number,
	})
	return reversal, nil
}

// GetEntry returns one journal entry with lines.
func (s *Service) GetEntry(ctx context.Context, entryID int64) (JournalEntry, error) {
	return s.repo.GetEntry(ctx, entryID)
}

// GetAccountBalance returns the cached running balance for an account.
func (s *Service) GetAccountBalance(ctx context.Context, accountID int64) (float64, error) {
	return s.repo.GetAccountBalance(ctx, accountID)
}

// VerifyAccountBalance recomputes the balance from posted lines and reports
// drift against the cached column. Used by the integrity job.
func (s *Service) VerifyAccountBalance(ctx context.Context, accountID int64) (cached, recomputed float64, err error) {
	cached, err = s.repo.GetAccountBalance(ctx, accountID)
	if err != nil {
		return 0, 0, err
	}
	recomputed, err = s.repo.RecomputeAccountBalance(ctx, accountID)
	if err != nil {
		return 0, 0, err
	}
	return cached, recomputed, nil
}

// applyBalances locks the touched accounts in ascending id order, then
// applies the signed delta of every line. Deterministic lock order keeps
// concurrent postings deadlock-free.
func applyBalances(ctx context.Context, tx TxRepository, lines []LineInput) error {
	ids := make([]int64, 0, len(lines))
	seen := make(map[int64]bool, len(lines))
	for _, line := range lines {
		if !seen[line.AccountID] {
			seen[line.AccountID] = true
			ids = append(ids, line.AccountID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	refs, err := tx.LockAccounts(ctx, ids)
	if err != nil {
		return err
	}
	if len(refs) != len(ids) {
		return &shared.MissingAccountError{DocumentType: "LEDGER", Key: "unknown account id"}
	}
	types := make(map[int64]coa.AccountType, len(refs))
	for _, ref := range refs {
		types[ref.ID] = ref.Type
	}
	deltas := make(map[int64]float64, len(ids))
	for _, line := range lines {
		deltas[line.AccountID] += coa.SignedDelta(types[line.AccountID], line.Debit, line.Credit)
	}
	for _, id := range ids {
		if err := tx.AddToAccountBalance(ctx, id, Round2(deltas[id])); err != nil {
			return err
		}
	}
	return nil
}

func toJournalLines(entryID int64, lines []LineInput, ts time.Time) []JournalLine {
	out := make([]JournalLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, JournalLine{
			EntryID:   entryID,
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
			CreatedAt: ts,
		})
	}
	return out
}

func reversalMemo(memo string, number int64) string {
	if memo != "" {
		return memo
	}
	return fmt.Sprintf("Reversal of JE %d", number)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entryID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   shared.EntityJournalEntry,
		EntityID: entryID,
		Meta:     meta,
		At:       s.now(),
	})
}
