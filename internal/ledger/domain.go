package ledger

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// EntryType distinguishes operator-entered journals from entries generated
// out of source documents.
type EntryType string

const (
	EntryTypeManual EntryType = "MANUAL"
	EntryTypeAuto   EntryType = "AUTO"
)

// EntryStatus enumerates the journal entry lifecycle. POSTED is terminal;
// corrections happen through a new reversing entry, never by editing.
type EntryStatus string

const (
	EntryStatusDraft  EntryStatus = "DRAFT"
	EntryStatusPosted EntryStatus = "POSTED"
)

// JournalEntry captures posting metadata. For a POSTED entry TotalDebit and
// TotalCredit are equal and match the sums over Lines.
type JournalEntry struct {
	ID            int64         `json:"id"`
	Number        int64         `json:"number"`
	Date          time.Time     `json:"date"`
	Type          EntryType     `json:"type"`
	Status        EntryStatus   `json:"status"`
	ReferenceType string        `json:"reference_type,omitempty"`
	ReferenceID   uuid.UUID     `json:"reference_id,omitempty"`
	Memo          string        `json:"memo,omitempty"`
	PostedBy      int64         `json:"posted_by"`
	PostedAt      *time.Time    `json:"posted_at,omitempty"`
	TotalDebit    float64       `json:"total_debit"`
	TotalCredit   float64       `json:"total_credit"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	Lines         []JournalLine `json:"lines,omitempty"`
}

// JournalLine stores a debit or credit amount against one account. Exactly
// one side is non-zero.
type JournalLine struct {
	ID        int64     `json:"id"`
	EntryID   int64     `json:"entry_id"`
	AccountID int64     `json:"account_id"`
	Debit     float64   `json:"debit"`
	Credit    float64   `json:"credit"`
	CreatedAt time.Time `json:"created_at"`
}

// LineInput describes a journal line for a posting request.
type LineInput struct {
	AccountID int64
	Debit     float64
	Credit    float64
}

// EntryInput groups fields required to create a journal entry.
type EntryInput struct {
	Date          time.Time
	Type          EntryType
	ReferenceType string
	ReferenceID   uuid.UUID
	Memo          string
	PostedBy      int64
	Lines         []LineInput
}

// Round2 normalises a monetary amount to cents.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func cents(v float64) int64 {
	return int64(math.Round(v * 100))
}

// ValidateLines checks per-line constraints. Zero-value lines are rejected
// rather than silently dropped here; rules omit them at construction time.
func ValidateLines(lines []LineInput) error {
	if len(lines) < 2 {
		return fmt.Errorf("%w: journal requires at least two lines", shared.ErrValidation)
	}
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
	return nil
}

// Totals sums the debit and credit columns, rounded to cents.
func Totals(lines []LineInput) (debit, credit float64) {
	for _, line := range lines {
		debit += line.Debit
		credit += line.Credit
	}
	return Round2(debit), Round2(credit)
}

// CheckBalanced returns a typed imbalance error when the line set does not
// balance at cent precision.
func CheckBalanced(lines []LineInput) error {
	debit, credit := Totals(lines)
	if cents(debit) != cents(credit) {
		return &shared.UnbalancedEntryError{TotalDebit: debit, TotalCredit: credit}
	}
	return nil
}

// Validate ensures the posting input meets minimum criteria for a one-shot post.
func (in EntryInput) Validate() error {
	if in.Date.IsZero() {
		return fmt.Errorf("%w: entry date required", shared.ErrValidation)
	}
	if in.Type == EntryTypeAuto {
		if in.ReferenceType == "" {
			return fmt.Errorf("%w: reference type required for AUTO entries", shared.ErrValidation)
		}
		if in.ReferenceID == uuid.Nil {
			return fmt.Errorf("%w: reference id required for AUTO entries", shared.ErrValidation)
		}
	}
	if err := ValidateLines(in.Lines); err != nil {
		return err
	}
	return CheckBalanced(in.Lines)
}

// ReverseLines returns the sign-flipped line set used by reversing entries.
func ReverseLines(lines []JournalLine) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineInput{
			AccountID: line.AccountID,
			Debit:     line.Credit,
			Credit:    line.Debit,
		})
	}
	return out
}
