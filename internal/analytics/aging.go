package analytics

import (
	"context"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

// Bucket labels, ordered oldest-last. Days are counted from due date to the
// report date; amounts not yet due land in the first bucket.
const (
	BucketCurrent = "0-30"
	Bucket31to60  = "31-60"
	Bucket61to90  = "61-90"
	Bucket91to120 = "91-120"
	BucketOver120 = "120+"
)

// AgingLine is one party's outstanding exposure split across buckets.
// Total always equals the sum of the five buckets.
type AgingLine struct {
	PartyID   int64   `json:"party_id"`
	PartyName string  `json:"party_name"`
	Current   float64 `json:"bucket_0_30"`
	Days31    float64 `json:"bucket_31_60"`
	Days61    float64 `json:"bucket_61_90"`
	Days91    float64 `json:"bucket_91_120"`
	Over120   float64 `json:"bucket_over_120"`
	Total     float64 `json:"total"`
}

// AgingReport pairs receivable and payable aging as of one date. Sections
// fail independently: a failed side carries its error text and an empty
// line set rather than sinking the whole report.
type AgingReport struct {
	AsOf        time.Time         `json:"as_of"`
	Receivables []AgingLine       `json:"receivables"`
	Payables    []AgingLine       `json:"payables"`
	Errors      map[string]string `json:"errors,omitempty"`
}

// GetAgingReport computes AR and AP aging as of the given date.
func (s *Service) GetAgingReport(ctx context.Context, asOf time.Time) (AgingReport, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC().Truncate(24 * time.Hour)
	}
	loader := func(ctx context.Context) (interface{}, error) {
		report := AgingReport{AsOf: asOf, Errors: map[string]string{}}
		receivables, err := s.repo.AgingReceivables(ctx, asOf)
		if err != nil {
			report.Errors["receivables"] = err.Error()
		} else {
			report.Receivables = normaliseAging(receivables)
		}
		payables, err := s.repo.AgingPayables(ctx, asOf)
		if err != nil {
			report.Errors["payables"] = err.Error()
		} else {
			report.Payables = normaliseAging(payables)
		}
		if len(report.Errors) == 0 {
			report.Errors = nil
		}
		return report, nil
	}

	if s.cache == nil {
		value, err := loader(ctx)
		if err != nil {
			return AgingReport{}, err
		}
		return value.(AgingReport), nil
	}
	key, err := s.cache.BuildKey(ctx, "aging", dateToken(asOf))
	if err != nil {
		return AgingReport{}, err
	}
	var report AgingReport
	if err := s.cache.FetchJSON(ctx, key, &report, loader); err != nil {
		return AgingReport{}, err
	}
	return report, nil
}

func normaliseAging(lines []AgingLine) []AgingLine {
	out := make([]AgingLine, 0, len(lines))
	for _, line := range lines {
		line.Current = ledger.Round2(line.Current)
		line.Days31 = ledger.Round2(line.Days31)
		line.Days61 = ledger.Round2(line.Days61)
		line.Days91 = ledger.Round2(line.Days91)
		line.Over120 = ledger.Round2(line.Over120)
		line.Total = ledger.Round2(line.Current + line.Days31 + line.Days61 + line.Days91 + line.Over120)
		out = append(out, line)
	}
	return out
}
