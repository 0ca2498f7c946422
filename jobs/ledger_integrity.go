package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/coa"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

// LedgerIntegrityJob recomputes every account balance from posted lines and
// reports accounts whose cached balance has drifted. The job only reports;
// ledger balances are never silently rewritten.
type LedgerIntegrityJob struct {
	accounts *coa.Service
	ledger   *ledger.Service
	logger   *slog.Logger
	metrics  *Metrics
}

// NewLedgerIntegrityJob constructs the job.
func NewLedgerIntegrityJob(accounts *coa.Service, ledgerSvc *ledger.Service, logger *slog.Logger, metrics *Metrics) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{accounts: accounts, ledger: ledgerSvc, logger: logger, metrics: metrics}
}

// Handle processes TaskLedgerIntegrity tasks.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, _ *asynq.Task) error {
	tracker := j.metrics.Track("ledger_integrity")

	accounts, err := j.accounts.ListAccounts(ctx, false)
	if err != nil {
		return tracker.End(err)
	}

	drifted := 0
	for _, account := range accounts {
		cached, recomputed, err := j.ledger.VerifyAccountBalance(ctx, account.ID)
		if err != nil {
			j.logger.Error("verify account balance",
				slog.Int64("account_id", account.ID),
				slog.Any("error", err),
			)
			return tracker.End(err)
		}
		if cached != recomputed {
			drifted++
			j.logger.Warn("account balance drift detected",
				slog.Int64("account_id", account.ID),
				slog.String("code", account.Code),
				slog.Float64("cached", cached),
				slog.Float64("recomputed", recomputed),
			)
		}
	}
	j.logger.Info("ledger integrity check complete",
		slog.Int("accounts", len(accounts)),
		slog.Int("drifted", drifted),
	)
	return tracker.End(nil)
}
