package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/parties"
)

// ReconcileBalancesJob recomputes cached customer and vendor balances from
// posted documents and repairs any drift.
type ReconcileBalancesJob struct {
	reconciler *parties.Reconciler
	logger     *slog.Logger
	metrics    *Metrics
}

// NewReconcileBalancesJob constructs the job.
func NewReconcileBalancesJob(reconciler *parties.Reconciler, logger *slog.Logger, metrics *Metrics) *ReconcileBalancesJob {
	return &ReconcileBalancesJob{reconciler: reconciler, logger: logger, metrics: metrics}
}

// Handle processes TaskBalancesReconcile tasks.
func (j *ReconcileBalancesJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("balances_reconcile")
	var payload BalancesReconcilePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	results, err := j.reconciler.ReconcileAll(ctx)
	if err != nil {
		j.logger.Error("balance reconciliation failed", slog.Any("error", err))
		return tracker.End(err)
	}

	repaired := map[parties.PartyType]int{}
	for _, result := range results {
		if result.Repaired {
			repaired[result.PartyType]++
		}
	}
	for partyType, count := range repaired {
		j.metrics.AddRepairs(string(partyType), count)
	}
	if payload.Scope == "" {
		payload.Scope = "all"
	}
	j.logger.Info("balance reconciliation complete",
		slog.String("scope", payload.Scope),
		slog.Int("checked", len(results)),
		slog.Int("repaired_customers", repaired[parties.PartyTypeCustomer]),
		slog.Int("repaired_vendors", repaired[parties.PartyTypeVendor]),
	)
	return tracker.End(nil)
}
