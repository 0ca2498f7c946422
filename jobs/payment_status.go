package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentStatusJob flips open posted documents past their due date to
// overdue. Paid and cancelled documents are never touched.
type PaymentStatusJob struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *Metrics
}

// NewPaymentStatusJob constructs the job.
func NewPaymentStatusJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *Metrics) *PaymentStatusJob {
	return &PaymentStatusJob{pool: pool, logger: logger, metrics: metrics}
}

// Handle processes TaskPaymentStatusRefresh tasks.
func (j *PaymentStatusJob) Handle(ctx context.Context, _ *asynq.Task) error {
	tracker := j.metrics.Track("payment_status_refresh")

	tag, err := j.pool.Exec(ctx, `UPDATE source_documents
		SET payment_status = 'overdue', updated_at = NOW()
		WHERE status = 'POSTED'
		  AND payment_status IN ('unpaid', 'partial')
		  AND due_date IS NOT NULL
		  AND due_date < NOW()
		  AND total_amount
		      - CASE WHEN doc_type = 'VENDOR_BILL' THEN wht_amount ELSE 0 END
		      - amount_paid > 0`)
	if err != nil {
		j.logger.Error("payment status refresh failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.logger.Info("payment status refresh complete", slog.Int64("updated", tag.RowsAffected()))
	return tracker.End(nil)
}
