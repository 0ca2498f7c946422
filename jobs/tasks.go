// Package jobs contains the background workers: nightly party balance
// reconciliation, ledger integrity verification and payment status refresh.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBalancesReconcile recomputes cached party balances from documents.
	TaskBalancesReconcile = "balances:reconcile"
	// TaskLedgerIntegrity verifies cached account balances against posted lines.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskPaymentStatusRefresh re-derives overdue flags on open documents.
	TaskPaymentStatusRefresh = "documents:payment_status"
)

// BalancesReconcilePayload scopes a reconciliation run.
type BalancesReconcilePayload struct {
	Scope string `json:"scope"` // "customers", "vendors" or "all"
}

// NewBalancesReconcileTask constructs the reconciliation task.
func NewBalancesReconcileTask(scope string) (*asynq.Task, error) {
	if scope == "" {
		scope = "all"
	}
	data, err := json.Marshal(BalancesReconcilePayload{Scope: scope})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBalancesReconcile, data), nil
}

// NewLedgerIntegrityTask constructs the integrity verification task.
func NewLedgerIntegrityTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskLedgerIntegrity, nil), nil
}

// NewPaymentStatusRefreshTask constructs the payment status refresh task.
func NewPaymentStatusRefreshTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskPaymentStatusRefresh, nil), nil
}
