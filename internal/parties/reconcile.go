package parties

import (
	"context"
	"log/slog"
	"math"
)

// ReconcilerPort abstracts the repository reads and writes reconciliation needs.
type ReconcilerPort interface {
	ListCustomerIDs(ctx context.Context) ([]int64, error)
	ListVendorIDs(ctx context.Context) ([]int64, error)
	GetCustomer(ctx context.Context, id int64) (Customer, error)
	GetVendor(ctx context.Context, id int64) (Vendor, error)
	RecomputeCustomerBalance(ctx context.Context, customerID int64) (float64, error)
	RecomputeVendorBalance(ctx context.Context, vendorID int64) (float64, error)
	SetCustomerBalance(ctx context.Context, id int64, balance float64) error
	SetVendorBalance(ctx context.Context, id int64, balance float64) error
}

// Reconciler recomputes party balances from the document store and repairs
// drift in the cached columns. Drift means a defect elsewhere; repairs are
// logged loudly rather than silently absorbed.
type Reconciler struct {
	repo   ReconcilerPort
	logger *slog.Logger
}

// NewReconciler constructs the reconciler.
func NewReconciler(repo ReconcilerPort, logger *slog.Logger) *Reconciler {
	return &Reconciler{repo: repo, logger: logger}
}

// ReconcileAll walks every active party and repairs drifted balances,
// returning the drifts found.
func (r *Reconciler) ReconcileAll(ctx context.Context) ([]ReconcileResult, error) {
	var drifts []ReconcileResult
	customerIDs, err := r.repo.ListCustomerIDs(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range customerIDs {
		result, err := r.ReconcileCustomer(ctx, id)
		if err != nil {
			return drifts, err
		}
		if result.Repaired {
			drifts = append(drifts, result)
		}
	}
	vendorIDs, err := r.repo.ListVendorIDs(ctx)
	if err != nil {
		return drifts, err
	}
	for _, id := range vendorIDs {
		result, err := r.ReconcileVendor(ctx, id)
		if err != nil {
			return drifts, err
		}
		if result.Repaired {
			drifts = append(drifts, result)
		}
	}
	return drifts, nil
}

// ReconcileCustomer recomputes one customer balance and repairs drift.
func (r *Reconciler) ReconcileCustomer(ctx context.Context, id int64) (ReconcileResult, error) {
	customer, err := r.repo.GetCustomer(ctx, id)
	if err != nil {
		return ReconcileResult{}, err
	}
	computed, err := r.repo.RecomputeCustomerBalance(ctx, id)
	if err != nil {
		return ReconcileResult{}, err
	}
	result := ReconcileResult{PartyType: PartyTypeCustomer, PartyID: id, Cached: customer.CurrentBalance, Computed: computed}
	if !equalCents(customer.CurrentBalance, computed) {
		if r.logger != nil {
			r.logger.Warn("customer balance drift repaired",
				slog.Int64("customer_id", id),
				slog.Float64("cached", customer.CurrentBalance),
				slog.Float64("computed", computed))
		}
		if err := r.repo.SetCustomerBalance(ctx, id, computed); err != nil {
			return result, err
		}
		result.Repaired = true
	}
	return result, nil
}

// ReconcileVendor recomputes one vendor balance and repairs drift.
func (r *Reconciler) ReconcileVendor(ctx context.Context, id int64) (ReconcileResult, error) {
	vendor, err := r.repo.GetVendor(ctx, id)
	if err != nil {
		return ReconcileResult{}, err
	}
	computed, err := r.repo.RecomputeVendorBalance(ctx, id)
	if err != nil {
		return ReconcileResult{}, err
	}
	result := ReconcileResult{PartyType: PartyTypeVendor, PartyID: id, Cached: vendor.CurrentBalance, Computed: computed}
	if !equalCents(vendor.CurrentBalance, computed) {
		if r.logger != nil {
			r.logger.Warn("vendor balance drift repaired",
				slog.Int64("vendor_id", id),
				slog.Float64("cached", vendor.CurrentBalance),
				slog.Float64("computed", computed))
		}
		if err := r.repo.SetVendorBalance(ctx, id, computed); err != nil {
			return result, err
		}
		result.Repaired = true
	}
	return result, nil
}

func equalCents(a, b float64) bool {
	return math.Round(a*100) == math.Round(b*100)
}
