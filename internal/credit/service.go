// Package credit enforces customer credit limits before credit-bearing
// documents are approved, and again inside the posting transaction so a
// concurrent approval cannot slip past the gate.
package credit

import (
	"context"
	"fmt"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/parties"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RiskThresholdPercent flags customers whose utilization warrants review.
const RiskThresholdPercent = 70.0

// Decision is the outcome of a credit availability check.
type Decision struct {
	CanProceed bool    `json:"can_proceed"`
	Available  float64 `json:"available"`
	Reason     string  `json:"reason,omitempty"`
}

// Utilization exposes the credit position for risk monitoring reads.
type Utilization struct {
	CustomerID     int64   `json:"customer_id"`
	CreditLimit    float64 `json:"credit_limit"`
	CurrentBalance float64 `json:"current_balance"`
	Percent        float64 `json:"percent"`
	AtRisk         bool    `json:"at_risk"`
}

// CustomerPort abstracts customer reads.
type CustomerPort interface {
	GetCustomer(ctx context.Context, id int64) (parties.Customer, error)
}

// Service answers credit availability and utilization queries.
type Service struct {
	customers CustomerPort
}

// NewService constructs the credit control service.
func NewService(customers CustomerPort) *Service {
	return &Service{customers: customers}
}

// CheckAvailable reports whether the customer can take on additionalAmount of
// new credit exposure. canProceed is false iff balance + amount exceeds the
// limit.
func (s *Service) CheckAvailable(ctx context.Context, customerID int64, additionalAmount float64) (Decision, error) {
	if additionalAmount < 0 {
		return Decision{}, fmt.Errorf("%w: additional amount cannot be negative", shared.ErrValidation)
	}
	customer, err := s.customers.GetCustomer(ctx, customerID)
	if err != nil {
		return Decision{}, err
	}
	return Evaluate(customer, additionalAmount), nil
}

// Utilization computes the used share of the credit limit, flagged at the
// risk threshold.
func (s *Service) Utilization(ctx context.Context, customerID int64) (Utilization, error) {
	customer, err := s.customers.GetCustomer(ctx, customerID)
	if err != nil {
		return Utilization{}, err
	}
	u := Utilization{
		CustomerID:     customer.ID,
		CreditLimit:    customer.CreditLimit,
		CurrentBalance: customer.CurrentBalance,
	}
	if customer.CreditLimit > 0 {
		u.Percent = ledger.Round2(customer.CurrentBalance / customer.CreditLimit * 100)
	}
	u.AtRisk = u.Percent >= RiskThresholdPercent
	return u, nil
}

// Evaluate applies the credit gate to an already-loaded customer row. The
// orchestrator calls this with the row locked inside the posting transaction.
func Evaluate(customer parties.Customer, additionalAmount float64) Decision {
	available := ledger.Round2(customer.CreditLimit - customer.CurrentBalance)
	if additionalAmount <= available {
		return Decision{CanProceed: true, Available: available}
	}
	return Decision{
		CanProceed: false,
		Available:  available,
		Reason: fmt.Sprintf("requested %.2f exceeds available credit %.2f (limit %.2f, balance %.2f)",
			additionalAmount, available, customer.CreditLimit, customer.CurrentBalance),
	}
}

// Ensure returns the typed limit error when the gate rejects the amount.
func Ensure(customer parties.Customer, additionalAmount float64) error {
	decision := Evaluate(customer, additionalAmount)
	if decision.CanProceed {
		return nil
	}
	return &shared.CreditLimitError{
		CustomerID: customer.ID,
		Requested:  additionalAmount,
		Available:  decision.Available,
	}
}
