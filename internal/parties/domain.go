// Package parties holds customers and vendors together with their running
// receivable/payable balances. The balance columns are a materialized view
// of the ledger: they are mutated only inside posting transactions and can
// always be reproduced by recomputation.
package parties

import (
	"errors"
	"time"
)

// PartyType distinguishes receivable from payable parties.
type PartyType string

const (
	PartyTypeCustomer PartyType = "CUSTOMER"
	PartyTypeVendor   PartyType = "VENDOR"
)

// Customer carries the credit limit enforced by credit control and the
// running receivable balance.
type Customer struct {
	ID             int64     `json:"id"`
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	CreditLimit    float64   `json:"credit_limit"`
	CurrentBalance float64   `json:"current_balance"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Vendor carries the running payable balance.
type Vendor struct {
	ID             int64     `json:"id"`
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	CurrentBalance float64   `json:"current_balance"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ReconcileResult reports the outcome of one balance recomputation.
type ReconcileResult struct {
	PartyType PartyType `json:"party_type"`
	PartyID   int64     `json:"party_id"`
	Cached    float64   `json:"cached"`
	Computed  float64   `json:"computed"`
	Repaired  bool      `json:"repaired"`
}

var (
	// ErrCustomerNotFound indicates a missing customer.
	ErrCustomerNotFound = errors.New("parties: customer not found")
	// ErrVendorNotFound indicates a missing vendor.
	ErrVendorNotFound = errors.New("parties: vendor not found")
)
