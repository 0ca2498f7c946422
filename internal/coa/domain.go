package coa

import (
	"errors"
	"time"
)

// AccountType enumerates chart of accounts categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// Account models a chart of accounts node. CurrentBalance equals
// OpeningBalance plus the signed sum of all posted lines against the account.
// Accounts are never deleted, only deactivated.
type Account struct {
	ID             int64       `json:"id"`
	Code           string      `json:"code"`
	Name           string      `json:"name"`
	Type           AccountType `json:"type"`
	OpeningBalance float64     `json:"opening_balance"`
	CurrentBalance float64     `json:"current_balance"`
	IsActive       bool        `json:"is_active"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// SignedDelta converts a debit/credit pair into the signed balance movement
// for the account type: debits increase ASSET and EXPENSE accounts and
// decrease the rest, credits mirror.
func SignedDelta(t AccountType, debit, credit float64) float64 {
	if t == AccountTypeAsset || t == AccountTypeExpense {
		return debit - credit
	}
	return credit - debit
}

// AccountMapping links a posting rule key to a ledger account. Posting rules
// resolve accounts exclusively through mappings, never hard-coded ids.
type AccountMapping struct {
	DocumentType string    `json:"document_type"`
	Key          string    `json:"key"`
	AccountID    int64     `json:"account_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

var (
	// ErrAccountNotFound indicates a missing chart of accounts entry.
	ErrAccountNotFound = errors.New("coa: account not found")
	// ErrDuplicateCode indicates the account code is already taken.
	ErrDuplicateCode = errors.New("coa: account code already exists")
	// ErrAccountInactive indicates the account has been deactivated.
	ErrAccountInactive = errors.New("coa: account is inactive")
)
