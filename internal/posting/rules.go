// Package posting maps source documents onto balanced journal line sets.
// Rules are pure: no I/O beyond account mapping lookups, deterministic, and
// balanced by construction. One rule per document type, selected through a
// typed dispatch table.
package posting

import (
	"context"
	"fmt"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// DocumentType enumerates the source documents the ledger understands.
type DocumentType string

const (
	DocTypePOSSale         DocumentType = "POS_SALE"
	DocTypeVendorBill      DocumentType = "VENDOR_BILL"
	DocTypeCustomerInvoice DocumentType = "CUSTOMER_INVOICE"
	DocTypeDeliveryNote    DocumentType = "DELIVERY_NOTE"
	DocTypePaymentVoucher  DocumentType = "PAYMENT_VOUCHER"
	DocTypeReceiptVoucher  DocumentType = "RECEIPT_VOUCHER"
)

// Account mapping keys. Configured per document type in account_mappings;
// rules fail closed when a key has no mapping.
const (
	KeyReceivable = "receivable"
	KeyPayable    = "payable"
	KeyCash       = "cash"
	KeyRevenue    = "revenue"
	KeyTaxOutput  = "tax.output"
	KeyTaxInput   = "tax.input"
	KeyWHTPayable = "wht.payable"
	KeyPurchases  = "purchases"
	KeyCOGS       = "cogs"
	KeyInventory  = "inventory"
)

// PaymentMethod selects the debit side of a POS sale.
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "CASH"
	PaymentMethodCredit PaymentMethod = "CREDIT"
)

// Snapshot carries the financial fields of a source document at posting time.
// It is a value copy; rules never reach back into document storage.
type Snapshot struct {
	Subtotal       float64
	DiscountAmount float64
	TaxAmount      float64
	WHTAmount      float64
	TotalAmount    float64
	COGSAmount     float64
	PaymentMethod  PaymentMethod
}

// AccountResolver resolves a mapping key to a ledger account id, failing
// with the missing-account error when the chart of accounts lacks the key.
type AccountResolver interface {
	Resolve(ctx context.Context, documentType, key string) (int64, error)
}

// Rule computes the journal line set for one document type.
type Rule interface {
	DocumentType() DocumentType
	ComputeLines(ctx context.Context, snap Snapshot, resolver AccountResolver) ([]ledger.LineInput, error)
}

// Engine dispatches snapshots to the rule registered for their document type.
type Engine struct {
	resolver AccountResolver
	rules    map[DocumentType]Rule
}

// NewEngine builds the engine with the default rule set.
func NewEngine(resolver AccountResolver) *Engine {
	e := &Engine{resolver: resolver, rules: make(map[DocumentType]Rule)}
	for _, rule := range []Rule{
		posSaleRule{},
		customerInvoiceRule{},
		deliveryNoteRule{},
		vendorBillRule{},
		paymentVoucherRule{},
		receiptVoucherRule{},
	} {
		e.rules[rule.DocumentType()] = rule
	}
	return e
}

// ComputeLines runs the matching rule and re-checks the invariants every
// rule must hold: no zero-value lines, debits equal credits.
func (e *Engine) ComputeLines(ctx context.Context, docType DocumentType, snap Snapshot) ([]ledger.LineInput, error) {
	rule, ok := e.rules[docType]
	if !ok {
		return nil, fmt.Errorf("%w: no posting rule for document type %q", shared.ErrValidation, docType)
	}
	lines, err := rule.ComputeLines(ctx, snap, e.resolver)
	if err != nil {
		return nil, err
	}
	if err := ledger.ValidateLines(lines); err != nil {
		return nil, err
	}
	if err := ledger.CheckBalanced(lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// lineBuilder accumulates lines, omitting zero amounts rather than emitting
// zero-value lines, and rejecting negatives outright.
type lineBuilder struct {
	lines []ledger.LineInput
	err   error
}

func (b *lineBuilder) debit(accountID int64, amount float64) {
	b.add(accountID, amount, 0)
}

func (b *lineBuilder) credit(accountID int64, amount float64) {
	b.add(accountID, 0, amount)
}

func (b *lineBuilder) add(accountID int64, debit, credit float64) {
	if b.err != nil {
		return
	}
	if debit < 0 || credit < 0 {
		b.err = fmt.Errorf("%w: negative posting amount", shared.ErrValidation)
		return
	}
	debit = ledger.Round2(debit)
	credit = ledger.Round2(credit)
	if debit == 0 && credit == 0 {
		return
	}
	b.lines = append(b.lines, ledger.LineInput{AccountID: accountID, Debit: debit, Credit: credit})
}

func (b *lineBuilder) build() ([]ledger.LineInput, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.lines, nil
}
