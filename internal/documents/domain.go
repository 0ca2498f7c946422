package documents

import (
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/posting"
)

// Status enumerates the document lifecycle. POSTED is terminal success;
// CANCELLED is terminal and, for already-posted documents, implies a
// reversing journal entry.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusApproved  Status = "APPROVED"
	StatusPosted    Status = "POSTED"
	StatusCancelled Status = "CANCELLED"
)

// CanTransition reports whether the lifecycle permits from -> to.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusDraft:
		return to == StatusApproved || to == StatusCancelled
	case StatusApproved:
		return to == StatusPosted || to == StatusCancelled
	case StatusPosted:
		return to == StatusCancelled
	}
	return false
}

// PaymentStatus is derived from amount paid versus total plus the due date.
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusOverdue PaymentStatus = "overdue"
)

// DerivePaymentStatus computes the payment status at a point in time.
// Anything still owing past the due date is overdue.
func DerivePaymentStatus(amountPaid, totalAmount float64, dueDate time.Time, now time.Time) PaymentStatus {
	remaining := ledger.Round2(totalAmount - amountPaid)
	if remaining <= 0 {
		return PaymentStatusPaid
	}
	if !dueDate.IsZero() && now.After(dueDate) {
		return PaymentStatusOverdue
	}
	if amountPaid > 0 {
		return PaymentStatusPartial
	}
	return PaymentStatusUnpaid
}

// Line is one product line of a source document. UnitCost is filled at post
// time for stock-consuming documents so cancellation can restore stock at
// the cost it left with.
type Line struct {
	ID         int64
	DocumentID int64
	ProductID  int64
	Qty        float64
	UnitPrice  float64
	UnitCost   float64
}

// Document is the shared aggregate for every source document type. Exactly
// one of CustomerID/VendorID is set depending on the type. PublicID is the
// stable reference the ledger links against.
type Document struct {
	ID             int64
	PublicID       uuid.UUID
	DocType        posting.DocumentType
	Number         string
	CustomerID     *int64
	VendorID       *int64
	WarehouseID    *int64
	AppliesToID    *int64
	DocDate        time.Time
	DueDate        time.Time
	Subtotal       float64
	DiscountAmount float64
	TaxAmount      float64
	WHTAmount      float64
	TotalAmount    float64
	AmountPaid     float64
	PaymentMethod  posting.PaymentMethod
	Status         Status
	PaymentStatus  PaymentStatus
	EntryID        *int64
	CreatedBy      int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Lines          []Line
}

// SettlementAmount is what the counterparty must actually pay. Withheld tax
// on vendor bills is remitted to the authority, not the vendor, so it never
// falls due from them.
func (d Document) SettlementAmount() float64 {
	if d.DocType == posting.DocTypeVendorBill {
		return ledger.Round2(d.TotalAmount - d.WHTAmount)
	}
	return d.TotalAmount
}

// RemainingDue returns the unpaid share of the settlement amount.
func (d Document) RemainingDue() float64 {
	return ledger.Round2(d.SettlementAmount() - d.AmountPaid)
}

// CreditBearing reports whether posting this document increases a customer's
// credit exposure and therefore passes through credit control.
func (d Document) CreditBearing() bool {
	switch d.DocType {
	case posting.DocTypeCustomerInvoice:
		return true
	case posting.DocTypePOSSale:
		return d.PaymentMethod == posting.PaymentMethodCredit
	}
	return false
}

// MovesStock reports whether posting adjusts inventory quantities.
func (d Document) MovesStock() bool {
	switch d.DocType {
	case posting.DocTypeDeliveryNote, posting.DocTypePOSSale, posting.DocTypeVendorBill:
		return d.WarehouseID != nil && len(d.Lines) > 0
	}
	return false
}

// Snapshot extracts the financial fields the posting rules consume.
func (d Document) Snapshot() posting.Snapshot {
	return posting.Snapshot{
		Subtotal:       d.Subtotal,
		DiscountAmount: d.DiscountAmount,
		TaxAmount:      d.TaxAmount,
		WHTAmount:      d.WHTAmount,
		TotalAmount:    d.TotalAmount,
		PaymentMethod:  d.PaymentMethod,
	}
}
