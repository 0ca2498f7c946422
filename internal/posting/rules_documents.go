package posting

import (
	"context"
	"fmt"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// posSaleRule: debit receivable or cash for the total, credit revenue for
// the subtotal and tax payable for the tax portion.
type posSaleRule struct{}

func (posSaleRule) DocumentType() DocumentType { return DocTypePOSSale }

func (posSaleRule) ComputeLines(ctx context.Context, snap Snapshot, resolver AccountResolver) ([]ledger.LineInput, error) {
	if snap.TotalAmount <= 0 {
		return nil, fmt.Errorf("%w: sale total must be positive", shared.ErrValidation)
	}
	debitKey := KeyCash
	if snap.PaymentMethod == PaymentMethodCredit {
		debitKey = KeyReceivable
	}
	debitAccount, err := resolver.Resolve(ctx, string(DocTypePOSSale), debitKey)
	if err != nil {
		return nil, err
	}
	revenueAccount, err := resolver.Resolve(ctx, string(DocTypePOSSale), KeyRevenue)
	if err != nil {
		return nil, err
	}
	var b lineBuilder
	b.debit(debitAccount, snap.TotalAmount)
	b.credit(revenueAccount, snap.TotalAmount-snap.TaxAmount)
	if ledger.Round2(snap.TaxAmount) != 0 {
		taxAccount, err := resolver.Resolve(ctx, string(DocTypePOSSale), KeyTaxOutput)
		if err != nil {
			return nil, err
		}
		b.credit(taxAccount, snap.TaxAmount)
	}
	return b.build()
}

// customerInvoiceRule mirrors the POS sale mapping but always debits
// accounts receivable.
type customerInvoiceRule struct{}

func (customerInvoiceRule) DocumentType() DocumentType { return DocTypeCustomerInvoice }

func (customerInvoiceRule) ComputeLines(ctx context.Context, snap Snapshot, resolver AccountResolver) ([]ledger.LineInput, error) {
	if snap.TotalAmount <= 0 {
		return nil, fmt.Errorf("%w: invoice total must be positive", shared.ErrValidation)
	}
	arAccount, err := resolver.Resolve(ctx, string(DocTypeCustomerInvoice), KeyReceivable)
	if err != nil {
		return nil, err
	}
	revenueAccount, err := resolver.Resolve(ctx, string(DocTypeCustomerInvoice), KeyRevenue)
	if err != nil {
		return nil, err
	}
	var b lineBuilder
	b.debit(arAccount, snap.TotalAmount)
	b.credit(revenueAccount, snap.TotalAmount-snap.TaxAmount)
	if ledger.Round2(snap.TaxAmount) != 0 {
		taxAccount, err := resolver.Resolve(ctx, string(DocTypeCustomerInvoice), KeyTaxOutput)
		if err != nil {
			return nil, err
		}
		b.credit(taxAccount, snap.TaxAmount)
	}
	return b.build()
}

// deliveryNoteRule recognises cost of goods sold: debit COGS, credit
// inventory for the delivered cost.
type deliveryNoteRule struct{}

func (deliveryNoteRule) DocumentType() DocumentType { return DocTypeDeliveryNote }

func (deliveryNoteRule) ComputeLines(ctx context.Context, snap Snapshot, resolver AccountResolver) ([]ledger.LineInput, error) {
	if snap.COGSAmount <= 0 {
		return nil, fmt.Errorf("%w: delivery cost must be positive", shared.ErrValidation)
	}
	cogsAccount, err := resolver.Resolve(ctx, string(DocTypeDeliveryNote), KeyCOGS)
	if err != nil {
		return nil, err
	}
	inventoryAccount, err := resolver.Resolve(ctx, string(DocTypeDeliveryNote), KeyInventory)
	if err != nil {
		return nil, err
	}
	var b lineBuilder
	b.debit(cogsAccount, snap.COGSAmount)
	b.credit(inventoryAccount, snap.COGSAmount)
	return b.build()
}

// vendorBillRule: debit purchases for the subtotal and input tax for the tax
// portion; credit accounts payable net of withholding and the withholding
// liability separately. Payable is total minus WHT throughout the system.
type vendorBillRule struct{}

func (vendorBillRule) DocumentType() DocumentType { return DocTypeVendorBill }

func (vendorBillRule) ComputeLines(ctx context.Context, snap Snapshot, resolver AccountResolver) ([]ledger.LineInput, error) {
	if snap.TotalAmount <= 0 {
		return nil, fmt.Errorf("%w: bill total must be positive", shared.ErrValidation)
	}
	if snap.WHTAmount < 0 || snap.WHTAmount >= snap.TotalAmount {
		return nil, fmt.Errorf("%w: withholding must be below the bill total", shared.ErrValidation)
	}
	purchasesAccount, err := resolver.Resolve(ctx, string(DocTypeVendorBill), KeyPurchases)
	if err != nil {
		return nil, err
	}
	apAccount, err := resolver.Resolve(ctx, string(DocTypeVendorBill), KeyPayable)
	if err != nil {
		return nil, err
	}
	var b lineBuilder
	b.debit(purchasesAccount, snap.TotalAmount-snap.TaxAmount)
	if ledger.Round2(snap.TaxAmount) != 0 {
		taxAccount, err := resolver.Resolve(ctx, string(DocTypeVendorBill), KeyTaxInput)
		if err != nil {
			return nil, err
		}
		b.debit(taxAccount, snap.TaxAmount)
	}
	b.credit(apAccount, snap.TotalAmount-snap.WHTAmount)
	if ledger.Round2(snap.WHTAmount) != 0 {
		whtAccount, err := resolver.Resolve(ctx, string(DocTypeVendorBill), KeyWHTPayable)
		if err != nil {
			return nil, err
		}
		b.credit(whtAccount, snap.WHTAmount)
	}
	return b.build()
}

// paymentVoucherRule settles payables: debit accounts payable, credit cash.
type paymentVoucherRule struct{}

func (paymentVoucherRule) DocumentType() DocumentType { return DocTypePaymentVoucher }

func (paymentVoucherRule) ComputeLines(ctx context.Context, snap Snapshot, resolver AccountResolver) ([]ledger.LineInput, error) {
	if snap.TotalAmount <= 0 {
		return nil, fmt.Errorf("%w: payment amount must be positive", shared.ErrValidation)
	}
	apAccount, err := resolver.Resolve(ctx, string(DocTypePaymentVoucher), KeyPayable)
	if err != nil {
		return nil, err
	}
	cashAccount, err := resolver.Resolve(ctx, string(DocTypePaymentVoucher), KeyCash)
	if err != nil {
		return nil, err
	}
	var b lineBuilder
	b.debit(apAccount, snap.TotalAmount)
	b.credit(cashAccount, snap.TotalAmount)
	return b.build()
}

// receiptVoucherRule settles receivables: debit cash, credit accounts
// receivable.
type receiptVoucherRule struct{}

func (receiptVoucherRule) DocumentType() DocumentType { return DocTypeReceiptVoucher }

func (receiptVoucherRule) ComputeLines(ctx context.Context, snap Snapshot, resolver AccountResolver) ([]ledger.LineInput, error) {
	if snap.TotalAmount <= 0 {
		return nil, fmt.Errorf("%w: receipt amount must be positive", shared.ErrValidation)
	}
	cashAccount, err := resolver.Resolve(ctx, string(DocTypeReceiptVoucher), KeyCash)
	if err != nil {
		return nil, err
	}
	arAccount, err := resolver.Resolve(ctx, string(DocTypeReceiptVoucher), KeyReceivable)
	if err != nil {
		return nil, err
	}
	var b lineBuilder
	b.debit(cashAccount, snap.TotalAmount)
	b.credit(arAccount, snap.TotalAmount)
	return b.build()
}
