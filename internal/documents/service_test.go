package documents

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/coa"
	"github.com/meridian-erp/meridian-erp/internal/credit"
	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/parties"
	"github.com/meridian-erp/meridian-erp/internal/posting"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	_ "github.com/meridian-erp/meridian-erp/testing"
)

// ============================================================================
// IN-MEMORY WORLD
//
// One struct backs every port the orchestrator touches so a test can assert
// the combined effect of a posting: document row, journal entry, account
// balances, party balances, and stock.
// ============================================================================

const (
	tAccCash      int64 = 1
	tAccBank      int64 = 2
	tAccAR        int64 = 3
	tAccInventory int64 = 4
	tAccTaxInput  int64 = 5
	tAccAP        int64 = 6
	tAccTaxOutput int64 = 7
	tAccWHT       int64 = 8
	tAccRevenue   int64 = 9
	tAccCOGS      int64 = 10
	tAccPurchases int64 = 11
)

type stockEntry struct {
	qty     float64
	avgCost float64
}

type ledgerAccount struct {
	accType coa.AccountType
	balance float64
}

type world struct {
	docs      map[int64]*Document
	nextDocID int64
	nextLine  int64

	customers map[int64]*parties.Customer
	vendors   map[int64]*parties.Vendor

	stock     map[string]*stockEntry
	movements []inventory.Movement

	entries     map[int64]*ledger.JournalEntry
	entryLines  map[int64][]ledger.JournalLine
	refs        map[string]int64
	accounts    map[int64]*ledgerAccount
	nextEntryID int64
	nextNumber  int64

	bumps    int
	bumpErr  error
	audits   []shared.AuditLog
	postings []string
}

func newWorld() *world {
	w := &world{
		docs:        make(map[int64]*Document),
		nextDocID:   1,
		nextLine:    1,
		customers:   make(map[int64]*parties.Customer),
		vendors:     make(map[int64]*parties.Vendor),
		stock:       make(map[string]*stockEntry),
		entries:     make(map[int64]*ledger.JournalEntry),
		entryLines:  make(map[int64][]ledger.JournalLine),
		refs:        make(map[string]int64),
		accounts:    make(map[int64]*ledgerAccount),
		nextEntryID: 1,
		nextNumber:  1000,
	}
	for id, accType := range map[int64]coa.AccountType{
		tAccCash: coa.AccountTypeAsset, tAccBank: coa.AccountTypeAsset,
		tAccAR: coa.AccountTypeAsset, tAccInventory: coa.AccountTypeAsset,
		tAccTaxInput: coa.AccountTypeAsset, tAccAP: coa.AccountTypeLiability,
		tAccTaxOutput: coa.AccountTypeLiability, tAccWHT: coa.AccountTypeLiability,
		tAccRevenue: coa.AccountTypeRevenue, tAccCOGS: coa.AccountTypeExpense,
		tAccPurchases: coa.AccountTypeExpense,
	} {
		w.accounts[id] = &ledgerAccount{accType: accType}
	}
	w.customers[1] = &parties.Customer{ID: 1, Code: "CUST-0001", Name: "Harbor Street Retail", CreditLimit: 10000, IsActive: true}
	w.customers[2] = &parties.Customer{ID: 2, Code: "CUST-0002", Name: "Tight Limit Trading", CreditLimit: 500, IsActive: true}
	w.vendors[1] = &parties.Vendor{ID: 1, Code: "VEND-0001", Name: "Summit Supply Co", IsActive: true}
	w.stock["1|101"] = &stockEntry{qty: 100, avgCost: 40}
	w.stock["1|102"] = &stockEntry{qty: 50, avgCost: 10}
	return w
}

func stockKey(warehouseID, productID int64) string {
	return fmt.Sprintf("%d|%d", warehouseID, productID)
}

func (w *world) accountBalance(id int64) float64 { return w.accounts[id].balance }

// --- documents RepositoryPort / TxRepository ---

func (w *world) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, w)
}

func (w *world) Get(ctx context.Context, id int64) (Document, error) {
	return w.GetForUpdate(ctx, id)
}

func (w *world) GetForUpdate(ctx context.Context, id int64) (Document, error) {
	doc, ok := w.docs[id]
	if !ok {
		return Document{}, shared.ErrNotFound
	}
	out := *doc
	out.Lines = append([]Line(nil), doc.Lines...)
	return out, nil
}

func (w *world) Insert(ctx context.Context, doc Document) (Document, error) {
	doc.ID = w.nextDocID
	w.nextDocID++
	for i := range doc.Lines {
		doc.Lines[i].ID = w.nextLine
		doc.Lines[i].DocumentID = doc.ID
		w.nextLine++
	}
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = doc.CreatedAt
	stored := doc
	w.docs[doc.ID] = &stored
	return doc, nil
}

func (w *world) UpdateStatus(ctx context.Context, id int64, status Status, entryID *int64, payStatus PaymentStatus) error {
	doc, ok := w.docs[id]
	if !ok {
		return shared.ErrNotFound
	}
	doc.Status = status
	doc.EntryID = entryID
	doc.PaymentStatus = payStatus
	return nil
}

func (w *world) UpdateLineUnitCost(ctx context.Context, lineID int64, unitCost float64) error {
	for _, doc := range w.docs {
		for i := range doc.Lines {
			if doc.Lines[i].ID == lineID {
				doc.Lines[i].UnitCost = unitCost
				return nil
			}
		}
	}
	return shared.ErrNotFound
}

func (w *world) AddToAmountPaid(ctx context.Context, id int64, delta float64, payStatus PaymentStatus) error {
	doc, ok := w.docs[id]
	if !ok {
		return shared.ErrNotFound
	}
	doc.AmountPaid = ledger.Round2(doc.AmountPaid + delta)
	doc.PaymentStatus = payStatus
	return nil
}

func (w *world) Ledger() ledger.TxRepository  { return (*worldLedger)(w) }
func (w *world) Parties() parties.TxStore     { return (*worldParties)(w) }
func (w *world) Inventory() inventory.TxStore { return (*worldStock)(w) }

// --- ledger.TxRepository ---

type worldLedger world

func (l *worldLedger) InsertEntry(ctx context.Context, in ledger.EntryInput, status ledger.EntryStatus) (ledger.JournalEntry, error) {
	entry := ledger.JournalEntry{
		ID: l.nextEntryID, Number: l.nextNumber, Date: in.Date, Type: in.Type, Status: status,
		ReferenceType: in.ReferenceType, ReferenceID: in.ReferenceID, Memo: in.Memo, PostedBy: in.PostedBy,
	}
	l.nextEntryID++
	l.nextNumber++
	l.entries[entry.ID] = &entry
	return entry, nil
}

func (l *worldLedger) InsertLines(ctx context.Context, entryID int64, lines []ledger.LineInput) error {
	for _, line := range lines {
		l.entryLines[entryID] = append(l.entryLines[entryID], ledger.JournalLine{
			EntryID: entryID, AccountID: line.AccountID, Debit: line.Debit, Credit: line.Credit,
		})
	}
	return nil
}

func (l *worldLedger) LinkReference(ctx context.Context, refType string, refID uuid.UUID, entryID int64) error {
	key := refType + "|" + refID.String()
	if _, exists := l.refs[key]; exists {
		return ledger.ErrReferenceConflict
	}
	l.refs[key] = entryID
	return nil
}

func (l *worldLedger) GetEntryWithLines(ctx context.Context, entryID int64) (ledger.JournalEntry, error) {
	entry, ok := l.entries[entryID]
	if !ok {
		return ledger.JournalEntry{}, shared.ErrNotFound
	}
	out := *entry
	out.Lines = append([]ledger.JournalLine(nil), l.entryLines[entryID]...)
	return out, nil
}

func (l *worldLedger) GetEntryByReference(ctx context.Context, refType string, refID uuid.UUID) (ledger.JournalEntry, error) {
	entryID, ok := l.refs[refType+"|"+refID.String()]
	if !ok {
		return ledger.JournalEntry{}, shared.ErrNotFound
	}
	return l.GetEntryWithLines(ctx, entryID)
}

func (l *worldLedger) MarkPosted(ctx context.Context, entryID int64, totalDebit, totalCredit float64, at time.Time) error {
	entry, ok := l.entries[entryID]
	if !ok {
		return shared.ErrNotFound
	}
	entry.Status = ledger.EntryStatusPosted
	entry.TotalDebit = totalDebit
	entry.TotalCredit = totalCredit
	entry.PostedAt = &at
	return nil
}

func (l *worldLedger) LockAccounts(ctx context.Context, ids []int64) ([]ledger.AccountRef, error) {
	refs := make([]ledger.AccountRef, 0, len(ids))
	for _, id := range ids {
		if acc, ok := l.accounts[id]; ok {
			refs = append(refs, ledger.AccountRef{ID: id, Type: acc.accType})
		}
	}
	return refs, nil
}

func (l *worldLedger) AddToAccountBalance(ctx context.Context, accountID int64, delta float64) error {
	acc, ok := l.accounts[accountID]
	if !ok {
		return shared.ErrNotFound
	}
	acc.balance = ledger.Round2(acc.balance + delta)
	return nil
}

// --- parties.TxStore ---

type worldParties world

func (p *worldParties) LockCustomer(ctx context.Context, id int64) (parties.Customer, error) {
	c, ok := p.customers[id]
	if !ok {
		return parties.Customer{}, shared.ErrNotFound
	}
	return *c, nil
}

func (p *worldParties) LockVendor(ctx context.Context, id int64) (parties.Vendor, error) {
	v, ok := p.vendors[id]
	if !ok {
		return parties.Vendor{}, shared.ErrNotFound
	}
	return *v, nil
}

func (p *worldParties) AddToCustomerBalance(ctx context.Context, id int64, delta float64) error {
	c, ok := p.customers[id]
	if !ok {
		return shared.ErrNotFound
	}
	c.CurrentBalance = ledger.Round2(c.CurrentBalance + delta)
	return nil
}

func (p *worldParties) AddToVendorBalance(ctx context.Context, id int64, delta float64) error {
	v, ok := p.vendors[id]
	if !ok {
		return shared.ErrNotFound
	}
	v.CurrentBalance = ledger.Round2(v.CurrentBalance + delta)
	return nil
}

// --- inventory.TxStore ---

type worldStock world

func (s *worldStock) Receive(ctx context.Context, move inventory.Movement) error {
	if move.Qty <= 0 {
		return inventory.ErrInvalidQuantity
	}
	key := stockKey(move.WarehouseID, move.ProductID)
	bal, ok := s.stock[key]
	if !ok {
		bal = &stockEntry{}
		s.stock[key] = bal
	}
	held := bal.qty
	if held < 0 {
		held = 0
	}
	if held+move.Qty > 0 {
		bal.avgCost = (held*bal.avgCost + move.Qty*move.UnitCost) / (held + move.Qty)
	} else {
		bal.avgCost = move.UnitCost
	}
	bal.qty += move.Qty
	s.movements = append(s.movements, move)
	return nil
}

func (s *worldStock) Consume(ctx context.Context, move inventory.Movement) (float64, error) {
	if move.Qty <= 0 {
		return 0, inventory.ErrInvalidQuantity
	}
	bal, ok := s.stock[stockKey(move.WarehouseID, move.ProductID)]
	if !ok || bal.qty-move.Qty < 0 {
		return 0, inventory.ErrInsufficientStock
	}
	bal.qty -= move.Qty
	move.Qty = -move.Qty
	move.UnitCost = bal.avgCost
	s.movements = append(s.movements, move)
	return bal.avgCost, nil
}

// --- remaining ports ---

func (w *world) GetCustomer(ctx context.Context, id int64) (parties.Customer, error) {
	c, ok := w.customers[id]
	if !ok {
		return parties.Customer{}, shared.ErrNotFound
	}
	return *c, nil
}

func (w *world) Record(ctx context.Context, log shared.AuditLog) error {
	w.audits = append(w.audits, log)
	return nil
}

func (w *world) ObservePosting(docType, outcome string) {
	w.postings = append(w.postings, docType+"/"+outcome)
}

func (w *world) Bump(ctx context.Context) error {
	if w.bumpErr != nil {
		return w.bumpErr
	}
	w.bumps++
	return nil
}

type staticResolver map[string]int64

func (r staticResolver) Resolve(ctx context.Context, documentType, key string) (int64, error) {
	id, ok := r[documentType+"/"+key]
	if !ok {
		return 0, &shared.MissingAccountError{DocumentType: documentType, Key: key}
	}
	return id, nil
}

func testResolver() staticResolver {
	return staticResolver{
		"POS_SALE/cash":               tAccCash,
		"POS_SALE/receivable":         tAccAR,
		"POS_SALE/revenue":            tAccRevenue,
		"POS_SALE/tax.output":         tAccTaxOutput,
		"CUSTOMER_INVOICE/receivable": tAccAR,
		"CUSTOMER_INVOICE/revenue":    tAccRevenue,
		"CUSTOMER_INVOICE/tax.output": tAccTaxOutput,
		"DELIVERY_NOTE/cogs":          tAccCOGS,
		"DELIVERY_NOTE/inventory":     tAccInventory,
		"VENDOR_BILL/purchases":       tAccPurchases,
		"VENDOR_BILL/payable":         tAccAP,
		"VENDOR_BILL/tax.input":       tAccTaxInput,
		"VENDOR_BILL/wht.payable":     tAccWHT,
		"PAYMENT_VOUCHER/payable":     tAccAP,
		"PAYMENT_VOUCHER/cash":        tAccBank,
		"RECEIPT_VOUCHER/cash":        tAccBank,
		"RECEIPT_VOUCHER/receivable":  tAccAR,
	}
}

var testClock = func() time.Time { return time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC) }

func newOrchestrator(w *world) *Service {
	ledgerSvc := ledger.NewService(nil, nil)
	ledgerSvc.WithNow(testClock)
	engine := posting.NewEngine(testResolver())
	creditSvc := credit.NewService(w)
	svc := NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), w, ledgerSvc, engine, creditSvc, w, w, w)
	svc.WithNow(testClock)
	return svc
}

func ptrInt64(v int64) *int64 { return &v }

func creditSale(customerID int64, total float64) SubmitInput {
	warehouse := int64(1)
	return SubmitInput{
		DocType:       posting.DocTypePOSSale,
		CustomerID:    ptrInt64(customerID),
		WarehouseID:   &warehouse,
		DocDate:       time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		DueDate:       time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC),
		Subtotal:      total / 1.18,
		TaxAmount:     total - total/1.18,
		TotalAmount:   total,
		PaymentMethod: posting.PaymentMethodCredit,
		CreatedBy:     42,
		Lines:         []LineInput{{ProductID: 101, Qty: 2, UnitPrice: total / 2}},
	}
}

func mustPost(t *testing.T, svc *Service, input SubmitInput) PostResult {
	t.Helper()
	ctx := context.Background()
	doc, err := svc.Submit(ctx, input)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, doc.ID, 42)
	require.NoError(t, err)
	result, err := svc.Post(ctx, doc.ID, 42)
	require.NoError(t, err)
	return result
}

// ============================================================================
// TESTS
// ============================================================================

func TestPostCreditSalePipeline(t *testing.T) {
	w := newWorld()
	svc := newOrchestrator(w)

	result := mustPost(t, svc, creditSale(1, 590))

	assert.False(t, result.AlreadyPosted)
	assert.Equal(t, StatusPosted, result.Document.Status)
	assert.Equal(t, PaymentStatusUnpaid, result.Document.PaymentStatus)
	require.NotNil(t, result.Document.EntryID)
	assert.Equal(t, result.Entry.ID, *result.Document.EntryID)

	// Journal entry: AR debited for the full total.
	assert.Equal(t, ledger.EntryStatusPosted, result.Entry.Status)
	assert.Equal(t, 590.0, result.Entry.TotalDebit)
	assert.Equal(t, 590.0, w.accountBalance(tAccAR))

	// Customer exposure grows by the document total.
	assert.Equal(t, 590.0, w.customers[1].CurrentBalance)

	// Two units left the shelf.
	assert.Equal(t, 98.0, w.stock["1|101"].qty)

	assert.Equal(t, 1, w.bumps)
	assert.Contains(t, w.postings, "POS_SALE/posted")

	actions := make([]string, 0, len(w.audits))
	for _, a := range w.audits {
		actions = append(actions, a.Action)
	}
	assert.Equal(t, []string{"document.submit", "document.approve", "document.post"}, actions)
}

func TestPostCashSaleMarksPaid(t *testing.T) {
	w := newWorld()
	svc := newOrchestrator(w)

	input := creditSale(1, 590)
	input.PaymentMethod = posting.PaymentMethodCash
	result := mustPost(t, svc, input)

	assert.Equal(t, PaymentStatusPaid, result.Document.PaymentStatus)
	assert.Equal(t, 590.0, result.Document.AmountPaid)

	// Cash sales do not add credit exposure.
	assert.Zero(t, w.customers[1].CurrentBalance)
	assert.Equal(t, 590.0, w.accountBalance(tAccCash))
}

func TestPostIsIdempotent(t *testing.T) {
	w := newWorld()
	svc := newOrchestrator(w)
	ctx := context.Background()

	first := mustPost(t, svc, creditSale(1, 590))

	replay, err := svc.Post(ctx, first.Document.ID, 42)
	require.NoError(t, err)
	assert.True(t, replay.AlreadyPosted)
	assert.Equal(t, first.Entry.ID, replay.Entry.ID)

	// Effects applied exactly once.
	assert.Equal(t, 590.0, w.customers[1].CurrentBalance)
	assert.Equal(t, 98.0, w.stock["1|101"].qty)
	assert.Equal(t, 1, w.bumps)
	assert.Contains(t, w.postings, "POS_SALE/duplicate")
}

func TestApproveRejectsOverLimit(t *testing.T) {
	w := newWorld()
	svc := newOrchestrator(w)
	ctx := context.Background()

	// Customer 2's limit is 500; a 590 credit sale cannot be approved.
	doc, err := svc.Submit(ctx, creditSale(2, 590))
	require.NoError(t, err)

	_, err = svc.Approve(ctx, doc.ID, 42)
	require.ErrorIs(t, err, shared.ErrCreditLimitExceeded)

	var limit *shared.CreditLimitError
	require.ErrorAs(t, err, &limit)
	assert.Equal(t, int64(2), limit.CustomerID)
	assert.Equal(t, 590.0, limit.Requested)
	assert.Equal(t, 500.0, limit.Available)

	got, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, got.Status)
}

func TestPostReappliesCreditGate(t *testing.T) {
	w := newWorld()
	svc := newOrchestrator(w)
	ctx := context.Background()

	doc, err := svc.Submit(ctx, creditSale(1, 590))
	require.NoError(t, err)
	_, err = svc.Approve(ctx, doc.ID, 42)
	require.NoError(t, err)

	// Exposure grew between approval and posting.
	w.customers[1].CurrentBalance = 9800

	_, err = svc.Post(ctx, doc.ID, 42)
	require.ErrorIs(t, err, shared.ErrCreditLimitExceeded)

	// Nothing committed.
	got, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)
	assert.Equal(t, 100.0, w.stock["1|101"].qty)
	assert.Zero(t, w.accountBalance(tAccAR))
	assert.Contains(t, w.postings, "/error")
}

func TestPostDraftRejected(t *testing.T) {
	w := newWorld()
	svc := newOrchestrator(w)
	ctx := context.Background()

	doc, err := svc.Submit(ctx, creditSale(1, 590))
	require.NoError(t, err)

	_, err = svc.Post(ctx, doc.ID, 42)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestVendorBillReceivesStock(t *testing.T) {
	w := newWorld()
	svc := newOrchestrator(w)
	warehouse := int64(1)

	result := mustPost(t, svc, SubmitInput{
		DocType:     posting.DocTypeVendorBill,
		VendorID:    ptrInt64(1),
		WarehouseID: &warehouse,
		DocDate:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		DueDate:     time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		Subtotal:    2000,
		TaxAmount:   220,
		WHTAmount:   44,
		TotalAmount: 2220,
		CreatedBy:   42,
		Lines:       []LineInput{{ProductID: 101, Qty: 20, UnitPrice: 100}},
	})

	// Stock grew and the moving average folded in the new cost:
	// (100*40 + 20*100) / 120 = 50.
	bal := w.stock["1|101"]
	assert.Equal(t, 120.0, bal.qty)
	assert.InDelta(t, 50.0, bal.avgCost, 0.0001)

	// Vendor is owed total minus withholding.
	assert.Equal(t, 2176.0, w.vendors[1].CurrentBalance)
	assert.Equal(t, 2176.0, w.accountBalance(tAccAP))
	assert.Equal(t, 44.0, w.accountBalance(tAccWHT))

	// The receipt cost is recorded on the line for cancellation.
	stored, err := svc.Get(context.Background(), result.Document.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, stored.Lines[0].UnitCost)
}

func TestDeliveryNotePostsCOGSAtAverage(t *testing.T) {
	w := newWorld()
	svc := newOrchestrator(w)
	warehouse := int64(1)

	result := mustPost(t, svc, SubmitInput{
		DocType:     posting.DocTypeDeliveryNote,
		CustomerID:  ptrInt64(1),
		WarehouseID: &warehouse,
		DocDate:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		TotalAmount: 900,
		CreatedBy:   42,
		Lines: []LineInput{
			{ProductID: 101, Qty: 5, UnitPrice: 90},
			{ProductID: 102, Qty: 10, UnitPrice: 18},
		},
	})

	// COGS = 5*40 + 10*10 at the stored moving averages.
	assert.Equal(t, 300.0, result.Entry.TotalDebit)
	assert.Equal(t, 300.0, w.accountBalance(tAccCOGS))
	assert.Equal(t, -300.0, w.accountBalance(tAccInventory))
	assert.Equal(t, 95.0, w.stock["1|101"].qty)
	assert.Equal(t, 40.0, w.stock["1|102"].qty)
}

func TestPostInsufficientStockFails(t *testing.T) {
	w := newWorld()
	svc := newOrchestrator(w)

	input := creditSale(1, 590)
	input.Lines = []LineInput{{ProductID: 101, Qty: 500, UnitPrice: 1.18}}

	ctx := context.Background()
	doc, err := svc.Submit(ctx, input)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, doc.ID, 42)
	require.NoError(t, err)

	_, err = svc.Post(ctx, doc.ID, 42)
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	got, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)
}

func TestReceiptVoucherSettlesInvoice(t *testing.T) {
	w := newWorld()
	svc := newOrchestrator(w)
	ctx := context.Background()

	invoice := mustPost(t, svc, SubmitInput{
		DocType:     posting.DocTypeCustomerInvoice,
		CustomerID:  ptrInt64(1),
		DocDate:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		DueDate:     time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC),
		Subtotal:    1000,
		TaxAmount:   110,
		TotalAmount: 1110,
		CreatedBy:   42,
	})
	require.Equal(t, 1110.0, w.customers[1].CurrentBalance)

	receipt := mustPost(t, svc, SubmitInput{
		DocType:     posting.DocTypeReceiptVoucher,
		CustomerID:  ptrInt64(1),
		AppliesToID: ptrInt64(invoice.Document.ID),
		DocDate:     time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC),
		TotalAmount: 1110,
		CreatedBy:   42,
	})

	// Voucher itself is settled by definition.
	assert.Equal(t, PaymentStatusPaid, receipt.Document.PaymentStatus)

	// The invoice is fully collected and the exposure released.
	settled, err := svc.Get(ctx, invoice.Document.ID)
	require.NoError(t, err)
	assert.Equal(t, 1110.0, settled.AmountPaid)
	assert.Equal(t, PaymentStatusPaid, settled.PaymentStatus)
	assert.Zero(t, w.customers[1].CurrentBalance)

	// Cash in, receivable out.
	assert.Equal(t, 1110.0, w.accountBalance(tAccBank))
	assert.Zero(t, w.accountBalance(tAccAR))
}

func TestVoucherOverAllocationRejected(t *testing.T) {
	w := newWorld()
	svc := newOrchestrator(w)
	ctx := context.Background()

	invoice := mustPost(t, svc, SubmitInput{
		DocType:     posting.DocTypeCustomerInvoice,
		CustomerID:  ptrInt64(1),
		DocDate:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Subtotal:    100,
		TotalAmount: 100,
		CreatedBy:   42,
	})

	doc, err := svc.Submit(ctx, SubmitInput{
		DocType:     posting.DocTypeReceiptVoucher,
		CustomerID:  ptrInt64(1),
		AppliesToID: ptrInt64(invoice.Document.ID),
		DocDate:     time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC),
		TotalAmount: 150,
		CreatedBy:   42,
	})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, doc.ID, 42)
	require.NoError(t, err)

	_, err = svc.Post(ctx, doc.ID, 42)
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Contains(t, err.Error(), "exceeds remaining due")
}

func TestVoucherAgainstUnpostedTargetRejected(t *testing.T) {
	w := newWorld()
	svc := newOrchestrator(w)
	ctx := context.Background()

	draft, err := svc.Submit(ctx, SubmitInput{
		DocType:     posting.DocTypeCustomerInvoice,
		CustomerID:  ptrInt64(1),
		DocDate:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Subtotal:    100,
		TotalAmount: 100,
		CreatedBy:   42,
	})
	require.NoError(t, err)

	voucher, err := svc.Submit(ctx, SubmitInput{
		DocType:     posting.DocTypeReceiptVoucher,
		CustomerID:  ptrInt64(1),
		AppliesToID: ptrInt64(draft.ID),
		DocDate:     time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC),
		TotalAmount: 100,
		CreatedBy:   42,
	})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, voucher.ID, 42)
	require.NoError(t, err)

	_, err = svc.Post(ctx, voucher.ID, 42)
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Contains(t, err.Error(), "not posted")
}

func TestRecordPaymentTracksCollection(t *testing.T) {
	w := newWorld()
	svc := newOrchestrator(w)
	ctx := context.Background()

	invoice := mustPost(t, svc, SubmitInput{
		DocType:     posting.DocTypeCustomerInvoice,
		CustomerID:  ptrInt64(1),
		DocDate:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		DueDate:     time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC),
		Subtotal:    1000,
		TotalAmount: 1000,
		CreatedBy:   42,
	})
	require.Equal(t, 1000.0, w.customers[1].CurrentBalance)

	partial, err := svc.RecordPayment(ctx, invoice.Document.ID, 400, 42)
	require.NoError(t, err)
	assert.Equal(t, 400.0, partial.AmountPaid)
	assert.Equal(t, PaymentStatusPartial, partial.PaymentStatus)
	assert.Equal(t, 600.0, w.customers[1].CurrentBalance)

	settled, err := svc.RecordPayment(ctx, invoice.Document.ID, 600, 42)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPaid, settled.PaymentStatus)
	assert.Zero(t, w.customers[1].CurrentBalance)
}

func TestPostWithoutDueDateNeverGoesOverdue(t *testing.T) {
	w := newWorld()
	svc := newOrchestrator(w)
	ctx := context.Background()

	// Doc date well in the past; with no due date the invoice must sit in
	// unpaid or partial, never overdue.
	invoice := mustPost(t, svc, SubmitInput{
		DocType:     posting.DocTypeCustomerInvoice,
		CustomerID:  ptrInt64(1),
		DocDate:     time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Subtotal:    1000,
		TotalAmount: 1000,
		CreatedBy:   42,
	})
	assert.True(t, invoice.Document.DueDate.IsZero())
	assert.Equal(t, PaymentStatusUnpaid, invoice.Document.PaymentStatus)

	partial, err := svc.RecordPayment(ctx, invoice.Document.ID, 400, 42)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPartial, partial.PaymentStatus)
}

func TestRecordPaymentOverRemainingRejected(t *testing.T) {
	w := newWorld()
	svc := newOrchestrator(w)
	ctx := context.Background()

	invoice := mustPost(t, svc, SubmitInput{
		DocType:     posting.DocTypeCustomerInvoice,
		CustomerID:  ptrInt64(1),
		DocDate:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Subtotal:    1000,
		TotalAmount: 1000,
		CreatedBy:   42,
	})

	_, err := svc.RecordPayment(ctx, invoice.Document.ID, 1000.01, 42)
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Contains(t, err.Error(), "exceeds remaining due")
}

func TestRecordPaymentRequiresPostedDocument(t *testing.T) {
	w := newWorld()
	svc := newOrchestrator(w)
	ctx := context.Background()

	doc, err := svc.Submit(ctx, creditSale(1, 590))
	require.NoError(t, err)

	_, err = svc.RecordPayment(ctx, doc.ID, 100, 42)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestRecordPaymentCashSaleRejected(t *testing.T) {
	w := newWorld()
	svc := newOrchestrator(w)
	ctx := context.Background()

	sale := creditSale(1, 590)
	sale.PaymentMethod = posting.PaymentMethodCash
	result := mustPost(t, svc, sale)

	_, err := svc.RecordPayment(ctx, result.Document.ID, 100, 42)
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Contains(t, err.Error(), "settled at posting")
}

func TestRecordPaymentReducesVendorExposure(t *testing.T) {
	w := newWorld()
	svc := newOrchestrator(w)
	ctx := context.Background()

	bill := mustPost(t, svc, SubmitInput{
		DocType:     posting.DocTypeVendorBill,
		VendorID:    ptrInt64(1),
		WarehouseID: ptrInt64(1),
		DocDate:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Subtotal:    2000,
		TaxAmount:   220,
		WHTAmount:   44,
		TotalAmount: 2220,
		CreatedBy:   42,
		Lines:       []LineInput{{ProductID: 101, Qty: 20, UnitPrice: 100}},
	})
	require.Equal(t, 2176.0, w.vendors[1].CurrentBalance)

	_, err := svc.RecordPayment(ctx, bill.Document.ID, 1000, 42)
	require.NoError(t, err)
	assert.Equal(t, 1176.0, w.vendors[1].CurrentBalance)

	// The withheld 44 is owed to the authority, not the vendor, so 2176
	// settles the bill.
	settled, err := svc.RecordPayment(ctx, bill.Document.ID, 1176, 42)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPaid, settled.PaymentStatus)
	assert.Zero(t, w.vendors[1].CurrentBalance)
}

func TestCancelPostedInvoiceReversesEverything(t *testing.T) {
	w := newWorld()
	svc := newOrchestrator(w)
	ctx := context.Background()

	invoice := mustPost(t, svc, SubmitInput{
		DocType:     posting.DocTypeCustomerInvoice,
		CustomerID:  ptrInt64(1),
		DocDate:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Subtotal:    1000,
		TaxAmount:   110,
		TotalAmount: 1110,
		CreatedBy:   42,
	})

	cancelled, err := svc.Cancel(ctx, invoice.Document.ID, 42, "entered twice")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	// Reversal zeroed the books; the original entry stayed POSTED.
	assert.Zero(t, w.customers[1].CurrentBalance)
	assert.Zero(t, w.accountBalance(tAccAR))
	assert.Zero(t, w.accountBalance(tAccRevenue))

	original := w.entries[invoice.Entry.ID]
	assert.Equal(t, ledger.EntryStatusPosted, original.Status)

	// A second, sign-flipped entry exists.
	require.Len(t, w.entries, 2)
	assert.Equal(t, 2, w.bumps)
}

func TestCancelRestoresStockAtPostedCost(t *testing.T) {
	w := newWorld()
	svc := newOrchestrator(w)
	ctx := context.Background()

	sale := mustPost(t, svc, creditSale(1, 590))
	require.Equal(t, 98.0, w.stock["1|101"].qty)

	// The shelf price changes after posting; cancellation must restore at the
	// cost the goods left with, not today's average.
	w.stock["1|101"].avgCost = 70

	_, err := svc.Cancel(ctx, sale.Document.ID, 42, "customer returned")
	require.NoError(t, err)

	assert.Equal(t, 100.0, w.stock["1|101"].qty)
	assert.Zero(t, w.customers[1].CurrentBalance)
}

func TestCancelPostedWithExternalPaymentsRejected(t *testing.T) {
	w := newWorld()
	svc := newOrchestrator(w)
	ctx := context.Background()

	invoice := mustPost(t, svc, SubmitInput{
		DocType:     posting.DocTypeCustomerInvoice,
		CustomerID:  ptrInt64(1),
		DocDate:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Subtotal:    1000,
		TotalAmount: 1000,
		CreatedBy:   42,
	})

	mustPost(t, svc, SubmitInput{
		DocType:     posting.DocTypeReceiptVoucher,
		CustomerID:  ptrInt64(1),
		AppliesToID: ptrInt64(invoice.Document.ID),
		DocDate:     time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC),
		TotalAmount: 400,
		CreatedBy:   42,
	})

	_, err := svc.Cancel(ctx, invoice.Document.ID, 42, "mistake")
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
	assert.Contains(t, err.Error(), "settle or reverse payments")
}

func TestCancelReceiptVoucherRestoresInvoice(t *testing.T) {
	w := newWorld()
	svc := newOrchestrator(w)
	ctx := context.Background()

	invoice := mustPost(t, svc, SubmitInput{
		DocType:     posting.DocTypeCustomerInvoice,
		CustomerID:  ptrInt64(1),
		DocDate:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		DueDate:     time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC),
		Subtotal:    1000,
		TotalAmount: 1000,
		CreatedBy:   42,
	})
	receipt := mustPost(t, svc, SubmitInput{
		DocType:     posting.DocTypeReceiptVoucher,
		CustomerID:  ptrInt64(1),
		AppliesToID: ptrInt64(invoice.Document.ID),
		DocDate:     time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC),
		TotalAmount: 1000,
		CreatedBy:   42,
	})

	_, err := svc.Cancel(ctx, receipt.Document.ID, 42, "bounced")
	require.NoError(t, err)

	// The invoice owes again and the customer exposure is back.
	restored, err := svc.Get(ctx, invoice.Document.ID)
	require.NoError(t, err)
	assert.Zero(t, restored.AmountPaid)
	assert.Equal(t, PaymentStatusUnpaid, restored.PaymentStatus)
	assert.Equal(t, 1000.0, w.customers[1].CurrentBalance)
}

func TestCancelDraftIsPlainTransition(t *testing.T) {
	w := newWorld()
	svc := newOrchestrator(w)
	ctx := context.Background()

	doc, err := svc.Submit(ctx, creditSale(1, 590))
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, doc.ID, 42, "typo")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	// No books were touched.
	assert.Empty(t, w.entries)
	assert.Equal(t, 100.0, w.stock["1|101"].qty)
}

func TestCancelTwiceRejected(t *testing.T) {
	w := newWorld()
	svc := newOrchestrator(w)
	ctx := context.Background()

	doc, err := svc.Submit(ctx, creditSale(1, 590))
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, doc.ID, 42, "typo")
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, doc.ID, 42, "again")
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestBumpFailureDoesNotFailPosting(t *testing.T) {
	w := newWorld()
	w.bumpErr = fmt.Errorf("redis: connection refused")
	svc := newOrchestrator(w)

	// Cache invalidation is best effort; the posting must still commit.
	result := mustPost(t, svc, creditSale(1, 590))
	assert.Equal(t, StatusPosted, result.Document.Status)
	assert.Zero(t, w.bumps)
}

func TestSubmitValidation(t *testing.T) {
	w := newWorld()
	svc := newOrchestrator(w)
	ctx := context.Background()

	// Totals identity must hold for sale and bill documents.
	bad := creditSale(1, 590)
	bad.Subtotal = 400
	bad.TaxAmount = 90
	_, err := svc.Submit(ctx, bad)
	require.ErrorIs(t, err, shared.ErrValidation)

	// Party requirements per document type.
	_, err = svc.Submit(ctx, SubmitInput{
		DocType:     posting.DocTypeCustomerInvoice,
		DocDate:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Subtotal:    100,
		TotalAmount: 100,
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	// Vouchers without a target are rejected outright.
	_, err = svc.Submit(ctx, SubmitInput{
		DocType:     posting.DocTypeReceiptVoucher,
		CustomerID:  ptrInt64(1),
		DocDate:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		TotalAmount: 100,
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	// Generated numbers carry the type prefix.
	doc, err := svc.Submit(ctx, creditSale(1, 590))
	require.NoError(t, err)
	assert.Regexp(t, `^POS-\d+$`, doc.Number)
}
