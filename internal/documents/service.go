package documents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/credit"
	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/parties"
	"github.com/meridian-erp/meridian-erp/internal/posting"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// TxRepository exposes document persistence plus the collaborating stores
// bound to the same transaction. Everything a posting touches (the journal
// entry, account balances, party balances, stock, and the document row)
// commits together or not at all.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (Document, error)
	Insert(ctx context.Context, doc Document) (Document, error)
	UpdateStatus(ctx context.Context, id int64, status Status, entryID *int64, payStatus PaymentStatus) error
	UpdateLineUnitCost(ctx context.Context, lineID int64, unitCost float64) error
	AddToAmountPaid(ctx context.Context, id int64, delta float64, payStatus PaymentStatus) error
	Ledger() ledger.TxRepository
	Parties() parties.TxStore
	Inventory() inventory.TxStore
}

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Document, error)
}

// LedgerPort is the slice of the ledger service the orchestrator drives.
type LedgerPort interface {
	PostEntryWith(ctx context.Context, tx ledger.TxRepository, input ledger.EntryInput) (ledger.JournalEntry, error)
	ReverseWith(ctx context.Context, tx ledger.TxRepository, entryID, actorID int64, memo string) (ledger.JournalEntry, error)
}

// RulesPort computes the journal line set for a document snapshot.
type RulesPort interface {
	ComputeLines(ctx context.Context, docType posting.DocumentType, snap posting.Snapshot) ([]ledger.LineInput, error)
}

// CreditPort performs the advisory credit check at approval time. The
// binding check happens again inside the posting transaction with the
// customer row locked.
type CreditPort interface {
	CheckAvailable(ctx context.Context, customerID int64, additionalAmount float64) (credit.Decision, error)
}

// AuditPort records document lifecycle events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts posting outcomes for monitoring.
type MetricsPort interface {
	ObservePosting(docType, outcome string)
}

// InvalidatorPort bumps downstream report caches once a posting or
// cancellation commits.
type InvalidatorPort interface {
	Bump(ctx context.Context) error
}

// PostResult reports a completed posting. AlreadyPosted marks idempotent
// replays: the caller gets the original entry, not an error.
type PostResult struct {
	Document      Document
	Entry         ledger.JournalEntry
	AlreadyPosted bool
}

// Service is the document posting orchestrator: it drives each document's
// state machine and owns the document-to-ledger linkage.
type Service struct {
	repo        RepositoryPort
	ledger      LedgerPort
	rules       RulesPort
	credit      CreditPort
	audit       AuditPort
	metrics     MetricsPort
	invalidator InvalidatorPort
	logger      *slog.Logger
	now         func() time.Time
}

// NewService constructs the orchestrator.
func NewService(logger *slog.Logger, repo RepositoryPort, ledgerSvc LedgerPort, rules RulesPort, creditSvc CreditPort, audit AuditPort, metrics MetricsPort, invalidator InvalidatorPort) *Service {
	return &Service{
		logger: logger, repo: repo, ledger: ledgerSvc, rules: rules, credit: creditSvc,
		audit: audit, metrics: metrics, invalidator: invalidator, now: time.Now,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// SubmitInput carries a new source document from an operational module.
type SubmitInput struct {
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
	PaymentMethod  posting.PaymentMethod
	CreatedBy      int64
	Lines          []LineInput
}

// LineInput is one submitted product line.
type LineInput struct {
	ProductID int64
	Qty       float64
	UnitPrice float64
}

// Submit validates and stores a new document in DRAFT.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (Document, error) {
	doc, err := s.buildDocument(input)
	if err != nil {
		return Document{}, err
	}
	var created Document
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		created, err = tx.Insert(ctx, doc)
		return err
	})
	if err != nil {
		return Document{}, err
	}
	s.recordAudit(ctx, input.CreatedBy, "document.submit", created.ID, map[string]any{
		"doc_type": string(created.DocType),
		"number":   created.Number,
	})
	return created, nil
}

// Approve transitions DRAFT -> APPROVED. Credit-bearing customer documents
// pass through credit control first; rejection surfaces the specific reason.
func (s *Service) Approve(ctx context.Context, id, actorID int64) (Document, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if !CanTransition(doc.Status, StatusApproved) {
		return Document{}, fmt.Errorf("%w: cannot approve %s document", shared.ErrInvalidTransition, doc.Status)
	}
	if doc.CreditBearing() {
		decision, err := s.credit.CheckAvailable(ctx, *doc.CustomerID, doc.TotalAmount)
		if err != nil {
			return Document{}, err
		}
		if !decision.CanProceed {
			return Document{}, &shared.CreditLimitError{
				CustomerID: *doc.CustomerID,
				Requested:  doc.TotalAmount,
				Available:  decision.Available,
			}
		}
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(current.Status, StatusApproved) {
			return fmt.Errorf("%w: cannot approve %s document", shared.ErrInvalidTransition, current.Status)
		}
		doc = current
		doc.Status = StatusApproved
		return tx.UpdateStatus(ctx, id, StatusApproved, current.EntryID, current.PaymentStatus)
	})
	if err != nil {
		return Document{}, err
	}
	s.recordAudit(ctx, actorID, "document.approve", id, map[string]any{"doc_type": string(doc.DocType)})
	return doc, nil
}

// Post turns an APPROVED document into a POSTED one backed by a balanced
// journal entry. The call is idempotent: replays and concurrent losers both
// receive the original posting result.
func (s *Service) Post(ctx context.Context, id, actorID int64) (PostResult, error) {
	var result PostResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		doc, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if doc.Status == StatusPosted {
			entry, err := tx.Ledger().GetEntryByReference(ctx, string(doc.DocType), doc.PublicID)
			if err != nil {
				return err
			}
			result = PostResult{Document: doc, Entry: entry, AlreadyPosted: true}
			return nil
		}
		if !CanTransition(doc.Status, StatusPosted) {
			return fmt.Errorf("%w: cannot post %s document", shared.ErrInvalidTransition, doc.Status)
		}
		result, err = s.postLocked(ctx, tx, doc, actorID)
		return err
	})
	if err != nil {
		if errors.Is(err, shared.ErrDuplicatePosting) {
			// A concurrent poster won the reference race; their commit is
			// the result we report.
			return s.existingResult(ctx, id)
		}
		if s.metrics != nil {
			s.metrics.ObservePosting("", "error")
		}
		return PostResult{}, err
	}
	outcome := "posted"
	if result.AlreadyPosted {
		outcome = "duplicate"
	}
	if s.metrics != nil {
		s.metrics.ObservePosting(string(result.Document.DocType), outcome)
	}
	if !result.AlreadyPosted {
		s.bumpCaches(ctx)
		s.recordAudit(ctx, actorID, "document.post", id, map[string]any{
			"doc_type":     string(result.Document.DocType),
			"entry_number": result.Entry.Number,
		})
	}
	return result, nil
}

// postLocked runs the posting pipeline with the document row locked.
func (s *Service) postLocked(ctx context.Context, tx TxRepository, doc Document, actorID int64) (PostResult, error) {
	snap := doc.Snapshot()

	// Binding credit gate: re-evaluated with the customer row locked so a
	// concurrent posting cannot stack exposure past the limit.
	var customer parties.Customer
	if doc.CreditBearing() {
		var err error
		customer, err = tx.Parties().LockCustomer(ctx, *doc.CustomerID)
		if err != nil {
			return PostResult{}, err
		}
		if err := credit.Ensure(customer, doc.TotalAmount); err != nil {
			return PostResult{}, err
		}
	}

	if doc.MovesStock() {
		cogs, err := s.moveStock(ctx, tx, doc)
		if err != nil {
			return PostResult{}, err
		}
		snap.COGSAmount = cogs
	}

	lines, err := s.rules.ComputeLines(ctx, doc.DocType, snap)
	if err != nil {
		return PostResult{}, err
	}

	entry, err := s.ledger.PostEntryWith(ctx, tx.Ledger(), ledger.EntryInput{
		Date:          doc.DocDate,
		Type:          ledger.EntryTypeAuto,
		ReferenceType: string(doc.DocType),
		ReferenceID:   doc.PublicID,
		Memo:          fmt.Sprintf("%s %s", doc.DocType, doc.Number),
		PostedBy:      actorID,
		Lines:         lines,
	})
	if err != nil {
		return PostResult{}, err
	}

	if err := s.applyPartyEffects(ctx, tx, doc, false); err != nil {
		return PostResult{}, err
	}
	if err := s.applyAllocation(ctx, tx, doc, false); err != nil {
		return PostResult{}, err
	}

	amountPaid := doc.AmountPaid
	switch doc.DocType {
	case posting.DocTypePaymentVoucher, posting.DocTypeReceiptVoucher:
		amountPaid = doc.TotalAmount
	case posting.DocTypePOSSale:
		if doc.PaymentMethod == posting.PaymentMethodCash {
			amountPaid = doc.TotalAmount
		}
	}
	payStatus := DerivePaymentStatus(amountPaid, doc.SettlementAmount(), doc.DueDate, s.now())
	if amountPaid != doc.AmountPaid {
		if err := tx.AddToAmountPaid(ctx, doc.ID, amountPaid-doc.AmountPaid, payStatus); err != nil {
			return PostResult{}, err
		}
	}
	if err := tx.UpdateStatus(ctx, doc.ID, StatusPosted, &entry.ID, payStatus); err != nil {
		return PostResult{}, err
	}

	doc.Status = StatusPosted
	doc.PaymentStatus = payStatus
	doc.AmountPaid = amountPaid
	doc.EntryID = &entry.ID
	return PostResult{Document: doc, Entry: entry}, nil
}

// Cancel terminates a document. Pre-posted documents simply flip to
// CANCELLED; posted documents additionally get a reversing entry and have
// their party-balance and stock effects undone. The original entry is never
// touched.
func (s *Service) Cancel(ctx context.Context, id, actorID int64, reason string) (Document, error) {
	var cancelled Document
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		doc, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(doc.Status, StatusCancelled) {
			return fmt.Errorf("%w: cannot cancel %s document", shared.ErrInvalidTransition, doc.Status)
		}
		if doc.Status == StatusPosted {
			if doc.AmountPaid > 0 && doc.DocType != posting.DocTypePaymentVoucher && doc.DocType != posting.DocTypeReceiptVoucher &&
				!(doc.DocType == posting.DocTypePOSSale && doc.PaymentMethod == posting.PaymentMethodCash) {
				return fmt.Errorf("%w: settle or reverse payments before cancelling", shared.ErrInvalidTransition)
			}
			if doc.EntryID == nil {
				return fmt.Errorf("documents: posted document %d has no journal entry", doc.ID)
			}
			if _, err := s.ledger.ReverseWith(ctx, tx.Ledger(), *doc.EntryID, actorID,
				fmt.Sprintf("Cancel %s %s: %s", doc.DocType, doc.Number, reason)); err != nil {
				return err
			}
			if err := s.applyPartyEffects(ctx, tx, doc, true); err != nil {
				return err
			}
			if err := s.applyAllocation(ctx, tx, doc, true); err != nil {
				return err
			}
			if doc.MovesStock() {
				if err := s.unwindStock(ctx, tx, doc); err != nil {
					return err
				}
			}
		}
		if err := tx.UpdateStatus(ctx, doc.ID, StatusCancelled, doc.EntryID, doc.PaymentStatus); err != nil {
			return err
		}
		doc.Status = StatusCancelled
		cancelled = doc
		return nil
	})
	if err != nil {
		return Document{}, err
	}
	s.bumpCaches(ctx)
	s.recordAudit(ctx, actorID, "document.cancel", id, map[string]any{
		"doc_type": string(cancelled.DocType),
		"reason":   reason,
	})
	return cancelled, nil
}

// RecordPayment applies a payment received outside the voucher flow against
// a posted document. Amount paid and payment status move together with the
// party's exposure, so credit control sees the collection immediately.
func (s *Service) RecordPayment(ctx context.Context, id int64, amount float64, actorID int64) (Document, error) {
	if amount <= 0 {
		return Document{}, fmt.Errorf("%w: payment amount must be positive", shared.ErrValidation)
	}
	amount = ledger.Round2(amount)
	var updated Document
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		doc, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if doc.Status != StatusPosted {
			return fmt.Errorf("%w: payments apply to posted documents only", shared.ErrInvalidTransition)
		}
		switch doc.DocType {
		case posting.DocTypeCustomerInvoice, posting.DocTypeVendorBill:
		case posting.DocTypePOSSale:
			if doc.PaymentMethod != posting.PaymentMethodCredit {
				return fmt.Errorf("%w: cash sales are settled at posting", shared.ErrValidation)
			}
		default:
			return fmt.Errorf("%w: %s documents do not carry payments", shared.ErrValidation, doc.DocType)
		}
		if doc.RemainingDue() < amount {
			return fmt.Errorf("%w: payment %.2f exceeds remaining due %.2f", shared.ErrValidation, amount, doc.RemainingDue())
		}
		payStatus := DerivePaymentStatus(doc.AmountPaid+amount, doc.SettlementAmount(), doc.DueDate, s.now())
		if err := tx.AddToAmountPaid(ctx, doc.ID, amount, payStatus); err != nil {
			return err
		}
		p := tx.Parties()
		if doc.DocType == posting.DocTypeVendorBill {
			err = p.AddToVendorBalance(ctx, *doc.VendorID, -amount)
		} else {
			err = p.AddToCustomerBalance(ctx, *doc.CustomerID, -amount)
		}
		if err != nil {
			return err
		}
		doc.AmountPaid += amount
		doc.PaymentStatus = payStatus
		updated = doc
		return nil
	})
	if err != nil {
		return Document{}, err
	}
	s.bumpCaches(ctx)
	s.recordAudit(ctx, actorID, "document.payment", id, map[string]any{
		"doc_type": string(updated.DocType),
		"amount":   amount,
	})
	return updated, nil
}

// Get returns one document.
func (s *Service) Get(ctx context.Context, id int64) (Document, error) {
	return s.repo.Get(ctx, id)
}

// moveStock applies the inventory side effect of posting and returns the
// cost of goods consumed (zero for receiving documents).
func (s *Service) moveStock(ctx context.Context, tx TxRepository, doc Document) (float64, error) {
	store := tx.Inventory()
	var cogs float64
	for _, line := range doc.Lines {
		move := inventory.Movement{
			DocType:     string(doc.DocType),
			DocID:       doc.ID,
			WarehouseID: *doc.WarehouseID,
			ProductID:   line.ProductID,
			Qty:         line.Qty,
			PostedAt:    s.now(),
		}
		switch doc.DocType {
		case posting.DocTypeVendorBill:
			move.UnitCost = line.UnitPrice
			if err := store.Receive(ctx, move); err != nil {
				return 0, err
			}
			if err := tx.UpdateLineUnitCost(ctx, line.ID, line.UnitPrice); err != nil {
				return 0, err
			}
		default:
			unitCost, err := store.Consume(ctx, move)
			if err != nil {
				return 0, err
			}
			cogs += line.Qty * unitCost
			if err := tx.UpdateLineUnitCost(ctx, line.ID, unitCost); err != nil {
				return 0, err
			}
		}
	}
	return ledger.Round2(cogs), nil
}

// unwindStock restores quantities at the costs recorded during posting.
func (s *Service) unwindStock(ctx context.Context, tx TxRepository, doc Document) error {
	store := tx.Inventory()
	for _, line := range doc.Lines {
		move := inventory.Movement{
			DocType:     string(doc.DocType) + ":CANCEL",
			DocID:       doc.ID,
			WarehouseID: *doc.WarehouseID,
			ProductID:   line.ProductID,
			Qty:         line.Qty,
			UnitCost:    line.UnitCost,
			PostedAt:    s.now(),
		}
		switch doc.DocType {
		case posting.DocTypeVendorBill:
			if _, err := store.Consume(ctx, move); err != nil {
				return err
			}
		default:
			if err := store.Receive(ctx, move); err != nil {
				return err
			}
		}
	}
	return nil
}

// applyPartyEffects mutates the receivable/payable caches by the enumerated
// delta for this document type. reverse undoes the posting-time delta.
func (s *Service) applyPartyEffects(ctx context.Context, tx TxRepository, doc Document, reverse bool) error {
	sign := 1.0
	if reverse {
		sign = -1.0
	}
	p := tx.Parties()
	switch doc.DocType {
	case posting.DocTypeCustomerInvoice:
		return p.AddToCustomerBalance(ctx, *doc.CustomerID, sign*doc.TotalAmount)
	case posting.DocTypePOSSale:
		if doc.PaymentMethod == posting.PaymentMethodCredit {
			return p.AddToCustomerBalance(ctx, *doc.CustomerID, sign*doc.TotalAmount)
		}
	case posting.DocTypeReceiptVoucher:
		return p.AddToCustomerBalance(ctx, *doc.CustomerID, -sign*doc.TotalAmount)
	case posting.DocTypeVendorBill:
		return p.AddToVendorBalance(ctx, *doc.VendorID, sign*(doc.TotalAmount-doc.WHTAmount))
	case posting.DocTypePaymentVoucher:
		return p.AddToVendorBalance(ctx, *doc.VendorID, -sign*doc.TotalAmount)
	}
	return nil
}

// applyAllocation settles a voucher against its target document so the
// target's amount_paid and payment status track collections.
func (s *Service) applyAllocation(ctx context.Context, tx TxRepository, doc Document, reverse bool) error {
	if doc.AppliesToID == nil {
		return nil
	}
	if doc.DocType != posting.DocTypeReceiptVoucher && doc.DocType != posting.DocTypePaymentVoucher {
		return nil
	}
	target, err := tx.GetForUpdate(ctx, *doc.AppliesToID)
	if err != nil {
		return err
	}
	if target.Status != StatusPosted {
		return fmt.Errorf("%w: allocation target %d is not posted", shared.ErrValidation, target.ID)
	}
	delta := doc.TotalAmount
	if reverse {
		delta = -delta
	} else if target.RemainingDue() < doc.TotalAmount {
		return fmt.Errorf("%w: allocation %.2f exceeds remaining due %.2f", shared.ErrValidation, doc.TotalAmount, target.RemainingDue())
	}
	payStatus := DerivePaymentStatus(target.AmountPaid+delta, target.SettlementAmount(), target.DueDate, s.now())
	return tx.AddToAmountPaid(ctx, target.ID, delta, payStatus)
}

// existingResult loads the committed outcome after losing a posting race.
func (s *Service) existingResult(ctx context.Context, id int64) (PostResult, error) {
	var result PostResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		doc, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		entry, err := tx.Ledger().GetEntryByReference(ctx, string(doc.DocType), doc.PublicID)
		if err != nil {
			return err
		}
		result = PostResult{Document: doc, Entry: entry, AlreadyPosted: true}
		return nil
	})
	if err != nil {
		return PostResult{}, err
	}
	if s.metrics != nil {
		s.metrics.ObservePosting(string(result.Document.DocType), "duplicate")
	}
	return result, nil
}

func (s *Service) buildDocument(input SubmitInput) (Document, error) {
	if input.DocType == "" {
		return Document{}, fmt.Errorf("%w: document type required", shared.ErrValidation)
	}
	if input.DocDate.IsZero() {
		return Document{}, fmt.Errorf("%w: document date required", shared.ErrValidation)
	}
	if input.TotalAmount <= 0 {
		return Document{}, fmt.Errorf("%w: total amount must be positive", shared.ErrValidation)
	}
	switch input.DocType {
	case posting.DocTypePOSSale, posting.DocTypeCustomerInvoice, posting.DocTypeReceiptVoucher:
		if input.CustomerID == nil {
			return Document{}, fmt.Errorf("%w: customer required for %s", shared.ErrValidation, input.DocType)
		}
	case posting.DocTypeVendorBill, posting.DocTypePaymentVoucher:
		if input.VendorID == nil {
			return Document{}, fmt.Errorf("%w: vendor required for %s", shared.ErrValidation, input.DocType)
		}
	case posting.DocTypeDeliveryNote:
		if input.WarehouseID == nil || len(input.Lines) == 0 {
			return Document{}, fmt.Errorf("%w: delivery requires warehouse and lines", shared.ErrValidation)
		}
	default:
		return Document{}, fmt.Errorf("%w: unknown document type %q", shared.ErrValidation, input.DocType)
	}
	switch input.DocType {
	case posting.DocTypePOSSale, posting.DocTypeCustomerInvoice, posting.DocTypeVendorBill:
		expected := ledger.Round2(input.Subtotal - input.DiscountAmount + input.TaxAmount)
		if expected != ledger.Round2(input.TotalAmount) {
			return Document{}, fmt.Errorf("%w: subtotal %.2f - discount %.2f + tax %.2f does not equal total %.2f",
				shared.ErrValidation, input.Subtotal, input.DiscountAmount, input.TaxAmount, input.TotalAmount)
		}
	}
	if input.DocType == posting.DocTypePOSSale && input.PaymentMethod == "" {
		return Document{}, fmt.Errorf("%w: payment method required for POS sales", shared.ErrValidation)
	}
	if (input.DocType == posting.DocTypeReceiptVoucher || input.DocType == posting.DocTypePaymentVoucher) && input.AppliesToID == nil {
		return Document{}, fmt.Errorf("%w: voucher requires a target document", shared.ErrValidation)
	}
	number := input.Number
	if number == "" {
		number = generateNumber(input.DocType)
	}
	doc := Document{
		PublicID:       uuid.New(),
		DocType:        input.DocType,
		Number:         number,
		CustomerID:     input.CustomerID,
		VendorID:       input.VendorID,
		WarehouseID:    input.WarehouseID,
		AppliesToID:    input.AppliesToID,
		DocDate:        input.DocDate,
		DueDate:        input.DueDate,
		Subtotal:       ledger.Round2(input.Subtotal),
		DiscountAmount: ledger.Round2(input.DiscountAmount),
		TaxAmount:      ledger.Round2(input.TaxAmount),
		WHTAmount:      ledger.Round2(input.WHTAmount),
		TotalAmount:    ledger.Round2(input.TotalAmount),
		PaymentMethod:  input.PaymentMethod,
		Status:         StatusDraft,
		PaymentStatus:  PaymentStatusUnpaid,
		CreatedBy:      input.CreatedBy,
	}
	for _, line := range input.Lines {
		if line.ProductID == 0 || line.Qty <= 0 {
			return Document{}, fmt.Errorf("%w: document lines need product and positive quantity", shared.ErrValidation)
		}
		doc.Lines = append(doc.Lines, Line{ProductID: line.ProductID, Qty: line.Qty, UnitPrice: line.UnitPrice})
	}
	return doc, nil
}

var numberPrefixes = map[posting.DocumentType]string{
	posting.DocTypePOSSale:         "POS",
	posting.DocTypeVendorBill:      "BILL",
	posting.DocTypeCustomerInvoice: "INV",
	posting.DocTypeDeliveryNote:    "DLV",
	posting.DocTypePaymentVoucher:  "PV",
	posting.DocTypeReceiptVoucher:  "RV",
}

func generateNumber(docType posting.DocumentType) string {
	prefix := numberPrefixes[docType]
	if prefix == "" {
		prefix = "DOC"
	}
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func (s *Service) bumpCaches(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Bump(ctx); err != nil && s.logger != nil {
		s.logger.Warn("report cache bump failed", slog.Any("error", err))
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, docID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   shared.EntitySourceDocument,
		EntityID: docID,
		Meta:     meta,
		At:       s.now(),
	})
}
