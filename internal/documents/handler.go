package documents

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/posting"
)

// Handler manages source document endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	repo     *Repository
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, repo *Repository, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, repo: repo, validate: validate}
}

// MountRoutes registers document routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/documents", h.handleList)
	r.Get("/documents/{id}", h.handleGet)
	r.Post("/documents", h.handleSubmit)
	r.Post("/documents/{id}/approve", h.handleApprove)
	r.Post("/documents/{id}/post", h.handlePost)
	r.Post("/documents/{id}/cancel", h.handleCancel)
	r.Post("/documents/{id}/payments", h.handlePayment)
}

type submitRequest struct {
	DocType        string      `json:"doc_type" validate:"required,oneof=POS_SALE VENDOR_BILL CUSTOMER_INVOICE DELIVERY_NOTE PAYMENT_VOUCHER RECEIPT_VOUCHER"`
	Number         string      `json:"number" validate:"omitempty,max=64"`
	CustomerID     *int64      `json:"customer_id"`
	VendorID       *int64      `json:"vendor_id"`
	WarehouseID    *int64      `json:"warehouse_id"`
	AppliesToID    *int64      `json:"applies_to_id"`
	DocDate        string      `json:"doc_date" validate:"required,datetime=2006-01-02"`
	DueDate        string      `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Subtotal       float64     `json:"subtotal" validate:"gte=0"`
	DiscountAmount float64     `json:"discount_amount" validate:"gte=0"`
	TaxAmount      float64     `json:"tax_amount" validate:"gte=0"`
	WHTAmount      float64     `json:"wht_amount" validate:"gte=0"`
	TotalAmount    float64     `json:"total_amount" validate:"required,gt=0"`
	PaymentMethod  string      `json:"payment_method" validate:"omitempty,oneof=CASH CREDIT"`
	Lines          []lineInput `json:"lines" validate:"dive"`
}

type lineInput struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Qty       float64 `json:"qty" validate:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
}

type actionRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	docDate, err := time.Parse("2006-01-02", req.DocDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "doc_date must be YYYY-MM-DD")
		return
	}
	var dueDate time.Time
	if req.DueDate != "" {
		dueDate, err = time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "due_date must be YYYY-MM-DD")
			return
		}
	}
	input := SubmitInput{
		DocType:        posting.DocumentType(req.DocType),
		Number:         req.Number,
		CustomerID:     req.CustomerID,
		VendorID:       req.VendorID,
		WarehouseID:    req.WarehouseID,
		AppliesToID:    req.AppliesToID,
		DocDate:        docDate,
		DueDate:        dueDate,
		Subtotal:       req.Subtotal,
		DiscountAmount: req.DiscountAmount,
		TaxAmount:      req.TaxAmount,
		WHTAmount:      req.WHTAmount,
		TotalAmount:    req.TotalAmount,
		PaymentMethod:  posting.PaymentMethod(req.PaymentMethod),
		CreatedBy:      actorID(r),
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, LineInput{ProductID: line.ProductID, Qty: line.Qty, UnitPrice: line.UnitPrice})
	}
	doc, err := h.service.Submit(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toDocumentResponse(doc))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "id must be numeric")
		return
	}
	doc, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	docs, err := h.repo.List(r.Context(), r.URL.Query().Get("doc_type"), r.URL.Query().Get("status"), limit)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	items := make([]documentResponse, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toDocumentResponse(doc))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "id must be numeric")
		return
	}
	doc, err := h.service.Approve(r.Context(), id, actorID(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "id must be numeric")
		return
	}
	result, err := h.service.Post(r.Context(), id, actorID(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	status := http.StatusCreated
	if result.AlreadyPosted {
		status = http.StatusOK
	}
	httpx.JSON(w, status, map[string]any{
		"document":       toDocumentResponse(result.Document),
		"entry_id":       result.Entry.ID,
		"entry_number":   result.Entry.Number,
		"already_posted": result.AlreadyPosted,
	})
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "id must be numeric")
		return
	}
	var req actionRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
			return
		}
	}
	doc, err := h.service.Cancel(r.Context(), id, actorID(r), req.Reason)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDocumentResponse(doc))
}

type paymentRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

func (h *Handler) handlePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "id must be numeric")
		return
	}
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	doc, err := h.service.RecordPayment(r.Context(), id, req.Amount, actorID(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDocumentResponse(doc))
}

type documentResponse struct {
	ID             int64       `json:"id"`
	PublicID       string      `json:"public_id"`
	DocType        string      `json:"doc_type"`
	Number         string      `json:"number"`
	CustomerID     *int64      `json:"customer_id,omitempty"`
	VendorID       *int64      `json:"vendor_id,omitempty"`
	WarehouseID    *int64      `json:"warehouse_id,omitempty"`
	AppliesToID    *int64      `json:"applies_to_id,omitempty"`
	DocDate        string      `json:"doc_date"`
	DueDate        string      `json:"due_date,omitempty"`
	Subtotal       float64     `json:"subtotal"`
	DiscountAmount float64     `json:"discount_amount"`
	TaxAmount      float64     `json:"tax_amount"`
	WHTAmount      float64     `json:"wht_amount"`
	TotalAmount    float64     `json:"total_amount"`
	AmountPaid     float64     `json:"amount_paid"`
	PaymentMethod  string      `json:"payment_method,omitempty"`
	Status         string      `json:"status"`
	PaymentStatus  string      `json:"payment_status"`
	EntryID        *int64      `json:"entry_id,omitempty"`
	Lines          []lineModel `json:"lines,omitempty"`
}

type lineModel struct {
	ID        int64   `json:"id"`
	ProductID int64   `json:"product_id"`
	Qty       float64 `json:"qty"`
	UnitPrice float64 `json:"unit_price"`
	UnitCost  float64 `json:"unit_cost"`
}

func toDocumentResponse(doc Document) documentResponse {
	resp := documentResponse{
		ID:             doc.ID,
		PublicID:       doc.PublicID.String(),
		DocType:        string(doc.DocType),
		Number:         doc.Number,
		CustomerID:     doc.CustomerID,
		VendorID:       doc.VendorID,
		WarehouseID:    doc.WarehouseID,
		AppliesToID:    doc.AppliesToID,
		DocDate:        doc.DocDate.Format("2006-01-02"),
		Subtotal:       doc.Subtotal,
		DiscountAmount: doc.DiscountAmount,
		TaxAmount:      doc.TaxAmount,
		WHTAmount:      doc.WHTAmount,
		TotalAmount:    doc.TotalAmount,
		AmountPaid:     doc.AmountPaid,
		PaymentMethod:  string(doc.PaymentMethod),
		Status:         string(doc.Status),
		PaymentStatus:  string(doc.PaymentStatus),
		EntryID:        doc.EntryID,
	}
	if !doc.DueDate.IsZero() {
		resp.DueDate = doc.DueDate.Format("2006-01-02")
	}
	for _, line := range doc.Lines {
		resp.Lines = append(resp.Lines, lineModel{
			ID: line.ID, ProductID: line.ProductID, Qty: line.Qty,
			UnitPrice: line.UnitPrice, UnitCost: line.UnitCost,
		})
	}
	return resp
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// actorID resolves the acting user from the X-Actor-ID header. Upstream
// authentication is expected to set it; zero means unattributed.
func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return id
}
