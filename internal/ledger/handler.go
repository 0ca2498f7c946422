package ledger

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler manages journal entry endpoints. Only MANUAL entries can be
// created here; AUTO entries arrive through document posting.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/journal-entries/{id}", h.handleGet)
	r.Post("/journal-entries", h.handleCreateDraft)
	r.Post("/journal-entries/{id}/lines", h.handleAddLines)
	r.Post("/journal-entries/{id}/post", h.handlePost)
	r.Post("/journal-entries/{id}/reverse", h.handleReverse)
	r.Get("/accounts/{id}/balance", h.handleAccountBalance)
}

type entryRequest struct {
	Date  string        `json:"date" validate:"required,datetime=2006-01-02"`
	Memo  string        `json:"memo" validate:"omitempty,max=500"`
	Lines []lineRequest `json:"lines" validate:"required,min=2,dive"`
}

type lineRequest struct {
	AccountID int64   `json:"account_id" validate:"required,gt=0"`
	Debit     float64 `json:"debit" validate:"gte=0"`
	Credit    float64 `json:"credit" validate:"gte=0"`
}

type reverseRequest struct {
	Memo string `json:"memo" validate:"omitempty,max=500"`
}

func (h *Handler) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "date must be YYYY-MM-DD")
		return
	}
	entry, err := h.service.CreateDraft(r.Context(), EntryInput{
		Date:     date,
		Type:     EntryTypeManual,
		Memo:     req.Memo,
		PostedBy: actorID(r),
		Lines:    toLineInputs(req.Lines),
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) handleAddLines(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "id must be numeric")
		return
	}
	var req struct {
		Lines []lineRequest `json:"lines" validate:"required,min=1,dive"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	if err := h.service.AddLines(r.Context(), id, toLineInputs(req.Lines)); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	entry, err := h.service.GetEntry(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "id must be numeric")
		return
	}
	entry, err := h.service.Post(r.Context(), id, actorID(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) handleReverse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "id must be numeric")
		return
	}
	var req reverseRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
			return
		}
	}
	reversal, err := h.service.Reverse(r.Context(), id, actorID(r), req.Memo)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, reversal)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "id must be numeric")
		return
	}
	entry, err := h.service.GetEntry(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) handleAccountBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "id must be numeric")
		return
	}
	if r.URL.Query().Get("verify") == "true" {
		cached, recomputed, err := h.service.VerifyAccountBalance(r.Context(), id)
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{
			"account_id": id,
			"balance":    cached,
			"recomputed": recomputed,
			"in_sync":    cached == recomputed,
		})
		return
	}
	balance, err := h.service.GetAccountBalance(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"account_id": id, "balance": balance})
}

func toLineInputs(in []lineRequest) []LineInput {
	lines := make([]LineInput, 0, len(in))
	for _, l := range in {
		lines = append(lines, LineInput{AccountID: l.AccountID, Debit: l.Debit, Credit: l.Credit})
	}
	return lines
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return id
}
