package credit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler exposes credit control queries.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers credit control routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/customers/{id}/credit", h.handleUtilization)
	r.Get("/customers/{id}/credit/check", h.handleCheck)
}

func (h *Handler) handleUtilization(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "id must be numeric")
		return
	}
	util, err := h.service.Utilization(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, util)
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "id must be numeric")
		return
	}
	amount, err := strconv.ParseFloat(r.URL.Query().Get("amount"), 64)
	if err != nil || amount <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "amount must be a positive number")
		return
	}
	decision, err := h.service.CheckAvailable(r.Context(), id, amount)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, decision)
}
