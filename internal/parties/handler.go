package parties

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler manages customer and vendor balance endpoints.
type Handler struct {
	logger     *slog.Logger
	repo       *Repository
	reconciler *Reconciler
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, repo *Repository, reconciler *Reconciler) *Handler {
	return &Handler{logger: logger, repo: repo, reconciler: reconciler}
}

// MountRoutes registers party routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/customers/{id}", h.handleGetCustomer)
	r.Get("/vendors/{id}", h.handleGetVendor)
	r.Post("/customers/{id}/reconcile", h.handleReconcileCustomer)
	r.Post("/vendors/{id}/reconcile", h.handleReconcileVendor)
}

func (h *Handler) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "id must be numeric")
		return
	}
	customer, err := h.repo.GetCustomer(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, customer)
}

func (h *Handler) handleGetVendor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "id must be numeric")
		return
	}
	vendor, err := h.repo.GetVendor(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, vendor)
}

func (h *Handler) handleReconcileCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "id must be numeric")
		return
	}
	result, err := h.reconciler.ReconcileCustomer(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleReconcileVendor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "id must be numeric")
		return
	}
	result, err := h.reconciler.ReconcileVendor(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
