package inventory

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler exposes stock balance and movement reads. Mutations happen only
// through document posting.
type Handler struct {
	logger *slog.Logger
	store  *Store
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, store *Store) *Handler {
	return &Handler{logger: logger, store: store}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/warehouses/{warehouseID}/products/{productID}/stock", h.handleBalance)
	r.Get("/stock-movements", h.handleMovements)
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	warehouseID, err1 := strconv.ParseInt(chi.URLParam(r, "warehouseID"), 10, 64)
	productID, err2 := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err1 != nil || err2 != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "warehouse and product ids must be numeric")
		return
	}
	balance, err := h.store.GetBalance(r.Context(), warehouseID, productID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balance)
}

func (h *Handler) handleMovements(w http.ResponseWriter, r *http.Request) {
	docID, err := strconv.ParseInt(r.URL.Query().Get("doc_id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "doc_id must be numeric")
		return
	}
	movements, err := h.store.ListMovements(r.Context(), r.URL.Query().Get("doc_type"), docID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": movements})
}
