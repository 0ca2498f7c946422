package coa

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler manages chart of accounts endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

// MountRoutes registers chart of accounts routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/accounts", h.handleList)
	r.Get("/accounts/{id}", h.handleGet)
	r.Post("/accounts", h.handleCreate)
	r.Post("/accounts/{id}/deactivate", h.handleDeactivate)
	r.Put("/mappings", h.handleConfigureMapping)
}

type createAccountRequest struct {
	Code           string  `json:"code" validate:"required,max=32"`
	Name           string  `json:"name" validate:"required,max=255"`
	Type           string  `json:"type" validate:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	OpeningBalance float64 `json:"opening_balance"`
}

type mappingRequest struct {
	DocumentType string `json:"document_type" validate:"required,max=32"`
	Key          string `json:"key" validate:"required,max=64"`
	AccountID    int64  `json:"account_id" validate:"required,gt=0"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	account, err := h.service.CreateAccount(r.Context(), Account{
		Code:           req.Code,
		Name:           req.Name,
		Type:           AccountType(req.Type),
		OpeningBalance: req.OpeningBalance,
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, account)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	accounts, err := h.service.ListAccounts(r.Context(), activeOnly)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": accounts})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "id must be numeric")
		return
	}
	account, err := h.service.GetAccount(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "id must be numeric")
		return
	}
	if err := h.service.DeactivateAccount(r.Context(), id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "is_active": false})
}

func (h *Handler) handleConfigureMapping(w http.ResponseWriter, r *http.Request) {
	var req mappingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	mapping := AccountMapping{DocumentType: req.DocumentType, Key: req.Key, AccountID: req.AccountID}
	if err := h.service.ConfigureMapping(r.Context(), mapping); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, mapping)
}
