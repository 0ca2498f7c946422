package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	analytichttp "github.com/meridian-erp/meridian-erp/internal/analytics/http"
	"github.com/meridian-erp/meridian-erp/internal/coa"
	"github.com/meridian-erp/meridian-erp/internal/credit"
	"github.com/meridian-erp/meridian-erp/internal/documents"
	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/parties"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Pool             *pgxpool.Pool
	AccountsHandler  *coa.Handler
	LedgerHandler    *ledger.Handler
	DocumentsHandler *documents.Handler
	PartiesHandler   *parties.Handler
	CreditHandler    *credit.Handler
	InventoryHandler *inventory.Handler
	ReportsHandler   *analytichttp.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if params.Pool != nil {
			if err := params.Pool.Ping(ctx); err != nil {
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		if params.AccountsHandler != nil {
			params.AccountsHandler.MountRoutes(api)
		}
		if params.LedgerHandler != nil {
			params.LedgerHandler.MountRoutes(api)
		}
		if params.DocumentsHandler != nil {
			params.DocumentsHandler.MountRoutes(api)
		}
		if params.PartiesHandler != nil {
			params.PartiesHandler.MountRoutes(api)
		}
		if params.CreditHandler != nil {
			params.CreditHandler.MountRoutes(api)
		}
		if params.InventoryHandler != nil {
			params.InventoryHandler.MountRoutes(api)
		}
		if params.ReportsHandler != nil {
			params.ReportsHandler.MountRoutes(api)
		}
	})

	return r
}
