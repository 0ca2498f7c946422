package analytichttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers report endpoints onto the router. Export formats
// are rate limited per client since workbook builds are comparatively
// expensive.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/reports/summary", h.handleSummary)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/reports/aging", h.handleAging)
		gr.Get("/reports/sales-register", h.handleSalesRegister)
		gr.Get("/reports/purchase-register", h.handlePurchaseRegister)
		gr.Get("/reports/sales-by-product", h.handleSalesByProduct)
	})
}
