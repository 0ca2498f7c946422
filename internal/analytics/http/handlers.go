// Package analytichttp serves the financial report endpoints.
package analytichttp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meridian-erp/meridian-erp/internal/analytics"
	"github.com/meridian-erp/meridian-erp/internal/analytics/export"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

const requestTimeout = 5 * time.Second

// ReportService defines the report data contract used by the handler.
type ReportService interface {
	GetAgingReport(ctx context.Context, asOf time.Time) (analytics.AgingReport, error)
	GetSalesRegister(ctx context.Context, from, to time.Time) (analytics.RegisterReport, error)
	GetPurchaseRegister(ctx context.Context, from, to time.Time) (analytics.RegisterReport, error)
	GetSalesByProduct(ctx context.Context, from, to time.Time) ([]analytics.ProductSalesRow, error)
}

// Handler coordinates HTTP requests for financial reports.
type Handler struct {
	logger  *slog.Logger
	service ReportService
	now     func() time.Time
}

// NewHandler constructs the reports HTTP handler.
func NewHandler(logger *slog.Logger, service ReportService) *Handler {
	return &Handler{logger: logger, service: service, now: time.Now}
}

func (h *Handler) handleAging(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	asOf, ok := h.parseDate(w, r.URL.Query().Get("as_of"))
	if !ok {
		return
	}
	value, err, _ := singleflightBuild(ctx, "aging:"+asOf.Format("2006-01-02"), func(ctx context.Context) (interface{}, error) {
		return h.service.GetAgingReport(ctx, asOf)
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	report := value.(analytics.AgingReport)

	switch r.URL.Query().Get("format") {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", attachment("aging", asOf, "csv"))
		section := report.Receivables
		if r.URL.Query().Get("side") == "payables" {
			section = report.Payables
		}
		if err := export.WriteAgingCSV(w, section); err != nil {
			h.logger.Error("write aging csv", slog.Any("error", err))
		}
	case "xlsx":
		payload, err := export.BuildAgingXLSX(report)
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", attachment("aging", asOf, "xlsx"))
		_, _ = w.Write(payload)
	default:
		httpx.JSON(w, http.StatusOK, report)
	}
}

func (h *Handler) handleSalesRegister(w http.ResponseWriter, r *http.Request) {
	h.handleRegister(w, r, "sales_register", h.service.GetSalesRegister)
}

func (h *Handler) handlePurchaseRegister(w http.ResponseWriter, r *http.Request) {
	h.handleRegister(w, r, "purchase_register", h.service.GetPurchaseRegister)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request, name string, query func(context.Context, time.Time, time.Time) (analytics.RegisterReport, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	from, to, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	key := fmt.Sprintf("%s:%s:%s", name, from.Format("2006-01-02"), to.Format("2006-01-02"))
	value, err, _ := singleflightBuild(ctx, key, func(ctx context.Context) (interface{}, error) {
		return query(ctx, from, to)
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	report := value.(analytics.RegisterReport)

	switch r.URL.Query().Get("format") {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", attachment(name, to, "csv"))
		if err := export.WriteRegisterCSV(w, report); err != nil {
			h.logger.Error("write register csv", slog.Any("error", err))
		}
	case "xlsx":
		payload, err := export.BuildRegisterXLSX(name, report)
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", attachment(name, to, "xlsx"))
		_, _ = w.Write(payload)
	default:
		httpx.JSON(w, http.StatusOK, report)
	}
}

func (h *Handler) handleSalesByProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	from, to, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	rows, err := h.service.GetSalesByProduct(ctx, from, to)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"from": from, "to": to, "items": rows})
}

// handleSummary assembles the register and product sections concurrently.
// Each section degrades independently into the errors map.
func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	from, to, ok := h.parseRange(w, r)
	if !ok {
		return
	}

	// Each goroutine writes only its own pair of variables; the errors map
	// is assembled after Wait so no map write races another.
	var (
		sales       analytics.RegisterReport
		salesErr    error
		purchases   analytics.RegisterReport
		purchaseErr error
		products    []analytics.ProductSalesRow
		productErr  error
		aging       analytics.AgingReport
		agingErr    error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sales, salesErr = h.service.GetSalesRegister(gctx, from, to)
		return nil
	})
	g.Go(func() error {
		purchases, purchaseErr = h.service.GetPurchaseRegister(gctx, from, to)
		return nil
	})
	g.Go(func() error {
		products, productErr = h.service.GetSalesByProduct(gctx, from, to)
		return nil
	})
	g.Go(func() error {
		aging, agingErr = h.service.GetAgingReport(gctx, to)
		return nil
	})
	_ = g.Wait()

	sectionErrs := map[string]string{}
	for section, err := range map[string]error{
		"sales":     salesErr,
		"purchases": purchaseErr,
		"products":  productErr,
		"aging":     agingErr,
	} {
		if err != nil {
			sectionErrs[section] = err.Error()
		}
	}

	response := map[string]any{
		"from":      from,
		"to":        to,
		"sales":     sales,
		"purchases": purchases,
		"products":  products,
		"aging":     aging,
	}
	if len(sectionErrs) > 0 {
		response["errors"] = sectionErrs
	}
	httpx.JSON(w, http.StatusOK, response)
}

func (h *Handler) parseDate(w http.ResponseWriter, raw string) (time.Time, bool) {
	if raw == "" {
		return h.now().UTC().Truncate(24 * time.Hour), true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "dates must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return t, true
}

func (h *Handler) parseRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	to, ok := h.parseDate(w, r.URL.Query().Get("to"))
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	from, ok := h.parseDate(w, r.URL.Query().Get("from"))
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	if r.URL.Query().Get("from") == "" {
		from = to.AddDate(0, -1, 0)
	}
	if from.After(to) {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "from must not be after to")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func attachment(name string, t time.Time, ext string) string {
	return fmt.Sprintf("attachment; filename=%s_%s.%s", name, t.Format("2006-01-02"), ext)
}
