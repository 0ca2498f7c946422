package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/documents")

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, `meridian_http_requests_total{code="418",route="/documents"} 1`) {
		t.Fatalf("expected request counter, got: %s", body)
	}
	if !strings.Contains(body, `meridian_http_request_duration_seconds_bucket{route="/documents"`) {
		t.Fatalf("expected duration histogram, got: %s", body)
	}
}

func TestObservePostingCountsOutcomes(t *testing.T) {
	metrics := NewMetrics()

	metrics.ObservePosting("POS_SALE", "posted")
	metrics.ObservePosting("POS_SALE", "posted")
	metrics.ObservePosting("VENDOR_BILL", "error")
	metrics.ObservePosting("", "duplicate")

	body := scrape(t, metrics)
	if !strings.Contains(body, `meridian_document_postings_total{doc_type="POS_SALE",outcome="posted"} 2`) {
		t.Fatalf("expected posted counter, got: %s", body)
	}
	if !strings.Contains(body, `meridian_document_postings_total{doc_type="VENDOR_BILL",outcome="error"} 1`) {
		t.Fatalf("expected error counter, got: %s", body)
	}
	if !strings.Contains(body, `meridian_document_postings_total{doc_type="unknown",outcome="duplicate"} 1`) {
		t.Fatalf("expected unknown doc type fallback, got: %s", body)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics

	metrics.ObservePosting("POS_SALE", "posted")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	rr := httptest.NewRecorder()
	metrics.Middleware(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected passthrough, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from nil handler, got %d", rr.Code)
	}
}
