package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	arRows  []AgingLine
	arErr   error
	arCalls int

	apRows  []AgingLine
	apErr   error
	apCalls int

	salesRows     []RegisterRow
	salesCalls    int
	purchaseRows  []RegisterRow
	purchaseCalls int
	productRows   []ProductSalesRow
	productCalls  int
}

func (m *mockRepo) AgingReceivables(ctx context.Context, asOf time.Time) ([]AgingLine, error) {
	m.arCalls++
	return m.arRows, m.arErr
}

func (m *mockRepo) AgingPayables(ctx context.Context, asOf time.Time) ([]AgingLine, error) {
	m.apCalls++
	return m.apRows, m.apErr
}

func (m *mockRepo) SalesRegister(ctx context.Context, from, to time.Time) ([]RegisterRow, error) {
	m.salesCalls++
	return m.salesRows, nil
}

func (m *mockRepo) PurchaseRegister(ctx context.Context, from, to time.Time) ([]RegisterRow, error) {
	m.purchaseCalls++
	return m.purchaseRows, nil
}

func (m *mockRepo) SalesByProduct(ctx context.Context, from, to time.Time) ([]ProductSalesRow, error) {
	m.productCalls++
	return m.productRows, nil
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(repo, NewCache(client, time.Minute))
}

var asOf = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

func TestGetAgingReportNormalisesTotals(t *testing.T) {
	repo := &mockRepo{
		arRows: []AgingLine{
			{PartyID: 1, PartyName: "Harbor Street Retail", Current: 100.004, Days31: 50, Over120: 25.996},
		},
		apRows: []AgingLine{
			{PartyID: 9, PartyName: "Summit Supply Co", Days61: 300},
		},
	}
	svc := newTestService(t, repo)

	report, err := svc.GetAgingReport(context.Background(), asOf)
	require.NoError(t, err)
	require.Len(t, report.Receivables, 1)
	require.Len(t, report.Payables, 1)
	assert.Nil(t, report.Errors)

	// Total is recomputed as the sum of the rounded buckets.
	line := report.Receivables[0]
	assert.Equal(t, 100.0, line.Current)
	assert.Equal(t, 176.0, line.Total)
	assert.Equal(t, 300.0, report.Payables[0].Total)
}

func TestGetAgingReportCaches(t *testing.T) {
	repo := &mockRepo{arRows: []AgingLine{{PartyID: 1, Current: 10}}}
	svc := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.GetAgingReport(ctx, asOf)
	require.NoError(t, err)
	require.Equal(t, 1, repo.arCalls)

	// Second read is served from cache.
	report, err := svc.GetAgingReport(ctx, asOf)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.arCalls)
	assert.Equal(t, 10.0, report.Receivables[0].Total)
}

func TestGetAgingReportSectionsDegradeIndependently(t *testing.T) {
	repo := &mockRepo{
		arErr:  errors.New("relation missing"),
		apRows: []AgingLine{{PartyID: 9, Days91: 40}},
	}
	svc := newTestService(t, repo)

	report, err := svc.GetAgingReport(context.Background(), asOf)
	require.NoError(t, err)
	assert.Empty(t, report.Receivables)
	require.Len(t, report.Payables, 1)
	require.Contains(t, report.Errors, "receivables")
	assert.Contains(t, report.Errors["receivables"], "relation missing")
}

func TestSalesRegisterTotals(t *testing.T) {
	repo := &mockRepo{
		salesRows: []RegisterRow{
			{DocumentID: 1, Subtotal: 500, Discount: 50, Tax: 90, Total: 540},
			{DocumentID: 2, Subtotal: 200, Tax: 36, Total: 236},
		},
	}
	svc := newTestService(t, repo)

	report, err := svc.GetSalesRegister(context.Background(), asOf.AddDate(0, -1, 0), asOf)
	require.NoError(t, err)
	assert.Equal(t, 650.0, report.TotalNet)
	assert.Equal(t, 126.0, report.TotalTax)
	assert.Equal(t, 776.0, report.Total)
}

func TestBumpInvalidatesCachedReports(t *testing.T) {
	repo := &mockRepo{salesRows: []RegisterRow{{DocumentID: 1, Total: 100}}}
	svc := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.GetSalesRegister(ctx, asOf.AddDate(0, -1, 0), asOf)
	require.NoError(t, err)
	_, err = svc.GetSalesRegister(ctx, asOf.AddDate(0, -1, 0), asOf)
	require.NoError(t, err)
	require.Equal(t, 1, repo.salesCalls)

	// A posting bumped the version; the next read recomputes.
	require.NoError(t, svc.cache.Bump(ctx))

	_, err = svc.GetSalesRegister(ctx, asOf.AddDate(0, -1, 0), asOf)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.salesCalls)
}

func TestGetSalesByProduct(t *testing.T) {
	repo := &mockRepo{productRows: []ProductSalesRow{
		{ProductID: 101, Qty: 12, Gross: 1200},
		{ProductID: 102, Qty: 3, Gross: 90},
	}}
	svc := newTestService(t, repo)

	rows, err := svc.GetSalesByProduct(context.Background(), asOf.AddDate(0, -1, 0), asOf)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(101), rows[0].ProductID)
}

func TestNormaliseRangeDefaults(t *testing.T) {
	from, to := normaliseRange(time.Time{}, time.Time{})
	assert.False(t, from.IsZero())
	assert.False(t, to.IsZero())
	assert.Equal(t, to.AddDate(0, -1, 0), from)

	fixedFrom := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fixedTo := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	from, to = normaliseRange(fixedFrom, fixedTo)
	assert.Equal(t, fixedFrom, from)
	assert.Equal(t, fixedTo, to)
}
