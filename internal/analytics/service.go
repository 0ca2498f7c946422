// Package analytics builds financial reports over posted documents: AR/AP
// aging, sales and purchase registers, and product-level sales totals. All
// reads go through a versioned Redis cache that document posting bumps.
package analytics

import (
	"context"
	"time"
)

// Repository exposes the report queries.
type Repository interface {
	AgingReceivables(ctx context.Context, asOf time.Time) ([]AgingLine, error)
	AgingPayables(ctx context.Context, asOf time.Time) ([]AgingLine, error)
	SalesRegister(ctx context.Context, from, to time.Time) ([]RegisterRow, error)
	PurchaseRegister(ctx context.Context, from, to time.Time) ([]RegisterRow, error)
	SalesByProduct(ctx context.Context, from, to time.Time) ([]ProductSalesRow, error)
}

// Service coordinates report query execution with the cache layer.
type Service struct {
	repo  Repository
	cache *Cache
}

// NewService wires a Repository with a Cache helper.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

func dateToken(t time.Time) string {
	return t.Format("2006-01-02")
}
