package analytics

import (
	"context"
	"time"
)

// RegisterRow is one posted document inside a sales or purchase register.
type RegisterRow struct {
	DocumentID    int64     `json:"document_id"`
	DocType       string    `json:"doc_type"`
	Number        string    `json:"number"`
	DocDate       time.Time `json:"doc_date"`
	PartyID       int64     `json:"party_id"`
	PartyName     string    `json:"party_name"`
	Subtotal      float64   `json:"subtotal"`
	Discount      float64   `json:"discount"`
	Tax           float64   `json:"tax"`
	WHT           float64   `json:"wht,omitempty"`
	Total         float64   `json:"total"`
	AmountPaid    float64   `json:"amount_paid"`
	PaymentStatus string    `json:"payment_status"`
}

// ProductSalesRow aggregates posted sales quantities per product.
type ProductSalesRow struct {
	ProductID int64   `json:"product_id"`
	Qty       float64 `json:"qty"`
	Gross     float64 `json:"gross"`
}

// RegisterReport is a date-ranged register with section totals.
type RegisterReport struct {
	From     time.Time     `json:"from"`
	To       time.Time     `json:"to"`
	Rows     []RegisterRow `json:"rows"`
	TotalNet float64       `json:"total_net"`
	TotalTax float64       `json:"total_tax"`
	Total    float64       `json:"total"`
}

// GetSalesRegister lists posted POS sales and customer invoices in range.
func (s *Service) GetSalesRegister(ctx context.Context, from, to time.Time) (RegisterReport, error) {
	return s.register(ctx, "sales_register", from, to, s.repo.SalesRegister)
}

// GetPurchaseRegister lists posted vendor bills in range.
func (s *Service) GetPurchaseRegister(ctx context.Context, from, to time.Time) (RegisterReport, error) {
	return s.register(ctx, "purchase_register", from, to, s.repo.PurchaseRegister)
}

func (s *Service) register(ctx context.Context, prefix string, from, to time.Time, query func(context.Context, time.Time, time.Time) ([]RegisterRow, error)) (RegisterReport, error) {
	from, to = normaliseRange(from, to)
	loader := func(ctx context.Context) (interface{}, error) {
		rows, err := query(ctx, from, to)
		if err != nil {
			return nil, err
		}
		report := RegisterReport{From: from, To: to, Rows: rows}
		for _, row := range rows {
			report.TotalNet += row.Subtotal - row.Discount
			report.TotalTax += row.Tax
			report.Total += row.Total
		}
		return report, nil
	}
	if s.cache == nil {
		value, err := loader(ctx)
		if err != nil {
			return RegisterReport{}, err
		}
		return value.(RegisterReport), nil
	}
	key, err := s.cache.BuildKey(ctx, prefix, dateToken(from), dateToken(to))
	if err != nil {
		return RegisterReport{}, err
	}
	var report RegisterReport
	if err := s.cache.FetchJSON(ctx, key, &report, loader); err != nil {
		return RegisterReport{}, err
	}
	return report, nil
}

// GetSalesByProduct aggregates posted sales lines per product in range.
func (s *Service) GetSalesByProduct(ctx context.Context, from, to time.Time) ([]ProductSalesRow, error) {
	from, to = normaliseRange(from, to)
	loader := func(ctx context.Context) (interface{}, error) {
		return s.repo.SalesByProduct(ctx, from, to)
	}
	if s.cache == nil {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		return value.([]ProductSalesRow), nil
	}
	key, err := s.cache.BuildKey(ctx, "sales_by_product", dateToken(from), dateToken(to))
	if err != nil {
		return nil, err
	}
	var rows []ProductSalesRow
	if err := s.cache.FetchJSON(ctx, key, &rows, loader); err != nil {
		return nil, err
	}
	return rows, nil
}

func normaliseRange(from, to time.Time) (time.Time, time.Time) {
	if to.IsZero() {
		to = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if from.IsZero() {
		from = to.AddDate(0, -1, 0)
	}
	return from, to
}
