// Package stats computes the derived sale aggregates: the per-product
// cached Stats and the store-wide dashboard numbers. Everything here is a
// pure sum — order-independent and safe to recompute at any time.
package stats

import (
	"github.com/shopspring/decimal"

	"stocktrack/backend/internal/domain"
)

// Compute recomputes Stats from scratch over a product's sales list.
func Compute(sales []domain.Sale) domain.Stats {
	st := domain.Stats{Revenue: decimal.Zero}
	for _, sale := range sales {
		st = Apply(st, sale)
	}
	return st
}

// Apply folds one new sale into prior Stats. Applying each sale in turn
// yields the same result as a full Compute over the extended list.
func Apply(prev domain.Stats, sale domain.Sale) domain.Stats {
	qty := decimal.NewFromInt(int64(sale.Quantity))
	return domain.Stats{
		TotalSales: prev.TotalSales + sale.Quantity,
		Revenue:    prev.Revenue.Add(sale.UnitPrice.Mul(qty)),
	}
}

// Global sums the dashboard aggregate over all current product records.
func Global(products []domain.Product) domain.GlobalStats {
	gs := domain.GlobalStats{
		TotalStockValue: decimal.Zero,
		TotalSalesValue: decimal.Zero,
	}
	for _, p := range products {
		gs.TotalStock += p.Quantity
		if p.Quantity > 0 {
			gs.TotalStockValue = gs.TotalStockValue.Add(p.Price.Mul(decimal.NewFromInt(int64(p.Quantity))))
		}
		gs.ProductsSold += p.Stats.TotalSales
		gs.TotalSalesValue = gs.TotalSalesValue.Add(p.Stats.Revenue)
	}
	return gs
}
