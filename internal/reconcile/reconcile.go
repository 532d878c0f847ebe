// Package reconcile converts the legacy flat store layout (separate
// products and sales collections, sales carrying a productId foreign key)
// into the embedded layout where every product owns its sales and cached
// stats. Sales whose product no longer exists are preserved on synthesized
// "legacy" placeholder products instead of being dropped.
//
// The transform is a one-shot batch job. It must never run concurrently
// with live traffic against the same store.
package reconcile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"stocktrack/backend/internal/domain"
	"stocktrack/backend/internal/stats"
)

// ErrInput marks a missing or unparseable input file. Nothing is written
// when it is returned.
var ErrInput = errors.New("migration input unreadable")

// FlexInt decodes JSON integers that may arrive as numbers, quoted
// strings, floats, or garbage. Anything unusable becomes zero rather than
// poisoning the aggregates downstream.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	if v, err := strconv.Atoi(s); err == nil {
		*n = FlexInt(v)
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*n = FlexInt(int(f))
		return nil
	}
	*n = 0
	return nil
}

// FlexDecimal decodes JSON decimals that may arrive as numbers or quoted
// strings; unusable values become zero.
type FlexDecimal struct {
	decimal.Decimal
}

func (d *FlexDecimal) UnmarshalJSON(b []byte) error {
	var dec decimal.Decimal
	if err := dec.UnmarshalJSON(b); err != nil {
		d.Decimal = decimal.Zero
		return nil
	}
	d.Decimal = dec
	return nil
}

type LegacySale struct {
	ID          string      `json:"id"`
	ProductID   string      `json:"productId"`
	ProductName string      `json:"productName"`
	Category    string      `json:"category"`
	Quantity    FlexInt     `json:"quantity"`
	UnitPrice   FlexDecimal `json:"unitPrice"`
	Date        string      `json:"date"`
}

func (ls LegacySale) toSale() domain.Sale {
	return domain.Sale{
		ID:          ls.ID,
		ProductID:   ls.ProductID,
		ProductName: ls.ProductName,
		Category:    ls.Category,
		Quantity:    int(ls.Quantity),
		UnitPrice:   ls.UnitPrice.Decimal,
		Date:        ls.Date,
	}
}

// LegacyProduct tolerates both the flat legacy records (no sales, string
// numerics) and already-migrated records (embedded sales), so running the
// engine over its own output reads cleanly. Any stored stats are ignored:
// stats are always recomputed from the sales list.
type LegacyProduct struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	SKU         string       `json:"sku"`
	Category    string       `json:"category"`
	Price       FlexDecimal  `json:"price"`
	Quantity    FlexInt      `json:"quantity"`
	Description string       `json:"description"`
	Status      string       `json:"status"`
	Sales       []LegacySale `json:"sales"`
}

func (lp LegacyProduct) toProduct() domain.Product {
	sales := make([]domain.Sale, 0, len(lp.Sales))
	for _, ls := range lp.Sales {
		sales = append(sales, ls.toSale())
	}
	status := lp.Status
	if status == "" {
		status = domain.StatusForQuantity(int(lp.Quantity))
	}
	return domain.Product{
		ID:          lp.ID,
		Name:        lp.Name,
		SKU:         lp.SKU,
		Category:    lp.Category,
		Price:       lp.Price.Decimal,
		Quantity:    int(lp.Quantity),
		Description: lp.Description,
		Status:      status,
		Sales:       sales,
		Stats:       stats.Compute(sales),
	}
}

// LegacySnapshot is the input layout. A missing products or sales key is
// treated as empty, which is what makes a re-run over migrated output
// (no root sales left) a safe no-op. A root-level stats object, when
// present, is simply ignored and therefore dropped.
type LegacySnapshot struct {
	Products []LegacyProduct `json:"products"`
	Sales    []LegacySale    `json:"sales"`
}

// Snapshot is the output layout: products only, each carrying its own
// sales and stats. Global aggregates are derived, never stored here.
type Snapshot struct {
	Products []domain.Product `json:"products"`
}

type Summary struct {
	SalesMerged     int
	OrphanSales     int
	MatchedProducts int
	LegacyProducts  int
}

// Run performs the reconciliation over an in-memory snapshot.
func Run(input LegacySnapshot) (Snapshot, Summary) {
	working := make([]*domain.Product, 0, len(input.Products))
	byID := make(map[string]*domain.Product, len(input.Products))
	for _, lp := range input.Products {
		if _, exists := byID[lp.ID]; exists {
			// Duplicate id in the input: the first record wins.
			continue
		}
		p := lp.toProduct()
		working = append(working, &p)
		byID[lp.ID] = &p
	}

	orphans := make([]domain.Sale, 0)
	for _, ls := range input.Sales {
		sale := ls.toSale()
		if p, ok := byID[sale.ProductID]; ok {
			p.Sales = append(p.Sales, sale)
			p.Stats = stats.Apply(p.Stats, sale)
		} else {
			orphans = append(orphans, sale)
		}
	}

	// One placeholder per distinct orphaned product id, in the order the
	// ids are first encountered; all its orphan sales accumulate onto it.
	legacy := make([]*domain.Product, 0)
	legacyByID := make(map[string]*domain.Product)
	for _, sale := range orphans {
		placeholder, ok := legacyByID[sale.ProductID]
		if !ok {
			p := newLegacyPlaceholder(sale)
			legacy = append(legacy, &p)
			legacyByID[sale.ProductID] = &p
			placeholder = &p
		}
		placeholder.Sales = append(placeholder.Sales, sale)
		placeholder.Stats = stats.Apply(placeholder.Stats, sale)
	}

	products := make([]domain.Product, 0, len(working)+len(legacy))
	for _, p := range working {
		products = append(products, *p)
	}
	for _, p := range legacy {
		products = append(products, *p)
	}

	return Snapshot{Products: products}, Summary{
		SalesMerged:     len(input.Sales),
		OrphanSales:     len(orphans),
		MatchedProducts: len(working),
		LegacyProducts:  len(legacy),
	}
}

func newLegacyPlaceholder(sale domain.Sale) domain.Product {
	name := sale.ProductName
	if name == "" {
		name = "Legacy Product"
	}
	category := sale.Category
	if category == "" {
		category = "Legacy"
	}
	return domain.Product{
		ID:          sale.ProductID,
		Name:        name,
		SKU:         domain.LegacySKUPrefix + sale.ProductID,
		Category:    category,
		Price:       sale.UnitPrice,
		Quantity:    0,
		Description: domain.LegacyDescription,
		Status:      domain.StatusDiscontinued,
		Sales:       []domain.Sale{},
		Stats:       domain.Stats{Revenue: decimal.Zero},
	}
}

// RunFile reads a snapshot file, reconciles it, and writes the result to
// outputPath (which may equal inputPath). Fail-fast: an unreadable or
// unparseable input aborts before anything is written, and the output is
// written atomically so no partial store can ever be observed.
func RunFile(inputPath string, outputPath string) (Summary, error) {
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %v", ErrInput, err)
	}

	var input LegacySnapshot
	if err := json.Unmarshal(raw, &input); err != nil {
		return Summary{}, fmt.Errorf("%w: %v", ErrInput, err)
	}

	output, summary := Run(input)
	payload, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return Summary{}, fmt.Errorf("encode migrated store: %w", err)
	}
	payload = append(payload, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(outputPath), ".migrate-*.json")
	if err != nil {
		return Summary{}, fmt.Errorf("write migrated store: %w", err)
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return Summary{}, fmt.Errorf("write migrated store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return Summary{}, fmt.Errorf("write migrated store: %w", err)
	}
	if err := os.Rename(tmp.Name(), outputPath); err != nil {
		os.Remove(tmp.Name())
		return Summary{}, fmt.Errorf("write migrated store: %w", err)
	}

	return summary, nil
}
