package domain

import "github.com/shopspring/decimal"

// Sale is one recorded transaction against a product. Sales are immutable
// once ingested; they are only removed when their owning product is deleted.
type Sale struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Category    string          `json:"category"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Date        string          `json:"date"`
}

// Stats is the cached per-product aggregate. It is derived data: it must
// always equal a recompute over the product's sales list.
type Stats struct {
	TotalSales int             `json:"totalSales"`
	Revenue    decimal.Decimal `json:"revenue"`
}

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	SKU         string          `json:"sku"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	Sales       []Sale          `json:"sales"`
	Stats       Stats           `json:"stats"`
}

type ProductCreateRequest struct {
	ID          string          `json:"id,omitempty"`
	Name        string          `json:"name"`
	SKU         string          `json:"sku"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Description string          `json:"description"`
}

type ProductUpdateRequest struct {
	Name        *string          `json:"name,omitempty"`
	SKU         *string          `json:"sku,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Quantity    *int             `json:"quantity,omitempty"`
	Description *string          `json:"description,omitempty"`
	Status      *string          `json:"status,omitempty"`
}

// SaleRequest is the payload for recording a sale against a product.
// ProductName and Category are denormalized from the product at ingestion
// time, never supplied by the caller.
type SaleRequest struct {
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Date      string          `json:"date"`
}

// GlobalStats is the store-wide aggregate shown on the dashboard. It is
// recomputed from the product records on every read and never persisted.
type GlobalStats struct {
	TotalStock      int             `json:"totalStock"`
	TotalStockValue decimal.Decimal `json:"totalStockValue"`
	ProductsSold    int             `json:"productsSold"`
	TotalSalesValue decimal.Decimal `json:"totalSalesValue"`
}

type DashboardView struct {
	Stats       GlobalStats `json:"stats"`
	TopProducts []Product   `json:"topProducts"`
	RecentSales []Sale      `json:"recentSales"`
}

const (
	StatusInStock      = "En stock"
	StatusLowStock     = "Stock faible"
	StatusOutOfStock   = "Rupture"
	StatusDiscontinued = "Discontinued"
)

// StatusForQuantity maps current stock to its display status. Negative
// stock (backorder) reads as out of stock.
func StatusForQuantity(quantity int) string {
	switch {
	case quantity > 10:
		return StatusInStock
	case quantity > 0:
		return StatusLowStock
	default:
		return StatusOutOfStock
	}
}

// LegacyDescription is the provenance note carried by synthesized legacy
// placeholder products.
const LegacyDescription = "Product was deleted but sales history preserved."

// LegacySKUPrefix prefixes the synthesized SKU of a legacy placeholder.
const LegacySKUPrefix = "LEGACY-"
