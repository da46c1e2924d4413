// Package catalog holds the product read model consumed by the commerce
// workflows, tier pricing resolution, and the stock ledger. Catalog CRUD
// itself is managed elsewhere; this package only reads products and mutates
// stock.
package catalog

import "github.com/nirmaan-commerce/nirmaan/internal/gst"

// Product is the commerce view of a catalog item. Products are never
// deleted, only deactivated.
type Product struct {
	ID             int64    `json:"id"`
	SKU            string   `json:"sku"`
	Name           string   `json:"name"`
	Brand          string   `json:"brand"`
	RetailPrice    *float64 `json:"retail_price,omitempty"`
	B2BPrice       *float64 `json:"b2b_price,omitempty"`
	DealerPrice    *float64 `json:"dealer_price,omitempty"`
	PriceOnRequest bool     `json:"is_price_on_request"`
	MOQ            float64  `json:"moq"`
	StockQuantity  float64  `json:"stock_quantity"`
	GSTRate        float64  `json:"gst_rate"`
	Active         bool     `json:"active"`
}

// EffectiveGSTRate falls back to the system-wide rate when the product
// carries none.
func (p Product) EffectiveGSTRate() float64 {
	if p.GSTRate > 0 {
		return p.GSTRate
	}
	return gst.DefaultRate
}
