package catalog

import (
	"context"

	"github.com/nirmaan-commerce/nirmaan/internal/shared"
)

// StockStore is the tx-scoped view the ledger mutates. Implementations bind
// to the same transaction as the surrounding order mutation so that a crash
// between validation and commit cannot leave stock inconsistent.
type StockStore interface {
	GetForUpdate(ctx context.Context, productID int64) (Product, error)
	AdjustStock(ctx context.Context, productID int64, delta float64) error
}

// Line is one product/quantity pair being reserved or released.
type Line struct {
	ProductID int64
	Quantity  float64
}

// Ledger validates and applies stock movements for order creation and
// cancellation.
type Ledger struct{}

// Reserve locks and validates every line: the product must be active, the
// quantity must meet the MOQ, and stock must cover the quantity. The first
// violation fails the whole operation naming the offending product; no
// partial reservation occurs. On success the locked products are returned
// keyed by id.
func (Ledger) Reserve(ctx context.Context, store StockStore, lines []Line) (map[int64]Product, error) {
	products := make(map[int64]Product, len(lines))
	for _, line := range lines {
		p, err := store.GetForUpdate(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if !p.Active {
			return nil, shared.BusinessRule("product_inactive", "product %q is no longer available", p.Name)
		}
		if line.Quantity < p.MOQ {
			return nil, shared.BusinessRule("below_moq", "product %q requires a minimum order quantity of %g", p.Name, p.MOQ)
		}
		if p.StockQuantity < line.Quantity {
			return nil, shared.BusinessRule("insufficient_stock", "insufficient stock for product %q: %g available, %g requested", p.Name, p.StockQuantity, line.Quantity)
		}
		products[p.ID] = p
	}
	return products, nil
}

// Commit decrements stock per line. Callers run this in the same transaction
// as the Reserve that validated it.
func (Ledger) Commit(ctx context.Context, store StockStore, lines []Line) error {
	for _, line := range lines {
		if err := store.AdjustStock(ctx, line.ProductID, -line.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// Release increments stock per line, used on cancellation.
func (Ledger) Release(ctx context.Context, store StockStore, lines []Line) error {
	for _, line := range lines {
		if err := store.AdjustStock(ctx, line.ProductID, line.Quantity); err != nil {
			return err
		}
	}
	return nil
}
