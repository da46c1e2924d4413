package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nirmaan-commerce/nirmaan/internal/shared"
)

type memoryStock struct {
	products map[int64]Product
}

func (m *memoryStock) GetForUpdate(ctx context.Context, id int64) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, shared.NotFound("product_not_found", "product not found")
	}
	return p, nil
}

func (m *memoryStock) AdjustStock(ctx context.Context, id int64, delta float64) error {
	p := m.products[id]
	p.StockQuantity += delta
	m.products[id] = p
	return nil
}

func newMemoryStock() *memoryStock {
	return &memoryStock{products: map[int64]Product{
		1: {ID: 1, Name: "OPC 53 Cement", Active: true, MOQ: 10, StockQuantity: 100},
		2: {ID: 2, Name: "TMT Bar 12mm", Active: true, MOQ: 1, StockQuantity: 5},
		3: {ID: 3, Name: "River Sand", Active: false, MOQ: 1, StockQuantity: 50},
	}}
}

func TestReserveValidatesEveryLine(t *testing.T) {
	store := newMemoryStock()
	ledger := Ledger{}
	ctx := context.Background()

	products, err := ledger.Reserve(ctx, store, []Line{{ProductID: 1, Quantity: 20}, {ProductID: 2, Quantity: 5}})
	require.NoError(t, err)
	require.Len(t, products, 2)

	_, err = ledger.Reserve(ctx, store, []Line{{ProductID: 1, Quantity: 5}})
	require.True(t, shared.IsKind(err, shared.KindBusinessRule))
	require.Contains(t, err.Error(), "OPC 53 Cement")

	_, err = ledger.Reserve(ctx, store, []Line{{ProductID: 2, Quantity: 6}})
	require.True(t, shared.IsKind(err, shared.KindBusinessRule))
	require.Contains(t, err.Error(), "insufficient stock")

	_, err = ledger.Reserve(ctx, store, []Line{{ProductID: 3, Quantity: 1}})
	require.True(t, shared.IsKind(err, shared.KindBusinessRule))

	_, err = ledger.Reserve(ctx, store, []Line{{ProductID: 99, Quantity: 1}})
	require.True(t, shared.IsKind(err, shared.KindNotFound))
}

func TestCommitAndRelease(t *testing.T) {
	store := newMemoryStock()
	ledger := Ledger{}
	ctx := context.Background()
	lines := []Line{{ProductID: 1, Quantity: 20}, {ProductID: 2, Quantity: 3}}

	require.NoError(t, ledger.Commit(ctx, store, lines))
	require.Equal(t, 80.0, store.products[1].StockQuantity)
	require.Equal(t, 2.0, store.products[2].StockQuantity)

	require.NoError(t, ledger.Release(ctx, store, lines))
	require.Equal(t, 100.0, store.products[1].StockQuantity)
	require.Equal(t, 5.0, store.products[2].StockQuantity)
}
