package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nirmaan-commerce/nirmaan/internal/shared"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx, letting the same
// store run standalone or inside a caller's transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// PGStore reads products and adjusts stock.
type PGStore struct {
	db Querier
}

// NewStore binds a store to a pool or transaction.
func NewStore(db Querier) *PGStore {
	return &PGStore{db: db}
}

const productColumns = `id, sku, name, brand, retail_price, b2b_price, dealer_price,
	is_price_on_request, moq, stock_quantity, gst_rate, active`

func (s *PGStore) scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Brand, &p.RetailPrice, &p.B2BPrice,
		&p.DealerPrice, &p.PriceOnRequest, &p.MOQ, &p.StockQuantity, &p.GSTRate, &p.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.NotFound("product_not_found", "product not found")
		}
		return Product{}, err
	}
	return p, nil
}

// Get fetches one product.
func (s *PGStore) Get(ctx context.Context, id int64) (Product, error) {
	row := s.db.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns), id)
	return s.scanProduct(row)
}

// GetBatch fetches all referenced products keyed by id. Missing ids are
// simply absent from the map; the caller decides whether that is fatal.
func (s *PGStore) GetBatch(ctx context.Context, ids []int64) (map[int64]Product, error) {
	rows, err := s.db.Query(ctx, fmt.Sprintf(`SELECT %s FROM products WHERE id = ANY($1)`, productColumns), ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make(map[int64]Product, len(ids))
	for rows.Next() {
		var p Product
		err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Brand, &p.RetailPrice, &p.B2BPrice,
			&p.DealerPrice, &p.PriceOnRequest, &p.MOQ, &p.StockQuantity, &p.GSTRate, &p.Active)
		if err != nil {
			return nil, err
		}
		products[p.ID] = p
	}
	return products, rows.Err()
}

// GetForUpdate locks the product row for the duration of the transaction.
func (s *PGStore) GetForUpdate(ctx context.Context, id int64) (Product, error) {
	row := s.db.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM products WHERE id = $1 FOR UPDATE`, productColumns), id)
	return s.scanProduct(row)
}

// AdjustStock applies a delta to the stock count. The check constraint on
// stock_quantity keeps it non-negative even if a caller skips validation.
func (s *PGStore) AdjustStock(ctx context.Context, id int64, delta float64) error {
	tag, err := s.db.Exec(ctx, `UPDATE products SET stock_quantity = stock_quantity + $2, updated_at = NOW() WHERE id = $1`, id, delta)
	if err != nil {
		return fmt.Errorf("catalog: adjust stock for product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("product_not_found", "product %d not found", id)
	}
	return nil
}
