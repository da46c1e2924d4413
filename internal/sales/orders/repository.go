package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nirmaan-commerce/nirmaan/internal/catalog"
	"github.com/nirmaan-commerce/nirmaan/internal/outbox"
	"github.com/nirmaan-commerce/nirmaan/internal/platform/db"
	"github.com/nirmaan-commerce/nirmaan/internal/shared"
)

// Tx is the transactional slice of the repository. Stock and outbox writes
// bind to the same database transaction as the order rows, so a failure on
// any step rolls back all of them.
type Tx interface {
	InsertOrder(ctx context.Context, o *Order) error
	InsertItems(ctx context.Context, orderID int64, items []OrderItem) error
	UpdateStatus(ctx context.Context, id int64, status Status, adminNotes *string) error
	UpdatePayment(ctx context.Context, id int64, status PaymentStatus, balanceDue float64) error
	Stock() catalog.StockStore
	AppendOutbox(ctx context.Context, rec outbox.Record) error
}

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Tx) error) error
	Get(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const orderColumns = `id, order_number, customer_id, order_type, quote_id, status, payment_status,
	subtotal, cgst, sgst, igst, total_tax, gst_type, freight, discount, total_amount, balance_due,
	buyer_state_code, shipping_address, billing_address, notes, admin_notes, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.Type, &o.QuoteID, &o.Status,
		&o.PaymentStatus, &o.Subtotal, &o.CGST, &o.SGST, &o.IGST, &o.TotalTax, &o.GSTType,
		&o.Freight, &o.Discount, &o.TotalAmount, &o.BalanceDue, &o.BuyerStateCode,
		&o.ShippingAddress, &o.BillingAddress, &o.Notes, &o.AdminNotes, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFound("order_not_found", "order not found")
		}
		return nil, err
	}
	return &o, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Order, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns), id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, unit_price, tax_rate, tax_amount, line_total
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName,
			&it.Quantity, &it.UnitPrice, &it.TaxRate, &it.TaxAmount, &it.LineTotal); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	where := "WHERE 1=1"
	var args []interface{}
	argPos := 1

	if req.CustomerID != nil {
		where += fmt.Sprintf(" AND customer_id = $%d", argPos)
		args = append(args, *req.CustomerID)
		argPos++
	}
	if req.Status != nil {
		where += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, *req.Status)
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM orders %s`, where), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = shared.DefaultPerPage
	}
	query := fmt.Sprintf(`SELECT %s FROM orders %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		err := rows.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.Type, &o.QuoteID, &o.Status,
			&o.PaymentStatus, &o.Subtotal, &o.CGST, &o.SGST, &o.IGST, &o.TotalTax, &o.GSTType,
			&o.Freight, &o.Discount, &o.TotalAmount, &o.BalanceDue, &o.BuyerStateCode,
			&o.ShippingAddress, &o.BillingAddress, &o.Notes, &o.AdminNotes, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	return orders, total, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (t *txRepository) InsertOrder(ctx context.Context, o *Order) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO orders (order_number, customer_id, order_type, quote_id, status, payment_status,
			subtotal, cgst, sgst, igst, total_tax, gst_type, freight, discount, total_amount, balance_due,
			buyer_state_code, shipping_address, billing_address, notes, admin_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING id, created_at, updated_at
	`, o.OrderNumber, o.CustomerID, o.Type, o.QuoteID, o.Status, o.PaymentStatus,
		o.Subtotal, o.CGST, o.SGST, o.IGST, o.TotalTax, o.GSTType, o.Freight, o.Discount,
		o.TotalAmount, o.BalanceDue, o.BuyerStateCode, o.ShippingAddress, o.BillingAddress,
		o.Notes, o.AdminNotes).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
}

func (t *txRepository) InsertItems(ctx context.Context, orderID int64, items []OrderItem) error {
	for i := range items {
		err := t.tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, tax_rate, tax_amount, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id
		`, orderID, items[i].ProductID, items[i].ProductName, items[i].Quantity,
			items[i].UnitPrice, items[i].TaxRate, items[i].TaxAmount, items[i].LineTotal).Scan(&items[i].ID)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
		items[i].OrderID = orderID
	}
	return nil
}

func (t *txRepository) UpdateStatus(ctx context.Context, id int64, status Status, adminNotes *string) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE orders SET status = $2, admin_notes = COALESCE($3, admin_notes), updated_at = NOW()
		WHERE id = $1
	`, id, status, adminNotes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("order_not_found", "order %d not found", id)
	}
	return nil
}

func (t *txRepository) UpdatePayment(ctx context.Context, id int64, status PaymentStatus, balanceDue float64) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE orders SET payment_status = $2, balance_due = $3, updated_at = NOW()
		WHERE id = $1
	`, id, status, balanceDue)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("order_not_found", "order %d not found", id)
	}
	return nil
}

func (t *txRepository) Stock() catalog.StockStore {
	return catalog.NewStore(t.tx)
}

func (t *txRepository) AppendOutbox(ctx context.Context, rec outbox.Record) error {
	return outbox.AppendTx(ctx, t.tx, rec)
}
