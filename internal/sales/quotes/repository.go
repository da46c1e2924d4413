package quotes

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nirmaan-commerce/nirmaan/internal/outbox"
	"github.com/nirmaan-commerce/nirmaan/internal/platform/db"
	"github.com/nirmaan-commerce/nirmaan/internal/shared"
)

// Tx is the transactional slice of the repository.
type Tx interface {
	InsertQuote(ctx context.Context, q *Quote) error
	InsertItems(ctx context.Context, quoteID int64, items []QuoteItem) error
	UpdateItemPricing(ctx context.Context, itemID int64, quantity, price float64) error
	UpdateTotals(ctx context.Context, q *Quote) error
	UpdateStatus(ctx context.Context, id int64, status Status, rejectionReason *string) error
	SetOrderID(ctx context.Context, id, orderID int64) error
	AppendOutbox(ctx context.Context, rec outbox.Record) error
}

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Tx) error) error
	Get(ctx context.Context, id int64) (*Quote, error)
	List(ctx context.Context, req ListQuotesRequest) ([]Quote, int, error)
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

const quoteColumns = `id, quote_number, customer_id, status, subtotal, cgst, sgst, igst, total_tax,
	gst_type, freight, discount, total_amount, buyer_state_code, valid_until, rejection_reason,
	order_id, notes, created_at, updated_at`

func scanQuote(row pgx.Row) (*Quote, error) {
	var q Quote
	err := row.Scan(&q.ID, &q.QuoteNumber, &q.CustomerID, &q.Status, &q.Subtotal, &q.CGST,
		&q.SGST, &q.IGST, &q.TotalTax, &q.GSTType, &q.Freight, &q.Discount, &q.TotalAmount,
		&q.BuyerStateCode, &q.ValidUntil, &q.RejectionReason, &q.OrderID, &q.Notes,
		&q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFound("quote_not_found", "quote not found")
		}
		return nil, err
	}
	return &q, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Quote, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM quotes WHERE id = $1`, quoteColumns), id)
	q, err := scanQuote(row)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, quote_id, product_id, product_name, requested_quantity, quoted_quantity, quoted_price, notes
		FROM quote_items
		WHERE quote_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it QuoteItem
		if err := rows.Scan(&it.ID, &it.QuoteID, &it.ProductID, &it.ProductName,
			&it.RequestedQuantity, &it.QuotedQuantity, &it.QuotedPrice, &it.Notes); err != nil {
			return nil, err
		}
		q.Items = append(q.Items, it)
	}
	return q, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListQuotesRequest) ([]Quote, int, error) {
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
	if err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM quotes %s`, where), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = shared.DefaultPerPage
	}
	query := fmt.Sprintf(`SELECT %s FROM quotes %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		quoteColumns, where, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var quotes []Quote
	for rows.Next() {
		var q Quote
		err := rows.Scan(&q.ID, &q.QuoteNumber, &q.CustomerID, &q.Status, &q.Subtotal, &q.CGST,
			&q.SGST, &q.IGST, &q.TotalTax, &q.GSTType, &q.Freight, &q.Discount, &q.TotalAmount,
			&q.BuyerStateCode, &q.ValidUntil, &q.RejectionReason, &q.OrderID, &q.Notes,
			&q.CreatedAt, &q.UpdatedAt)
		if err != nil {
			return nil, 0, err
		}
		quotes = append(quotes, q)
	}
	return quotes, total, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (t *txRepository) InsertQuote(ctx context.Context, q *Quote) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO quotes (quote_number, customer_id, status, subtotal, cgst, sgst, igst, total_tax,
			gst_type, freight, discount, total_amount, buyer_state_code, valid_until, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at
	`, q.QuoteNumber, q.CustomerID, q.Status, q.Subtotal, q.CGST, q.SGST, q.IGST, q.TotalTax,
		q.GSTType, q.Freight, q.Discount, q.TotalAmount, q.BuyerStateCode, q.ValidUntil, q.Notes).
		Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
}

func (t *txRepository) InsertItems(ctx context.Context, quoteID int64, items []QuoteItem) error {
	for i := range items {
		err := t.tx.QueryRow(ctx, `
			INSERT INTO quote_items (quote_id, product_id, product_name, requested_quantity, notes)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, quoteID, items[i].ProductID, items[i].ProductName, items[i].RequestedQuantity, items[i].Notes).
			Scan(&items[i].ID)
		if err != nil {
			return fmt.Errorf("insert quote item: %w", err)
		}
		items[i].QuoteID = quoteID
	}
	return nil
}

func (t *txRepository) UpdateItemPricing(ctx context.Context, itemID int64, quantity, price float64) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE quote_items SET quoted_quantity = $2, quoted_price = $3 WHERE id = $1
	`, itemID, quantity, price)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("quote_item_not_found", "quote item %d not found", itemID)
	}
	return nil
}

func (t *txRepository) UpdateTotals(ctx context.Context, q *Quote) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE quotes SET status = $2, subtotal = $3, cgst = $4, sgst = $5, igst = $6, total_tax = $7,
			gst_type = $8, freight = $9, discount = $10, total_amount = $11, buyer_state_code = $12,
			valid_until = $13, notes = COALESCE($14, notes), updated_at = NOW()
		WHERE id = $1
	`, q.ID, q.Status, q.Subtotal, q.CGST, q.SGST, q.IGST, q.TotalTax, q.GSTType,
		q.Freight, q.Discount, q.TotalAmount, q.BuyerStateCode, q.ValidUntil, q.Notes)
	return err
}

func (t *txRepository) UpdateStatus(ctx context.Context, id int64, status Status, rejectionReason *string) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE quotes SET status = $2, rejection_reason = COALESCE($3, rejection_reason), updated_at = NOW()
		WHERE id = $1
	`, id, status, rejectionReason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("quote_not_found", "quote %d not found", id)
	}
	return nil
}

func (t *txRepository) SetOrderID(ctx context.Context, id, orderID int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE quotes SET order_id = $2, updated_at = NOW() WHERE id = $1`, id, orderID)
	return err
}

func (t *txRepository) AppendOutbox(ctx context.Context, rec outbox.Record) error {
	return outbox.AppendTx(ctx, t.tx, rec)
}
