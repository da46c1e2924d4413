package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nirmaan-commerce/nirmaan/internal/shared"
)

type Repository interface {
	Insert(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, id int64) (*Invoice, error)
	List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error)
	Aggregate(ctx context.Context, from, to time.Time) (*GSTReport, error)
	AggregateByBrand(ctx context.Context, from, to time.Time) ([]BrandLine, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const invoiceColumns = `id, invoice_number, invoice_type, order_id, quote_id, customer_id,
	buyer_name, buyer_gstin, buyer_state_code, seller_name, seller_gstin, seller_state_code,
	subtotal, cgst, sgst, igst, total_tax, gst_type, freight, discount, total_amount,
	issued_at, due_date, created_at`

// Insert persists the invoice. The at-most-one TAX_INVOICE per order
// invariant is a partial unique index on (order_id) WHERE invoice_type =
// 'TAX_INVOICE'; the database, not a check-then-act read, is the arbiter.
func (r *repository) Insert(ctx context.Context, inv *Invoice) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO invoices (invoice_number, invoice_type, order_id, quote_id, customer_id,
			buyer_name, buyer_gstin, buyer_state_code, seller_name, seller_gstin, seller_state_code,
			subtotal, cgst, sgst, igst, total_tax, gst_type, freight, discount, total_amount,
			issued_at, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		RETURNING id, created_at
	`, inv.InvoiceNumber, inv.Type, inv.OrderID, inv.QuoteID, inv.CustomerID,
		inv.BuyerName, inv.BuyerGSTIN, inv.BuyerStateCode, inv.SellerName, inv.SellerGSTIN,
		inv.SellerStateCode, inv.Subtotal, inv.CGST, inv.SGST, inv.IGST, inv.TotalTax,
		inv.GSTType, inv.Freight, inv.Discount, inv.TotalAmount, inv.IssuedAt, inv.DueDate).
		Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == shared.PGUniqueViolation {
			return shared.Conflict("invoice_exists", "a tax invoice already exists for order %d", inv.OrderID)
		}
		return fmt.Errorf("billing: insert invoice: %w", err)
	}
	return nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Invoice, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM invoices WHERE id = $1`, invoiceColumns), id)
	return scanInvoice(row)
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.Type, &inv.OrderID, &inv.QuoteID,
		&inv.CustomerID, &inv.BuyerName, &inv.BuyerGSTIN, &inv.BuyerStateCode, &inv.SellerName,
		&inv.SellerGSTIN, &inv.SellerStateCode, &inv.Subtotal, &inv.CGST, &inv.SGST, &inv.IGST,
		&inv.TotalTax, &inv.GSTType, &inv.Freight, &inv.Discount, &inv.TotalAmount,
		&inv.IssuedAt, &inv.DueDate, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFound("invoice_not_found", "invoice not found")
		}
		return nil, err
	}
	return &inv, nil
}

func (r *repository) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	where := "WHERE 1=1"
	var args []interface{}
	argPos := 1

	if req.CustomerID != nil {
		where += fmt.Sprintf(" AND customer_id = $%d", argPos)
		args = append(args, *req.CustomerID)
		argPos++
	}
	if req.Type != nil {
		where += fmt.Sprintf(" AND invoice_type = $%d", argPos)
		args = append(args, *req.Type)
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM invoices %s`, where), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = shared.DefaultPerPage
	}
	query := fmt.Sprintf(`SELECT %s FROM invoices %s ORDER BY issued_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		invoiceColumns, where, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		var inv Invoice
		err := rows.Scan(&inv.ID, &inv.InvoiceNumber, &inv.Type, &inv.OrderID, &inv.QuoteID,
			&inv.CustomerID, &inv.BuyerName, &inv.BuyerGSTIN, &inv.BuyerStateCode, &inv.SellerName,
			&inv.SellerGSTIN, &inv.SellerStateCode, &inv.Subtotal, &inv.CGST, &inv.SGST, &inv.IGST,
			&inv.TotalTax, &inv.GSTType, &inv.Freight, &inv.Discount, &inv.TotalAmount,
			&inv.IssuedAt, &inv.DueDate, &inv.CreatedAt)
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, total, rows.Err()
}

// Aggregate sums tax invoices issued inside [from, to].
func (r *repository) Aggregate(ctx context.Context, from, to time.Time) (*GSTReport, error) {
	report := GSTReport{From: from, To: to}
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(subtotal), 0), COALESCE(SUM(cgst), 0), COALESCE(SUM(sgst), 0),
			COALESCE(SUM(igst), 0), COALESCE(SUM(total_tax), 0), COALESCE(SUM(total_amount), 0)
		FROM invoices
		WHERE invoice_type = $1 AND issued_at >= $2 AND issued_at <= $3
	`, TypeTax, from, to).Scan(&report.InvoiceCount, &report.Subtotal, &report.CGST,
		&report.SGST, &report.IGST, &report.TotalTax, &report.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("billing: gst aggregate: %w", err)
	}
	return &report, nil
}

// AggregateByBrand groups the invoiced order lines by product brand.
func (r *repository) AggregateByBrand(ctx context.Context, from, to time.Time) ([]BrandLine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.brand,
			COALESCE(SUM(oi.quantity * oi.unit_price), 0),
			COALESCE(SUM(oi.tax_amount), 0)
		FROM invoices i
		JOIN order_items oi ON oi.order_id = i.order_id
		JOIN products p ON p.id = oi.product_id
		WHERE i.invoice_type = $1 AND i.issued_at >= $2 AND i.issued_at <= $3
		GROUP BY p.brand
		ORDER BY p.brand
	`, TypeTax, from, to)
	if err != nil {
		return nil, fmt.Errorf("billing: gst aggregate by brand: %w", err)
	}
	defer rows.Close()

	var lines []BrandLine
	for rows.Next() {
		var l BrandLine
		if err := rows.Scan(&l.Brand, &l.TaxableValue, &l.Tax); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
