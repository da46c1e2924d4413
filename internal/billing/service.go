package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nirmaan-commerce/nirmaan/internal/gst"
	"github.com/nirmaan-commerce/nirmaan/internal/observability"
	"github.com/nirmaan-commerce/nirmaan/internal/sales/customers"
	"github.com/nirmaan-commerce/nirmaan/internal/sales/orders"
	"github.com/nirmaan-commerce/nirmaan/internal/sales/quotes"
	"github.com/nirmaan-commerce/nirmaan/internal/sequence"
	"github.com/nirmaan-commerce/nirmaan/internal/shared"
)

// Config carries the seller identity stamped on every invoice.
type Config struct {
	SellerName       string
	SellerGSTIN      string
	SellerStateCode  string
	DefaultStateCode string
	DefaultGSTRate   float64
	DueDays          int
}

// OrderSource is the slice of the order workflow billing consumes.
type OrderSource interface {
	Get(ctx context.Context, id int64) (*orders.Order, error)
	CreatePlaceholder(ctx context.Context, in orders.PlaceholderInput) (*orders.Order, error)
}

// QuoteSource is the slice of the quote workflow billing consumes.
type QuoteSource interface {
	Get(ctx context.Context, id int64) (*quotes.Quote, error)
}

type Service struct {
	repo      Repository
	orders    OrderSource
	quotes    QuoteSource
	customers customers.Repository
	seq       sequence.Allocator
	cache     *ReportCache
	cfg       Config
	logger    *slog.Logger
	metrics   *observability.Metrics
}

func NewService(repo Repository, orderSource OrderSource, quoteSource QuoteSource,
	customerRepo customers.Repository, seq sequence.Allocator, cache *ReportCache,
	cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		repo:      repo,
		orders:    orderSource,
		quotes:    quoteSource,
		customers: customerRepo,
		seq:       seq,
		cache:     cache,
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
	}
}

// GenerateTaxInvoice issues the tax invoice for an order. At most one tax
// invoice exists per order; a second call fails with CONFLICT, enforced by
// the database constraint rather than a check-then-act read.
func (s *Service) GenerateTaxInvoice(ctx context.Context, orderID int64) (*Invoice, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == orders.StatusCancelled {
		return nil, shared.BusinessRule("order_cancelled", "cannot invoice a cancelled order")
	}

	cust, err := s.customers.Get(ctx, o.CustomerID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	n, err := s.seq.Next(ctx, sequence.KindInvoice, sequence.FiscalYearKey(now))
	if err != nil {
		return nil, err
	}

	inv := &Invoice{
		InvoiceNumber:   sequence.InvoiceNumber(sequence.KindInvoice, now, n),
		Type:            TypeTax,
		OrderID:         o.ID,
		QuoteID:         o.QuoteID,
		CustomerID:      o.CustomerID,
		BuyerName:       cust.Name,
		BuyerGSTIN:      cust.GSTIN,
		BuyerStateCode:  o.BuyerStateCode,
		SellerName:      s.cfg.SellerName,
		SellerGSTIN:     s.cfg.SellerGSTIN,
		SellerStateCode: s.cfg.SellerStateCode,
		Subtotal:        o.Subtotal,
		CGST:            o.CGST,
		SGST:            o.SGST,
		IGST:            o.IGST,
		TotalTax:        o.TotalTax,
		GSTType:         o.GSTType,
		Freight:         o.Freight,
		Discount:        o.Discount,
		TotalAmount:     o.TotalAmount,
		IssuedAt:        now,
		DueDate:         now.AddDate(0, 0, s.cfg.DueDays),
	}
	if err := s.repo.Insert(ctx, inv); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.InvoicesIssued.WithLabelValues("tax").Inc()
	}
	return inv, nil
}

// GenerateProformaInvoice issues a provisional invoice against a priced
// quote. When the quote has no order yet, a PENDING placeholder order is
// synthesized to satisfy the invoice's order reference; when the quote never
// computed a tax split, the split is estimated at the default rate.
func (s *Service) GenerateProformaInvoice(ctx context.Context, quoteID int64) (*Invoice, error) {
	q, err := s.quotes.Get(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if q.Status == quotes.StatusRequested || q.Status == quotes.StatusUnderReview {
		return nil, shared.BusinessRule("quote_not_priced", "quote %s has not been priced yet", q.QuoteNumber)
	}

	cust, err := s.customers.Get(ctx, q.CustomerID)
	if err != nil {
		return nil, err
	}

	buyerState := q.BuyerStateCode
	if buyerState == "" {
		buyerState = cust.ResolveStateCode("", s.cfg.DefaultStateCode)
	}

	subtotal, cgst, sgst, igst, totalTax := q.Subtotal, q.CGST, q.SGST, q.IGST, q.TotalTax
	gstType := q.GSTType
	if totalTax == 0 && subtotal > 0 {
		// Estimated split at the default rate.
		b := gst.Compute(subtotal, s.cfg.SellerStateCode, buyerState, s.cfg.DefaultGSTRate)
		cgst, sgst, igst, totalTax = b.CGST, b.SGST, b.IGST, b.TotalTax
		gstType = b.Type
	}

	orderID := int64(0)
	if q.OrderID != nil {
		orderID = *q.OrderID
	} else {
		placeholder, err := s.orders.CreatePlaceholder(ctx, orders.PlaceholderInput{
			CustomerID:     q.CustomerID,
			QuoteID:        q.ID,
			BuyerStateCode: buyerState,
			Subtotal:       subtotal,
			CGST:           cgst,
			SGST:           sgst,
			IGST:           igst,
			TotalTax:       totalTax,
			GSTType:        gstType,
			Freight:        q.Freight,
			Discount:       q.Discount,
			TotalAmount:    q.TotalAmount,
			Notes:          q.Notes,
		})
		if err != nil {
			return nil, fmt.Errorf("billing: placeholder order for quote %d: %w", q.ID, err)
		}
		orderID = placeholder.ID
	}

	now := time.Now()
	n, err := s.seq.Next(ctx, sequence.KindProforma, sequence.FiscalYearKey(now))
	if err != nil {
		return nil, err
	}

	qid := q.ID
	inv := &Invoice{
		InvoiceNumber:   sequence.InvoiceNumber(sequence.KindProforma, now, n),
		Type:            TypeProforma,
		OrderID:         orderID,
		QuoteID:         &qid,
		CustomerID:      q.CustomerID,
		BuyerName:       cust.Name,
		BuyerGSTIN:      cust.GSTIN,
		BuyerStateCode:  buyerState,
		SellerName:      s.cfg.SellerName,
		SellerGSTIN:     s.cfg.SellerGSTIN,
		SellerStateCode: s.cfg.SellerStateCode,
		Subtotal:        subtotal,
		CGST:            cgst,
		SGST:            sgst,
		IGST:            igst,
		TotalTax:        totalTax,
		GSTType:         gstType,
		Freight:         q.Freight,
		Discount:        q.Discount,
		TotalAmount:     q.TotalAmount,
		IssuedAt:        now,
		DueDate:         now.AddDate(0, 0, s.cfg.DueDays),
	}
	if err := s.repo.Insert(ctx, inv); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.InvoicesIssued.WithLabelValues("proforma").Inc()
	}
	return inv, nil
}

// GSTReport aggregates tax invoices issued inside the window, optionally
// grouped by brand. Reports are cached; a repeated pull inside the TTL skips
// the aggregation queries entirely.
func (s *Service) GSTReport(ctx context.Context, from, to time.Time, byBrand bool) (*GSTReport, error) {
	key := fmt.Sprintf("gst:report:%s:%s:%t", from.Format("2006-01-02"), to.Format("2006-01-02"), byBrand)
	if data, ok := s.cache.Get(ctx, key); ok {
		var report GSTReport
		if err := json.Unmarshal(data, &report); err == nil {
			return &report, nil
		}
	}

	report, err := s.repo.Aggregate(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if byBrand {
		brands, err := s.repo.AggregateByBrand(ctx, from, to)
		if err != nil {
			return nil, err
		}
		report.Brands = brands
	}

	if data, err := json.Marshal(report); err == nil {
		s.cache.Set(ctx, key, data)
	}
	return report, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	return s.repo.List(ctx, req)
}
