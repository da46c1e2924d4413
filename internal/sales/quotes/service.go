package quotes

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/nirmaan-commerce/nirmaan/internal/catalog"
	"github.com/nirmaan-commerce/nirmaan/internal/gst"
	"github.com/nirmaan-commerce/nirmaan/internal/notify"
	"github.com/nirmaan-commerce/nirmaan/internal/observability"
	"github.com/nirmaan-commerce/nirmaan/internal/outbox"
	"github.com/nirmaan-commerce/nirmaan/internal/sales/customers"
	"github.com/nirmaan-commerce/nirmaan/internal/sales/orders"
	"github.com/nirmaan-commerce/nirmaan/internal/sequence"
	"github.com/nirmaan-commerce/nirmaan/internal/shared"
)

// ProductGetter is the slice of the catalog store the quote workflow reads.
type ProductGetter interface {
	GetBatch(ctx context.Context, ids []int64) (map[int64]catalog.Product, error)
}

// OrderCreator is the order workflow conversion delegates to.
type OrderCreator interface {
	Create(ctx context.Context, customerID int64, req orders.CreateOrderRequest) (*orders.Order, error)
}

type Service struct {
	repo      Repository
	customers customers.Repository
	products  ProductGetter
	seq       sequence.Allocator
	orders    OrderCreator
	cfg       orders.Config
	logger    *slog.Logger
	audit     *shared.AuditLogger
	metrics   *observability.Metrics
}

func NewService(repo Repository, customerRepo customers.Repository, products ProductGetter,
	seq sequence.Allocator, orderCreator OrderCreator, cfg orders.Config,
	logger *slog.Logger, audit *shared.AuditLogger, metrics *observability.Metrics) *Service {
	return &Service{
		repo:      repo,
		customers: customerRepo,
		products:  products,
		seq:       seq,
		orders:    orderCreator,
		cfg:       cfg,
		logger:    logger,
		audit:     audit,
		metrics:   metrics,
	}
}

// Create persists a quote request carrying only requested quantities; pricing
// comes later from the back office.
func (s *Service) Create(ctx context.Context, customerID int64, req CreateQuoteRequest) (*Quote, error) {
	cust, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !cust.IsActive {
		return nil, shared.BusinessRule("customer_inactive", "customer account is inactive")
	}

	ids := make([]int64, 0, len(req.Items))
	for _, it := range req.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.products.GetBatch(ctx, ids)
	if err != nil {
		return nil, err
	}
	items := make([]QuoteItem, 0, len(req.Items))
	for _, it := range req.Items {
		p, ok := products[it.ProductID]
		if !ok {
			return nil, shared.NotFound("product_not_found", "product %d not found", it.ProductID)
		}
		if !p.Active {
			return nil, shared.BusinessRule("product_inactive", "product %q is no longer available", p.Name)
		}
		items = append(items, QuoteItem{
			ProductID:         p.ID,
			ProductName:       p.Name,
			RequestedQuantity: it.Quantity,
			Notes:             it.Notes,
		})
	}

	now := time.Now()
	n, err := s.seq.Next(ctx, sequence.KindQuote, sequence.CalendarYearKey(now))
	if err != nil {
		return nil, err
	}

	q := &Quote{
		QuoteNumber: sequence.QuoteNumber(now, n),
		CustomerID:  customerID,
		Status:      StatusRequested,
		Notes:       req.Notes,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.InsertQuote(ctx, q); err != nil {
			return err
		}
		if err := tx.InsertItems(ctx, q.ID, items); err != nil {
			return err
		}
		rec, err := outbox.NewRecord(outbox.KindQuoteCreated, notify.QuoteEvent{
			QuoteID:       q.ID,
			QuoteNumber:   q.QuoteNumber,
			CustomerID:    customerID,
			CustomerEmail: cust.Email,
			Status:        string(q.Status),
		})
		if err != nil {
			return err
		}
		return tx.AppendOutbox(ctx, rec)
	})
	if err != nil {
		return nil, err
	}

	q.Items = items
	if s.metrics != nil {
		s.metrics.QuotesCreated.Inc()
	}
	s.recordAudit(ctx, customerID, "quote.create", q.ID, map[string]any{"quote_number": q.QuoteNumber})
	return q, nil
}

// StartReview marks a fresh request as being worked on.
func (s *Service) StartReview(ctx context.Context, id int64) (*Quote, error) {
	return s.transition(ctx, id, StatusUnderReview, nil)
}

// UpdatePricing applies admin pricing to every line, recomputes the GST
// breakdown from the quoted amounts and moves the quote to QUOTED. A quote
// may be repriced until the customer approves or rejects it.
func (s *Service) UpdatePricing(ctx context.Context, id int64, req UpdatePricingRequest) (*Quote, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !priceable(q.Status) {
		return nil, shared.BusinessRule("not_priceable", "quote %s cannot be priced in status %s", q.QuoteNumber, q.Status)
	}

	cust, err := s.customers.Get(ctx, q.CustomerID)
	if err != nil {
		return nil, err
	}
	buyerState := cust.ResolveStateCode("", s.cfg.DefaultStateCode)

	byID := make(map[int64]QuoteItem, len(q.Items))
	for _, it := range q.Items {
		byID[it.ID] = it
	}
	if len(req.Lines) != len(q.Items) {
		return nil, shared.BusinessRule("unpriced_lines", "pricing must cover all %d quote lines", len(q.Items))
	}
	var subtotal float64
	priced := make(map[int64]bool, len(req.Lines))
	for _, line := range req.Lines {
		if _, ok := byID[line.ItemID]; !ok {
			return nil, shared.NotFound("quote_item_not_found", "quote item %d not found on quote %s", line.ItemID, q.QuoteNumber)
		}
		if priced[line.ItemID] {
			return nil, shared.BusinessRule("duplicate_pricing_line", "quote item %d priced more than once", line.ItemID)
		}
		priced[line.ItemID] = true
		subtotal += line.QuotedQuantity * line.QuotedPrice
	}

	b := gst.Compute(subtotal, s.cfg.SellerStateCode, buyerState, s.cfg.DefaultGSTRate)
	q.Status = StatusQuoted
	q.Subtotal = b.Subtotal
	q.CGST = b.CGST
	q.SGST = b.SGST
	q.IGST = b.IGST
	q.TotalTax = b.TotalTax
	q.GSTType = b.Type
	q.Freight = req.Freight
	q.Discount = req.Discount
	q.TotalAmount = gst.Round2(b.TotalAmount + req.Freight - req.Discount)
	q.BuyerStateCode = buyerState
	q.ValidUntil = req.ValidUntil
	if req.Notes != nil {
		q.Notes = req.Notes
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		for _, line := range req.Lines {
			if err := tx.UpdateItemPricing(ctx, line.ItemID, line.QuotedQuantity, line.QuotedPrice); err != nil {
				return err
			}
		}
		if err := tx.UpdateTotals(ctx, q); err != nil {
			return err
		}
		rec, err := outbox.NewRecord(outbox.KindQuoteStatus, notify.QuoteEvent{
			QuoteID:       q.ID,
			QuoteNumber:   q.QuoteNumber,
			CustomerID:    q.CustomerID,
			CustomerEmail: cust.Email,
			Status:        string(StatusQuoted),
		})
		if err != nil {
			return err
		}
		return tx.AppendOutbox(ctx, rec)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, q.CustomerID, "quote.price", id, map[string]any{"total": q.TotalAmount})
	return s.repo.Get(ctx, id)
}

// Approve accepts the quoted pricing. Only the owner or an admin may decide.
func (s *Service) Approve(ctx context.Context, id, requesterID int64) (*Quote, error) {
	if err := s.requireOwnerOrAdmin(ctx, id, requesterID); err != nil {
		return nil, err
	}
	q, err := s.transition(ctx, id, StatusApproved, nil)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, requesterID, "quote.approve", id, nil)
	return q, nil
}

// Reject declines the quoted pricing with a mandatory reason.
func (s *Service) Reject(ctx context.Context, id, requesterID int64, reason string) (*Quote, error) {
	if reason == "" {
		return nil, shared.Validation("reason_required", "a rejection reason is required", map[string]string{"reason": "must not be empty"})
	}
	if err := s.requireOwnerOrAdmin(ctx, id, requesterID); err != nil {
		return nil, err
	}
	q, err := s.transition(ctx, id, StatusRejected, &reason)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, requesterID, "quote.reject", id, map[string]any{"reason": reason})
	return q, nil
}

// ConvertToOrder builds an order from the quoted quantities and delegates to
// the order workflow at a fixed B2B tier. Conversion and order creation are
// deliberately separate transactions: if the order fails, the quote stays
// APPROVED so the customer can retry.
func (s *Service) ConvertToOrder(ctx context.Context, id, requesterID int64, req ConvertQuoteRequest) (*orders.Order, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !q.IsOwnedBy(requesterID) {
		return nil, shared.Forbidden("not_owner", "only the quote owner may convert it")
	}
	if q.Status != StatusApproved {
		return nil, shared.BusinessRule("quote_not_approved", "quote %s must be approved before conversion", q.QuoteNumber)
	}
	if q.Expired(time.Now()) {
		return nil, shared.BusinessRule("quote_expired", "quote has expired")
	}

	items := make([]orders.OrderItemRequest, 0, len(q.Items))
	for _, it := range q.Items {
		items = append(items, orders.OrderItemRequest{
			ProductID: it.ProductID,
			Quantity:  it.EffectiveQuantity(),
		})
	}
	quoteID := q.ID
	order, err := s.orders.Create(ctx, q.CustomerID, orders.CreateOrderRequest{
		Items:            items,
		ShippingAddress:  req.ShippingAddress,
		BillingAddress:   req.BillingAddress,
		AddressStateCode: req.AddressStateCode,
		Discount:         q.Discount,
		Notes:            q.Notes,
		QuoteID:          &quoteID,
		ForcedTier:       catalog.TierB2B,
	})
	if err != nil {
		return nil, err
	}

	cust, err := s.customers.Get(ctx, q.CustomerID)
	if err != nil {
		return nil, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.UpdateStatus(ctx, id, StatusConverted, nil); err != nil {
			return err
		}
		if err := tx.SetOrderID(ctx, id, order.ID); err != nil {
			return err
		}
		rec, err := outbox.NewRecord(outbox.KindQuoteStatus, notify.QuoteEvent{
			QuoteID:       q.ID,
			QuoteNumber:   q.QuoteNumber,
			CustomerID:    q.CustomerID,
			CustomerEmail: cust.Email,
			Status:        string(StatusConverted),
		})
		if err != nil {
			return err
		}
		return tx.AppendOutbox(ctx, rec)
	})
	if err != nil {
		// The order exists; only the quote bookkeeping failed. Surface it so
		// a retried conversion finds the quote still APPROVED.
		s.logger.Error("quote conversion bookkeeping failed", slog.Int64("quote_id", id), slog.Int64("order_id", order.ID), slog.Any("error", err))
		return nil, err
	}

	s.recordAudit(ctx, requesterID, "quote.convert", id, map[string]any{"order_id": order.ID, "order_number": order.OrderNumber})
	return order, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Quote, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListQuotesRequest) ([]Quote, int, error) {
	return s.repo.List(ctx, req)
}

// transition moves the quote along a legal edge and records the outbox
// notification in the same transaction.
func (s *Service) transition(ctx context.Context, id int64, next Status, rejectionReason *string) (*Quote, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(q.Status, next) {
		return nil, shared.BusinessRule("illegal_transition", "quote %s cannot move from %s to %s", q.QuoteNumber, q.Status, next)
	}

	cust, err := s.customers.Get(ctx, q.CustomerID)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.UpdateStatus(ctx, id, next, rejectionReason); err != nil {
			return err
		}
		ev := notify.QuoteEvent{
			QuoteID:       q.ID,
			QuoteNumber:   q.QuoteNumber,
			CustomerID:    q.CustomerID,
			CustomerEmail: cust.Email,
			Status:        string(next),
		}
		if rejectionReason != nil {
			ev.Reason = *rejectionReason
		}
		rec, err := outbox.NewRecord(outbox.KindQuoteStatus, ev)
		if err != nil {
			return err
		}
		return tx.AppendOutbox(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) requireOwnerOrAdmin(ctx context.Context, id, requesterID int64) error {
	requester, err := s.customers.Get(ctx, requesterID)
	if err != nil {
		return err
	}
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !q.IsOwnedBy(requesterID) && !requester.IsAdmin() {
		return shared.Forbidden("not_owner", "only the quote owner or an admin may decide on it")
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, quoteID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "quote",
		EntityID: strconv.FormatInt(quoteID, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
