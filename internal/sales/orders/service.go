package orders

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/nirmaan-commerce/nirmaan/internal/catalog"
	"github.com/nirmaan-commerce/nirmaan/internal/gst"
	"github.com/nirmaan-commerce/nirmaan/internal/notify"
	"github.com/nirmaan-commerce/nirmaan/internal/observability"
	"github.com/nirmaan-commerce/nirmaan/internal/outbox"
	"github.com/nirmaan-commerce/nirmaan/internal/sales/customers"
	"github.com/nirmaan-commerce/nirmaan/internal/sequence"
	"github.com/nirmaan-commerce/nirmaan/internal/shared"
)

// Config carries the commercial knobs the workflow computes with.
type Config struct {
	SellerStateCode  string
	DefaultStateCode string
	DefaultGSTRate   float64
	FreightFloor     float64
	FreightPerUnit   float64
}

type Service struct {
	repo      Repository
	customers customers.Repository
	seq       sequence.Allocator
	ledger    catalog.Ledger
	cfg       Config
	logger    *slog.Logger
	audit     *shared.AuditLogger
	metrics   *observability.Metrics
}

func NewService(repo Repository, customerRepo customers.Repository, seq sequence.Allocator,
	cfg Config, logger *slog.Logger, audit *shared.AuditLogger, metrics *observability.Metrics) *Service {
	return &Service{
		repo:      repo,
		customers: customerRepo,
		seq:       seq,
		cfg:       cfg,
		logger:    logger,
		audit:     audit,
		metrics:   metrics,
	}
}

// Create runs the full order workflow: buyer-state resolution, stock
// reservation, tier pricing, per-line and order-level GST, freight, document
// numbering, and a single transaction persisting the order, its items and the
// stock decrements together with the outbox intent for notification and
// automatic invoicing.
func (s *Service) Create(ctx context.Context, customerID int64, req CreateOrderRequest) (*Order, error) {
	cust, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !cust.IsActive {
		return nil, shared.BusinessRule("customer_inactive", "customer account is inactive")
	}

	tier := cust.Tier
	if req.ForcedTier != "" {
		tier = req.ForcedTier
	}
	buyerState := cust.ResolveStateCode(req.AddressStateCode, s.cfg.DefaultStateCode)

	billing := req.BillingAddress
	if billing == "" {
		billing = req.ShippingAddress
	}

	now := time.Now()
	n, err := s.seq.Next(ctx, sequence.KindOrder, sequence.CalendarYearKey(now))
	if err != nil {
		return nil, err
	}
	number := sequence.OrderNumber(now, n)

	lines := make([]catalog.Line, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, catalog.Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	orderType := TypeDirect
	if req.QuoteID != nil {
		orderType = TypeRFQ
	}

	var order *Order
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		products, err := s.ledger.Reserve(ctx, tx.Stock(), lines)
		if err != nil {
			return err
		}

		var subtotal, units float64
		items := make([]OrderItem, 0, len(req.Items))
		for _, it := range req.Items {
			p := products[it.ProductID]
			price, ok := catalog.ResolvePrice(tier, p)
			if !ok {
				if p.PriceOnRequest {
					return shared.BusinessRule("price_on_request", "product %q is priced on request, submit a quote request instead", p.Name)
				}
				return shared.BusinessRule("price_unavailable", "no price configured for product %q", p.Name)
			}
			rate := p.EffectiveGSTRate()
			taxAmt := gst.ItemTax(it.Quantity, price, rate)
			items = append(items, OrderItem{
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    it.Quantity,
				UnitPrice:   price,
				TaxRate:     rate,
				TaxAmount:   taxAmt,
				LineTotal:   gst.Round2(it.Quantity*price + taxAmt),
			})
			subtotal += it.Quantity * price
			units += it.Quantity
		}

		b := gst.Compute(subtotal, s.cfg.SellerStateCode, buyerState, s.cfg.DefaultGSTRate)
		freight := gst.Round2(math.Max(s.cfg.FreightFloor, units*s.cfg.FreightPerUnit))
		total := gst.Round2(b.TotalAmount + freight - req.Discount)

		o := &Order{
			OrderNumber:     number,
			CustomerID:      customerID,
			Type:            orderType,
			QuoteID:         req.QuoteID,
			Status:          StatusPending,
			PaymentStatus:   PaymentPending,
			Subtotal:        b.Subtotal,
			CGST:            b.CGST,
			SGST:            b.SGST,
			IGST:            b.IGST,
			TotalTax:        b.TotalTax,
			GSTType:         b.Type,
			Freight:         freight,
			Discount:        req.Discount,
			TotalAmount:     total,
			BalanceDue:      total,
			BuyerStateCode:  buyerState,
			ShippingAddress: req.ShippingAddress,
			BillingAddress:  billing,
			Notes:           req.Notes,
		}
		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}
		if err := tx.InsertItems(ctx, o.ID, items); err != nil {
			return err
		}
		if err := s.ledger.Commit(ctx, tx.Stock(), lines); err != nil {
			return err
		}

		rec, err := outbox.NewRecord(outbox.KindOrderCreated, notify.OrderEvent{
			OrderID:       o.ID,
			OrderNumber:   o.OrderNumber,
			CustomerID:    customerID,
			CustomerEmail: cust.Email,
			Status:        string(o.Status),
			TotalAmount:   o.TotalAmount,
		})
		if err != nil {
			return err
		}
		if err := tx.AppendOutbox(ctx, rec); err != nil {
			return err
		}

		o.Items = items
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.OrdersCreated.Inc()
	}
	s.recordAudit(ctx, customerID, "order.create", order.ID, map[string]any{"order_number": order.OrderNumber, "total": order.TotalAmount})
	return order, nil
}

// UpdateStatus moves the order along a legal edge of the status machine.
// Cancellation goes through Cancel so the stock release cannot be skipped.
func (s *Service) UpdateStatus(ctx context.Context, id int64, next Status, adminNotes *string) (*Order, error) {
	if !ValidStatus(next) {
		return nil, shared.Validation("unknown_status", "unknown order status", map[string]string{"status": "must be a known order status"})
	}
	if next == StatusCancelled {
		return nil, shared.BusinessRule("use_cancel", "cancellation must go through the cancel operation")
	}

	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, next) {
		return nil, shared.BusinessRule("illegal_transition", "order %s cannot move from %s to %s", o.OrderNumber, o.Status, next)
	}

	cust, err := s.customers.Get(ctx, o.CustomerID)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.UpdateStatus(ctx, id, next, adminNotes); err != nil {
			return err
		}
		rec, err := outbox.NewRecord(outbox.KindOrderStatus, notify.OrderEvent{
			OrderID:       o.ID,
			OrderNumber:   o.OrderNumber,
			CustomerID:    o.CustomerID,
			CustomerEmail: cust.Email,
			Status:        string(next),
			TotalAmount:   o.TotalAmount,
		})
		if err != nil {
			return err
		}
		return tx.AppendOutbox(ctx, rec)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, o.CustomerID, "order.status", id, map[string]any{"from": o.Status, "to": next})
	return s.repo.Get(ctx, id)
}

// Cancel releases the reserved stock and marks the order CANCELLED, in one
// transaction. Only the owner or an admin may cancel, and only from PENDING
// or CONFIRMED.
func (s *Service) Cancel(ctx context.Context, id, requesterID int64, reason *string) (*Order, error) {
	requester, err := s.customers.Get(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.IsOwnedBy(requesterID) && !requester.IsAdmin() {
		return nil, shared.Forbidden("not_owner", "only the order owner or an admin may cancel")
	}
	if o.Status != StatusPending && o.Status != StatusConfirmed {
		return nil, shared.BusinessRule("not_cancellable", "order %s cannot be cancelled in status %s", o.OrderNumber, o.Status)
	}

	cust, err := s.customers.Get(ctx, o.CustomerID)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := s.ledger.Release(ctx, tx.Stock(), o.StockLines()); err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, id, StatusCancelled, reason); err != nil {
			return err
		}
		rec, err := outbox.NewRecord(outbox.KindOrderStatus, notify.OrderEvent{
			OrderID:       o.ID,
			OrderNumber:   o.OrderNumber,
			CustomerID:    o.CustomerID,
			CustomerEmail: cust.Email,
			Status:        string(StatusCancelled),
			TotalAmount:   o.TotalAmount,
		})
		if err != nil {
			return err
		}
		return tx.AppendOutbox(ctx, rec)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.OrdersCancelled.Inc()
	}
	s.recordAudit(ctx, requesterID, "order.cancel", id, map[string]any{"order_number": o.OrderNumber})
	return s.repo.Get(ctx, id)
}

// RecordPayment reduces the balance due and updates the payment status.
func (s *Service) RecordPayment(ctx context.Context, id int64, amount float64) (*Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status == StatusCancelled {
		return nil, shared.BusinessRule("order_cancelled", "cannot record a payment against a cancelled order")
	}

	newBalance := gst.Round2(o.BalanceDue - amount)
	if newBalance < 0 {
		return nil, shared.BusinessRule("overpayment", "payment of %.2f exceeds the balance due of %.2f", amount, o.BalanceDue)
	}
	status := PaymentPartial
	if newBalance == 0 {
		status = PaymentPaid
	}

	cust, err := s.customers.Get(ctx, o.CustomerID)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.UpdatePayment(ctx, id, status, newBalance); err != nil {
			return err
		}
		rec, err := outbox.NewRecord(outbox.KindPaymentReceived, notify.PaymentEvent{
			OrderID:       o.ID,
			OrderNumber:   o.OrderNumber,
			CustomerEmail: cust.Email,
			Amount:        amount,
			PaymentStatus: string(status),
		})
		if err != nil {
			return err
		}
		return tx.AppendOutbox(ctx, rec)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, o.CustomerID, "order.payment", id, map[string]any{"amount": amount, "balance_due": newBalance})
	return s.repo.Get(ctx, id)
}

// PlaceholderInput synthesizes a PENDING order carrying a priced quote's
// totals, so a proforma invoice has an order to reference. No items are
// created and no stock moves.
type PlaceholderInput struct {
	CustomerID     int64
	QuoteID        int64
	BuyerStateCode string
	Subtotal       float64
	CGST           float64
	SGST           float64
	IGST           float64
	TotalTax       float64
	GSTType        gst.GSTType
	Freight        float64
	Discount       float64
	TotalAmount    float64
	Notes          *string
}

// CreatePlaceholder persists the placeholder order.
func (s *Service) CreatePlaceholder(ctx context.Context, in PlaceholderInput) (*Order, error) {
	now := time.Now()
	n, err := s.seq.Next(ctx, sequence.KindOrder, sequence.CalendarYearKey(now))
	if err != nil {
		return nil, err
	}

	quoteID := in.QuoteID
	o := &Order{
		OrderNumber:     sequence.OrderNumber(now, n),
		CustomerID:      in.CustomerID,
		Type:            TypeRFQ,
		QuoteID:         &quoteID,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		Subtotal:        in.Subtotal,
		CGST:            in.CGST,
		SGST:            in.SGST,
		IGST:            in.IGST,
		TotalTax:        in.TotalTax,
		GSTType:         in.GSTType,
		Freight:         in.Freight,
		Discount:        in.Discount,
		TotalAmount:     in.TotalAmount,
		BalanceDue:      in.TotalAmount,
		BuyerStateCode:  in.BuyerStateCode,
		ShippingAddress: "",
		BillingAddress:  "",
		Notes:           in.Notes,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.InsertOrder(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	return s.repo.List(ctx, req)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, orderID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "order",
		EntityID: strconv.FormatInt(orderID, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
