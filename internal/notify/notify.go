// Package notify fans business events out to interested humans. Delivery is
// best effort: a notification failure is logged and dropped, it never fails
// the operation that raised it.
package notify

import (
	"context"
	"fmt"
	"log/slog"
)

// OrderEvent describes an order lifecycle change.
type OrderEvent struct {
	OrderID       int64   `json:"order_id"`
	OrderNumber   string  `json:"order_number"`
	CustomerID    int64   `json:"customer_id"`
	CustomerEmail string  `json:"customer_email"`
	Status        string  `json:"status"`
	TotalAmount   float64 `json:"total_amount"`
}

// QuoteEvent describes a quote lifecycle change.
type QuoteEvent struct {
	QuoteID       int64  `json:"quote_id"`
	QuoteNumber   string `json:"quote_number"`
	CustomerID    int64  `json:"customer_id"`
	CustomerEmail string `json:"customer_email"`
	Status        string `json:"status"`
	Reason        string `json:"reason,omitempty"`
}

// PaymentEvent describes a recorded payment.
type PaymentEvent struct {
	OrderID       int64   `json:"order_id"`
	OrderNumber   string  `json:"order_number"`
	CustomerEmail string  `json:"customer_email"`
	Amount        float64 `json:"amount"`
	PaymentStatus string  `json:"payment_status"`
}

// Sink receives business events. Implementations must swallow delivery
// failures.
type Sink interface {
	NotifyNewOrder(ctx context.Context, ev OrderEvent)
	NotifyOrderStatusUpdate(ctx context.Context, ev OrderEvent)
	NotifyNewQuote(ctx context.Context, ev QuoteEvent)
	NotifyQuoteStatusUpdate(ctx context.Context, ev QuoteEvent)
	NotifyPaymentReceived(ctx context.Context, ev PaymentEvent)
}

// Mailer enqueues an email for background delivery.
type Mailer interface {
	EnqueueEmail(ctx context.Context, to, subject, body string) error
}

// QueueSink renders events into emails and hands them to a Mailer.
type QueueSink struct {
	mailer Mailer
	logger *slog.Logger
	// opsEmail receives a copy of every event for the back office.
	opsEmail string
}

// NewQueueSink constructs a QueueSink.
func NewQueueSink(mailer Mailer, logger *slog.Logger, opsEmail string) *QueueSink {
	return &QueueSink{mailer: mailer, logger: logger, opsEmail: opsEmail}
}

func (s *QueueSink) send(ctx context.Context, to, subject, body string) {
	if to == "" {
		return
	}
	if err := s.mailer.EnqueueEmail(ctx, to, subject, body); err != nil {
		s.logger.Warn("notification dropped", slog.String("to", to), slog.String("subject", subject), slog.Any("error", err))
	}
}

func (s *QueueSink) NotifyNewOrder(ctx context.Context, ev OrderEvent) {
	subject := fmt.Sprintf("Order %s received", ev.OrderNumber)
	body := fmt.Sprintf("Your order %s for ₹%.2f has been placed and is pending confirmation.", ev.OrderNumber, ev.TotalAmount)
	s.send(ctx, ev.CustomerEmail, subject, body)
	s.send(ctx, s.opsEmail, fmt.Sprintf("New order %s", ev.OrderNumber), fmt.Sprintf("Customer %d placed order %s for ₹%.2f.", ev.CustomerID, ev.OrderNumber, ev.TotalAmount))
}

func (s *QueueSink) NotifyOrderStatusUpdate(ctx context.Context, ev OrderEvent) {
	subject := fmt.Sprintf("Order %s is now %s", ev.OrderNumber, ev.Status)
	s.send(ctx, ev.CustomerEmail, subject, fmt.Sprintf("Your order %s has moved to %s.", ev.OrderNumber, ev.Status))
}

func (s *QueueSink) NotifyNewQuote(ctx context.Context, ev QuoteEvent) {
	subject := fmt.Sprintf("Quote request %s received", ev.QuoteNumber)
	s.send(ctx, ev.CustomerEmail, subject, fmt.Sprintf("We have received your request %s and will respond with pricing shortly.", ev.QuoteNumber))
	s.send(ctx, s.opsEmail, fmt.Sprintf("New RFQ %s", ev.QuoteNumber), fmt.Sprintf("Customer %d submitted quote request %s.", ev.CustomerID, ev.QuoteNumber))
}

func (s *QueueSink) NotifyQuoteStatusUpdate(ctx context.Context, ev QuoteEvent) {
	subject := fmt.Sprintf("Quote %s is now %s", ev.QuoteNumber, ev.Status)
	body := fmt.Sprintf("Your quote %s has moved to %s.", ev.QuoteNumber, ev.Status)
	if ev.Reason != "" {
		body += " Reason: " + ev.Reason
	}
	s.send(ctx, ev.CustomerEmail, subject, body)
}

func (s *QueueSink) NotifyPaymentReceived(ctx context.Context, ev PaymentEvent) {
	subject := fmt.Sprintf("Payment received for order %s", ev.OrderNumber)
	s.send(ctx, ev.CustomerEmail, subject, fmt.Sprintf("We recorded a payment of ₹%.2f against order %s. Payment status: %s.", ev.Amount, ev.OrderNumber, ev.PaymentStatus))
}

// NopSink discards every event. Used in tests and local development.
type NopSink struct{}

func (NopSink) NotifyNewOrder(context.Context, OrderEvent)          {}
func (NopSink) NotifyOrderStatusUpdate(context.Context, OrderEvent) {}
func (NopSink) NotifyNewQuote(context.Context, QuoteEvent)          {}
func (NopSink) NotifyQuoteStatusUpdate(context.Context, QuoteEvent) {}
func (NopSink) NotifyPaymentReceived(context.Context, PaymentEvent) {}
