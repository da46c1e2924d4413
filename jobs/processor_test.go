package jobs

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/nirmaan-commerce/nirmaan/internal/billing"
	"github.com/nirmaan-commerce/nirmaan/internal/notify"
	"github.com/nirmaan-commerce/nirmaan/internal/outbox"
	"github.com/nirmaan-commerce/nirmaan/internal/shared"
)

type recordingSink struct {
	newOrders     []notify.OrderEvent
	orderStatuses []notify.OrderEvent
	newQuotes     []notify.QuoteEvent
	quoteStatuses []notify.QuoteEvent
	payments      []notify.PaymentEvent
}

func (s *recordingSink) NotifyNewOrder(_ context.Context, ev notify.OrderEvent) {
	s.newOrders = append(s.newOrders, ev)
}

func (s *recordingSink) NotifyOrderStatusUpdate(_ context.Context, ev notify.OrderEvent) {
	s.orderStatuses = append(s.orderStatuses, ev)
}

func (s *recordingSink) NotifyNewQuote(_ context.Context, ev notify.QuoteEvent) {
	s.newQuotes = append(s.newQuotes, ev)
}

func (s *recordingSink) NotifyQuoteStatusUpdate(_ context.Context, ev notify.QuoteEvent) {
	s.quoteStatuses = append(s.quoteStatuses, ev)
}

func (s *recordingSink) NotifyPaymentReceived(_ context.Context, ev notify.PaymentEvent) {
	s.payments = append(s.payments, ev)
}

type fakeIssuer struct {
	calls []int64
	err   error
}

func (f *fakeIssuer) GenerateTaxInvoice(_ context.Context, orderID int64) (*billing.Invoice, error) {
	f.calls = append(f.calls, orderID)
	if f.err != nil {
		return nil, f.err
	}
	return &billing.Invoice{ID: 1, OrderID: orderID, Type: billing.TypeTax}, nil
}

type memGuard struct {
	keys    map[string]bool
	deleted []string
}

func newMemGuard() *memGuard {
	return &memGuard{keys: map[string]bool{}}
}

func (g *memGuard) CheckAndInsert(_ context.Context, key, _ string) error {
	if g.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	g.keys[key] = true
	return nil
}

func (g *memGuard) Delete(_ context.Context, key string) error {
	delete(g.keys, key)
	g.deleted = append(g.deleted, key)
	return nil
}

func (g *memGuard) Cleanup(context.Context, time.Duration) error {
	return nil
}

func outboxTask(t *testing.T, kind string, payload any) *asynq.Task {
	t.Helper()
	rec, err := outbox.NewRecord(kind, payload)
	require.NoError(t, err)
	task, err := NewOutboxEventTask(rec.Kind, rec.Payload)
	require.NoError(t, err)
	return task
}

func TestOrderCreatedNotifiesAndIssuesInvoice(t *testing.T) {
	sink := &recordingSink{}
	issuer := &fakeIssuer{}
	p := NewProcessor(sink, issuer, newMemGuard(), slog.Default(), nil)

	ev := notify.OrderEvent{OrderID: 7, OrderNumber: "ORD-2026-00007", CustomerEmail: "buyer@example.in", Status: "PENDING", TotalAmount: 2652}
	err := p.HandleOutboxEvent(context.Background(), outboxTask(t, outbox.KindOrderCreated, ev))
	require.NoError(t, err)

	require.Len(t, sink.newOrders, 1)
	require.Equal(t, "ORD-2026-00007", sink.newOrders[0].OrderNumber)
	require.Equal(t, []int64{7}, issuer.calls)
}

func TestOrderCreatedInvoicesAtMostOnce(t *testing.T) {
	sink := &recordingSink{}
	issuer := &fakeIssuer{}
	p := NewProcessor(sink, issuer, newMemGuard(), slog.Default(), nil)

	ev := notify.OrderEvent{OrderID: 7, OrderNumber: "ORD-2026-00007"}
	task := outboxTask(t, outbox.KindOrderCreated, ev)
	require.NoError(t, p.HandleOutboxEvent(context.Background(), task))
	require.NoError(t, p.HandleOutboxEvent(context.Background(), task))

	require.Len(t, issuer.calls, 1)
}

func TestInvoiceFailureIsSwallowedAndKeyReleased(t *testing.T) {
	sink := &recordingSink{}
	issuer := &fakeIssuer{err: errors.New("billing down")}
	guard := newMemGuard()
	p := NewProcessor(sink, issuer, guard, slog.Default(), nil)

	ev := notify.OrderEvent{OrderID: 9, OrderNumber: "ORD-2026-00009"}
	err := p.HandleOutboxEvent(context.Background(), outboxTask(t, outbox.KindOrderCreated, ev))
	require.NoError(t, err)

	require.Len(t, sink.newOrders, 1)
	require.Len(t, guard.deleted, 1)
	require.False(t, guard.keys["tax-invoice:order:9"])
}

func TestStatusAndPaymentEventsFanOut(t *testing.T) {
	sink := &recordingSink{}
	p := NewProcessor(sink, nil, newMemGuard(), slog.Default(), nil)
	ctx := context.Background()

	require.NoError(t, p.HandleOutboxEvent(ctx, outboxTask(t, outbox.KindOrderStatus,
		notify.OrderEvent{OrderID: 1, Status: "CONFIRMED"})))
	require.NoError(t, p.HandleOutboxEvent(ctx, outboxTask(t, outbox.KindQuoteCreated,
		notify.QuoteEvent{QuoteID: 2, QuoteNumber: "RFQ-2026-00002"})))
	require.NoError(t, p.HandleOutboxEvent(ctx, outboxTask(t, outbox.KindQuoteStatus,
		notify.QuoteEvent{QuoteID: 2, Status: "REJECTED", Reason: "pricing lapsed"})))
	require.NoError(t, p.HandleOutboxEvent(ctx, outboxTask(t, outbox.KindPaymentReceived,
		notify.PaymentEvent{OrderID: 1, Amount: 500, PaymentStatus: "PARTIAL"})))

	require.Len(t, sink.orderStatuses, 1)
	require.Len(t, sink.newQuotes, 1)
	require.Len(t, sink.quoteStatuses, 1)
	require.Equal(t, "pricing lapsed", sink.quoteStatuses[0].Reason)
	require.Len(t, sink.payments, 1)
}

func TestUnknownKindIsSkipped(t *testing.T) {
	p := NewProcessor(&recordingSink{}, nil, newMemGuard(), slog.Default(), nil)

	task, err := NewOutboxEventTask("shipment.created", []byte(`{}`))
	require.NoError(t, err)
	err = p.HandleOutboxEvent(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}
