package orders

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nirmaan-commerce/nirmaan/internal/catalog"
	"github.com/nirmaan-commerce/nirmaan/internal/outbox"
	"github.com/nirmaan-commerce/nirmaan/internal/sales/customers"
	"github.com/nirmaan-commerce/nirmaan/internal/sequence"
	"github.com/nirmaan-commerce/nirmaan/internal/shared"
)

type memState struct {
	products    map[int64]catalog.Product
	orders      map[int64]*Order
	outbox      []outbox.Record
	nextOrderID int64
	nextItemID  int64
}

func (st *memState) clone() *memState {
	c := &memState{
		products:    make(map[int64]catalog.Product, len(st.products)),
		orders:      make(map[int64]*Order, len(st.orders)),
		outbox:      append([]outbox.Record(nil), st.outbox...),
		nextOrderID: st.nextOrderID,
		nextItemID:  st.nextItemID,
	}
	for id, p := range st.products {
		c.products[id] = p
	}
	for id, o := range st.orders {
		oc := *o
		oc.Items = append([]OrderItem(nil), o.Items...)
		c.orders[id] = &oc
	}
	return c
}

type memStock struct {
	st *memState
}

func (m memStock) GetForUpdate(_ context.Context, productID int64) (catalog.Product, error) {
	p, ok := m.st.products[productID]
	if !ok {
		return catalog.Product{}, shared.NotFound("product_not_found", "product %d not found", productID)
	}
	return p, nil
}

func (m memStock) AdjustStock(_ context.Context, productID int64, delta float64) error {
	p, ok := m.st.products[productID]
	if !ok {
		return shared.NotFound("product_not_found", "product %d not found", productID)
	}
	p.StockQuantity += delta
	m.st.products[productID] = p
	return nil
}

type memTx struct {
	st *memState
}

func (t *memTx) InsertOrder(_ context.Context, o *Order) error {
	t.st.nextOrderID++
	o.ID = t.st.nextOrderID
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	oc := *o
	t.st.orders[o.ID] = &oc
	return nil
}

func (t *memTx) InsertItems(_ context.Context, orderID int64, items []OrderItem) error {
	o, ok := t.st.orders[orderID]
	if !ok {
		return shared.NotFound("order_not_found", "order %d not found", orderID)
	}
	for i := range items {
		t.st.nextItemID++
		items[i].ID = t.st.nextItemID
		items[i].OrderID = orderID
	}
	o.Items = append([]OrderItem(nil), items...)
	return nil
}

func (t *memTx) UpdateStatus(_ context.Context, id int64, status Status, adminNotes *string) error {
	o, ok := t.st.orders[id]
	if !ok {
		return shared.NotFound("order_not_found", "order %d not found", id)
	}
	o.Status = status
	if adminNotes != nil {
		o.AdminNotes = adminNotes
	}
	return nil
}

func (t *memTx) UpdatePayment(_ context.Context, id int64, status PaymentStatus, balanceDue float64) error {
	o, ok := t.st.orders[id]
	if !ok {
		return shared.NotFound("order_not_found", "order %d not found", id)
	}
	o.PaymentStatus = status
	o.BalanceDue = balanceDue
	return nil
}

func (t *memTx) Stock() catalog.StockStore {
	return memStock{st: t.st}
}

func (t *memTx) AppendOutbox(_ context.Context, rec outbox.Record) error {
	t.st.outbox = append(t.st.outbox, rec)
	return nil
}

type memRepo struct {
	st *memState
}

func (r *memRepo) WithTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	snap := r.st.clone()
	if err := fn(ctx, &memTx{st: r.st}); err != nil {
		*r.st = *snap
		return err
	}
	return nil
}

func (r *memRepo) Get(_ context.Context, id int64) (*Order, error) {
	o, ok := r.st.orders[id]
	if !ok {
		return nil, shared.NotFound("order_not_found", "order not found")
	}
	oc := *o
	oc.Items = append([]OrderItem(nil), o.Items...)
	return &oc, nil
}

func (r *memRepo) List(_ context.Context, req ListOrdersRequest) ([]Order, int, error) {
	var out []Order
	for _, o := range r.st.orders {
		if req.CustomerID != nil && o.CustomerID != *req.CustomerID {
			continue
		}
		if req.Status != nil && o.Status != *req.Status {
			continue
		}
		out = append(out, *o)
	}
	return out, len(out), nil
}

type memCustomers struct {
	m map[int64]*customers.Customer
}

func (r *memCustomers) Get(_ context.Context, id int64) (*customers.Customer, error) {
	c, ok := r.m[id]
	if !ok {
		return nil, shared.NotFound("customer_not_found", "customer not found")
	}
	cc := *c
	return &cc, nil
}

type seqFake struct {
	n int64
}

func (s *seqFake) Next(context.Context, sequence.Kind, string) (int64, error) {
	s.n++
	return s.n, nil
}

func fp(v float64) *float64 { return &v }

func newState() *memState {
	return &memState{
		products: map[int64]catalog.Product{
			1: {ID: 1, SKU: "CEM-OPC53", Name: "OPC 53 Cement", Brand: "UltraTech", RetailPrice: fp(100), B2BPrice: fp(90), DealerPrice: fp(80), MOQ: 5, StockQuantity: 100, GSTRate: 18, Active: true},
			2: {ID: 2, SKU: "SND-RVR", Name: "River Sand", Brand: "Local", RetailPrice: fp(50), MOQ: 1, StockQuantity: 10, GSTRate: 18, Active: true},
			3: {ID: 3, SKU: "STL-TMT", Name: "TMT Steel Bars", Brand: "Tata", PriceOnRequest: true, MOQ: 1, StockQuantity: 100, GSTRate: 18, Active: true},
		},
		orders: map[int64]*Order{},
	}
}

func newTestCustomers() map[int64]*customers.Customer {
	sc27 := "27"
	sc29 := "29"
	return map[int64]*customers.Customer{
		1: {ID: 1, Name: "Sharma Constructions", Email: "sharma@example.com", Tier: catalog.TierB2B, StateCode: &sc27, IsActive: true},
		2: {ID: 2, Name: "Mehta Traders", Email: "mehta@example.com", Tier: catalog.TierRetail, StateCode: &sc29, IsActive: true},
		3: {ID: 3, Name: "Back Office", Email: "ops@example.com", Tier: catalog.TierAdmin, IsActive: true},
	}
}

func newTestService(st *memState) *Service {
	cfg := Config{
		SellerStateCode:  "27",
		DefaultStateCode: "27",
		DefaultGSTRate:   18,
		FreightFloor:     500,
		FreightPerUnit:   50,
	}
	return NewService(&memRepo{st: st}, &memCustomers{m: newTestCustomers()}, &seqFake{}, cfg, slog.Default(), nil, nil)
}

func TestCreateComputesIntraStateTotals(t *testing.T) {
	st := newState()
	svc := newTestService(st)

	order, err := svc.Create(context.Background(), 1, CreateOrderRequest{
		Items: []OrderItemRequest{
			{ProductID: 1, Quantity: 10},
			{ProductID: 2, Quantity: 10},
		},
		ShippingAddress: "Plot 4, MIDC, Pune",
	})
	require.NoError(t, err)

	require.Equal(t, sequence.OrderNumber(time.Now(), 1), order.OrderNumber)
	require.Equal(t, StatusPending, order.Status)
	require.Equal(t, TypeDirect, order.Type)

	// B2B tier: 10 x 90 + 10 x 50 = 1400, intra-state 18% splits 126/126.
	require.InDelta(t, 1400, order.Subtotal, 1e-9)
	require.InDelta(t, 126, order.CGST, 1e-9)
	require.InDelta(t, 126, order.SGST, 1e-9)
	require.Zero(t, order.IGST)
	require.InDelta(t, 252, order.TotalTax, 1e-9)

	// 20 units: freight = max(500, 20x50) = 1000.
	require.InDelta(t, 1000, order.Freight, 1e-9)
	require.InDelta(t, 2652, order.TotalAmount, 1e-9)
	require.InDelta(t, 2652, order.BalanceDue, 1e-9)

	require.Len(t, order.Items, 2)
	require.InDelta(t, 90, order.Items[0].UnitPrice, 1e-9)
	require.InDelta(t, 162, order.Items[0].TaxAmount, 1e-9)
	require.InDelta(t, 1062, order.Items[0].LineTotal, 1e-9)

	require.InDelta(t, 90, st.products[1].StockQuantity, 1e-9)
	require.Zero(t, st.products[2].StockQuantity)

	require.Len(t, st.outbox, 1)
	require.Equal(t, outbox.KindOrderCreated, st.outbox[0].Kind)
}

func TestCreateComputesInterStateTotals(t *testing.T) {
	st := newState()
	svc := newTestService(st)

	order, err := svc.Create(context.Background(), 2, CreateOrderRequest{
		Items:           []OrderItemRequest{{ProductID: 2, Quantity: 4}},
		ShippingAddress: "12 MG Road, Bengaluru",
	})
	require.NoError(t, err)

	// Retail tier: 4 x 50 = 200, buyer state 29 vs seller 27 → IGST only.
	require.Equal(t, "29", order.BuyerStateCode)
	require.Zero(t, order.CGST)
	require.Zero(t, order.SGST)
	require.InDelta(t, 36, order.IGST, 1e-9)

	// 4 units stay under the freight floor.
	require.InDelta(t, 500, order.Freight, 1e-9)
	require.InDelta(t, 736, order.TotalAmount, 1e-9)
}

func TestCreateIgnoresClientDiscount(t *testing.T) {
	st := newState()
	svc := newTestService(st)

	// A discount in the request body must not survive decoding; only quote
	// conversion sets one.
	body := []byte(`{"items":[{"product_id":1,"quantity":10}],"shipping_address":"Plot 4, MIDC, Pune","discount":1000}`)
	var req CreateOrderRequest
	require.NoError(t, json.Unmarshal(body, &req))
	require.Zero(t, req.Discount)

	order, err := svc.Create(context.Background(), 1, req)
	require.NoError(t, err)

	// 10 x 90 = 900 subtotal + 162 tax + 500 freight, no discount applied.
	require.InDelta(t, 1562, order.TotalAmount, 1e-9)
	require.Zero(t, order.Discount)
}

func TestCreateIsAllOrNothing(t *testing.T) {
	st := newState()
	svc := newTestService(st)

	_, err := svc.Create(context.Background(), 1, CreateOrderRequest{
		Items: []OrderItemRequest{
			{ProductID: 1, Quantity: 10},
			{ProductID: 2, Quantity: 11}, // only 10 in stock
		},
		ShippingAddress: "Plot 4, MIDC, Pune",
	})
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindBusinessRule))
	require.Contains(t, err.Error(), "River Sand")

	require.InDelta(t, 100, st.products[1].StockQuantity, 1e-9)
	require.InDelta(t, 10, st.products[2].StockQuantity, 1e-9)
	require.Empty(t, st.orders)
	require.Empty(t, st.outbox)
}

func TestCreateRejectsBelowMOQ(t *testing.T) {
	st := newState()
	svc := newTestService(st)

	_, err := svc.Create(context.Background(), 1, CreateOrderRequest{
		Items:           []OrderItemRequest{{ProductID: 1, Quantity: 3}},
		ShippingAddress: "Plot 4, MIDC, Pune",
	})
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindBusinessRule))
	require.Contains(t, err.Error(), "below_moq")
}

func TestCreateDirectsPriceOnRequestToQuotes(t *testing.T) {
	st := newState()
	svc := newTestService(st)

	_, err := svc.Create(context.Background(), 1, CreateOrderRequest{
		Items:           []OrderItemRequest{{ProductID: 3, Quantity: 2}},
		ShippingAddress: "Plot 4, MIDC, Pune",
	})
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindBusinessRule))
	require.Contains(t, err.Error(), "price_on_request")
	require.Empty(t, st.orders)
}

func createTestOrder(t *testing.T, svc *Service) *Order {
	t.Helper()
	order, err := svc.Create(context.Background(), 1, CreateOrderRequest{
		Items:           []OrderItemRequest{{ProductID: 1, Quantity: 10}},
		ShippingAddress: "Plot 4, MIDC, Pune",
	})
	require.NoError(t, err)
	return order
}

func TestCancelReleasesStock(t *testing.T) {
	st := newState()
	svc := newTestService(st)
	order := createTestOrder(t, svc)
	require.InDelta(t, 90, st.products[1].StockQuantity, 1e-9)

	cancelled, err := svc.Cancel(context.Background(), order.ID, 1, nil)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
	require.InDelta(t, 100, st.products[1].StockQuantity, 1e-9)
}

func TestCancelRequiresOwnerOrAdmin(t *testing.T) {
	st := newState()
	svc := newTestService(st)
	order := createTestOrder(t, svc)

	_, err := svc.Cancel(context.Background(), order.ID, 2, nil)
	require.True(t, shared.IsKind(err, shared.KindForbidden))

	// An admin may cancel an order they do not own.
	cancelled, err := svc.Cancel(context.Background(), order.ID, 3, nil)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
}

func TestCancelRejectedPastConfirmed(t *testing.T) {
	st := newState()
	svc := newTestService(st)
	order := createTestOrder(t, svc)
	st.orders[order.ID].Status = StatusProcessing

	_, err := svc.Cancel(context.Background(), order.ID, 1, nil)
	require.True(t, shared.IsKind(err, shared.KindBusinessRule))
	require.Contains(t, err.Error(), "not_cancellable")
	require.InDelta(t, 90, st.products[1].StockQuantity, 1e-9, "no stock change on failed cancel")
}

func TestUpdateStatusWalksLegalEdges(t *testing.T) {
	st := newState()
	svc := newTestService(st)
	order := createTestOrder(t, svc)

	for _, next := range []Status{StatusConfirmed, StatusProcessing, StatusInvoiced, StatusShipped, StatusDelivered} {
		updated, err := svc.UpdateStatus(context.Background(), order.ID, next, nil)
		require.NoError(t, err)
		require.Equal(t, next, updated.Status)
	}
}

func TestUpdateStatusRejectsIllegalEdges(t *testing.T) {
	st := newState()
	svc := newTestService(st)
	order := createTestOrder(t, svc)

	_, err := svc.UpdateStatus(context.Background(), order.ID, StatusShipped, nil)
	require.True(t, shared.IsKind(err, shared.KindBusinessRule))

	st.orders[order.ID].Status = StatusDelivered
	_, err = svc.UpdateStatus(context.Background(), order.ID, StatusPending, nil)
	require.True(t, shared.IsKind(err, shared.KindBusinessRule))
	require.Contains(t, err.Error(), "illegal_transition")

	_, err = svc.UpdateStatus(context.Background(), order.ID, StatusCancelled, nil)
	require.True(t, shared.IsKind(err, shared.KindBusinessRule))
	require.Contains(t, err.Error(), "use_cancel")
}

func TestRecordPayment(t *testing.T) {
	st := newState()
	svc := newTestService(st)
	order := createTestOrder(t, svc)

	// 10 x 90 = 900 subtotal, 162 tax, 500 freight → 1562 due.
	partial, err := svc.RecordPayment(context.Background(), order.ID, 562)
	require.NoError(t, err)
	require.Equal(t, PaymentPartial, partial.PaymentStatus)
	require.InDelta(t, 1000, partial.BalanceDue, 1e-9)

	paid, err := svc.RecordPayment(context.Background(), order.ID, 1000)
	require.NoError(t, err)
	require.Equal(t, PaymentPaid, paid.PaymentStatus)
	require.Zero(t, paid.BalanceDue)

	_, err = svc.RecordPayment(context.Background(), order.ID, 1)
	require.True(t, shared.IsKind(err, shared.KindBusinessRule))
	require.Contains(t, err.Error(), "overpayment")

	var payments int
	for _, rec := range st.outbox {
		if rec.Kind == outbox.KindPaymentReceived {
			payments++
		}
	}
	require.Equal(t, 2, payments)
}
