package quotes

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nirmaan-commerce/nirmaan/internal/catalog"
	"github.com/nirmaan-commerce/nirmaan/internal/outbox"
	"github.com/nirmaan-commerce/nirmaan/internal/sales/customers"
	"github.com/nirmaan-commerce/nirmaan/internal/sales/orders"
	"github.com/nirmaan-commerce/nirmaan/internal/sequence"
	"github.com/nirmaan-commerce/nirmaan/internal/shared"
)

type memState struct {
	quotes      map[int64]*Quote
	outbox      []outbox.Record
	nextQuoteID int64
	nextItemID  int64
}

func (st *memState) clone() *memState {
	c := &memState{
		quotes:      make(map[int64]*Quote, len(st.quotes)),
		outbox:      append([]outbox.Record(nil), st.outbox...),
		nextQuoteID: st.nextQuoteID,
		nextItemID:  st.nextItemID,
	}
	for id, q := range st.quotes {
		qc := *q
		qc.Items = append([]QuoteItem(nil), q.Items...)
		c.quotes[id] = &qc
	}
	return c
}

type memTx struct {
	st *memState
}

func (t *memTx) InsertQuote(_ context.Context, q *Quote) error {
	t.st.nextQuoteID++
	q.ID = t.st.nextQuoteID
	q.CreatedAt = time.Now()
	q.UpdatedAt = q.CreatedAt
	qc := *q
	t.st.quotes[q.ID] = &qc
	return nil
}

func (t *memTx) InsertItems(_ context.Context, quoteID int64, items []QuoteItem) error {
	q, ok := t.st.quotes[quoteID]
	if !ok {
		return shared.NotFound("quote_not_found", "quote %d not found", quoteID)
	}
	for i := range items {
		t.st.nextItemID++
		items[i].ID = t.st.nextItemID
		items[i].QuoteID = quoteID
	}
	q.Items = append([]QuoteItem(nil), items...)
	return nil
}

func (t *memTx) UpdateItemPricing(_ context.Context, itemID int64, quantity, price float64) error {
	for _, q := range t.st.quotes {
		for i := range q.Items {
			if q.Items[i].ID == itemID {
				qty, pr := quantity, price
				q.Items[i].QuotedQuantity = &qty
				q.Items[i].QuotedPrice = &pr
				return nil
			}
		}
	}
	return shared.NotFound("quote_item_not_found", "quote item %d not found", itemID)
}

func (t *memTx) UpdateTotals(_ context.Context, q *Quote) error {
	stored, ok := t.st.quotes[q.ID]
	if !ok {
		return shared.NotFound("quote_not_found", "quote %d not found", q.ID)
	}
	items := stored.Items
	*stored = *q
	stored.Items = items
	return nil
}

func (t *memTx) UpdateStatus(_ context.Context, id int64, status Status, rejectionReason *string) error {
	q, ok := t.st.quotes[id]
	if !ok {
		return shared.NotFound("quote_not_found", "quote %d not found", id)
	}
	q.Status = status
	if rejectionReason != nil {
		q.RejectionReason = rejectionReason
	}
	return nil
}

func (t *memTx) SetOrderID(_ context.Context, id, orderID int64) error {
	q, ok := t.st.quotes[id]
	if !ok {
		return shared.NotFound("quote_not_found", "quote %d not found", id)
	}
	q.OrderID = &orderID
	return nil
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

func (r *memRepo) Get(_ context.Context, id int64) (*Quote, error) {
	q, ok := r.st.quotes[id]
	if !ok {
		return nil, shared.NotFound("quote_not_found", "quote not found")
	}
	qc := *q
	qc.Items = append([]QuoteItem(nil), q.Items...)
	return &qc, nil
}

func (r *memRepo) List(_ context.Context, req ListQuotesRequest) ([]Quote, int, error) {
	var out []Quote
	for _, q := range r.st.quotes {
		if req.CustomerID != nil && q.CustomerID != *req.CustomerID {
			continue
		}
		if req.Status != nil && q.Status != *req.Status {
			continue
		}
		out = append(out, *q)
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

type fakeProducts struct {
	m map[int64]catalog.Product
}

func (f *fakeProducts) GetBatch(_ context.Context, ids []int64) (map[int64]catalog.Product, error) {
	out := make(map[int64]catalog.Product)
	for _, id := range ids {
		if p, ok := f.m[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type fakeOrderCreator struct {
	lastCustomerID int64
	lastReq        orders.CreateOrderRequest
	calls          int
	err            error
}

func (f *fakeOrderCreator) Create(_ context.Context, customerID int64, req orders.CreateOrderRequest) (*orders.Order, error) {
	f.calls++
	f.lastCustomerID = customerID
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &orders.Order{ID: 42, OrderNumber: "ORD-2026-00042", CustomerID: customerID, Status: orders.StatusPending}, nil
}

type seqFake struct {
	n int64
}

func (s *seqFake) Next(context.Context, sequence.Kind, string) (int64, error) {
	s.n++
	return s.n, nil
}

func newTestService(creator *fakeOrderCreator) (*Service, *memState) {
	st := &memState{quotes: map[int64]*Quote{}}
	sc27 := "27"
	sc29 := "29"
	custs := map[int64]*customers.Customer{
		1: {ID: 1, Name: "Sharma Constructions", Email: "sharma@example.com", Tier: catalog.TierB2B, StateCode: &sc27, IsActive: true},
		2: {ID: 2, Name: "Mehta Traders", Email: "mehta@example.com", Tier: catalog.TierRetail, StateCode: &sc29, IsActive: true},
		3: {ID: 3, Name: "Back Office", Email: "ops@example.com", Tier: catalog.TierAdmin, IsActive: true},
	}
	products := &fakeProducts{m: map[int64]catalog.Product{
		1: {ID: 1, Name: "OPC 53 Cement", MOQ: 5, StockQuantity: 100, Active: true},
		3: {ID: 3, Name: "TMT Steel Bars", PriceOnRequest: true, MOQ: 1, StockQuantity: 100, Active: true},
		9: {ID: 9, Name: "Discontinued Putty", MOQ: 1, StockQuantity: 0, Active: false},
	}}
	cfg := orders.Config{
		SellerStateCode:  "27",
		DefaultStateCode: "27",
		DefaultGSTRate:   18,
		FreightFloor:     500,
		FreightPerUnit:   50,
	}
	svc := NewService(&memRepo{st: st}, &memCustomers{m: custs}, products, &seqFake{}, creator, cfg, slog.Default(), nil, nil)
	return svc, st
}

func createTestQuote(t *testing.T, svc *Service) *Quote {
	t.Helper()
	q, err := svc.Create(context.Background(), 1, CreateQuoteRequest{
		Items: []QuoteItemRequest{
			{ProductID: 1, Quantity: 100},
			{ProductID: 3, Quantity: 50},
		},
	})
	require.NoError(t, err)
	return q
}

func priceTestQuote(t *testing.T, svc *Service, q *Quote, validUntil *time.Time) *Quote {
	t.Helper()
	priced, err := svc.UpdatePricing(context.Background(), q.ID, UpdatePricingRequest{
		Lines: []LinePricing{
			{ItemID: q.Items[0].ID, QuotedQuantity: 100, QuotedPrice: 80},
			{ItemID: q.Items[1].ID, QuotedQuantity: 40, QuotedPrice: 55000},
		},
		Freight:    2000,
		Discount:   1000,
		ValidUntil: validUntil,
	})
	require.NoError(t, err)
	return priced
}

func TestCreateQuote(t *testing.T) {
	svc, st := newTestService(&fakeOrderCreator{})
	q := createTestQuote(t, svc)

	require.Equal(t, sequence.QuoteNumber(time.Now(), 1), q.QuoteNumber)
	require.Equal(t, StatusRequested, q.Status)
	require.Zero(t, q.TotalAmount)
	require.Len(t, q.Items, 2)
	require.Nil(t, q.Items[0].QuotedPrice, "pricing comes from the back office, not the request")

	require.Len(t, st.outbox, 1)
	require.Equal(t, outbox.KindQuoteCreated, st.outbox[0].Kind)
}

func TestCreateQuoteRejectsInactiveProduct(t *testing.T) {
	svc, _ := newTestService(&fakeOrderCreator{})
	_, err := svc.Create(context.Background(), 1, CreateQuoteRequest{
		Items: []QuoteItemRequest{{ProductID: 9, Quantity: 10}},
	})
	require.True(t, shared.IsKind(err, shared.KindBusinessRule))
	require.Contains(t, err.Error(), "Discontinued Putty")
}

func TestCreateQuoteRejectsUnknownProduct(t *testing.T) {
	svc, _ := newTestService(&fakeOrderCreator{})
	_, err := svc.Create(context.Background(), 1, CreateQuoteRequest{
		Items: []QuoteItemRequest{{ProductID: 777, Quantity: 10}},
	})
	require.True(t, shared.IsKind(err, shared.KindNotFound))
}

func TestUpdatePricingComputesTotals(t *testing.T) {
	svc, _ := newTestService(&fakeOrderCreator{})
	q := createTestQuote(t, svc)
	priced := priceTestQuote(t, svc, q, nil)

	// 100 x 80 + 40 x 55000 = 2,208,000, intra-state 18% → 198,720 per half.
	require.Equal(t, StatusQuoted, priced.Status)
	require.InDelta(t, 2208000, priced.Subtotal, 1e-9)
	require.InDelta(t, 198720, priced.CGST, 1e-9)
	require.InDelta(t, 198720, priced.SGST, 1e-9)
	require.Zero(t, priced.IGST)

	// totalAmount = gst total + freight - discount.
	require.InDelta(t, 2605440+2000-1000, priced.TotalAmount, 1e-9)
	require.NotNil(t, priced.Items[1].QuotedQuantity)
	require.InDelta(t, 40, *priced.Items[1].QuotedQuantity, 1e-9)
}

func TestUpdatePricingAllowsRepricingUntilDecision(t *testing.T) {
	svc, _ := newTestService(&fakeOrderCreator{})
	q := createTestQuote(t, svc)
	priceTestQuote(t, svc, q, nil)

	repriced, err := svc.UpdatePricing(context.Background(), q.ID, UpdatePricingRequest{
		Lines: []LinePricing{
			{ItemID: q.Items[0].ID, QuotedQuantity: 100, QuotedPrice: 75},
			{ItemID: q.Items[1].ID, QuotedQuantity: 40, QuotedPrice: 54000},
		},
	})
	require.NoError(t, err)
	require.InDelta(t, 2167500, repriced.Subtotal, 1e-9)

	_, err = svc.Approve(context.Background(), q.ID, 1)
	require.NoError(t, err)

	_, err = svc.UpdatePricing(context.Background(), q.ID, UpdatePricingRequest{
		Lines: []LinePricing{
			{ItemID: q.Items[0].ID, QuotedQuantity: 100, QuotedPrice: 70},
			{ItemID: q.Items[1].ID, QuotedQuantity: 40, QuotedPrice: 50000},
		},
	})
	require.True(t, shared.IsKind(err, shared.KindBusinessRule))
	require.Contains(t, err.Error(), "not_priceable")
}

func TestUpdatePricingRequiresAllLines(t *testing.T) {
	svc, _ := newTestService(&fakeOrderCreator{})
	q := createTestQuote(t, svc)

	_, err := svc.UpdatePricing(context.Background(), q.ID, UpdatePricingRequest{
		Lines: []LinePricing{{ItemID: q.Items[0].ID, QuotedQuantity: 100, QuotedPrice: 80}},
	})
	require.True(t, shared.IsKind(err, shared.KindBusinessRule))
	require.Contains(t, err.Error(), "unpriced_lines")
}

func TestUpdatePricingRejectsDuplicateLines(t *testing.T) {
	svc, _ := newTestService(&fakeOrderCreator{})
	q := createTestQuote(t, svc)

	// Two entries for the first item would double-count its subtotal while
	// the second item stays unpriced.
	_, err := svc.UpdatePricing(context.Background(), q.ID, UpdatePricingRequest{
		Lines: []LinePricing{
			{ItemID: q.Items[0].ID, QuotedQuantity: 100, QuotedPrice: 80},
			{ItemID: q.Items[0].ID, QuotedQuantity: 100, QuotedPrice: 80},
		},
	})
	require.True(t, shared.IsKind(err, shared.KindBusinessRule))
	require.Contains(t, err.Error(), "duplicate_pricing_line")
}

func TestApproveRequiresQuotedStatus(t *testing.T) {
	svc, _ := newTestService(&fakeOrderCreator{})
	q := createTestQuote(t, svc)

	_, err := svc.Approve(context.Background(), q.ID, 1)
	require.True(t, shared.IsKind(err, shared.KindBusinessRule))
	require.Contains(t, err.Error(), "illegal_transition")
}

func TestRejectRequiresReason(t *testing.T) {
	svc, _ := newTestService(&fakeOrderCreator{})
	q := createTestQuote(t, svc)
	priceTestQuote(t, svc, q, nil)

	_, err := svc.Reject(context.Background(), q.ID, 1, "")
	require.True(t, shared.IsKind(err, shared.KindValidation))

	rejected, err := svc.Reject(context.Background(), q.ID, 1, "pricing too high")
	require.NoError(t, err)
	require.Equal(t, StatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	require.Equal(t, "pricing too high", *rejected.RejectionReason)
}

func TestDecisionRequiresOwnerOrAdmin(t *testing.T) {
	svc, _ := newTestService(&fakeOrderCreator{})
	q := createTestQuote(t, svc)
	priceTestQuote(t, svc, q, nil)

	_, err := svc.Approve(context.Background(), q.ID, 2)
	require.True(t, shared.IsKind(err, shared.KindForbidden))

	// Admin decides on behalf of the customer.
	approved, err := svc.Approve(context.Background(), q.ID, 3)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
}

func TestConvertToOrder(t *testing.T) {
	creator := &fakeOrderCreator{}
	svc, _ := newTestService(creator)
	q := createTestQuote(t, svc)
	future := time.Now().Add(7 * 24 * time.Hour)
	priceTestQuote(t, svc, q, &future)
	_, err := svc.Approve(context.Background(), q.ID, 1)
	require.NoError(t, err)

	order, err := svc.ConvertToOrder(context.Background(), q.ID, 1, ConvertQuoteRequest{
		ShippingAddress: "Plot 4, MIDC, Pune",
	})
	require.NoError(t, err)
	require.Equal(t, int64(42), order.ID)

	require.Equal(t, int64(1), creator.lastCustomerID)
	require.Equal(t, catalog.TierB2B, creator.lastReq.ForcedTier)
	require.NotNil(t, creator.lastReq.QuoteID)
	require.Equal(t, q.ID, *creator.lastReq.QuoteID)
	// Quoted quantity wins over the requested one: line 2 was repriced to 40.
	require.InDelta(t, 100, creator.lastReq.Items[0].Quantity, 1e-9)
	require.InDelta(t, 40, creator.lastReq.Items[1].Quantity, 1e-9)

	converted, err := svc.Get(context.Background(), q.ID)
	require.NoError(t, err)
	require.Equal(t, StatusConverted, converted.Status)
	require.NotNil(t, converted.OrderID)
	require.Equal(t, int64(42), *converted.OrderID)
}

func TestConvertGuards(t *testing.T) {
	creator := &fakeOrderCreator{}
	svc, _ := newTestService(creator)
	q := createTestQuote(t, svc)
	priceTestQuote(t, svc, q, nil)

	_, err := svc.ConvertToOrder(context.Background(), q.ID, 1, ConvertQuoteRequest{ShippingAddress: "x"})
	require.True(t, shared.IsKind(err, shared.KindBusinessRule))
	require.Contains(t, err.Error(), "quote_not_approved")

	_, err = svc.Approve(context.Background(), q.ID, 1)
	require.NoError(t, err)

	// Not even an admin converts someone else's quote.
	_, err = svc.ConvertToOrder(context.Background(), q.ID, 3, ConvertQuoteRequest{ShippingAddress: "x"})
	require.True(t, shared.IsKind(err, shared.KindForbidden))
	require.Zero(t, creator.calls)
}

func TestConvertExpiredQuoteFails(t *testing.T) {
	creator := &fakeOrderCreator{}
	svc, st := newTestService(creator)
	q := createTestQuote(t, svc)
	past := time.Now().Add(-time.Hour)
	priceTestQuote(t, svc, q, &past)
	_, err := svc.Approve(context.Background(), q.ID, 1)
	require.NoError(t, err)

	_, err = svc.ConvertToOrder(context.Background(), q.ID, 1, ConvertQuoteRequest{ShippingAddress: "x"})
	require.True(t, shared.IsKind(err, shared.KindBusinessRule))
	require.Contains(t, err.Error(), "quote has expired")
	require.Zero(t, creator.calls, "no order attempted for an expired quote")
	require.Equal(t, StatusApproved, st.quotes[q.ID].Status, "quote status unchanged")
}

// Conversion and order creation are separate transactions on purpose: a
// failed order leaves the quote APPROVED so the customer can retry.
func TestConvertLeavesQuoteApprovedOnOrderFailure(t *testing.T) {
	creator := &fakeOrderCreator{err: errors.New("stock ran out")}
	svc, st := newTestService(creator)
	q := createTestQuote(t, svc)
	future := time.Now().Add(7 * 24 * time.Hour)
	priceTestQuote(t, svc, q, &future)
	_, err := svc.Approve(context.Background(), q.ID, 1)
	require.NoError(t, err)

	_, err = svc.ConvertToOrder(context.Background(), q.ID, 1, ConvertQuoteRequest{ShippingAddress: "x"})
	require.Error(t, err)
	require.Equal(t, StatusApproved, st.quotes[q.ID].Status)
	require.Nil(t, st.quotes[q.ID].OrderID)

	// Retried conversion succeeds once the order can be created.
	creator.err = nil
	_, err = svc.ConvertToOrder(context.Background(), q.ID, 1, ConvertQuoteRequest{ShippingAddress: "x"})
	require.NoError(t, err)
	require.Equal(t, StatusConverted, st.quotes[q.ID].Status)
}
