// Package orders turns a cart of line items into a consistent, tax-correct,
// sequentially numbered order: pricing, GST, freight, stock reservation and
// document numbering happen in one workflow, with post-commit side effects
// recorded through the outbox.
package orders

import (
	"time"

	"github.com/nirmaan-commerce/nirmaan/internal/catalog"
	"github.com/nirmaan-commerce/nirmaan/internal/gst"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusProcessing Status = "PROCESSING"
	StatusInvoiced   Status = "INVOICED"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

// transitions enumerates every legal edge. DELIVERED and CANCELLED are
// terminal.
var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusInvoiced},
	StatusInvoiced:   {StatusShipped},
	StatusShipped:    {StatusDelivered},
}

// CanTransition reports whether from→to is a legal edge.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidStatus reports whether s names a known status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusInvoiced,
		StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPartial PaymentStatus = "PARTIAL"
	PaymentPaid    PaymentStatus = "PAID"
)

// Type distinguishes direct orders from RFQ-originated ones.
type Type string

const (
	TypeDirect Type = "DIRECT"
	TypeRFQ    Type = "RFQ"
)

type Order struct {
	ID              int64         `json:"id"`
	OrderNumber     string        `json:"order_number"`
	CustomerID      int64         `json:"customer_id"`
	Type            Type          `json:"type"`
	QuoteID         *int64        `json:"quote_id,omitempty"`
	Status          Status        `json:"status"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	Subtotal        float64       `json:"subtotal"`
	CGST            float64       `json:"cgst"`
	SGST            float64       `json:"sgst"`
	IGST            float64       `json:"igst"`
	TotalTax        float64       `json:"total_tax"`
	GSTType         gst.GSTType   `json:"gst_type"`
	Freight         float64       `json:"freight"`
	Discount        float64       `json:"discount"`
	TotalAmount     float64       `json:"total_amount"`
	BalanceDue      float64       `json:"balance_due"`
	BuyerStateCode  string        `json:"buyer_state_code"`
	ShippingAddress string        `json:"shipping_address"`
	BillingAddress  string        `json:"billing_address"`
	Notes           *string       `json:"notes,omitempty"`
	AdminNotes      *string       `json:"admin_notes,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	Items           []OrderItem   `json:"items,omitempty"`
}

// OrderItem freezes the unit price and tax at order time; later catalog
// changes never touch it.
type OrderItem struct {
	ID          int64   `json:"id"`
	OrderID     int64   `json:"order_id"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TaxRate     float64 `json:"tax_rate"`
	TaxAmount   float64 `json:"tax_amount"`
	LineTotal   float64 `json:"line_total"`
}

// StockLines maps the order's items to ledger lines for release on
// cancellation.
func (o *Order) StockLines() []catalog.Line {
	lines := make([]catalog.Line, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, catalog.Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}

// IsOwnedBy reports whether the order belongs to the given customer.
func (o *Order) IsOwnedBy(customerID int64) bool {
	return o.CustomerID == customerID
}
