// Package quotes runs the RFQ lifecycle: a customer requests pricing for a
// cart, the back office prices it, and an approved quote converts into an
// order at a fixed B2B tier.
package quotes

import (
	"time"

	"github.com/nirmaan-commerce/nirmaan/internal/gst"
)

type Status string

const (
	StatusRequested   Status = "REQUESTED"
	StatusUnderReview Status = "UNDER_REVIEW"
	StatusQuoted      Status = "QUOTED"
	StatusApproved    Status = "APPROVED"
	StatusRejected    Status = "REJECTED"
	StatusConverted   Status = "CONVERTED"
)

// transitions enumerates every legal edge. Pricing may land directly from
// REQUESTED when no review step is needed; REJECTED and CONVERTED are
// terminal.
var transitions = map[Status][]Status{
	StatusRequested:   {StatusUnderReview, StatusQuoted},
	StatusUnderReview: {StatusQuoted},
	StatusQuoted:      {StatusApproved, StatusRejected},
	StatusApproved:    {StatusConverted},
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

// priceable reports whether the quote may still receive admin pricing.
// Repricing a QUOTED quote is allowed until the customer decides.
func priceable(s Status) bool {
	return s == StatusRequested || s == StatusUnderReview || s == StatusQuoted
}

type Quote struct {
	ID              int64       `json:"id"`
	QuoteNumber     string      `json:"quote_number"`
	CustomerID      int64       `json:"customer_id"`
	Status          Status      `json:"status"`
	Subtotal        float64     `json:"subtotal"`
	CGST            float64     `json:"cgst"`
	SGST            float64     `json:"sgst"`
	IGST            float64     `json:"igst"`
	TotalTax        float64     `json:"total_tax"`
	GSTType         gst.GSTType `json:"gst_type,omitempty"`
	Freight         float64     `json:"freight"`
	Discount        float64     `json:"discount"`
	TotalAmount     float64     `json:"total_amount"`
	BuyerStateCode  string      `json:"buyer_state_code,omitempty"`
	ValidUntil      *time.Time  `json:"valid_until,omitempty"`
	RejectionReason *string     `json:"rejection_reason,omitempty"`
	OrderID         *int64      `json:"order_id,omitempty"`
	Notes           *string     `json:"notes,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	Items           []QuoteItem `json:"items,omitempty"`
}

// QuoteItem carries the requested quantity from the customer; quoted quantity
// and price stay null until the back office prices the line.
type QuoteItem struct {
	ID                int64    `json:"id"`
	QuoteID           int64    `json:"quote_id"`
	ProductID         int64    `json:"product_id"`
	ProductName       string   `json:"product_name"`
	RequestedQuantity float64  `json:"requested_quantity"`
	QuotedQuantity    *float64 `json:"quoted_quantity,omitempty"`
	QuotedPrice       *float64 `json:"quoted_price,omitempty"`
	Notes             *string  `json:"notes,omitempty"`
}

// EffectiveQuantity is the quoted quantity when set, else the requested one.
func (it QuoteItem) EffectiveQuantity() float64 {
	if it.QuotedQuantity != nil && *it.QuotedQuantity > 0 {
		return *it.QuotedQuantity
	}
	return it.RequestedQuantity
}

// IsOwnedBy reports whether the quote belongs to the given customer.
func (q *Quote) IsOwnedBy(customerID int64) bool {
	return q.CustomerID == customerID
}

// Expired reports whether the validity deadline has passed.
func (q *Quote) Expired(now time.Time) bool {
	return q.ValidUntil != nil && q.ValidUntil.Before(now)
}
