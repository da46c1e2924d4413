package quotes

import "time"

type QuoteItemRequest struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Quantity  float64 `json:"quantity" validate:"required,gt=0"`
	Notes     *string `json:"notes,omitempty"`
}

type CreateQuoteRequest struct {
	Items []QuoteItemRequest `json:"items" validate:"required,min=1,dive"`
	Notes *string            `json:"notes,omitempty"`
}

type LinePricing struct {
	ItemID         int64   `json:"item_id" validate:"required,gt=0"`
	QuotedQuantity float64 `json:"quoted_quantity" validate:"required,gt=0"`
	QuotedPrice    float64 `json:"quoted_price" validate:"required,gt=0"`
}

type UpdatePricingRequest struct {
	Lines      []LinePricing `json:"lines" validate:"required,min=1,dive"`
	Freight    float64       `json:"freight" validate:"gte=0"`
	Discount   float64       `json:"discount" validate:"gte=0"`
	ValidUntil *time.Time    `json:"valid_until,omitempty"`
	Notes      *string       `json:"notes,omitempty"`
}

type RejectQuoteRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type ConvertQuoteRequest struct {
	ShippingAddress  string `json:"shipping_address" validate:"required"`
	BillingAddress   string `json:"billing_address,omitempty"`
	AddressStateCode string `json:"address_state_code,omitempty" validate:"omitempty,len=2"`
}

type ListQuotesRequest struct {
	CustomerID *int64  `json:"customer_id,omitempty"`
	Status     *Status `json:"status,omitempty"`
	Limit      int     `json:"limit" validate:"gte=0,lte=200"`
	Offset     int     `json:"offset" validate:"gte=0"`
}
