package orders

import "github.com/nirmaan-commerce/nirmaan/internal/catalog"

type OrderItemRequest struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Quantity  float64 `json:"quantity" validate:"required,gt=0"`
}

type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingAddress string             `json:"shipping_address" validate:"required"`
	// BillingAddress falls back to the shipping address when empty.
	BillingAddress string `json:"billing_address,omitempty"`
	// AddressStateCode participates in buyer-state resolution after the
	// customer's stored code and GSTIN.
	AddressStateCode string  `json:"address_state_code,omitempty" validate:"omitempty,len=2"`
	Notes            *string `json:"notes,omitempty"`

	// Set by quote conversion, never by callers. Discounts exist only on
	// admin-priced quotes; a direct order cannot carry one.
	QuoteID    *int64       `json:"-"`
	ForcedTier catalog.Tier `json:"-"`
	Discount   float64      `json:"-"`
}

type UpdateStatusRequest struct {
	Status     Status  `json:"status" validate:"required"`
	AdminNotes *string `json:"admin_notes,omitempty"`
}

type CancelOrderRequest struct {
	Reason *string `json:"reason,omitempty"`
}

type RecordPaymentRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

type ListOrdersRequest struct {
	CustomerID *int64  `json:"customer_id,omitempty"`
	Status     *Status `json:"status,omitempty"`
	Limit      int     `json:"limit" validate:"gte=0,lte=200"`
	Offset     int     `json:"offset" validate:"gte=0"`
}
