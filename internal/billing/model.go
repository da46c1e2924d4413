// Package billing issues GST-compliant invoices from finalized orders and
// priced quotes, and aggregates tax invoices into GST reports.
package billing

import (
	"time"

	"github.com/nirmaan-commerce/nirmaan/internal/gst"
	"github.com/nirmaan-commerce/nirmaan/internal/sequence"
)

type InvoiceType string

const (
	TypeTax      InvoiceType = "TAX_INVOICE"
	TypeProforma InvoiceType = "PROFORMA"
)

// SequenceKind maps the invoice type to its numbering prefix.
func (t InvoiceType) SequenceKind() sequence.Kind {
	if t == TypeProforma {
		return sequence.KindProforma
	}
	return sequence.KindInvoice
}

// Invoice is a frozen snapshot of the order's monetary and party fields at
// issuance time. Later order or customer changes never touch it.
type Invoice struct {
	ID              int64       `json:"id"`
	InvoiceNumber   string      `json:"invoice_number"`
	Type            InvoiceType `json:"type"`
	OrderID         int64       `json:"order_id"`
	QuoteID         *int64      `json:"quote_id,omitempty"`
	CustomerID      int64       `json:"customer_id"`
	BuyerName       string      `json:"buyer_name"`
	BuyerGSTIN      *string     `json:"buyer_gstin,omitempty"`
	BuyerStateCode  string      `json:"buyer_state_code"`
	SellerName      string      `json:"seller_name"`
	SellerGSTIN     string      `json:"seller_gstin"`
	SellerStateCode string      `json:"seller_state_code"`
	Subtotal        float64     `json:"subtotal"`
	CGST            float64     `json:"cgst"`
	SGST            float64     `json:"sgst"`
	IGST            float64     `json:"igst"`
	TotalTax        float64     `json:"total_tax"`
	GSTType         gst.GSTType `json:"gst_type"`
	Freight         float64     `json:"freight"`
	Discount        float64     `json:"discount"`
	TotalAmount     float64     `json:"total_amount"`
	IssuedAt        time.Time   `json:"issued_at"`
	DueDate         time.Time   `json:"due_date"`
	CreatedAt       time.Time   `json:"created_at"`
}

// GSTReport aggregates tax invoices issued inside a window.
type GSTReport struct {
	From         time.Time   `json:"from"`
	To           time.Time   `json:"to"`
	InvoiceCount int         `json:"invoice_count"`
	Subtotal     float64     `json:"subtotal"`
	CGST         float64     `json:"cgst"`
	SGST         float64     `json:"sgst"`
	IGST         float64     `json:"igst"`
	TotalTax     float64     `json:"total_tax"`
	TotalAmount  float64     `json:"total_amount"`
	Brands       []BrandLine `json:"brands,omitempty"`
}

// BrandLine groups taxable value and tax by product brand.
type BrandLine struct {
	Brand        string  `json:"brand"`
	TaxableValue float64 `json:"taxable_value"`
	Tax          float64 `json:"tax"`
}

type ListInvoicesRequest struct {
	CustomerID *int64       `json:"customer_id,omitempty"`
	Type       *InvoiceType `json:"type,omitempty"`
	Limit      int          `json:"limit" validate:"gte=0,lte=200"`
	Offset     int          `json:"offset" validate:"gte=0"`
}
