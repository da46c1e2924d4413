// Package gst computes Goods and Services Tax breakdowns for Indian
// transactions. All functions are pure; monetary outputs carry exactly two
// decimal places.
package gst

import "math"

// GSTType distinguishes the intra-state CGST/SGST split from inter-state IGST.
type GSTType string

const (
	IntraState GSTType = "INTRA_STATE"
	InterState GSTType = "INTER_STATE"
)

// DefaultRate is the system-wide GST rate applied when a product carries none.
const DefaultRate = 18.0

// epsilon absorbs float artifacts before rounding half-up.
const epsilon = 1e-9

// Breakdown is the result of a GST computation over a subtotal.
type Breakdown struct {
	Subtotal    float64 `json:"subtotal"`
	CGST        float64 `json:"cgst"`
	SGST        float64 `json:"sgst"`
	IGST        float64 `json:"igst"`
	TotalTax    float64 `json:"total_tax"`
	TotalAmount float64 `json:"total_amount"`
	Type        GSTType `json:"gst_type"`
}

// Round2 rounds to two decimal places, half-up on value+epsilon.
func Round2(v float64) float64 {
	return math.Round((v+epsilon)*100) / 100
}

// Compute splits the tax on subtotal between CGST/SGST (same state) or IGST
// (different states). State codes are opaque strings compared for equality;
// the caller is responsible for defaulting absent codes.
func Compute(subtotal float64, sellerState, buyerState string, rate float64) Breakdown {
	if rate <= 0 {
		rate = DefaultRate
	}
	b := Breakdown{Subtotal: Round2(subtotal)}
	if sellerState == buyerState {
		b.Type = IntraState
		half := Round2(subtotal * rate / 200)
		b.CGST = half
		b.SGST = half
		b.TotalTax = Round2(b.CGST + b.SGST)
	} else {
		b.Type = InterState
		b.IGST = Round2(subtotal * rate / 100)
		b.TotalTax = b.IGST
	}
	b.TotalAmount = Round2(b.Subtotal + b.TotalTax)
	return b
}

// ItemTax applies rate to quantity x unitPrice for a single line.
func ItemTax(quantity, unitPrice, rate float64) float64 {
	if rate <= 0 {
		rate = DefaultRate
	}
	return Round2(quantity * unitPrice * rate / 100)
}
