package sequence

import (
	"fmt"
	"strconv"
	"time"

	"github.com/nirmaan-commerce/nirmaan/internal/gst"
)

// CalendarYearKey is the period key for order, quote and sample counters.
func CalendarYearKey(t time.Time) string {
	return strconv.Itoa(t.Year())
}

// FiscalYearKey is the period key for invoice counters (April-March).
func FiscalYearKey(t time.Time) string {
	return gst.FinancialYearLabel(t)
}

// OrderNumber formats ORD-{YYYY}-{NNNNN}.
func OrderNumber(t time.Time, n int64) string {
	return fmt.Sprintf("ORD-%d-%05d", t.Year(), n)
}

// QuoteNumber formats RFQ-{YYYY}-{NNNNN}.
func QuoteNumber(t time.Time, n int64) string {
	return fmt.Sprintf("RFQ-%d-%05d", t.Year(), n)
}

// SampleNumber formats SMP-{YYYY}-{NNNNN}.
func SampleNumber(t time.Time, n int64) string {
	return fmt.Sprintf("SMP-%d-%05d", t.Year(), n)
}

// InvoiceNumber formats {PREFIX}/{FY}-{YY}/{NNNNN}, e.g. INV/2025-26/00042.
func InvoiceNumber(kind Kind, t time.Time, n int64) string {
	return fmt.Sprintf("%s/%s/%05d", kind, gst.FinancialYearLabel(t), n)
}
