package gst

import (
	"fmt"
	"time"
)

// FinancialYear returns the starting calendar year of the April-March fiscal
// year containing t. A date in January-March belongs to the fiscal year that
// started the previous April.
func FinancialYear(t time.Time) int {
	if t.Month() < time.April {
		return t.Year() - 1
	}
	return t.Year()
}

// FinancialYearLabel formats the fiscal year as used in invoice numbers,
// e.g. "2025-26" for any date between 2025-04-01 and 2026-03-31.
func FinancialYearLabel(t time.Time) string {
	start := FinancialYear(t)
	return fmt.Sprintf("%d-%02d", start, (start+1)%100)
}
