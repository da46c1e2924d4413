package catalog

// Tier ranks a requester for price resolution. The set is closed; dispatch is
// an ordered fallback table, not open-ended.
type Tier string

const (
	TierAdmin  Tier = "ADMIN"
	TierDealer Tier = "DEALER"
	TierB2B    Tier = "B2B"
	TierRetail Tier = "RETAIL"
)

// priceLadder lists the price fields each tier may use, most specific first.
func priceLadder(tier Tier, p Product) []*float64 {
	switch tier {
	case TierAdmin, TierDealer:
		return []*float64{p.DealerPrice, p.B2BPrice, p.RetailPrice}
	case TierB2B:
		return []*float64{p.B2BPrice, p.RetailPrice}
	default:
		return []*float64{p.RetailPrice}
	}
}

// ResolvePrice maps the requester's tier to an effective unit price. The
// second return is false when no price at or below the tier is configured;
// the caller must then route price-on-request products through the quote
// workflow or fail.
func ResolvePrice(tier Tier, p Product) (float64, bool) {
	for _, price := range priceLadder(tier, p) {
		if price != nil {
			return *price, true
		}
	}
	return 0, false
}
