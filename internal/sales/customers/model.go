// Package customers holds the buyer profile consumed by the order and quote
// workflows: pricing tier, GST identity, and state-code resolution.
package customers

import (
	"time"

	"github.com/nirmaan-commerce/nirmaan/internal/catalog"
	"github.com/nirmaan-commerce/nirmaan/internal/gst"
)

type Customer struct {
	ID        int64        `json:"id"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Phone     *string      `json:"phone,omitempty"`
	Tier      catalog.Tier `json:"tier"`
	GSTIN     *string      `json:"gstin,omitempty"`
	StateCode *string      `json:"state_code,omitempty"`
	IsActive  bool         `json:"is_active"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// IsAdmin reports whether the customer can act on documents they do not own.
func (c Customer) IsAdmin() bool {
	return c.Tier == catalog.TierAdmin
}

// ResolveStateCode picks the buyer state for GST purposes: the stored state
// code, else the state encoded in the GSTIN, else the address-supplied code,
// else the configured fallback.
func (c Customer) ResolveStateCode(addressState, fallback string) string {
	if c.StateCode != nil && *c.StateCode != "" {
		return *c.StateCode
	}
	if c.GSTIN != nil {
		if code, ok := gst.StateFromGSTIN(*c.GSTIN); ok {
			return code
		}
	}
	if addressState != "" {
		return addressState
	}
	return fallback
}
