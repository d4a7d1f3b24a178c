package discounts

import (
	"time"

	"github.com/angelmondragon/marketcart/pkg/db/models"
	"github.com/angelmondragon/marketcart/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Availability reasons reported when an offer cannot be used right now.
const (
	ReasonInactive   = "inactive"
	ReasonNotStarted = "not_started"
	ReasonExpired    = "expired"
	ReasonExhausted  = "usage_exhausted"
	ReasonMinimum    = "minimum_not_met"
	ReasonNotFound   = "not_found"
	ReasonScope      = "vendor_not_in_cart"
	ReasonTarget     = "invalid_target"
)

// Offer is the read-only view of a discount offer. Shipping offers carry a flat
// amount; product offers carry a rate and an optional cap.
type Offer struct {
	ID          uuid.UUID              `json:"id"`
	Code        string                 `json:"code"`
	Title       string                 `json:"title"`
	Category    enums.DiscountCategory `json:"category"`
	VendorID    *uuid.UUID             `json:"vendor_id,omitempty"`
	FlatAmount  decimal.Decimal        `json:"flat_amount"`
	Rate        decimal.Decimal        `json:"rate"`
	Cap         *decimal.Decimal       `json:"cap,omitempty"`
	MinPurchase int64                  `json:"min_purchase"`
	StartsAt    time.Time              `json:"starts_at"`
	EndsAt      time.Time              `json:"ends_at"`
	UsageLimit  *int64                 `json:"usage_limit,omitempty"`
	UsageCount  int64                  `json:"usage_count"`
	Active      bool                   `json:"active"`
}

func (o Offer) Family() enums.DiscountFamily {
	return o.Category.Family()
}

// Availability reports whether the offer can be used at now, and why not.
// Minimum purchase is checked separately because it depends on the cart.
func (o Offer) Availability(now time.Time) (bool, string) {
	switch {
	case !o.Active:
		return false, ReasonInactive
	case now.Before(o.StartsAt):
		return false, ReasonNotStarted
	case !now.Before(o.EndsAt):
		return false, ReasonExpired
	case o.UsageLimit != nil && o.UsageCount >= *o.UsageLimit:
		return false, ReasonExhausted
	}
	return true, ""
}

// AppliesTo reports whether the offer can be used for the vendor.
func (o Offer) AppliesTo(vendorID uuid.UUID) bool {
	return o.VendorID == nil || *o.VendorID == vendorID
}

// ShippingAmount is the flat amount floored to a whole currency unit and capped
// at the fee it discounts.
func (o Offer) ShippingAmount(fee int64) int64 {
	amount := o.FlatAmount.Floor().IntPart()
	if amount > fee {
		amount = fee
	}
	if amount < 0 {
		return 0
	}
	return amount
}

// CapUnits is the cap floored to whole currency units. ok is false for
// uncapped offers.
func (o Offer) CapUnits() (limit int64, ok bool) {
	if o.Cap == nil {
		return 0, false
	}
	limit = o.Cap.Floor().IntPart()
	if limit < 0 {
		limit = 0
	}
	return limit, true
}

// ProductAmount is floor(min(base x rate, cap)).
func (o Offer) ProductAmount(base int64) int64 {
	if base <= 0 {
		return 0
	}
	raw := decimal.NewFromInt(base).Mul(o.Rate)
	if o.Cap != nil && raw.GreaterThan(*o.Cap) {
		raw = *o.Cap
	}
	amount := raw.Floor().IntPart()
	if amount > base {
		amount = base
	}
	if amount < 0 {
		return 0
	}
	return amount
}

// Eligible groups the offers a buyer can pick from.
type Eligible struct {
	Shipping []Offer `json:"shipping"`
	Product  []Offer `json:"product"`
}

func FromModel(m models.DiscountOffer) Offer {
	return Offer{
		ID:          m.ID,
		Code:        m.Code,
		Title:       m.Title,
		Category:    m.Category,
		VendorID:    m.VendorID,
		FlatAmount:  m.FlatAmount,
		Rate:        m.Rate,
		Cap:         m.Cap,
		MinPurchase: m.MinPurchase,
		StartsAt:    m.StartsAt,
		EndsAt:      m.EndsAt,
		UsageLimit:  m.UsageLimit,
		UsageCount:  m.UsageCount,
		Active:      m.Active,
	}
}

func (o Offer) ToModel() models.DiscountOffer {
	return models.DiscountOffer{
		ID:          o.ID,
		Code:        o.Code,
		Title:       o.Title,
		Category:    o.Category,
		VendorID:    o.VendorID,
		FlatAmount:  o.FlatAmount,
		Rate:        o.Rate,
		Cap:         o.Cap,
		MinPurchase: o.MinPurchase,
		StartsAt:    o.StartsAt,
		EndsAt:      o.EndsAt,
		UsageLimit:  o.UsageLimit,
		UsageCount:  o.UsageCount,
		Active:      o.Active,
	}
}
