package pricing

import (
	"github.com/angelmondragon/marketcart/internal/cart"
	"github.com/angelmondragon/marketcart/pkg/config"
	"github.com/google/uuid"
)

// Policy is the shipping rule applied to each vendor group independently.
type Policy struct {
	FlatShippingFee       int64
	FreeShippingThreshold int64
}

// DefaultPolicy charges 60 per vendor unless the vendor subtotal reaches 500.
func DefaultPolicy() Policy {
	return Policy{FlatShippingFee: 60, FreeShippingThreshold: 500}
}

func PolicyFromConfig(cfg config.CheckoutConfig) Policy {
	return Policy{
		FlatShippingFee:       cfg.FlatShippingFee,
		FreeShippingThreshold: cfg.FreeShippingThreshold,
	}
}

// VendorQuote is the pre-discount price of one vendor group.
type VendorQuote struct {
	VendorID   uuid.UUID `json:"vendor_id"`
	VendorName string    `json:"vendor_name"`
	ItemCount  int       `json:"item_count"`
	Subtotal   int64     `json:"subtotal"`
	Shipping   int64     `json:"shipping"`
	Total      int64     `json:"total"`
}

// CartQuote aggregates the vendor quotes of a whole cart.
type CartQuote struct {
	Vendors  []VendorQuote `json:"vendors"`
	Subtotal int64         `json:"subtotal"`
	Shipping int64         `json:"shipping"`
	Total    int64         `json:"total"`
}

// ForVendor finds the quote of one vendor.
func (q CartQuote) ForVendor(vendorID uuid.UUID) (VendorQuote, bool) {
	for _, v := range q.Vendors {
		if v.VendorID == vendorID {
			return v, true
		}
	}
	return VendorQuote{}, false
}

// Engine prices vendor groups. It is pure and safe for concurrent use.
type Engine struct {
	policy Policy
}

func NewEngine(policy Policy) *Engine {
	return &Engine{policy: policy}
}

func (e *Engine) Policy() Policy {
	return e.policy
}

// Quote prices the selected items of one group. A group without selected
// items quotes zero everywhere.
func (e *Engine) Quote(group cart.VendorGroup) VendorQuote {
	quote := VendorQuote{VendorID: group.VendorID, VendorName: group.VendorName}
	for _, item := range group.Items {
		if !item.Selected {
			continue
		}
		quote.Subtotal += item.LineTotal()
		quote.ItemCount++
	}
	if quote.ItemCount == 0 {
		return quote
	}
	quote.Shipping = e.ShippingFor(quote.Subtotal)
	quote.Total = quote.Subtotal + quote.Shipping
	return quote
}

// ShippingFor applies the free-shipping threshold to a vendor subtotal.
func (e *Engine) ShippingFor(subtotal int64) int64 {
	if subtotal >= e.policy.FreeShippingThreshold {
		return 0
	}
	return e.policy.FlatShippingFee
}

// QuoteCart prices every group, keeping group order.
func (e *Engine) QuoteCart(groups []cart.VendorGroup) CartQuote {
	out := CartQuote{Vendors: make([]VendorQuote, 0, len(groups))}
	for _, group := range groups {
		q := e.Quote(group)
		out.Vendors = append(out.Vendors, q)
		out.Subtotal += q.Subtotal
		out.Shipping += q.Shipping
		out.Total += q.Total
	}
	return out
}
