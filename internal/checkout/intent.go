package checkout

import (
	"fmt"

	"github.com/angelmondragon/marketcart/pkg/db/models"
	"github.com/angelmondragon/marketcart/pkg/enums"
	"github.com/angelmondragon/marketcart/pkg/types"
	"github.com/google/uuid"
)

// IntentLine is a frozen copy of one selected cart line.
type IntentLine struct {
	CartItemID string `json:"cart_item_id" validate:"required"`
	ProductID  string `json:"product_id" validate:"required"`
	Name       string `json:"name" validate:"required"`
	UnitPrice  int64  `json:"unit_price" validate:"gte=0"`
	Quantity   int    `json:"quantity" validate:"gte=1"`
	LineTotal  int64  `json:"line_total" validate:"gte=0"`
}

// OrderIntent is everything needed to create one vendor's order. Prices and
// discounts are final; the receiver stores them as given.
type OrderIntent struct {
	IdempotencyKey   string                   `json:"idempotency_key" validate:"required"`
	CheckoutID       uuid.UUID                `json:"checkout_id" validate:"required"`
	VendorID         uuid.UUID                `json:"vendor_id" validate:"required"`
	VendorName       string                   `json:"vendor_name"`
	Lines            []IntentLine             `json:"lines" validate:"required,min=1,dive"`
	Subtotal         int64                    `json:"subtotal" validate:"gte=0"`
	ShippingFee      int64                    `json:"shipping_fee" validate:"gte=0"`
	ShippingDiscount int64                    `json:"shipping_discount" validate:"gte=0"`
	ProductDiscount  int64                    `json:"product_discount" validate:"gte=0"`
	Total            int64                    `json:"total" validate:"gte=0"`
	Discounts        []models.AppliedDiscount `json:"discounts"`
	Address          types.Address            `json:"address"`
	PaymentMethod    enums.PaymentMethod      `json:"payment_method" validate:"required"`
	Note             *string                  `json:"note,omitempty"`
}

// IntentKey is the idempotency key of a vendor's order within a checkout.
func IntentKey(checkoutID, vendorID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", checkoutID, vendorID)
}

// DiscountTotal is the sum of both discount slots.
func (i OrderIntent) DiscountTotal() int64 {
	return i.ShippingDiscount + i.ProductDiscount
}

// OfferIDs lists the offers applied to this order.
func (i OrderIntent) OfferIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(i.Discounts))
	for _, d := range i.Discounts {
		ids = append(ids, d.OfferID)
	}
	return ids
}

// Consistent reports whether the stored amounts add up.
func (i OrderIntent) Consistent() bool {
	var subtotal int64
	for _, line := range i.Lines {
		if line.LineTotal != line.UnitPrice*int64(line.Quantity) {
			return false
		}
		subtotal += line.LineTotal
	}
	var discounts int64
	for _, d := range i.Discounts {
		discounts += d.Amount
	}
	return subtotal == i.Subtotal &&
		discounts == i.DiscountTotal() &&
		i.ShippingDiscount <= i.ShippingFee &&
		i.Total == i.Subtotal+i.ShippingFee-i.DiscountTotal()
}
