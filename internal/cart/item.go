package cart

import "github.com/google/uuid"

// LineItem is one cart line as the buyer sees it. UnitPrice is in whole
// currency units.
type LineItem struct {
	ID         string    `json:"id" validate:"required"`
	ProductID  string    `json:"product_id" validate:"required"`
	VendorID   uuid.UUID `json:"vendor_id" validate:"required"`
	VendorName string    `json:"vendor_name"`
	Name       string    `json:"name" validate:"required"`
	UnitPrice  int64     `json:"unit_price" validate:"gte=0"`
	Quantity   int       `json:"quantity" validate:"gte=1"`
	Stock      int       `json:"stock" validate:"gte=0"`
	Selected   bool      `json:"selected"`
}

// LineTotal is price times quantity.
func (i LineItem) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// VendorGroup is the view of the cart restricted to one vendor. It is derived
// from the items on every read.
type VendorGroup struct {
	VendorID   uuid.UUID  `json:"vendor_id"`
	VendorName string     `json:"vendor_name"`
	Items      []LineItem `json:"items"`
}

// AllSelected is true iff the group has items and every one is selected.
func (g VendorGroup) AllSelected() bool {
	if len(g.Items) == 0 {
		return false
	}
	for _, item := range g.Items {
		if !item.Selected {
			return false
		}
	}
	return true
}

// SelectedItems returns the selected lines in input order.
func (g VendorGroup) SelectedItems() []LineItem {
	return SelectedItems(g.Items)
}

// HasSelection reports whether at least one item is selected.
func (g VendorGroup) HasSelection() bool {
	for _, item := range g.Items {
		if item.Selected {
			return true
		}
	}
	return false
}
