package cart

import (
	"fmt"

	pkgerrors "github.com/angelmondragon/marketcart/pkg/errors"
	"github.com/google/uuid"
)

// SetQuantity changes the quantity of one line. The quantity must stay within 1..stock.
func SetQuantity(items []LineItem, itemID string, qty int) ([]LineItem, error) {
	pos, err := find(items, itemID)
	if err != nil {
		return nil, err
	}
	item := items[pos]
	if qty < 1 || qty > item.Stock {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must be between 1 and %d", item.Stock)).
			WithDetails(map[string]any{"item_id": itemID, "quantity": qty, "stock": item.Stock})
	}
	out := clone(items)
	out[pos].Quantity = qty
	return out, nil
}

// SetSelected marks one line as selected or not.
func SetSelected(items []LineItem, itemID string, selected bool) ([]LineItem, error) {
	pos, err := find(items, itemID)
	if err != nil {
		return nil, err
	}
	out := clone(items)
	out[pos].Selected = selected
	return out, nil
}

// SelectVendor sets the selection of every line of one vendor. Applying it twice
// has the same effect as applying it once.
func SelectVendor(items []LineItem, vendorID uuid.UUID, selected bool) []LineItem {
	out := clone(items)
	for i := range out {
		if out[i].VendorID == vendorID {
			out[i].Selected = selected
		}
	}
	return out
}

// Remove drops one line from the cart.
func Remove(items []LineItem, itemID string) ([]LineItem, error) {
	pos, err := find(items, itemID)
	if err != nil {
		return nil, err
	}
	out := make([]LineItem, 0, len(items)-1)
	out = append(out, items[:pos]...)
	return append(out, items[pos+1:]...), nil
}

// SelectedItems returns the selected lines in input order.
func SelectedItems(items []LineItem) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, item := range items {
		if item.Selected {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks every line for the quantity bound.
func Validate(items []LineItem) error {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.ID == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart item id is required")
		}
		if _, dup := seen[item.ID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate cart item").WithDetails(map[string]any{"item_id": item.ID})
		}
		seen[item.ID] = struct{}{}
		if item.VendorID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart item vendor is required").WithDetails(map[string]any{"item_id": item.ID})
		}
		if item.UnitPrice < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "unit price must not be negative").WithDetails(map[string]any{"item_id": item.ID})
		}
		if item.Quantity < 1 || item.Quantity > item.Stock {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds available stock").
				WithDetails(map[string]any{"item_id": item.ID, "quantity": item.Quantity, "stock": item.Stock})
		}
	}
	return nil
}

func find(items []LineItem, itemID string) (int, error) {
	for i, item := range items {
		if item.ID == itemID {
			return i, nil
		}
	}
	return -1, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found").WithDetails(map[string]any{"item_id": itemID})
}

func clone(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
