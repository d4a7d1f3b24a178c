package discounts

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/marketcart/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketcart/pkg/errors"
	"github.com/google/uuid"
)

// Choice is one offer picked by the buyer. TargetVendorID names the vendor whose
// shipping fee a shipping offer discounts. Category is the category the buyer
// saw when picking; it labels the failure when the offer has since vanished.
type Choice struct {
	OfferID        uuid.UUID              `json:"offer_id" validate:"required"`
	Category       enums.DiscountCategory `json:"category,omitempty"`
	TargetVendorID *uuid.UUID             `json:"target_vendor_id,omitempty"`
}

// missingFailure reports a chosen offer that no longer exists.
func (c Choice) missingFailure() SelectionFailure {
	f := SelectionFailure{OfferID: c.OfferID, Code: pkgerrors.CodeStaleOffer, Reason: ReasonNotFound}
	if c.Category.IsValid() {
		f.Category = c.Category
		f.Family = c.Category.Family()
	}
	return f
}

// Selection is the buyer's pick: at most one shipping and one product offer.
type Selection struct {
	Choices []Choice `json:"choices" validate:"max=2,dive"`
}

func (s Selection) IsEmpty() bool {
	return len(s.Choices) == 0
}

// Share is the part of a discount charged against one vendor's order.
type Share struct {
	VendorID uuid.UUID `json:"vendor_id"`
	Amount   int64     `json:"amount"`
}

// Applied is a validated offer with its floor-rounded amount.
type Applied struct {
	Offer          Offer      `json:"offer"`
	TargetVendorID *uuid.UUID `json:"target_vendor_id,omitempty"`
	Base           int64      `json:"base"`
	Amount         int64      `json:"amount"`
	Shares         []Share    `json:"shares"`
}

// ShareFor returns the amount charged to one vendor.
func (a *Applied) ShareFor(vendorID uuid.UUID) int64 {
	if a == nil {
		return 0
	}
	for _, s := range a.Shares {
		if s.VendorID == vendorID {
			return s.Amount
		}
	}
	return 0
}

// Resolution is the outcome of applying a selection. It only holds offers that
// passed confirmation-time validation.
type Resolution struct {
	Shipping *Applied `json:"shipping,omitempty"`
	Product  *Applied `json:"product,omitempty"`
}

// Total is the sum of the applied discount amounts.
func (r Resolution) Total() int64 {
	var total int64
	for _, a := range r.applied() {
		total += a.Amount
	}
	return total
}

// OfferIDs lists the applied offers.
func (r Resolution) OfferIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, 2)
	for _, a := range r.applied() {
		ids = append(ids, a.Offer.ID)
	}
	return ids
}

func (r Resolution) applied() []*Applied {
	out := make([]*Applied, 0, 2)
	if r.Shipping != nil {
		out = append(out, r.Shipping)
	}
	if r.Product != nil {
		out = append(out, r.Product)
	}
	return out
}

// SelectionFailure describes one choice dropped during confirmation.
type SelectionFailure struct {
	OfferID  uuid.UUID              `json:"offer_id"`
	Family   enums.DiscountFamily   `json:"family,omitempty"`
	Category enums.DiscountCategory `json:"category,omitempty"`
	Code     pkgerrors.Code         `json:"code"`
	Reason   string                 `json:"reason"`
}

// SelectionError lists the choices that failed. The Resolution returned with it
// still carries the choices that passed.
type SelectionError struct {
	Failures []SelectionFailure
}

func (e *SelectionError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		label := string(f.Category)
		if label == "" {
			label = f.OfferID.String()
		}
		parts = append(parts, fmt.Sprintf("%s: %s", label, f.Reason))
	}
	return "discount selection rejected: " + strings.Join(parts, "; ")
}

// Stale reports whether any failure is a stale offer rather than a validation failure.
func (e *SelectionError) Stale() bool {
	for _, f := range e.Failures {
		if f.Code == pkgerrors.CodeStaleOffer {
			return true
		}
	}
	return false
}

// Typed converts the failure into the API error taxonomy.
func (e *SelectionError) Typed() *pkgerrors.Error {
	code := pkgerrors.CodeValidation
	if e.Stale() {
		code = pkgerrors.CodeStaleOffer
	}
	return pkgerrors.Wrap(code, e, "discount selection rejected").
		WithDetails(map[string]any{"failures": e.Failures})
}
