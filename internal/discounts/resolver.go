package discounts

import (
	"context"
	"time"

	"github.com/angelmondragon/marketcart/internal/pricing"
	"github.com/angelmondragon/marketcart/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketcart/pkg/errors"
	"github.com/angelmondragon/marketcart/pkg/logger"
	"github.com/angelmondragon/marketcart/pkg/metrics"
	"github.com/google/uuid"
)

// Source provides offers. ListActive may be served from a cache; FindByIDs is
// used at confirmation time and must be fresh.
type Source interface {
	ListActive(ctx context.Context, vendorIDs []uuid.UUID) ([]Offer, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Offer, error)
}

// CartContext is what a selection is validated against.
type CartContext struct {
	Quote pricing.CartQuote
}

// Resolver lists eligible offers and turns a buyer's selection into amounts.
type Resolver struct {
	source     Source
	allocation Allocation
	logg       *logger.Logger
	metrics    *metrics.CheckoutMetrics
	now        func() time.Time
}

func NewResolver(source Source, allocation Allocation, logg *logger.Logger, m *metrics.CheckoutMetrics) *Resolver {
	if logg == nil {
		logg = logger.Nop()
	}
	if allocation == "" {
		allocation = AllocationProRata
	}
	return &Resolver{
		source:     source,
		allocation: allocation,
		logg:       logg,
		metrics:    m,
		now:        time.Now,
	}
}

func (r *Resolver) Allocation() Allocation {
	return r.allocation
}

// ListEligible returns the offers usable now for a cart with the given subtotal
// and vendors. An empty result is not an error.
func (r *Resolver) ListEligible(ctx context.Context, subtotal int64, vendorIDs []uuid.UUID) (Eligible, error) {
	offers, err := r.source.ListActive(ctx, vendorIDs)
	if err != nil {
		return Eligible{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading discount offers")
	}
	now := r.now()
	out := Eligible{Shipping: []Offer{}, Product: []Offer{}}
	for _, offer := range offers {
		if ok, _ := offer.Availability(now); !ok || offer.MinPurchase > subtotal {
			continue
		}
		out.add(offer)
	}
	return out, nil
}

// ListEligibleForQuote checks each offer's minimum against the subtotal it would
// apply to: a vendor subtotal for shipping and vendor-scoped offers, the cart
// subtotal otherwise.
func (r *Resolver) ListEligibleForQuote(ctx context.Context, quote pricing.CartQuote) (Eligible, error) {
	vendorIDs := make([]uuid.UUID, 0, len(quote.Vendors))
	for _, v := range quote.Vendors {
		if v.ItemCount > 0 {
			vendorIDs = append(vendorIDs, v.VendorID)
		}
	}
	offers, err := r.source.ListActive(ctx, vendorIDs)
	if err != nil {
		return Eligible{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading discount offers")
	}
	now := r.now()
	out := Eligible{Shipping: []Offer{}, Product: []Offer{}}
	for _, offer := range offers {
		if ok, _ := offer.Availability(now); !ok {
			continue
		}
		if offer.Family() == enums.DiscountFamilyProduct && offer.VendorID == nil {
			if quote.Subtotal >= offer.MinPurchase {
				out.add(offer)
			}
			continue
		}
		for _, v := range quote.Vendors {
			if v.ItemCount > 0 && offer.AppliesTo(v.VendorID) && v.Subtotal >= offer.MinPurchase {
				out.add(offer)
				break
			}
		}
	}
	return out, nil
}

func (e *Eligible) add(offer Offer) {
	if offer.Family() == enums.DiscountFamilyShipping {
		e.Shipping = append(e.Shipping, offer)
		return
	}
	e.Product = append(e.Product, offer)
}

// ApplySelection re-fetches the chosen offers and validates them against the
// cart. Two offers of the same family reject the whole selection. Otherwise a
// failing choice is dropped, the rest are applied, and the failures come back
// as a *SelectionError next to the partial Resolution.
func (r *Resolver) ApplySelection(ctx context.Context, sel Selection, cc CartContext) (Resolution, error) {
	if sel.IsEmpty() {
		return Resolution{}, nil
	}
	if len(sel.Choices) > 2 {
		return Resolution{}, pkgerrors.New(pkgerrors.CodeValidation, "at most one shipping and one product offer can be selected")
	}

	ids := make([]uuid.UUID, 0, len(sel.Choices))
	seen := make(map[uuid.UUID]struct{}, len(sel.Choices))
	for _, choice := range sel.Choices {
		if choice.OfferID == uuid.Nil {
			return Resolution{}, pkgerrors.New(pkgerrors.CodeValidation, "offer id is required")
		}
		if _, dup := seen[choice.OfferID]; dup {
			return Resolution{}, pkgerrors.New(pkgerrors.CodeValidation, "offer selected twice").
				WithDetails(map[string]any{"offer_id": choice.OfferID})
		}
		seen[choice.OfferID] = struct{}{}
		ids = append(ids, choice.OfferID)
	}

	offers, err := r.source.FindByIDs(ctx, ids)
	if err != nil {
		return Resolution{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading selected offers")
	}
	byID := make(map[uuid.UUID]Offer, len(offers))
	families := make(map[enums.DiscountFamily]int, 2)
	for _, offer := range offers {
		if _, ok := seen[offer.ID]; !ok {
			continue
		}
		byID[offer.ID] = offer
		families[offer.Family()]++
	}
	for family, n := range families {
		if n > 1 {
			return Resolution{}, pkgerrors.New(pkgerrors.CodeValidation, "only one offer per category can be selected").
				WithDetails(map[string]any{"family": family})
		}
	}

	now := r.now()
	var res Resolution
	var failures []SelectionFailure
	for _, choice := range sel.Choices {
		offer, ok := byID[choice.OfferID]
		if !ok {
			failures = append(failures, choice.missingFailure())
			continue
		}
		if ok, reason := offer.Availability(now); !ok {
			failures = append(failures, failureFor(offer, pkgerrors.CodeStaleOffer, reason))
			continue
		}

		var applied *Applied
		var failure *SelectionFailure
		if offer.Family() == enums.DiscountFamilyShipping {
			applied, failure = applyShipping(offer, choice, cc.Quote)
		} else {
			applied, failure = r.applyProduct(offer, cc.Quote)
		}
		if failure != nil {
			failures = append(failures, *failure)
			continue
		}
		if offer.Family() == enums.DiscountFamilyShipping {
			res.Shipping = applied
		} else {
			res.Product = applied
		}
	}

	if len(failures) == 0 {
		return res, nil
	}
	for _, f := range failures {
		r.metrics.IncDiscountRejected(string(f.Family), f.Reason)
	}
	r.logg.Warn(r.logg.WithField(ctx, "failures", failures), "discount selection partially rejected")
	return res, &SelectionError{Failures: failures}
}

func applyShipping(offer Offer, choice Choice, quote pricing.CartQuote) (*Applied, *SelectionFailure) {
	target := choice.TargetVendorID
	if target == nil {
		target = offer.VendorID
	}
	if target == nil {
		target = defaultShippingTarget(offer, quote)
	}
	if target == nil {
		f := failureFor(offer, pkgerrors.CodeValidation, ReasonMinimum)
		return nil, &f
	}

	vq, ok := quote.ForVendor(*target)
	if !ok || vq.ItemCount == 0 || !offer.AppliesTo(*target) {
		f := failureFor(offer, pkgerrors.CodeValidation, ReasonTarget)
		return nil, &f
	}
	if vq.Subtotal < offer.MinPurchase {
		f := failureFor(offer, pkgerrors.CodeValidation, ReasonMinimum)
		return nil, &f
	}

	amount := offer.ShippingAmount(vq.Shipping)
	vendor := *target
	return &Applied{
		Offer:          offer,
		TargetVendorID: &vendor,
		Base:           vq.Subtotal,
		Amount:         amount,
		Shares:         []Share{{VendorID: vendor, Amount: amount}},
	}, nil
}

// defaultShippingTarget picks the first vendor that meets the minimum and still
// pays shipping, falling back to the first vendor that meets the minimum.
func defaultShippingTarget(offer Offer, quote pricing.CartQuote) *uuid.UUID {
	var fallback *uuid.UUID
	for _, v := range quote.Vendors {
		if v.ItemCount == 0 || v.Subtotal < offer.MinPurchase || !offer.AppliesTo(v.VendorID) {
			continue
		}
		id := v.VendorID
		if v.Shipping > 0 {
			return &id
		}
		if fallback == nil {
			fallback = &id
		}
	}
	return fallback
}

func (r *Resolver) applyProduct(offer Offer, quote pricing.CartQuote) (*Applied, *SelectionFailure) {
	if offer.VendorID != nil {
		vq, ok := quote.ForVendor(*offer.VendorID)
		if !ok || vq.ItemCount == 0 {
			f := failureFor(offer, pkgerrors.CodeValidation, ReasonScope)
			return nil, &f
		}
		if vq.Subtotal < offer.MinPurchase {
			f := failureFor(offer, pkgerrors.CodeValidation, ReasonMinimum)
			return nil, &f
		}
		amount := offer.ProductAmount(vq.Subtotal)
		return &Applied{
			Offer:  offer,
			Base:   vq.Subtotal,
			Amount: amount,
			Shares: []Share{{VendorID: vq.VendorID, Amount: amount}},
		}, nil
	}

	if r.allocation == AllocationPerGroup {
		applied := &Applied{Offer: offer}
		qualifying := make([]pricing.VendorQuote, 0, len(quote.Vendors))
		for _, v := range quote.Vendors {
			if v.ItemCount == 0 || v.Subtotal < offer.MinPurchase {
				continue
			}
			share := offer.ProductAmount(v.Subtotal)
			qualifying = append(qualifying, v)
			applied.Shares = append(applied.Shares, Share{VendorID: v.VendorID, Amount: share})
			applied.Amount += share
			applied.Base += v.Subtotal
		}
		if len(applied.Shares) == 0 {
			f := failureFor(offer, pkgerrors.CodeValidation, ReasonMinimum)
			return nil, &f
		}
		// the cap bounds the offer as a whole, not each vendor's share
		if limit, capped := offer.CapUnits(); capped && applied.Amount > limit {
			applied.Amount = limit
			applied.Shares = ProRata(limit, qualifying)
		}
		return applied, nil
	}

	if quote.Subtotal < offer.MinPurchase {
		f := failureFor(offer, pkgerrors.CodeValidation, ReasonMinimum)
		return nil, &f
	}
	amount := offer.ProductAmount(quote.Subtotal)
	return &Applied{
		Offer:  offer,
		Base:   quote.Subtotal,
		Amount: amount,
		Shares: ProRata(amount, quote.Vendors),
	}, nil
}

func failureFor(offer Offer, code pkgerrors.Code, reason string) SelectionFailure {
	return SelectionFailure{
		OfferID:  offer.ID,
		Family:   offer.Family(),
		Category: offer.Category,
		Code:     code,
		Reason:   reason,
	}
}
