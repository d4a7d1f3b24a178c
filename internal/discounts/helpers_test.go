package discounts

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/marketcart/internal/pricing"
	"github.com/angelmondragon/marketcart/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type stubSource struct {
	mu        sync.Mutex
	offers    []Offer
	err       error
	listCalls int
	findCalls int
}

func (s *stubSource) ListActive(ctx context.Context, vendorIDs []uuid.UUID) ([]Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]Offer, 0, len(s.offers))
	for _, o := range s.offers {
		if !o.Active {
			continue
		}
		if o.VendorID == nil || containsVendor(vendorIDs, *o.VendorID) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *stubSource) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	if s.err != nil {
		return nil, s.err
	}
	out := []Offer{}
	for _, o := range s.offers {
		if containsVendor(ids, o.ID) {
			out = append(out, o)
		}
	}
	return out, nil
}

func containsVendor(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func shippingOffer(flat string, minPurchase int64) Offer {
	return Offer{
		ID:          uuid.New(),
		Code:        "SHIP-" + flat,
		Category:    enums.DiscountCategoryShipping,
		FlatAmount:  decimal.RequireFromString(flat),
		MinPurchase: minPurchase,
		StartsAt:    testNow.Add(-24 * time.Hour),
		EndsAt:      testNow.Add(24 * time.Hour),
		Active:      true,
	}
}

func productOffer(rate string, capAmount string, minPurchase int64) Offer {
	o := Offer{
		ID:          uuid.New(),
		Code:        "PCT-" + rate,
		Category:    enums.DiscountCategoryPercentageProduct,
		Rate:        decimal.RequireFromString(rate),
		MinPurchase: minPurchase,
		StartsAt:    testNow.Add(-24 * time.Hour),
		EndsAt:      testNow.Add(24 * time.Hour),
		Active:      true,
	}
	if capAmount != "" {
		c := decimal.RequireFromString(capAmount)
		o.Cap = &c
	}
	return o
}

func vendorQuote(id uuid.UUID, subtotal int64) pricing.VendorQuote {
	engine := pricing.NewEngine(pricing.DefaultPolicy())
	shipping := engine.ShippingFor(subtotal)
	return pricing.VendorQuote{VendorID: id, ItemCount: 1, Subtotal: subtotal, Shipping: shipping, Total: subtotal + shipping}
}

func cartQuote(vendors ...pricing.VendorQuote) pricing.CartQuote {
	q := pricing.CartQuote{Vendors: vendors}
	for _, v := range vendors {
		q.Subtotal += v.Subtotal
		q.Shipping += v.Shipping
		q.Total += v.Total
	}
	return q
}

func newTestResolver(src Source, allocation Allocation) *Resolver {
	r := NewResolver(src, allocation, nil, nil)
	r.now = func() time.Time { return testNow }
	return r
}
