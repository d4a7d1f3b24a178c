package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/marketcart/internal/cart"
	"github.com/angelmondragon/marketcart/internal/discounts"
	"github.com/angelmondragon/marketcart/internal/pricing"
	"github.com/angelmondragon/marketcart/pkg/enums"
	"github.com/angelmondragon/marketcart/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func testAddress() types.Address {
	return types.Address{
		Recipient:  "Ana Reyes",
		Phone:      "+63 917 000 0000",
		Line1:      "12 Mabini St",
		City:       "Quezon City",
		PostalCode: "1100",
		Country:    "PH",
	}
}

func item(vendor uuid.UUID, price int64, qty int) cart.LineItem {
	return cart.LineItem{
		ID:         uuid.NewString(),
		ProductID:  uuid.NewString(),
		VendorID:   vendor,
		VendorName: "vendor-" + vendor.String()[:4],
		Name:       "item",
		UnitPrice:  price,
		Quantity:   qty,
		Stock:      qty + 10,
		Selected:   true,
	}
}

func defaultEngine() *pricing.Engine {
	return pricing.NewEngine(pricing.DefaultPolicy())
}

func liveOffer(category enums.DiscountCategory) discounts.Offer {
	now := time.Now()
	return discounts.Offer{
		ID:       uuid.New(),
		Code:     string(category),
		Category: category,
		StartsAt: now.Add(-time.Hour),
		EndsAt:   now.Add(time.Hour),
		Active:   true,
	}
}

func flatShipping(amount int64) discounts.Offer {
	o := liveOffer(enums.DiscountCategoryShipping)
	o.FlatAmount = decimal.NewFromInt(amount)
	return o
}

func percentOff(rate string) discounts.Offer {
	o := liveOffer(enums.DiscountCategoryPercentageProduct)
	o.Rate = decimal.RequireFromString(rate)
	return o
}

type offerSource struct {
	offers []discounts.Offer
}

func (s offerSource) ListActive(ctx context.Context, vendorIDs []uuid.UUID) ([]discounts.Offer, error) {
	return s.offers, nil
}

func (s offerSource) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]discounts.Offer, error) {
	out := []discounts.Offer{}
	for _, o := range s.offers {
		for _, id := range ids {
			if o.ID == id {
				out = append(out, o)
			}
		}
	}
	return out, nil
}

type stubCreator struct {
	mu       sync.Mutex
	fail     map[uuid.UUID]error
	delay    time.Duration
	calls    []OrderIntent
	inFlight int
	peak     int
	next     int64
}

func (s *stubCreator) CreateOrder(ctx context.Context, intent OrderIntent) (*Placed, error) {
	s.mu.Lock()
	s.calls = append(s.calls, intent)
	s.inFlight++
	if s.inFlight > s.peak {
		s.peak = s.inFlight
	}
	s.next++
	number := s.next
	err := s.fail[intent.VendorID]
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			err = ctx.Err()
		}
	}

	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &Placed{OrderID: uuid.New(), OrderNumber: number, Status: enums.OrderStatusPendingPayment}, nil
}

func (s *stubCreator) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
