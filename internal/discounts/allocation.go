package discounts

import (
	"fmt"
	"sort"

	"github.com/angelmondragon/marketcart/internal/pricing"
)

// Allocation decides how an unscoped product discount is spread over vendors.
type Allocation string

const (
	// AllocationProRata computes one cart-wide amount and splits it by subtotal share.
	AllocationProRata Allocation = "pro_rata"
	// AllocationPerGroup re-checks the minimum and applies rate and cap per vendor.
	AllocationPerGroup Allocation = "per_group"
)

func ParseAllocation(value string) (Allocation, error) {
	switch Allocation(value) {
	case AllocationProRata, AllocationPerGroup:
		return Allocation(value), nil
	case "":
		return AllocationProRata, nil
	}
	return "", fmt.Errorf("invalid allocation policy %q", value)
}

// ProRata splits amount across the vendors with a selection, proportionally to
// their subtotals. Each share is floored; the units lost to flooring go one by
// one to the largest remainders, earlier vendors first on ties. The shares
// always sum to amount.
func ProRata(amount int64, vendors []pricing.VendorQuote) []Share {
	var total int64
	for _, v := range vendors {
		if v.ItemCount > 0 {
			total += v.Subtotal
		}
	}
	if total <= 0 || amount <= 0 {
		return nil
	}

	type part struct {
		pos       int
		remainder int64
	}
	shares := make([]Share, 0, len(vendors))
	parts := make([]part, 0, len(vendors))
	var assigned int64
	for _, v := range vendors {
		if v.ItemCount == 0 || v.Subtotal <= 0 {
			continue
		}
		product := amount * v.Subtotal
		share := product / total
		parts = append(parts, part{pos: len(shares), remainder: product % total})
		shares = append(shares, Share{VendorID: v.VendorID, Amount: share})
		assigned += share
	}

	sort.SliceStable(parts, func(i, j int) bool {
		return parts[i].remainder > parts[j].remainder
	})
	for i := int64(0); i < amount-assigned; i++ {
		shares[parts[i].pos].Amount++
	}
	return shares
}
