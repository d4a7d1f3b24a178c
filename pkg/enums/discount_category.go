package enums

import "fmt"

// DiscountCategory classifies an offer. Percentage and special product offers
// share one selection slot.
type DiscountCategory string

const (
	DiscountCategoryShipping          DiscountCategory = "shipping"
	DiscountCategoryPercentageProduct DiscountCategory = "percentage-product"
	DiscountCategorySpecialProduct    DiscountCategory = "special-product"
)

// DiscountFamily is the selection slot a category occupies.
type DiscountFamily string

const (
	DiscountFamilyShipping DiscountFamily = "shipping"
	DiscountFamilyProduct  DiscountFamily = "product"
)

var validDiscountCategories = []DiscountCategory{
	DiscountCategoryShipping,
	DiscountCategoryPercentageProduct,
	DiscountCategorySpecialProduct,
}

// String implements fmt.Stringer.
func (c DiscountCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known DiscountCategory.
func (c DiscountCategory) IsValid() bool {
	for _, candidate := range validDiscountCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// Family maps the category onto its selection slot.
func (c DiscountCategory) Family() DiscountFamily {
	if c == DiscountCategoryShipping {
		return DiscountFamilyShipping
	}
	return DiscountFamilyProduct
}

// ParseDiscountCategory converts raw input into a DiscountCategory.
func ParseDiscountCategory(value string) (DiscountCategory, error) {
	for _, candidate := range validDiscountCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discount category %q", value)
}
