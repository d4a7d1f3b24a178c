package models

import (
	"time"

	"github.com/google/uuid"
)

// DiscountRedemption records that an offer was consumed by a checkout. One row
// per (offer, checkout) no matter how many vendor orders the checkout produced.
type DiscountRedemption struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OfferID    uuid.UUID `gorm:"column:offer_id;type:uuid;not null;uniqueIndex:idx_redemption_offer_checkout"`
	CheckoutID uuid.UUID `gorm:"column:checkout_id;type:uuid;not null;uniqueIndex:idx_redemption_offer_checkout"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
