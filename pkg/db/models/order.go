package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketcart/pkg/enums"
	"github.com/angelmondragon/marketcart/pkg/types"
)

// Order is the per-vendor order produced from one checkout. Rows are never deleted.
type Order struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber      int64               `gorm:"column:order_number;not null;uniqueIndex"`
	CheckoutID       uuid.UUID           `gorm:"column:checkout_id;type:uuid;not null;index"`
	IdempotencyKey   string              `gorm:"column:idempotency_key;not null;uniqueIndex"`
	BuyerID          uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null;index"`
	VendorID         uuid.UUID           `gorm:"column:vendor_id;type:uuid;not null;index"`
	VendorName       string              `gorm:"column:vendor_name;not null"`
	Status           enums.OrderStatus   `gorm:"column:status;type:text;not null"`
	Subtotal         int64               `gorm:"column:subtotal;not null"`
	ShippingFee      int64               `gorm:"column:shipping_fee;not null;default:0"`
	ShippingDiscount int64               `gorm:"column:shipping_discount;not null;default:0"`
	ProductDiscount  int64               `gorm:"column:product_discount;not null;default:0"`
	Total            int64               `gorm:"column:total;not null"`
	Discounts        []AppliedDiscount   `gorm:"column:discounts;type:jsonb;serializer:json"`
	ShippingAddress  types.Address       `gorm:"column:shipping_address;type:jsonb;not null"`
	PaymentMethod    enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	Note             *string             `gorm:"column:note"`
	Flagged          bool                `gorm:"column:flagged;not null;default:false"`
	FlagReason       *string             `gorm:"column:flag_reason"`
	PaidAt           *time.Time          `gorm:"column:paid_at"`
	PaymentFailedAt  *time.Time          `gorm:"column:payment_failed_at"`
	ShippedAt        *time.Time          `gorm:"column:shipped_at"`
	DeliveredAt      *time.Time          `gorm:"column:delivered_at"`
	CompletedAt      *time.Time          `gorm:"column:completed_at"`
	CancelledAt      *time.Time          `gorm:"column:cancelled_at"`
	Items            []OrderLineItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// AppliedDiscount is one line of the discount breakdown frozen on an order.
type AppliedDiscount struct {
	OfferID  uuid.UUID              `json:"offer_id"`
	Code     string                 `json:"code"`
	Category enums.DiscountCategory `json:"category"`
	Amount   int64                  `json:"amount"`
}
