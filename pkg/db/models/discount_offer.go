package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketcart/pkg/enums"
)

// DiscountOffer is a shipping or product discount that buyers can select at checkout.
type DiscountOffer struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	Code        string                 `gorm:"column:code;not null;uniqueIndex"`
	Title       string                 `gorm:"column:title;not null"`
	Category    enums.DiscountCategory `gorm:"column:category;type:text;not null"`
	VendorID    *uuid.UUID             `gorm:"column:vendor_id;type:uuid;index"`
	FlatAmount  decimal.Decimal        `gorm:"column:flat_amount;type:numeric(12,2);not null;default:0"`
	Rate        decimal.Decimal        `gorm:"column:rate;type:numeric(6,4);not null;default:0"`
	Cap         *decimal.Decimal       `gorm:"column:cap;type:numeric(12,2)"`
	MinPurchase int64                  `gorm:"column:min_purchase;not null;default:0"`
	StartsAt    time.Time              `gorm:"column:starts_at;not null"`
	EndsAt      time.Time              `gorm:"column:ends_at;not null"`
	UsageLimit  *int64                 `gorm:"column:usage_limit"`
	UsageCount  int64                  `gorm:"column:usage_count;not null;default:0"`
	Active      bool                   `gorm:"column:active;not null;default:true"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
