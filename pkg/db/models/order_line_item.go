package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderLineItem captures the snapshot of each item within an order.
type OrderLineItem struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID    uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	CartItemID string    `gorm:"column:cart_item_id;not null"`
	ProductID  string    `gorm:"column:product_id;not null"`
	Name       string    `gorm:"column:name;not null"`
	UnitPrice  int64     `gorm:"column:unit_price;not null"`
	Quantity   int       `gorm:"column:quantity;not null"`
	LineTotal  int64     `gorm:"column:line_total;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
