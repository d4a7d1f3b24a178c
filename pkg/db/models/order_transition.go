package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketcart/pkg/enums"
)

// OrderTransition is the audit row written for every status change.
type OrderTransition struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID    uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	FromStatus enums.OrderStatus `gorm:"column:from_status;type:text;not null"`
	ToStatus   enums.OrderStatus `gorm:"column:to_status;type:text;not null"`
	ActorRole  enums.ActorRole   `gorm:"column:actor_role;type:text;not null"`
	ActorID    *uuid.UUID        `gorm:"column:actor_id;type:uuid"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}
