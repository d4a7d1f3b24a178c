package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// BeforeCreate assigns a primary key when the caller left it empty.
func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

func (l *OrderLineItem) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

func (t *OrderTransition) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

func (d *DiscountOffer) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}

func (r *DiscountRedemption) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// All lists every persisted model, used for sqlite auto-migration.
func All() []any {
	return []any{
		&Order{},
		&OrderLineItem{},
		&OrderTransition{},
		&DiscountOffer{},
		&DiscountRedemption{},
	}
}
