package orders

import (
	"context"
	"time"

	"github.com/angelmondragon/marketcart/pkg/db/models"
	"github.com/angelmondragon/marketcart/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for orders and their audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	FindByCheckout(ctx context.Context, checkoutID uuid.UUID) ([]models.Order, error)
	List(ctx context.Context, actor Actor, filter Filter) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, at time.Time) error
	SetFlag(ctx context.Context, id uuid.UUID, flagged bool, reason *string) error
	CreateTransition(ctx context.Context, row *models.OrderTransition) error
	ListTransitions(ctx context.Context, orderID uuid.UUID) ([]models.OrderTransition, error)
}

// Publisher pushes committed status changes to the buyer and vendor.
type Publisher interface {
	OrderUpdated(ctx context.Context, event StatusEvent) error
}

// Sequencer hands out order numbers.
type Sequencer interface {
	NextSequence(ctx context.Context, name string) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
