package orders

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/marketcart/pkg/db/models"
	"github.com/angelmondragon/marketcart/pkg/enums"
	"github.com/angelmondragon/marketcart/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrStatusChanged means the row's status moved between read and update.
var ErrStatusChanged = errors.New("order status changed concurrently")

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("idempotency_key = ?", key).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByCheckout(ctx context.Context, checkoutID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("checkout_id = ?", checkoutID).
		Order("order_number ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) List(ctx context.Context, actor Actor, filter Filter) ([]models.Order, error) {
	q := r.db.WithContext(ctx).Preload("Items")
	switch actor.Role {
	case enums.ActorRoleBuyer:
		q = q.Where("buyer_id = ?", actor.ID)
	case enums.ActorRoleVendor:
		q = q.Where("vendor_id = ?", actor.ID)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if c := filter.After; c != nil {
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", c.CreatedAt, c.CreatedAt, c.ID)
	}
	var orders []models.Order
	err := q.Order("created_at DESC").Order("id DESC").
		Limit(pagination.NormalizeLimit(filter.Limit)).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus moves the order only if it is still in from, and stamps the
// timestamp column of the destination status.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, at time.Time) error {
	updates := map[string]any{"status": to}
	if column := timestampColumn(to); column != "" {
		updates[column] = at
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusChanged
	}
	return nil
}

func (r *repository) SetFlag(ctx context.Context, id uuid.UUID, flagged bool, reason *string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{"flagged": flagged, "flag_reason": reason})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) CreateTransition(ctx context.Context, row *models.OrderTransition) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) ListTransitions(ctx context.Context, orderID uuid.UUID) ([]models.OrderTransition, error) {
	var rows []models.OrderTransition
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func timestampColumn(status enums.OrderStatus) string {
	switch status {
	case enums.OrderStatusPaid:
		return "paid_at"
	case enums.OrderStatusPaymentFailed:
		return "payment_failed_at"
	case enums.OrderStatusShipped:
		return "shipped_at"
	case enums.OrderStatusDelivered:
		return "delivered_at"
	case enums.OrderStatusCompleted:
		return "completed_at"
	case enums.OrderStatusCancelled:
		return "cancelled_at"
	default:
		return ""
	}
}
