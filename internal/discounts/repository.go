package discounts

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/marketcart/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketcart/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists offers and redemptions.
type Repository interface {
	Source
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, offer *models.DiscountOffer) (*models.DiscountOffer, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.DiscountOffer, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.DiscountOffer, error)
	Redeem(ctx context.Context, offerID, checkoutID uuid.UUID, now time.Time) error
	ListLapsed(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a discounts repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// ListActive returns the active offers that are unscoped or scoped to one of
// the vendors. Window and usage checks happen in the resolver.
func (r *repository) ListActive(ctx context.Context, vendorIDs []uuid.UUID) ([]Offer, error) {
	q := r.db.WithContext(ctx).Where("active = ?", true)
	if len(vendorIDs) > 0 {
		q = q.Where("(vendor_id IS NULL OR vendor_id IN ?)", vendorIDs)
	} else {
		q = q.Where("vendor_id IS NULL")
	}
	var rows []models.DiscountOffer
	if err := q.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toOffers(rows), nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Offer, error) {
	if len(ids) == 0 {
		return []Offer{}, nil
	}
	var rows []models.DiscountOffer
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toOffers(rows), nil
}

func (r *repository) Create(ctx context.Context, offer *models.DiscountOffer) (*models.DiscountOffer, error) {
	if err := r.db.WithContext(ctx).Create(offer).Error; err != nil {
		return nil, err
	}
	return offer, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.DiscountOffer, error) {
	var row models.DiscountOffer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.DiscountOffer, error) {
	res := r.db.WithContext(ctx).Model(&models.DiscountOffer{}).Where("id = ?", id).Update("active", active)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindByID(ctx, id)
}

// Redeem consumes one use of the offer for a checkout. Repeated calls for the
// same checkout are no-ops, so every vendor order of a checkout can call it.
func (r *repository) Redeem(ctx context.Context, offerID, checkoutID uuid.UUID, now time.Time) error {
	redemption := models.DiscountRedemption{OfferID: offerID, CheckoutID: checkoutID}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&redemption)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil
	}

	res = r.db.WithContext(ctx).Model(&models.DiscountOffer{}).
		Where("id = ?", offerID).
		Where("active = ?", true).
		Where("starts_at <= ? AND ends_at > ?", now, now).
		Where("(usage_limit IS NULL OR usage_count < usage_limit)").
		Update("usage_count", gorm.Expr("usage_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStaleOffer, "discount offer no longer available").
			WithDetails(map[string]any{"offer_id": offerID})
	}
	return nil
}

// ListLapsed returns active offers that can no longer be redeemed: their window
// has closed or their usage limit is spent.
func (r *repository) ListLapsed(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.DiscountOffer{}).
		Where("active = ?", true).
		Where("(ends_at <= ? OR (usage_limit IS NOT NULL AND usage_count >= usage_limit))", now).
		Order("ends_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// IsNotFound reports a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func toOffers(rows []models.DiscountOffer) []Offer {
	out := make([]Offer, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}
