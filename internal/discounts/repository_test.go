package discounts

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/marketcart/pkg/db"
	"github.com/angelmondragon/marketcart/pkg/db/models"
	"github.com/angelmondragon/marketcart/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketcart/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) Repository {
	t.Helper()
	ctx := context.Background()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	client, err := db.NewSQLite(ctx, "file:"+name+"?mode=memory&cache=shared", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.AutoMigrate(ctx, &models.DiscountOffer{}, &models.DiscountRedemption{}))
	return NewRepository(client.DB())
}

func seedOffer(t *testing.T, repo Repository, mutate func(*models.DiscountOffer)) *models.DiscountOffer {
	t.Helper()
	row := &models.DiscountOffer{
		Code:       "SEED-" + uuid.NewString()[:8],
		Title:      "seed",
		Category:   enums.DiscountCategoryShipping,
		FlatAmount: decimal.NewFromInt(60),
		StartsAt:   testNow.Add(-time.Hour),
		EndsAt:     testNow.Add(time.Hour),
		Active:     true,
	}
	if mutate != nil {
		mutate(row)
	}
	created, err := repo.Create(context.Background(), row)
	require.NoError(t, err)
	return created
}

func TestRepositoryListActiveScopesVendors(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	mine, theirs := uuid.New(), uuid.New()
	global := seedOffer(t, repo, nil)
	scoped := seedOffer(t, repo, func(o *models.DiscountOffer) { o.VendorID = &mine })
	seedOffer(t, repo, func(o *models.DiscountOffer) { o.VendorID = &theirs })
	inactive := seedOffer(t, repo, nil)
	_, err := repo.SetActive(ctx, inactive.ID, false)
	require.NoError(t, err)

	offers, err := repo.ListActive(ctx, []uuid.UUID{mine})
	require.NoError(t, err)
	ids := []uuid.UUID{}
	for _, o := range offers {
		ids = append(ids, o.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{global.ID, scoped.ID}, ids)

	offers, err = repo.ListActive(ctx, nil)
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, global.ID, offers[0].ID)
}

func TestRepositoryRedeemOncePerCheckout(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	offer := seedOffer(t, repo, nil)
	checkoutID := uuid.New()

	require.NoError(t, repo.Redeem(ctx, offer.ID, checkoutID, testNow))
	require.NoError(t, repo.Redeem(ctx, offer.ID, checkoutID, testNow))

	stored, err := repo.FindByID(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.UsageCount)

	require.NoError(t, repo.Redeem(ctx, offer.ID, uuid.New(), testNow))
	stored, err = repo.FindByID(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.UsageCount)
}

func TestRepositoryRedeemStopsAtUsageLimit(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	limit := int64(1)
	offer := seedOffer(t, repo, func(o *models.DiscountOffer) { o.UsageLimit = &limit })

	require.NoError(t, repo.Redeem(ctx, offer.ID, uuid.New(), testNow))
	err := repo.Redeem(ctx, offer.ID, uuid.New(), testNow)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStaleOffer))
}

func TestRepositoryRedeemRejectsExpiredOffer(t *testing.T) {
	repo := newTestRepository(t)
	offer := seedOffer(t, repo, nil)

	err := repo.Redeem(context.Background(), offer.ID, uuid.New(), testNow.Add(2*time.Hour))
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStaleOffer))
}

func TestRepositorySetActiveMissing(t *testing.T) {
	repo := newTestRepository(t)
	_, err := repo.SetActive(context.Background(), uuid.New(), false)
	assert.True(t, IsNotFound(err))
}

func TestRepositoryListLapsed(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	seedOffer(t, repo, nil)
	ended := seedOffer(t, repo, func(o *models.DiscountOffer) {
		o.StartsAt = testNow.Add(-48 * time.Hour)
		o.EndsAt = testNow.Add(-time.Minute)
	})
	limit := int64(2)
	spent := seedOffer(t, repo, func(o *models.DiscountOffer) {
		o.UsageLimit = &limit
		o.UsageCount = 2
	})
	alreadyOff := seedOffer(t, repo, func(o *models.DiscountOffer) { o.EndsAt = testNow.Add(-time.Hour) })
	_, err := repo.SetActive(ctx, alreadyOff.ID, false)
	require.NoError(t, err)

	ids, err := repo.ListLapsed(ctx, testNow, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{ended.ID, spent.ID}, ids)
}
