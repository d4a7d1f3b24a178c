package discounts

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/marketcart/pkg/logger"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// CacheStore is the slice of the Redis client used by the offer cache.
type CacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	DiscountVersionKey() string
	DiscountListKey(version int64, scope string) string
}

// CachedSource serves ListActive from Redis. Entries are keyed by a version
// number; bumping the version orphans every cached listing at once.
// FindByIDs always reaches the wrapped source.
type CachedSource struct {
	inner Source
	store CacheStore
	ttl   time.Duration
	logg  *logger.Logger
}

func NewCachedSource(inner Source, store CacheStore, ttl time.Duration, logg *logger.Logger) *CachedSource {
	if logg == nil {
		logg = logger.Nop()
	}
	return &CachedSource{inner: inner, store: store, ttl: ttl, logg: logg}
}

func (c *CachedSource) ListActive(ctx context.Context, vendorIDs []uuid.UUID) ([]Offer, error) {
	version, err := c.version(ctx)
	if err != nil {
		c.logg.Warn(ctx, "discount cache unavailable, reading through")
		return c.inner.ListActive(ctx, vendorIDs)
	}
	key := c.store.DiscountListKey(version, scopeKey(vendorIDs))

	if raw, err := c.store.Get(ctx, key); err == nil {
		var offers []Offer
		if jsonErr := json.Unmarshal([]byte(raw), &offers); jsonErr == nil {
			return offers, nil
		}
	}

	offers, err := c.inner.ListActive(ctx, vendorIDs)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(offers); err == nil {
		if err := c.store.Set(ctx, key, payload, c.ttl); err != nil {
			c.logg.Warn(ctx, "failed to cache discount listing")
		}
	}
	return offers, nil
}

func (c *CachedSource) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Offer, error) {
	return c.inner.FindByIDs(ctx, ids)
}

// Invalidate drops every cached listing.
func (c *CachedSource) Invalidate(ctx context.Context) error {
	_, err := c.store.Incr(ctx, c.store.DiscountVersionKey())
	return err
}

func (c *CachedSource) version(ctx context.Context) (int64, error) {
	raw, err := c.store.Get(ctx, c.store.DiscountVersionKey())
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

func scopeKey(vendorIDs []uuid.UUID) string {
	if len(vendorIDs) == 0 {
		return "all"
	}
	parts := make([]string, 0, len(vendorIDs))
	for _, id := range vendorIDs {
		parts = append(parts, id.String())
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
