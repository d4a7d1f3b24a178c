package realtime

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/angelmondragon/marketcart/internal/orders"
	"github.com/angelmondragon/marketcart/pkg/enums"
	"github.com/angelmondragon/marketcart/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// Fetcher loads a single order from the API.
type Fetcher interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*orders.Order, error)
}

type viewEntry struct {
	order orders.Order
	asOf  time.Time
}

// OrderView is a client-side list of orders kept current by push events.
// Events patch only the order they name; orders not in the view are ignored.
type OrderView struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*viewEntry
	fetcher Fetcher
	logg    *logger.Logger
}

func NewOrderView(fetcher Fetcher, logg *logger.Logger) *OrderView {
	if logg == nil {
		logg = logger.Nop()
	}
	return &OrderView{entries: map[uuid.UUID]*viewEntry{}, fetcher: fetcher, logg: logg}
}

// Load replaces the view with a freshly listed snapshot.
func (v *OrderView) Load(list []orders.Order) {
	entries := make(map[uuid.UUID]*viewEntry, len(list))
	for _, o := range list {
		entries[o.ID] = &viewEntry{order: o, asOf: o.UpdatedAt}
	}
	v.mu.Lock()
	v.entries = entries
	v.mu.Unlock()
}

// Upsert stores one order as fetched.
func (v *OrderView) Upsert(o orders.Order) {
	v.mu.Lock()
	v.entries[o.ID] = &viewEntry{order: o, asOf: o.UpdatedAt}
	v.mu.Unlock()
}

func (v *OrderView) Get(id uuid.UUID) (orders.Order, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	e, ok := v.entries[id]
	if !ok {
		return orders.Order{}, false
	}
	return e.order, true
}

// Snapshot returns the orders newest first.
func (v *OrderView) Snapshot() []orders.Order {
	v.mu.RLock()
	out := make([]orders.Order, 0, len(v.entries))
	for _, e := range v.entries {
		out = append(out, e.order)
	}
	v.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].OrderNumber > out[j].OrderNumber
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Apply patches the status of a known order. Updates older than what the view
// already holds are dropped. It reports whether the view changed.
func (v *OrderView) Apply(update OrderUpdated) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.entries[update.OrderID]
	if !ok {
		return false
	}
	if update.OccurredAt.Before(e.asOf) || e.order.Status == update.Status {
		return false
	}
	e.order.Status = update.Status
	e.order.UpdatedAt = update.OccurredAt
	e.asOf = update.OccurredAt
	return true
}

// Handle is a Handler that applies order:updated events.
func (v *OrderView) Handle(ctx context.Context, evt Event) {
	if evt.Type != enums.PushEventOrderUpdated {
		return
	}
	update, err := evt.OrderUpdate()
	if err != nil {
		v.logg.Warn(ctx, "dropping malformed order update")
		return
	}
	if v.Apply(update) {
		v.logg.Debug(v.logg.WithFields(ctx, map[string]any{
			"order_id": update.OrderID.String(),
			"status":   update.Status,
		}), "order view patched")
	}
}

// Refresh re-fetches one order and stores it.
func (v *OrderView) Refresh(ctx context.Context, id uuid.UUID) (*orders.Order, error) {
	o, err := v.fetcher.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	v.Upsert(*o)
	return o, nil
}

// RefreshAll re-fetches every order in the view and returns the ones whose
// status changed. A failed fetch leaves that order as it was.
func (v *OrderView) RefreshAll(ctx context.Context) ([]orders.Order, error) {
	var (
		changed []orders.Order
		errs    error
	)
	for _, before := range v.Snapshot() {
		if err := ctx.Err(); err != nil {
			return changed, multierr.Append(errs, err)
		}
		after, err := v.Refresh(ctx, before.ID)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if after.Status != before.Status {
			changed = append(changed, *after)
		}
	}
	return changed, errs
}
