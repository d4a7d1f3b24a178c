package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/angelmondragon/marketcart/internal/orders"
	"github.com/angelmondragon/marketcart/pkg/enums"
	"github.com/angelmondragon/marketcart/pkg/logger"
	"github.com/angelmondragon/marketcart/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// Broker is the publishing half of the Redis client.
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Publisher is the server side of the push channel.
type Publisher struct {
	broker  Broker
	prefix  string
	logg    *logger.Logger
	metrics *metrics.RealtimeMetrics
	now     func() time.Time
}

func NewPublisher(broker Broker, prefix string, logg *logger.Logger, m *metrics.RealtimeMetrics) *Publisher {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Publisher{broker: broker, prefix: prefix, logg: logg, metrics: m, now: time.Now}
}

// OrderUpdated tells the buyer and the vendor of the order about its new status.
func (p *Publisher) OrderUpdated(ctx context.Context, event orders.StatusEvent) error {
	evt, err := newEvent(enums.PushEventOrderUpdated, OrderUpdated{
		OrderID:    event.OrderID,
		Status:     event.Status,
		OccurredAt: event.OccurredAt,
	}, p.now())
	if err != nil {
		return err
	}
	var errs error
	for _, account := range []uuid.UUID{event.BuyerID, event.VendorID} {
		if account == uuid.Nil {
			continue
		}
		errs = multierr.Append(errs, p.publish(ctx, AccountChannel(p.prefix, account), evt))
	}
	return errs
}

// DiscountStatusChanged broadcasts an offer toggle.
func (p *Publisher) DiscountStatusChanged(ctx context.Context, offerID uuid.UUID, active bool) error {
	evt, err := newEvent(enums.PushEventDiscountStatusChanged, DiscountStatusChanged{
		DiscountID: offerID,
		IsActive:   active,
	}, p.now())
	if err != nil {
		return err
	}
	return p.publish(ctx, BroadcastChannel(p.prefix), evt)
}

func (p *Publisher) publish(ctx context.Context, channel string, evt Event) error {
	raw, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if err := p.broker.Publish(ctx, channel, raw); err != nil {
		return err
	}
	p.metrics.IncPublished(string(evt.Type))
	p.logg.Debug(p.logg.WithFields(ctx, map[string]any{"channel": channel, "event": evt.Type}), "push event published")
	return nil
}
