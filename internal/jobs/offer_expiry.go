package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/marketcart/internal/discounts"
	"github.com/angelmondragon/marketcart/pkg/logger"
)

const offerExpiryBatch = 200

// LapsedOffers finds offers that are still active but can no longer be redeemed.
type LapsedOffers interface {
	ListLapsed(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

// OfferToggler deactivates an offer, invalidating caches and notifying clients.
type OfferToggler interface {
	SetActive(ctx context.Context, offerID uuid.UUID, active bool) (*discounts.Offer, error)
}

// OfferExpiryJob switches off offers whose window closed or whose usage limit
// is spent, so clients holding them get a discount:statusChanged push instead
// of a STALE_OFFER rejection at checkout.
type OfferExpiryJob struct {
	finder  LapsedOffers
	toggler OfferToggler
	logg    *logger.Logger
	now     func() time.Time
}

func NewOfferExpiryJob(finder LapsedOffers, toggler OfferToggler, logg *logger.Logger) (*OfferExpiryJob, error) {
	if finder == nil {
		return nil, fmt.Errorf("lapsed offer finder required")
	}
	if toggler == nil {
		return nil, fmt.Errorf("offer toggler required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &OfferExpiryJob{finder: finder, toggler: toggler, logg: logg, now: time.Now}, nil
}

func (j *OfferExpiryJob) Name() string { return "offer_expiry" }

// Run deactivates one batch. Offers that fail to switch off are retried on the
// next cycle; their errors are combined.
func (j *OfferExpiryJob) Run(ctx context.Context) (int, error) {
	ids, err := j.finder.ListLapsed(ctx, j.now().UTC(), offerExpiryBatch)
	if err != nil {
		return 0, fmt.Errorf("list lapsed offers: %w", err)
	}
	var (
		done int
		errs error
	)
	for _, id := range ids {
		if _, err := j.toggler.SetActive(ctx, id, false); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("deactivate %s: %w", id, err))
			continue
		}
		done++
		j.logg.Debug(j.logg.WithField(ctx, "offer_id", id.String()), "lapsed offer deactivated")
	}
	return done, errs
}
