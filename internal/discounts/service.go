package discounts

import (
	"context"
	"fmt"

	pkgerrors "github.com/angelmondragon/marketcart/pkg/errors"
	"github.com/angelmondragon/marketcart/pkg/logger"
	"github.com/google/uuid"
)

// StatusPublisher pushes offer status changes to connected clients.
type StatusPublisher interface {
	DiscountStatusChanged(ctx context.Context, offerID uuid.UUID, active bool) error
}

// Invalidator drops cached offer listings.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service exposes offer reads to buyers and the status toggle to admins.
type Service interface {
	List(ctx context.Context, vendorIDs []uuid.UUID) ([]Offer, error)
	Eligible(ctx context.Context, subtotal int64, vendorIDs []uuid.UUID) (Eligible, error)
	Lookup(ctx context.Context, ids []uuid.UUID) ([]Offer, error)
	SetActive(ctx context.Context, offerID uuid.UUID, active bool) (*Offer, error)
}

type service struct {
	repo      Repository
	source    Source
	resolver  *Resolver
	cache     Invalidator
	publisher StatusPublisher
	logg      *logger.Logger
}

// NewService builds the offer service. source is the read path (usually the
// cached source over repo); cache and publisher may be nil.
func NewService(repo Repository, source Source, resolver *Resolver, cache Invalidator, publisher StatusPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("discounts repository required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("discount resolver required")
	}
	if source == nil {
		source = repo
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:      repo,
		source:    source,
		resolver:  resolver,
		cache:     cache,
		publisher: publisher,
		logg:      logg,
	}, nil
}

func (s *service) List(ctx context.Context, vendorIDs []uuid.UUID) ([]Offer, error) {
	offers, err := s.source.ListActive(ctx, vendorIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading discount offers")
	}
	return offers, nil
}

func (s *service) Eligible(ctx context.Context, subtotal int64, vendorIDs []uuid.UUID) (Eligible, error) {
	if subtotal < 0 {
		return Eligible{}, pkgerrors.New(pkgerrors.CodeValidation, "subtotal must not be negative")
	}
	return s.resolver.ListEligible(ctx, subtotal, vendorIDs)
}

func (s *service) Lookup(ctx context.Context, ids []uuid.UUID) ([]Offer, error) {
	if len(ids) == 0 {
		return []Offer{}, nil
	}
	if len(ids) > 20 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many offer ids")
	}
	offers, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading discount offers")
	}
	return offers, nil
}

// SetActive toggles an offer, invalidates cached listings and notifies clients.
// Cache and push failures are logged; the toggle itself has already been stored.
func (s *service) SetActive(ctx context.Context, offerID uuid.UUID, active bool) (*Offer, error) {
	row, err := s.repo.SetActive(ctx, offerID, active)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "discount offer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating discount offer")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"discount_id": offerID.String(), "is_active": active})
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logg.Error(ctx, "failed to invalidate discount cache", err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.DiscountStatusChanged(ctx, offerID, active); err != nil {
			s.logg.Error(ctx, "failed to publish discount status change", err)
		}
	}
	s.logg.Info(ctx, "discount offer status changed")

	offer := FromModel(*row)
	return &offer, nil
}
