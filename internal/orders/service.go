package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/marketcart/internal/checkout"
	"github.com/angelmondragon/marketcart/internal/discounts"
	"github.com/angelmondragon/marketcart/internal/pricing"
	"github.com/angelmondragon/marketcart/pkg/db"
	"github.com/angelmondragon/marketcart/pkg/db/models"
	"github.com/angelmondragon/marketcart/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketcart/pkg/errors"
	"github.com/angelmondragon/marketcart/pkg/logger"
	"github.com/angelmondragon/marketcart/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const orderNumberSequence = "order_number"

// Service defines the order lifecycle operations.
type Service interface {
	Create(ctx context.Context, intent checkout.OrderIntent, buyerID uuid.UUID) (*Order, bool, error)
	Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*Order, error)
	List(ctx context.Context, actor Actor, filter Filter) ([]Order, error)
	History(ctx context.Context, orderID uuid.UUID, actor Actor) ([]models.OrderTransition, error)
	Transition(ctx context.Context, orderID uuid.UUID, to enums.OrderStatus, actor Actor) (*Order, error)
	ConfirmDelivery(ctx context.Context, orderID, buyerID uuid.UUID) (*Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID, actor Actor) (*Order, error)
	RetryPayment(ctx context.Context, orderID, buyerID uuid.UUID) (*Order, error)
	PaymentCallback(ctx context.Context, orderID uuid.UUID, succeeded bool) (*Order, error)
	CarrierDelivered(ctx context.Context, orderID uuid.UUID) (*Order, error)
	SetFlag(ctx context.Context, orderID uuid.UUID, flagged bool, reason string, actor Actor) (*Order, error)
	CreatorFor(buyerID uuid.UUID) checkout.OrderCreator
}

// Deps wires the order service.
type Deps struct {
	Repo      Repository
	Tx        txRunner
	Discounts discounts.Repository
	Engine    *pricing.Engine
	Sequencer Sequencer
	Publisher Publisher
	Logger    *logger.Logger
	Metrics   *metrics.OrderMetrics
}

type service struct {
	repo      Repository
	tx        txRunner
	discounts discounts.Repository
	engine    *pricing.Engine
	seq       Sequencer
	publisher Publisher
	logg      *logger.Logger
	metrics   *metrics.OrderMetrics
	now       func() time.Time
}

// NewService builds the order service. Publisher and Metrics are optional.
func NewService(deps Deps) (Service, error) {
	if deps.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if deps.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if deps.Discounts == nil {
		return nil, fmt.Errorf("discounts repository required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if deps.Sequencer == nil {
		return nil, fmt.Errorf("order number sequencer required")
	}
	logg := deps.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:      deps.Repo,
		tx:        deps.Tx,
		discounts: deps.Discounts,
		engine:    deps.Engine,
		seq:       deps.Sequencer,
		publisher: deps.Publisher,
		logg:      logg,
		metrics:   deps.Metrics,
		now:       time.Now,
	}, nil
}

// Create stores the order described by intent in pending_payment. A repeated
// intent returns the order created the first time with created=false.
func (s *service) Create(ctx context.Context, intent checkout.OrderIntent, buyerID uuid.UUID) (*Order, bool, error) {
	if buyerID == uuid.Nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity required")
	}
	if err := checkout.ValidateIntent(intent); err != nil {
		return nil, false, err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"checkout_id": intent.CheckoutID.String(),
		"vendor_id":   intent.VendorID.String(),
	})

	if existing, err := s.existing(ctx, intent.IdempotencyKey, buyerID); existing != nil || err != nil {
		return existing, false, err
	}

	now := s.now()
	offers, err := s.verifyDiscounts(ctx, intent, now)
	if err != nil {
		return nil, false, err
	}

	number, err := s.seq.NextSequence(ctx, orderNumberSequence)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocating order number")
	}

	row := newOrderRow(intent, buyerID, number)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		redeemer := s.discounts.WithTx(tx)
		for _, offerID := range intent.OfferIDs() {
			if err := redeemer.Redeem(ctx, offerID, intent.CheckoutID, now); err != nil {
				return err
			}
		}
		repo := s.repo.WithTx(tx)
		if err := checkSiblingDiscounts(ctx, repo, intent, offers); err != nil {
			return err
		}
		_, err := repo.Create(ctx, row)
		return err
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			if existing, findErr := s.existing(ctx, intent.IdempotencyKey, buyerID); existing != nil || findErr != nil {
				return existing, false, findErr
			}
		}
		if pkgerrors.As(err) != nil {
			return nil, false, err
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order")
	}

	s.logg.Info(s.logg.WithOrderID(ctx, row.ID.String()), "order created")
	order := FromModel(*row)
	return &order, true, nil
}

func (s *service) existing(ctx context.Context, key string, buyerID uuid.UUID) (*Order, error) {
	row, err := s.repo.FindByIdempotencyKey(ctx, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	if row.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key already used")
	}
	order := FromModel(*row)
	return &order, nil
}

// verifyDiscounts re-checks what the intent claims against the stored offers
// and the pricing policy, and returns the offers it loaded. Product shares are
// bounded by the vendor subtotal times the rate, which holds for every
// allocation policy.
func (s *service) verifyDiscounts(ctx context.Context, intent checkout.OrderIntent, now time.Time) (map[uuid.UUID]discounts.Offer, error) {
	if want := s.engine.ShippingFor(intent.Subtotal); intent.ShippingFee != want {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping fee does not match pricing policy").
			WithDetails(map[string]any{"expected": want, "got": intent.ShippingFee})
	}
	if len(intent.Discounts) == 0 {
		return nil, nil
	}

	offers, err := s.discounts.FindByIDs(ctx, intent.OfferIDs())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading discount offers")
	}
	byID := make(map[uuid.UUID]discounts.Offer, len(offers))
	for _, o := range offers {
		byID[o.ID] = o
	}

	var shipping, product int64
	families := map[enums.DiscountFamily]bool{}
	for _, line := range intent.Discounts {
		offer, ok := byID[line.OfferID]
		if !ok {
			return nil, staleOffer(line.OfferID, discounts.ReasonNotFound)
		}
		if ok, reason := offer.Availability(now); !ok {
			return nil, staleOffer(line.OfferID, reason)
		}
		if offer.Category != line.Category || !offer.AppliesTo(intent.VendorID) || families[offer.Family()] {
			return nil, invalidDiscount(line.OfferID)
		}
		families[offer.Family()] = true

		switch offer.Family() {
		case enums.DiscountFamilyShipping:
			if intent.Subtotal < offer.MinPurchase || line.Amount > offer.ShippingAmount(intent.ShippingFee) {
				return nil, invalidDiscount(line.OfferID)
			}
			shipping += line.Amount
		default:
			if line.Amount > productBound(offer, intent.Subtotal) {
				return nil, invalidDiscount(line.OfferID)
			}
			if offer.VendorID != nil && intent.Subtotal < offer.MinPurchase {
				return nil, invalidDiscount(line.OfferID)
			}
			product += line.Amount
		}
	}
	if shipping != intent.ShippingDiscount || product != intent.ProductDiscount {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount breakdown does not match totals")
	}
	return byID, nil
}

// checkSiblingDiscounts bounds the intent by the orders already placed for the
// same checkout: a shipping offer lands on one order only, and the product
// shares of one offer stay within its cap across every vendor order.
func checkSiblingDiscounts(ctx context.Context, repo Repository, intent checkout.OrderIntent, offers map[uuid.UUID]discounts.Offer) error {
	if len(intent.Discounts) == 0 {
		return nil
	}
	siblings, err := repo.FindByCheckout(ctx, intent.CheckoutID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading checkout orders")
	}
	claimed := map[uuid.UUID]int64{}
	seen := map[uuid.UUID]bool{}
	for _, sibling := range siblings {
		if sibling.IdempotencyKey == intent.IdempotencyKey || sibling.VendorID == intent.VendorID {
			continue
		}
		for _, d := range sibling.Discounts {
			seen[d.OfferID] = true
			claimed[d.OfferID] += d.Amount
		}
	}

	for _, line := range intent.Discounts {
		offer := offers[line.OfferID]
		if offer.Family() == enums.DiscountFamilyShipping {
			if seen[line.OfferID] {
				return pkgerrors.New(pkgerrors.CodeValidation, "shipping offer already applied in this checkout").
					WithDetails(map[string]any{"offer_id": line.OfferID})
			}
			continue
		}
		if limit, capped := offer.CapUnits(); capped && claimed[line.OfferID]+line.Amount > limit {
			return pkgerrors.New(pkgerrors.CodeValidation, "discount exceeds what remains of the offer cap").
				WithDetails(map[string]any{"offer_id": line.OfferID, "remaining": max(limit-claimed[line.OfferID], 0)})
		}
	}
	return nil
}

func productBound(offer discounts.Offer, subtotal int64) int64 {
	bound := offer.Rate.Mul(decimal.NewFromInt(subtotal)).Ceil().IntPart()
	if c, capped := offer.CapUnits(); capped && c < bound {
		bound = c
	}
	return min(bound, subtotal)
}

func staleOffer(offerID uuid.UUID, reason string) error {
	return pkgerrors.New(pkgerrors.CodeStaleOffer, "discount offer no longer available").
		WithDetails(map[string]any{"offer_id": offerID, "reason": reason})
}

func invalidDiscount(offerID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "discount does not apply to this order").
		WithDetails(map[string]any{"offer_id": offerID})
}

func newOrderRow(intent checkout.OrderIntent, buyerID uuid.UUID, number int64) *models.Order {
	row := &models.Order{
		ID:               uuid.New(),
		OrderNumber:      number,
		CheckoutID:       intent.CheckoutID,
		IdempotencyKey:   intent.IdempotencyKey,
		BuyerID:          buyerID,
		VendorID:         intent.VendorID,
		VendorName:       intent.VendorName,
		Status:           enums.OrderStatusPendingPayment,
		Subtotal:         intent.Subtotal,
		ShippingFee:      intent.ShippingFee,
		ShippingDiscount: intent.ShippingDiscount,
		ProductDiscount:  intent.ProductDiscount,
		Total:            intent.Total,
		Discounts:        intent.Discounts,
		ShippingAddress:  intent.Address,
		PaymentMethod:    intent.PaymentMethod,
		Note:             intent.Note,
	}
	for _, line := range intent.Lines {
		row.Items = append(row.Items, models.OrderLineItem{
			OrderID:    row.ID,
			CartItemID: line.CartItemID,
			ProductID:  line.ProductID,
			Name:       line.Name,
			UnitPrice:  line.UnitPrice,
			Quantity:   line.Quantity,
			LineTotal:  line.LineTotal,
		})
	}
	return row
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*Order, error) {
	row, err := s.load(ctx, orderID, actor)
	if err != nil {
		return nil, err
	}
	order := FromModel(*row)
	return &order, nil
}

func (s *service) List(ctx context.Context, actor Actor, filter Filter) ([]Order, error) {
	switch actor.Role {
	case enums.ActorRoleBuyer, enums.ActorRoleVendor, enums.ActorRoleAdmin:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot list orders")
	}
	rows, err := s.repo.List(ctx, actor, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	out := make([]Order, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out, nil
}

func (s *service) History(ctx context.Context, orderID uuid.UUID, actor Actor) ([]models.OrderTransition, error) {
	if _, err := s.load(ctx, orderID, actor); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListTransitions(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order history")
	}
	return rows, nil
}

// Transition applies one edge of the status graph for actor. The update is
// guarded on the status that was read, so concurrent changes surface as a
// state conflict instead of being overwritten.
func (s *service) Transition(ctx context.Context, orderID uuid.UUID, to enums.OrderStatus, actor Actor) (*Order, error) {
	ctx = s.logg.WithOrderID(ctx, orderID.String())
	ctx = s.logg.WithActorRole(ctx, string(actor.Role))

	row, err := s.load(ctx, orderID, actor)
	if err != nil {
		return nil, err
	}
	from := row.Status
	if err := CheckTransition(from, to, actor.Role); err != nil {
		var terr *TransitionError
		if errors.As(err, &terr) {
			s.metrics.IncRejected(string(terr.Reason))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, err.Error()).WithDetails(terr)
	}

	now := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateStatus(ctx, orderID, from, to, now); err != nil {
			return err
		}
		audit := &models.OrderTransition{
			OrderID:    orderID,
			FromStatus: from,
			ToStatus:   to,
			ActorRole:  actor.Role,
		}
		if actor.ID != uuid.Nil {
			id := actor.ID
			audit.ActorID = &id
		}
		return repo.CreateTransition(ctx, audit)
	})
	if errors.Is(err, ErrStatusChanged) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed, reload and retry")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order status")
	}
	s.metrics.IncTransition(string(from), string(to), string(actor.Role))

	updated, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading order")
	}
	s.publish(ctx, StatusEvent{
		OrderID:    orderID,
		BuyerID:    updated.BuyerID,
		VendorID:   updated.VendorID,
		Previous:   from,
		Status:     to,
		OccurredAt: now,
	})
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"from": from, "to": to}), "order status changed")

	order := FromModel(*updated)
	return &order, nil
}

func (s *service) publish(ctx context.Context, event StatusEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.OrderUpdated(ctx, event); err != nil {
		s.logg.Error(ctx, "failed to publish order update", err)
	}
}

func (s *service) ConfirmDelivery(ctx context.Context, orderID, buyerID uuid.UUID) (*Order, error) {
	return s.Transition(ctx, orderID, enums.OrderStatusCompleted, Buyer(buyerID))
}

func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, actor Actor) (*Order, error) {
	return s.Transition(ctx, orderID, enums.OrderStatusCancelled, actor)
}

func (s *service) RetryPayment(ctx context.Context, orderID, buyerID uuid.UUID) (*Order, error) {
	return s.Transition(ctx, orderID, enums.OrderStatusPendingPayment, Buyer(buyerID))
}

func (s *service) PaymentCallback(ctx context.Context, orderID uuid.UUID, succeeded bool) (*Order, error) {
	to := enums.OrderStatusPaymentFailed
	if succeeded {
		to = enums.OrderStatusPaid
	}
	return s.Transition(ctx, orderID, to, PaymentProcessor)
}

func (s *service) CarrierDelivered(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	return s.Transition(ctx, orderID, enums.OrderStatusDelivered, Carrier)
}

// SetFlag sets the admin-only annotation. It never touches the status.
func (s *service) SetFlag(ctx context.Context, orderID uuid.UUID, flagged bool, reason string, actor Actor) (*Order, error) {
	if actor.Role != enums.ActorRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can flag orders")
	}
	var reasonPtr *string
	if trimmed := strings.TrimSpace(reason); flagged && trimmed != "" {
		reasonPtr = &trimmed
	}
	if err := s.repo.SetFlag(ctx, orderID, flagged, reasonPtr); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "flagging order")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"order_id": orderID.String(), "flagged": flagged}), "order flag updated")
	return s.Get(ctx, orderID, actor)
}

// load fetches an order and checks that actor may see it.
func (s *service) load(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	row, err := s.repo.FindByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}

	allowed := false
	switch actor.Role {
	case enums.ActorRoleBuyer:
		allowed = row.BuyerID == actor.ID
	case enums.ActorRoleVendor:
		allowed = row.VendorID == actor.ID
	case enums.ActorRoleAdmin, enums.ActorRolePayment, enums.ActorRoleCarrier:
		allowed = true
	}
	if !allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another account")
	}
	return row, nil
}

type buyerCreator struct {
	svc     *service
	buyerID uuid.UUID
}

// CreatorFor adapts Create for the checkout submitter of one buyer.
func (s *service) CreatorFor(buyerID uuid.UUID) checkout.OrderCreator {
	return buyerCreator{svc: s, buyerID: buyerID}
}

func (c buyerCreator) CreateOrder(ctx context.Context, intent checkout.OrderIntent) (*checkout.Placed, error) {
	order, _, err := c.svc.Create(ctx, intent, c.buyerID)
	if err != nil {
		return nil, err
	}
	return &checkout.Placed{OrderID: order.ID, OrderNumber: order.OrderNumber, Status: order.Status}, nil
}
