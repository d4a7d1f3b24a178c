package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/marketcart/internal/cart"
	"github.com/angelmondragon/marketcart/internal/discounts"
	"github.com/angelmondragon/marketcart/internal/pricing"
	"github.com/angelmondragon/marketcart/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketcart/pkg/errors"
	"github.com/angelmondragon/marketcart/pkg/logger"
	"github.com/angelmondragon/marketcart/pkg/types"
	"github.com/google/uuid"
)

// SelectionResolver validates a discount selection against a priced cart.
type SelectionResolver interface {
	ApplySelection(ctx context.Context, sel discounts.Selection, cc discounts.CartContext) (discounts.Resolution, error)
}

// Input is one checkout attempt as submitted by the buyer.
type Input struct {
	CheckoutID    uuid.UUID           `json:"checkout_id"`
	Items         []cart.LineItem     `json:"items" validate:"required,min=1,dive"`
	Selection     discounts.Selection `json:"selection"`
	Address       types.Address       `json:"address"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Note          *string             `json:"note,omitempty"`
}

// QuoteResult is the priced cart with the discounts that survived validation.
type QuoteResult struct {
	Groups     []cart.VendorGroup           `json:"groups"`
	Cart       pricing.CartQuote            `json:"cart"`
	Resolution discounts.Resolution         `json:"resolution"`
	Failures   []discounts.SelectionFailure `json:"failures,omitempty"`
	Discount   int64                        `json:"discount"`
	Total      int64                        `json:"total"`
}

// Outcome is the result of a submitted checkout.
type Outcome struct {
	CheckoutID uuid.UUID     `json:"checkout_id"`
	Quote      QuoteResult   `json:"quote"`
	Intents    []OrderIntent `json:"intents"`
	Report     Report        `json:"report"`
}

// Service runs the checkout pipeline: group, price, resolve discounts, split, submit.
type Service struct {
	engine    *pricing.Engine
	resolver  SelectionResolver
	submitter *Submitter
	logg      *logger.Logger
}

func NewService(engine *pricing.Engine, resolver SelectionResolver, submitter *Submitter, logg *logger.Logger) (*Service, error) {
	if engine == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("discount resolver required")
	}
	if submitter == nil {
		return nil, fmt.Errorf("submitter required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{engine: engine, resolver: resolver, submitter: submitter, logg: logg}, nil
}

// WithCreator returns a service that submits orders through creator, used when
// the creator is bound to the calling buyer.
func (s *Service) WithCreator(creator OrderCreator) *Service {
	clone := *s
	clone.submitter = s.submitter.WithCreator(creator)
	return &clone
}

// Quote prices the cart and resolves the selection. Rejected offers are
// reported in Failures instead of failing the quote.
func (s *Service) Quote(ctx context.Context, in Input) (*QuoteResult, error) {
	quote, err := s.quote(ctx, in)
	if err != nil {
		var selErr *discounts.SelectionError
		if !errors.As(err, &selErr) {
			return nil, err
		}
		quote.Failures = selErr.Failures
	}
	return quote, nil
}

// Checkout validates the selection and submits one order per vendor. Any
// rejected offer aborts before an order is created; submission failures are
// per vendor and reported in the Outcome.
func (s *Service) Checkout(ctx context.Context, in Input) (*Outcome, error) {
	if in.CheckoutID == uuid.Nil {
		in.CheckoutID = uuid.New()
	}
	ctx = s.logg.WithCheckoutID(ctx, in.CheckoutID.String())

	quote, err := s.quote(ctx, in)
	if err != nil {
		var selErr *discounts.SelectionError
		if errors.As(err, &selErr) {
			return nil, selErr.Typed()
		}
		return nil, err
	}

	intents, err := BuildOrderIntents(Request{
		CheckoutID:    in.CheckoutID,
		Groups:        quote.Groups,
		Resolution:    quote.Resolution,
		Address:       in.Address,
		PaymentMethod: in.PaymentMethod,
		Note:          in.Note,
	}, s.engine)
	if err != nil {
		return nil, err
	}
	if len(intents) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no items selected for checkout")
	}

	report := s.submitter.Submit(ctx, intents)
	if failed := len(report.Failed()); failed > 0 {
		s.logg.Warn(s.logg.WithField(ctx, "failed_vendors", failed), "checkout submitted with failures")
	} else {
		s.logg.Info(s.logg.WithField(ctx, "orders", len(intents)), "checkout submitted")
	}
	return &Outcome{CheckoutID: in.CheckoutID, Quote: *quote, Intents: intents, Report: report}, nil
}

// Resubmit retries the failed vendors of a previous outcome with the same
// intents, so already created orders are not duplicated.
func (s *Service) Resubmit(ctx context.Context, prev *Outcome) (*Outcome, error) {
	if prev == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to resubmit")
	}
	retry := prev.Report.Retry(prev.Intents)
	if len(retry) == 0 {
		return prev, nil
	}
	retried := s.submitter.Submit(s.logg.WithCheckoutID(ctx, prev.CheckoutID.String()), retry)
	byKey := make(map[string]VendorResult, len(retried.Results))
	for _, res := range retried.Results {
		byKey[res.IdempotencyKey] = res
	}
	next := *prev
	next.Report = Report{Results: make([]VendorResult, len(prev.Report.Results))}
	for i, res := range prev.Report.Results {
		if updated, ok := byKey[res.IdempotencyKey]; ok {
			res = updated
		}
		next.Report.Results[i] = res
	}
	return &next, nil
}

func (s *Service) quote(ctx context.Context, in Input) (*QuoteResult, error) {
	if err := cart.Validate(in.Items); err != nil {
		return nil, err
	}
	groups := cart.GroupByVendor(in.Items)
	cq := s.engine.QuoteCart(groups)
	result := &QuoteResult{Groups: groups, Cart: cq, Total: cq.Total}

	res, err := s.resolver.ApplySelection(ctx, in.Selection, discounts.CartContext{Quote: cq})
	result.Resolution = res
	result.Discount = res.Total()
	result.Total = cq.Total - result.Discount
	return result, err
}
