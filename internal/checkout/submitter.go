package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/marketcart/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketcart/pkg/errors"
	"github.com/angelmondragon/marketcart/pkg/logger"
	"github.com/angelmondragon/marketcart/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// OrderCreator creates one vendor order from an intent. Calls with the same
// intent key must return the same order.
type OrderCreator interface {
	CreateOrder(ctx context.Context, intent OrderIntent) (*Placed, error)
}

// Placed identifies a created order.
type Placed struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber int64             `json:"order_number"`
	Status      enums.OrderStatus `json:"status"`
}

// VendorResult is the outcome of one vendor's submission. Exactly one of
// Order and Err is set.
type VendorResult struct {
	VendorID       uuid.UUID `json:"vendor_id"`
	VendorName     string    `json:"vendor_name"`
	IdempotencyKey string    `json:"idempotency_key"`
	Order          *Placed   `json:"order,omitempty"`
	Err            error     `json:"-"`
}

// Report holds one result per submitted intent, in intent order.
type Report struct {
	Results []VendorResult `json:"results"`
}

func (r Report) Succeeded() []VendorResult {
	out := []VendorResult{}
	for _, res := range r.Results {
		if res.Err == nil {
			out = append(out, res)
		}
	}
	return out
}

func (r Report) Failed() []VendorResult {
	out := []VendorResult{}
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Outcome is "ok", "partial" or "failed".
func (r Report) Outcome() string {
	failed := len(r.Failed())
	switch {
	case failed == 0:
		return "ok"
	case failed == len(r.Results):
		return "failed"
	default:
		return "partial"
	}
}

// Err combines the per-vendor failures, or returns nil when all succeeded.
func (r Report) Err() error {
	var err error
	for _, res := range r.Results {
		err = multierr.Append(err, res.Err)
	}
	return err
}

// Retry returns the intents whose submission failed, for a buyer-driven retry.
func (r Report) Retry(intents []OrderIntent) []OrderIntent {
	failed := make(map[string]struct{})
	for _, res := range r.Failed() {
		failed[res.IdempotencyKey] = struct{}{}
	}
	out := []OrderIntent{}
	for _, intent := range intents {
		if _, ok := failed[intent.IdempotencyKey]; ok {
			out = append(out, intent)
		}
	}
	return out
}

// Submitter fans intents out to an OrderCreator. One vendor failing never
// cancels the others and nothing is retried automatically.
type Submitter struct {
	creator OrderCreator
	limit   int
	logg    *logger.Logger
	metrics *metrics.CheckoutMetrics
}

func NewSubmitter(creator OrderCreator, concurrency int, logg *logger.Logger, m *metrics.CheckoutMetrics) *Submitter {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Submitter{creator: creator, limit: concurrency, logg: logg, metrics: m}
}

// WithCreator returns a submitter with the same limits sending to creator.
func (s *Submitter) WithCreator(creator OrderCreator) *Submitter {
	clone := *s
	clone.creator = creator
	return &clone
}

// Submit waits for every vendor's outcome.
func (s *Submitter) Submit(ctx context.Context, intents []OrderIntent) Report {
	start := time.Now()
	report := Report{Results: make([]VendorResult, len(intents))}

	var g errgroup.Group
	g.SetLimit(s.limit)
	for i, intent := range intents {
		i, intent := i, intent
		g.Go(func() error {
			report.Results[i] = s.submitOne(ctx, intent)
			return nil
		})
	}
	_ = g.Wait()

	s.metrics.ObserveSubmit(report.Outcome(), time.Since(start))
	return report
}

func (s *Submitter) submitOne(ctx context.Context, intent OrderIntent) VendorResult {
	result := VendorResult{
		VendorID:       intent.VendorID,
		VendorName:     intent.VendorName,
		IdempotencyKey: intent.IdempotencyKey,
	}
	ctx = s.logg.WithVendorID(ctx, intent.VendorID.String())

	if err := ctx.Err(); err != nil {
		result.Err = submissionError(intent, err)
		s.metrics.IncVendorOrder("cancelled")
		return result
	}

	placed, err := s.creator.CreateOrder(ctx, intent)
	if err == nil && placed == nil {
		err = errNoOrderReturned
	}
	if err != nil {
		result.Err = submissionError(intent, err)
		s.metrics.IncVendorOrder("failed")
		s.logg.Error(ctx, "vendor order submission failed", err)
		return result
	}
	result.Order = placed
	s.metrics.IncVendorOrder("ok")
	s.logg.Info(s.logg.WithOrderID(ctx, placed.OrderID.String()), "vendor order submitted")
	return result
}

var errNoOrderReturned = errors.New("order creator returned no order")

func submissionError(intent OrderIntent, err error) error {
	details := map[string]any{
		"vendor_id":       intent.VendorID,
		"idempotency_key": intent.IdempotencyKey,
	}
	if typed := pkgerrors.As(err); typed != nil {
		details["cause_code"] = typed.Code()
	}
	return pkgerrors.Wrap(pkgerrors.CodeSubmission, err, "order submission failed for "+intent.VendorName).
		WithDetails(details)
}
