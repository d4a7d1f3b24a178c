package marketapi

import (
	"context"
	"net/http"

	"github.com/angelmondragon/marketcart/internal/checkout"
	"github.com/google/uuid"
)

// Quote prices a cart server-side without submitting anything.
func (c *Client) Quote(ctx context.Context, in checkout.Input) (*checkout.QuoteResult, error) {
	body := map[string]any{
		"checkout_id": in.CheckoutID,
		"items":       in.Items,
		"selection":   in.Selection,
	}
	var out checkout.QuoteResult
	if err := c.call(ctx, request{method: http.MethodPost, path: "/api/v1/checkout/quote", body: body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Checkout runs the whole checkout server-side. The checkout id is the
// idempotency key, so repeating a call with the same input is safe. Per-vendor failures come back
// inside the outcome, not as the returned error.
func (c *Client) Checkout(ctx context.Context, in checkout.Input) (*checkout.Outcome, error) {
	if in.CheckoutID == uuid.Nil {
		in.CheckoutID = uuid.New()
	}
	var out checkout.OutcomeView
	req := request{
		method:  http.MethodPost,
		path:    "/api/v1/checkout",
		body:    in,
		headers: map[string]string{IdempotencyHeader: in.CheckoutID.String()},
	}
	if err := c.call(ctx, req, &out); err != nil {
		return nil, err
	}
	return out.ToOutcome(), nil
}

// NewCheckoutFlow returns a flow for one buyer session. Leaving checkout
// should call Abandon so a late response is dropped instead of applied.
func (c *Client) NewCheckoutFlow() *checkout.Flow {
	return checkout.NewFlow(c)
}
