package marketapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/angelmondragon/marketcart/internal/discounts"
	"github.com/google/uuid"
)

var _ discounts.Source = (*Client)(nil)

// ListActive returns the offers currently active for the given vendors. It
// makes Client usable as a discounts.Source.
func (c *Client) ListActive(ctx context.Context, vendorIDs []uuid.UUID) ([]discounts.Offer, error) {
	q := url.Values{}
	if len(vendorIDs) > 0 {
		q.Set("vendor_ids", joinIDs(vendorIDs))
	}
	var out []discounts.Offer
	if err := c.call(ctx, request{method: http.MethodGet, path: "/api/v1/discounts", query: q}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FindByIDs re-fetches offers for confirmation-time validation.
func (c *Client) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]discounts.Offer, error) {
	if len(ids) == 0 {
		return []discounts.Offer{}, nil
	}
	var out []discounts.Offer
	body := map[string]any{"ids": ids}
	if err := c.call(ctx, request{method: http.MethodPost, path: "/api/v1/discounts/lookup", body: body}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Eligible lists the offers that apply to a cart of the given subtotal.
func (c *Client) Eligible(ctx context.Context, subtotal int64, vendorIDs []uuid.UUID) (*discounts.Eligible, error) {
	q := url.Values{}
	q.Set("subtotal", strconv.FormatInt(subtotal, 10))
	if len(vendorIDs) > 0 {
		q.Set("vendor_ids", joinIDs(vendorIDs))
	}
	var out discounts.Eligible
	if err := c.call(ctx, request{method: http.MethodGet, path: "/api/v1/discounts/eligible", query: q}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetDiscountActive toggles an offer. Admin only.
func (c *Client) SetDiscountActive(ctx context.Context, offerID uuid.UUID, active bool) (*discounts.Offer, error) {
	var out discounts.Offer
	req := request{
		method: http.MethodPatch,
		path:   "/api/admin/v1/discounts/" + offerID.String(),
		body:   map[string]bool{"active": active},
	}
	if err := c.call(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
