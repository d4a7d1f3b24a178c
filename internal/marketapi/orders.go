package marketapi

import (
	"context"
	"net/http"

	"github.com/angelmondragon/marketcart/internal/checkout"
	"github.com/angelmondragon/marketcart/internal/orders"
	"github.com/angelmondragon/marketcart/pkg/enums"
	"github.com/google/uuid"
)

var _ checkout.OrderCreator = (*Client)(nil)

// CreateOrder submits one vendor intent. The intent key doubles as the
// Idempotency-Key, so a replay returns the order created the first time.
func (c *Client) CreateOrder(ctx context.Context, intent checkout.OrderIntent) (*checkout.Placed, error) {
	var out checkout.Placed
	req := request{
		method:  http.MethodPost,
		path:    "/api/v1/orders",
		body:    intent,
		headers: map[string]string{IdempotencyHeader: intent.IdempotencyKey},
	}
	if err := c.call(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetOrder(ctx context.Context, id uuid.UUID) (*orders.Order, error) {
	return c.orderCall(ctx, http.MethodGet, orderPath(id, ""), nil)
}

// ListOrders lists the caller's orders, newest first.
func (c *Client) ListOrders(ctx context.Context, status *enums.OrderStatus, limit int) ([]orders.Order, error) {
	var out []orders.Order
	req := request{method: http.MethodGet, path: "/api/v1/orders", query: statusQuery(status, limit)}
	if err := c.call(ctx, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatus moves an order along the lifecycle as the signed-in actor.
func (c *Client) UpdateStatus(ctx context.Context, id uuid.UUID, to enums.OrderStatus) (*orders.Order, error) {
	return c.orderCall(ctx, http.MethodPatch, orderPath(id, "/status"), map[string]enums.OrderStatus{"status": to})
}

func (c *Client) ConfirmDelivery(ctx context.Context, id uuid.UUID) (*orders.Order, error) {
	return c.orderCall(ctx, http.MethodPost, orderPath(id, "/confirm-delivery"), nil)
}

func (c *Client) Cancel(ctx context.Context, id uuid.UUID) (*orders.Order, error) {
	return c.orderCall(ctx, http.MethodPost, orderPath(id, "/cancel"), nil)
}

func (c *Client) RetryPayment(ctx context.Context, id uuid.UUID) (*orders.Order, error) {
	return c.orderCall(ctx, http.MethodPost, orderPath(id, "/retry-payment"), nil)
}

// SetFlag annotates an order for review. Admin only.
func (c *Client) SetFlag(ctx context.Context, id uuid.UUID, flagged bool, reason string) (*orders.Order, error) {
	body := map[string]any{"flagged": flagged, "reason": reason}
	return c.orderCall(ctx, http.MethodPost, "/api/admin/v1/orders/"+id.String()+"/flag", body)
}

func (c *Client) orderCall(ctx context.Context, method, path string, body any) (*orders.Order, error) {
	var out orders.Order
	if err := c.call(ctx, request{method: method, path: path, body: body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func orderPath(id uuid.UUID, suffix string) string {
	return "/api/v1/orders/" + id.String() + suffix
}
