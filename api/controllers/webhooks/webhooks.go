package webhooks

import (
	"context"
	"net/http"

	"github.com/angelmondragon/marketcart/api/responses"
	"github.com/angelmondragon/marketcart/api/validators"
	"github.com/angelmondragon/marketcart/internal/orders"
	"github.com/angelmondragon/marketcart/pkg/logger"
	"github.com/google/uuid"
)

// PaymentService is the slice of the order service the payment processor drives.
type PaymentService interface {
	PaymentCallback(ctx context.Context, orderID uuid.UUID, succeeded bool) (*orders.Order, error)
}

// CarrierService is the slice of the order service the carrier drives.
type CarrierService interface {
	CarrierDelivered(ctx context.Context, orderID uuid.UUID) (*orders.Order, error)
}

const paymentSucceeded = "succeeded"

type paymentRequest struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
	Outcome string    `json:"outcome" validate:"required,oneof=succeeded failed"`
}

// Payment records a payment outcome. Redelivered callbacks for an order that
// already moved are rejected by the state machine, not here.
func Payment(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload paymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithFields(r.Context(), map[string]any{
			"order_id":        payload.OrderID.String(),
			"payment_outcome": payload.Outcome,
		})
		order, err := svc.PaymentCallback(ctx, payload.OrderID, payload.Outcome == paymentSucceeded)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		logg.Info(ctx, "webhook.payment.applied")
		responses.WriteSuccess(w, order)
	}
}

type carrierRequest struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
}

// Carrier records a delivery scan.
func Carrier(svc CarrierService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload carrierRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithOrderID(r.Context(), payload.OrderID.String())
		order, err := svc.CarrierDelivered(ctx, payload.OrderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		logg.Info(ctx, "webhook.carrier.delivered")
		responses.WriteSuccess(w, order)
	}
}
