package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/marketcart/api/middleware"
	"github.com/angelmondragon/marketcart/api/responses"
	"github.com/angelmondragon/marketcart/api/validators"
	"github.com/angelmondragon/marketcart/internal/checkout"
	internalorders "github.com/angelmondragon/marketcart/internal/orders"
	"github.com/angelmondragon/marketcart/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketcart/pkg/errors"
	"github.com/angelmondragon/marketcart/pkg/logger"
	"github.com/angelmondragon/marketcart/pkg/pagination"
	"github.com/google/uuid"
)

const (
	maxFlagReason = 500

	// NextCursorHeader carries the cursor of the following page of a listing.
	NextCursorHeader = "X-Next-Cursor"
)

// actorFromRequest maps the token claims onto an order actor. Vendors act as
// the vendor they operate, not as their own account.
func actorFromRequest(r *http.Request) (internalorders.Actor, error) {
	ctx := r.Context()
	accountID, err := uuid.Parse(middleware.AccountIDFromContext(ctx))
	if err != nil {
		return internalorders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "account missing from token")
	}
	switch enums.ActorRole(middleware.RoleFromContext(ctx)) {
	case enums.ActorRoleBuyer:
		return internalorders.Buyer(accountID), nil
	case enums.ActorRoleVendor:
		vendorID, err := uuid.Parse(middleware.VendorIDFromContext(ctx))
		if err != nil {
			return internalorders.Actor{}, pkgerrors.New(pkgerrors.CodeForbidden, "vendor missing from token")
		}
		return internalorders.Vendor(vendorID), nil
	case enums.ActorRoleAdmin:
		return internalorders.Admin(accountID), nil
	}
	return internalorders.Actor{}, pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted")
}

func requireBuyer(r *http.Request) (uuid.UUID, error) {
	actor, err := actorFromRequest(r)
	if err != nil {
		return uuid.Nil, err
	}
	if actor.Role != enums.ActorRoleBuyer {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "buyer role required")
	}
	return actor.ID, nil
}

// Create places one vendor order from a checkout intent. The Idempotency-Key
// header must equal the intent key.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := requireBuyer(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var intent checkout.OrderIntent
		if err := validators.DecodeJSONBody(r, &intent); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if key := strings.TrimSpace(r.Header.Get("Idempotency-Key")); key != "" && key != intent.IdempotencyKey {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key must match the intent key"))
			return
		}

		order, created, err := svc.Create(r.Context(), intent, buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, created, checkout.Placed{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Status:      order.Status,
		})
	}
}

// List returns the caller's orders: buyers see their own, vendors their vendor's.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		after, err := pagination.ParseCursor(r.URL.Query().Get("cursor"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor"))
			return
		}
		filter := internalorders.Filter{Limit: limit, After: after}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filter.Status = &status
		}
		list, err := svc.List(r.Context(), actor, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if next := internalorders.NextCursor(list, limit); next != "" {
			w.Header().Set(NextCursorHeader, next)
		}
		responses.WriteSuccess(w, list)
	}
}

func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, orderID, ok := actorAndOrder(w, r, logg)
		if !ok {
			return
		}
		order, err := svc.Get(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// History returns the audit trail of an order.
func History(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, orderID, ok := actorAndOrder(w, r, logg)
		if !ok {
			return
		}
		rows, err := svc.History(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

type statusRequest struct {
	Status enums.OrderStatus `json:"status" validate:"required,enum"`
}

// UpdateStatus drives a transition as the calling actor.
func UpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, orderID, ok := actorAndOrder(w, r, logg)
		if !ok {
			return
		}
		var payload statusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Transition(r.Context(), orderID, payload.Status, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func ConfirmDelivery(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return buyerAction(logg, svc.ConfirmDelivery)
}

func RetryPayment(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return buyerAction(logg, svc.RetryPayment)
}

// Cancel is open to buyers and vendors; the state machine decides per status.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, orderID, ok := actorAndOrder(w, r, logg)
		if !ok {
			return
		}
		order, err := svc.Cancel(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type flagRequest struct {
	Flagged *bool  `json:"flagged" validate:"required"`
	Reason  string `json:"reason"`
}

// AdminFlag sets or clears the review flag.
func AdminFlag(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, orderID, ok := actorAndOrder(w, r, logg)
		if !ok {
			return
		}
		var payload flagRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reason := validators.SanitizeString(payload.Reason, maxFlagReason)
		order, err := svc.SetFlag(r.Context(), orderID, *payload.Flagged, reason, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type buyerOp func(ctx context.Context, orderID, buyerID uuid.UUID) (*internalorders.Order, error)

func buyerAction(logg *logger.Logger, op buyerOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := requireBuyer(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := op(r.Context(), orderID, buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func actorAndOrder(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (internalorders.Actor, uuid.UUID, bool) {
	actor, err := actorFromRequest(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return internalorders.Actor{}, uuid.Nil, false
	}
	orderID, err := validators.ParseUUIDParam(r, "orderId")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return internalorders.Actor{}, uuid.Nil, false
	}
	return actor, orderID, true
}
