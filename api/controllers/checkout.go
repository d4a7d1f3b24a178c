package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/marketcart/api/responses"
	"github.com/angelmondragon/marketcart/api/validators"
	"github.com/angelmondragon/marketcart/internal/cart"
	checkoutsvc "github.com/angelmondragon/marketcart/internal/checkout"
	"github.com/angelmondragon/marketcart/internal/discounts"
	"github.com/angelmondragon/marketcart/pkg/logger"
	"github.com/google/uuid"
)

// CheckoutService is the checkout pipeline as seen by one buyer.
type CheckoutService interface {
	Quote(ctx context.Context, in checkoutsvc.Input) (*checkoutsvc.QuoteResult, error)
	Checkout(ctx context.Context, in checkoutsvc.Input) (*checkoutsvc.Outcome, error)
}

// CheckoutFor binds the pipeline to the buyer whose orders it creates.
type CheckoutFor func(buyerID uuid.UUID) CheckoutService

type quoteRequest struct {
	CheckoutID uuid.UUID           `json:"checkout_id"`
	Items      []cart.LineItem     `json:"items" validate:"required,min=1,dive"`
	Selection  discounts.Selection `json:"selection"`
}

// CheckoutQuote prices a cart and resolves the selected offers without
// creating orders. Rejected offers are reported in the quote's failures.
func CheckoutQuote(forBuyer CheckoutFor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := accountID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload quoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quote, err := forBuyer(buyerID).Quote(r.Context(), checkoutsvc.Input{
			CheckoutID: payload.CheckoutID,
			Items:      payload.Items,
			Selection:  payload.Selection,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

// CheckoutSubmit runs the whole checkout and reports per-vendor results.
// A partial failure is still a 200; the failed vendors carry their error.
func CheckoutSubmit(forBuyer CheckoutFor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := accountID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var in checkoutsvc.Input
		if err := validators.DecodeJSONBody(r, &in); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		outcome, err := forBuyer(buyerID).Checkout(r.Context(), in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view := outcome.View()
		status := http.StatusCreated
		if view.Outcome == "failed" {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, view)
	}
}
