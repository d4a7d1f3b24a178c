package controllers

import (
	"net/http"

	"github.com/angelmondragon/marketcart/api/responses"
	"github.com/angelmondragon/marketcart/api/validators"
	"github.com/angelmondragon/marketcart/internal/discounts"
	"github.com/angelmondragon/marketcart/pkg/logger"
	"github.com/google/uuid"
)

// DiscountList returns the active offers, optionally scoped to vendor_ids.
func DiscountList(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorIDs, err := validators.ParseQueryUUIDs(r, "vendor_ids")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offers, err := svc.List(r.Context(), vendorIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, offers)
	}
}

// DiscountEligible lists the offers a cart of the given subtotal qualifies for.
func DiscountEligible(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subtotal, err := validators.ParseQueryInt64(r, "subtotal", 0)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vendorIDs, err := validators.ParseQueryUUIDs(r, "vendor_ids")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		eligible, err := svc.Eligible(r.Context(), subtotal, vendorIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, eligible)
	}
}

type discountLookupRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1,max=20"`
}

// DiscountLookup re-fetches offers by id for confirmation-time validation.
func DiscountLookup(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload discountLookupRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offers, err := svc.Lookup(r.Context(), payload.IDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, offers)
	}
}

type discountActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// AdminDiscountSetActive toggles an offer on or off.
func AdminDiscountSetActive(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offerID, err := validators.ParseUUIDParam(r, "discountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload discountActiveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offer, err := svc.SetActive(r.Context(), offerID, *payload.Active)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, offer)
	}
}
