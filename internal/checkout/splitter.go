package checkout

import (
	"strings"

	"github.com/angelmondragon/marketcart/internal/cart"
	"github.com/angelmondragon/marketcart/internal/discounts"
	"github.com/angelmondragon/marketcart/internal/pricing"
	"github.com/angelmondragon/marketcart/pkg/db/models"
	"github.com/angelmondragon/marketcart/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketcart/pkg/errors"
	"github.com/angelmondragon/marketcart/pkg/types"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// Request is the input of BuildOrderIntents.
type Request struct {
	CheckoutID    uuid.UUID
	Groups        []cart.VendorGroup
	Resolution    discounts.Resolution
	Address       types.Address
	PaymentMethod enums.PaymentMethod
	Note          *string
}

// BuildOrderIntents emits one intent per vendor group that has a selected
// item, in group order. Shipping discounts land on their target group only;
// product discounts follow the shares computed by the resolver.
func BuildOrderIntents(req Request, engine *pricing.Engine) ([]OrderIntent, error) {
	if req.CheckoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout id is required")
	}
	if err := ValidateAddress(req.Address); err != nil {
		return nil, err
	}
	if !req.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method").
			WithDetails(map[string]any{"payment_method": req.PaymentMethod})
	}

	var note *string
	if req.Note != nil {
		if trimmed := strings.TrimSpace(*req.Note); trimmed != "" {
			note = &trimmed
		}
	}

	intents := make([]OrderIntent, 0, len(req.Groups))
	var allocated int64
	for _, group := range req.Groups {
		if !group.HasSelection() {
			continue
		}
		quote := engine.Quote(group)

		intent := OrderIntent{
			IdempotencyKey: IntentKey(req.CheckoutID, group.VendorID),
			CheckoutID:     req.CheckoutID,
			VendorID:       group.VendorID,
			VendorName:     group.VendorName,
			Subtotal:       quote.Subtotal,
			ShippingFee:    quote.Shipping,
			Address:        req.Address,
			PaymentMethod:  req.PaymentMethod,
			Note:           note,
			Discounts:      []models.AppliedDiscount{},
		}
		for _, item := range group.SelectedItems() {
			intent.Lines = append(intent.Lines, IntentLine{
				CartItemID: item.ID,
				ProductID:  item.ProductID,
				Name:       item.Name,
				UnitPrice:  item.UnitPrice,
				Quantity:   item.Quantity,
				LineTotal:  item.LineTotal(),
			})
		}

		if applied := req.Resolution.Shipping; applied != nil {
			if share := applied.ShareFor(group.VendorID); share > 0 {
				intent.ShippingDiscount = min(share, intent.ShippingFee)
				intent.Discounts = append(intent.Discounts, appliedLine(applied, intent.ShippingDiscount))
			}
		}
		if applied := req.Resolution.Product; applied != nil {
			if share := applied.ShareFor(group.VendorID); share > 0 {
				intent.ProductDiscount = min(share, intent.Subtotal)
				intent.Discounts = append(intent.Discounts, appliedLine(applied, intent.ProductDiscount))
			}
		}
		intent.Total = intent.Subtotal + intent.ShippingFee - intent.DiscountTotal()
		allocated += intent.DiscountTotal()
		intents = append(intents, intent)
	}

	if allocated != req.Resolution.Total() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discounts do not match the selected items").
			WithDetails(map[string]any{"resolved": req.Resolution.Total(), "allocated": allocated})
	}
	return intents, nil
}

func appliedLine(applied *discounts.Applied, amount int64) models.AppliedDiscount {
	return models.AppliedDiscount{
		OfferID:  applied.Offer.ID,
		Code:     applied.Offer.Code,
		Category: applied.Offer.Category,
		Amount:   amount,
	}
}

// ValidateAddress checks the shipping address snapshot.
func ValidateAddress(addr types.Address) error {
	if missing := addr.Missing(); len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete").
			WithDetails(map[string]any{"missing": missing})
	}
	if err := validate.Struct(addr); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "shipping address is invalid")
	}
	return nil
}

// ValidateIntent checks an intent received over the wire before it is stored.
func ValidateIntent(intent OrderIntent) error {
	if err := validate.Struct(intent); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order intent")
	}
	if err := ValidateAddress(intent.Address); err != nil {
		return err
	}
	if !intent.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if intent.IdempotencyKey != IntentKey(intent.CheckoutID, intent.VendorID) {
		return pkgerrors.New(pkgerrors.CodeValidation, "idempotency key does not match checkout and vendor")
	}
	if !intent.Consistent() {
		return pkgerrors.New(pkgerrors.CodeValidation, "order amounts do not add up")
	}
	return nil
}
