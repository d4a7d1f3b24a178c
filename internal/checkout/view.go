package checkout

import (
	pkgerrors "github.com/angelmondragon/marketcart/pkg/errors"
	"github.com/angelmondragon/marketcart/pkg/types"
	"github.com/google/uuid"
)

// ResultView is the wire form of a VendorResult.
type ResultView struct {
	VendorID       uuid.UUID       `json:"vendor_id"`
	VendorName     string          `json:"vendor_name"`
	IdempotencyKey string          `json:"idempotency_key"`
	Order          *Placed         `json:"order,omitempty"`
	Error          *types.APIError `json:"error,omitempty"`
}

// OutcomeView is the wire form of an Outcome.
type OutcomeView struct {
	CheckoutID uuid.UUID     `json:"checkout_id"`
	Outcome    string        `json:"outcome"`
	Quote      QuoteResult   `json:"quote"`
	Intents    []OrderIntent `json:"intents"`
	Results    []ResultView  `json:"results"`
}

func (o *Outcome) View() OutcomeView {
	results := make([]ResultView, 0, len(o.Report.Results))
	for _, res := range o.Report.Results {
		view := ResultView{
			VendorID:       res.VendorID,
			VendorName:     res.VendorName,
			IdempotencyKey: res.IdempotencyKey,
			Order:          res.Order,
		}
		if res.Err != nil {
			typed := pkgerrors.As(res.Err)
			if typed == nil {
				typed = pkgerrors.As(submissionError(OrderIntent{VendorID: res.VendorID, VendorName: res.VendorName, IdempotencyKey: res.IdempotencyKey}, res.Err))
			}
			view.Error = &types.APIError{Code: string(typed.Code()), Message: typed.Message(), Details: typed.Details()}
		}
		results = append(results, view)
	}
	return OutcomeView{
		CheckoutID: o.CheckoutID,
		Outcome:    o.Report.Outcome(),
		Quote:      o.Quote,
		Intents:    o.Intents,
		Results:    results,
	}
}

// ToOutcome rebuilds the report from its wire form so callers can use Retry and Err.
func (v OutcomeView) ToOutcome() *Outcome {
	report := Report{Results: make([]VendorResult, 0, len(v.Results))}
	for _, res := range v.Results {
		vr := VendorResult{
			VendorID:       res.VendorID,
			VendorName:     res.VendorName,
			IdempotencyKey: res.IdempotencyKey,
			Order:          res.Order,
		}
		if res.Error != nil {
			vr.Err = pkgerrors.New(pkgerrors.Code(res.Error.Code), res.Error.Message).WithDetails(res.Error.Details)
		}
		report.Results = append(report.Results, vr)
	}
	return &Outcome{CheckoutID: v.CheckoutID, Quote: v.Quote, Intents: v.Intents, Report: report}
}
