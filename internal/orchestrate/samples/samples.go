// Package samples provides the demo conductor/task/error handlers
// cmd/localgw registers so the wrapper pipeline has something concrete to
// drive end to end (an order-intake sequence: validate, charge, notify).
package samples

import (
	"context"
	"encoding/json"
	"fmt"

	orcherrors "orchestrate/runtime/internal/orchestrate/errors"
	"orchestrate/runtime/internal/orchestrate/handlerctx"
	"orchestrate/runtime/internal/orchestrate/sequence"
	"orchestrate/runtime/internal/infrastructure/validator"
)

const (
	FnValidateOrder = "validateOrder"
	FnChargeOrder   = "chargeOrder"
	FnNotifyOrder   = "notifyOrder"
)

// orderRequest is ValidateOrder's validated input shape.
type orderRequest struct {
	Amount float64 `json:"amount" label:"amount" validate:"required,gt=0"`
}

var reqValidator = validator.NewPlaygroundValidator()

// ValidateOrder is the conductor: it registers the rest of the sequence
// and returns its own result, which the wrapper merges into the first
// step's request (spec §4.5 step 5).
func ValidateOrder(ctx context.Context, request map[string]any, hctx *handlerctx.Context) (any, error) {
	var in orderRequest
	raw, err := json.Marshal(request)
	if err != nil {
		return nil, orcherrors.NewHandled("INVALID_ORDER", 400, err)
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, orcherrors.NewHandled("INVALID_ORDER", 400, err)
	}
	if err := reqValidator.Validate(&in); err != nil {
		return nil, orcherrors.NewHandled("INVALID_ORDER", 400, fmt.Errorf("%v", reqValidator.ToCustomError(err)))
	}
	amount := in.Amount

	seq := sequence.New()
	seq.Add(FnChargeOrder, map[string]any{"amount": amount})
	if err := seq.OnError(sequence.ErrorHandler{CallbackKey: "chargeFailed"}); err != nil {
		return nil, err
	}
	seq.Add(FnNotifyOrder, nil)

	hctx.RegisterSequence(seq)
	return map[string]any{"validated": true, "amount": amount}, nil
}

// ChargeOrder simulates a payment charge; amounts above 10000 are
// rejected, exercising the error-matcher/onError handling paths.
func ChargeOrder(ctx context.Context, request map[string]any, hctx *handlerctx.Context) (any, error) {
	amount, _ := request["amount"].(float64)
	if amount > 10000 {
		return nil, chargeDeclinedError{amount: amount}
	}
	return map[string]any{"charged": amount}, nil
}

// NotifyOrder is the sequence's terminal step.
func NotifyOrder(ctx context.Context, request map[string]any, hctx *handlerctx.Context) (any, error) {
	return map[string]any{"notified": true}, nil
}

type chargeDeclinedError struct{ amount float64 }

func (e chargeDeclinedError) Error() string {
	return fmt.Sprintf("charge of %.2f declined", e.amount)
}

// RegisterChargeFailedHandler names the in-process handler the order
// sequence's chargeOrder step references via OnError.CallbackKey.
func RegisterChargeFailedHandler() {
	sequence.RegisterHandler("chargeFailed", func(args map[string]any, cause error) (bool, error) {
		// A declined charge is final: report it resolved so the cascade
		// does not keep propagating, and the invocation returns an empty
		// result instead of an error.
		return true, nil
	})
}
