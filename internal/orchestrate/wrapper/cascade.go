package wrapper

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"orchestrate/runtime/internal/orchestrate/envelope"
	orcherrors "orchestrate/runtime/internal/orchestrate/errors"
	"orchestrate/runtime/internal/orchestrate/matcher"
	"orchestrate/runtime/internal/orchestrate/sequence"
)

// cascadeOutcome is runCascade's intermediate result: either the thrown
// value was fully resolved (spec §4.5.1 "treat as resolved"), or it
// surfaced as a typed OrchestrateError still subject to the step-level
// onError override (step 4).
type cascadeOutcome struct {
	resolved bool
	result   any
	err      orcherrors.OrchestrateError
}

// runCascade is the wrapper's error cascade entry point (spec §4.5.1):
// any failure inside the cascade itself is re-raised as ErrorWithinError,
// unless cause is already typed, in which case it is wrapped as
// RethrowError instead.
func runCascade(ctx context.Context, opts Options, r *run, unboxed envelope.Unboxed, cause error) (any, error) {
	outcome, cascadeErr := evaluateCascade(opts, r, cause)
	if cascadeErr != nil {
		return surfaceCascadeFailure(unboxed, r, cause, cascadeErr)
	}
	if outcome.resolved {
		return marshalResponse(unboxed, r, outcome.result), nil
	}

	final := applyStepErrorPolicy(opts, unboxed.Sequence, outcome.err)
	if final == nil {
		return marshalResponse(unboxed, r, nil), nil
	}
	orcherrors.WithIdentity(final, r.requestID, r.correlationID)
	orcherrors.WithStage(final, string(r.stage))

	if unboxed.Gateway != nil {
		return marshalErrorResponse(final), nil
	}
	return nil, final
}

// evaluateCascade implements spec §4.5.1 steps 1–3.
func evaluateCascade(opts Options, r *run, cause error) (cascadeOutcome, error) {
	if se, ok := cause.(*orcherrors.ServerlessError); ok {
		se.Enrich(opts.FunctionName, r.correlationID, r.requestID)
		return cascadeOutcome{err: se}, nil
	}

	if opts.Matcher != nil {
		if code, disp, ok := opts.Matcher.Match(cause); ok {
			return applyDisposition(opts, code, disp, cause)
		}
		return applyDefaultPolicy(opts, cause)
	}

	return cascadeOutcome{err: orcherrors.NewUnhandled(opts.DefaultErrorCode, cause)}, nil
}

// applyDisposition implements §4.4's disposition semantics on match.
func applyDisposition(opts Options, code string, disp matcher.Disposition, cause error) (cascadeOutcome, error) {
	switch {
	case disp.IsCallback():
		resolved, cbErr := disp.Callback(cause)
		if cbErr != nil {
			return cascadeOutcome{}, cbErr
		}
		if resolved {
			return cascadeOutcome{resolved: true}, nil
		}
		return cascadeOutcome{err: orcherrors.NewHandled(code, statusFromCode(code), cause)}, nil
	case disp.IsForward():
		payload, err := json.Marshal(map[string]any{"error": cause.Error(), "code": code})
		if err != nil {
			return cascadeOutcome{}, err
		}
		if _, err := opts.Invoker.Invoke(expand(opts, disp.ForwardTo), payload); err != nil {
			return cascadeOutcome{}, err
		}
		return cascadeOutcome{resolved: true}, nil
	default:
		return cascadeOutcome{err: orcherrors.NewHandled(code, statusFromCode(code), cause)}, nil
	}
}

// statusFromCode resolves an expectation's registered code to the HTTP
// status a HandledError should carry (spec §4.4/S5: `matcher.add(pred,
// 500, {forwardTo: "reporter"})` registers 500 as the expectation's own
// status). Non-numeric codes (the common case — a symbolic error code
// like "PAYMENT_FAILED") fall back to 500.
func statusFromCode(code string) int {
	if status, err := strconv.Atoi(code); err == nil && status >= 100 && status <= 599 {
		return status
	}
	return 500
}

// applyDefaultPolicy implements §4.5.1 step 3.
func applyDefaultPolicy(opts Options, cause error) (cascadeOutcome, error) {
	dp := opts.Matcher.DefaultPolicy()
	switch dp.Type {
	case matcher.PolicyHandlerFn:
		resolved, err := dp.HandlerFn(cause)
		if err != nil {
			return cascadeOutcome{err: orcherrors.NewUnhandled(dp.Code, err)}, nil
		}
		if resolved {
			return cascadeOutcome{resolved: true}, nil
		}
		return cascadeOutcome{err: orcherrors.NewUnhandled(dp.Code, cause)}, nil
	case matcher.PolicyErrorForward:
		payload, err := json.Marshal(map[string]any{"error": cause.Error()})
		if err != nil {
			return cascadeOutcome{}, err
		}
		if _, err := opts.Invoker.Invoke(expand(opts, dp.ForwardToARN), payload); err != nil {
			return cascadeOutcome{}, err
		}
		return cascadeOutcome{resolved: true}, nil
	case matcher.PolicyDefaultError:
		if oe, ok := dp.DefaultError.(orcherrors.OrchestrateError); ok {
			return cascadeOutcome{err: oe}, nil
		}
		return cascadeOutcome{err: orcherrors.NewUnhandled(dp.Code, dp.DefaultError)}, nil
	default:
		code := dp.Code
		if code == "" {
			code = orcherrors.DefaultUnhandledCode
		}
		return cascadeOutcome{err: orcherrors.NewUnhandled(code, cause)}, nil
	}
}

// applyStepErrorPolicy implements spec §4.5.1 step 4: the active
// sequence step's own onError gets the final say over whatever the
// matcher/default-policy decided. Returns nil to mean "fully resolved".
func applyStepErrorPolicy(opts Options, seq *sequence.Sequence, surfaced orcherrors.OrchestrateError) orcherrors.OrchestrateError {
	if seq == nil {
		return surfaced
	}
	active := seq.ActiveFn()
	if active == nil || active.OnErrorSpec == nil {
		return surfaced
	}

	spec := active.OnErrorSpec
	switch {
	case spec.CallbackKey != "":
		resolved, err := sequence.InvokeHandler(spec.CallbackKey, spec.CallbackArgs, surfaced)
		if err != nil {
			return orcherrors.NewErrorWithinError(err, surfaced)
		}
		if resolved {
			return nil
		}
		return surfaced
	case spec.ForwardARN != "":
		payload, err := json.Marshal(map[string]any{"error": surfaced.Error(), "params": spec.ForwardParams})
		if err != nil {
			return orcherrors.NewErrorWithinError(err, surfaced)
		}
		if _, err := opts.Invoker.Invoke(expand(opts, spec.ForwardARN), payload); err != nil {
			return orcherrors.NewErrorWithinError(err, surfaced)
		}
		return nil
	default:
		return surfaced
	}
}

func surfaceCascadeFailure(unboxed envelope.Unboxed, r *run, cause, cascadeErr error) (any, error) {
	var final orcherrors.OrchestrateError
	if oe, ok := cause.(orcherrors.OrchestrateError); ok {
		final = orcherrors.NewRethrow(oe)
	} else {
		final = orcherrors.NewErrorWithinError(cascadeErr, cause)
	}
	orcherrors.WithIdentity(final, r.requestID, r.correlationID)
	orcherrors.WithStage(final, string(r.stage))

	if unboxed.Gateway != nil {
		return marshalErrorResponse(final), nil
	}
	return nil, final
}

// marshalResponse implements spec §4.5 step 7.
func marshalResponse(unboxed envelope.Unboxed, r *run, result any) any {
	if unboxed.Gateway == nil {
		return result
	}

	status := r.successStatusCode
	var body string
	if result == nil {
		if status == 0 {
			status = 204
		}
	} else {
		if status == 0 {
			status = 200
		}
		body = stringify(result)
	}

	headers := map[string]string{}
	for k, v := range corsHeaders {
		headers[k] = v
	}
	contentType := r.contentType
	if contentType == "" {
		contentType = defaultContentType
	}
	headers["Content-Type"] = contentType
	for k, v := range r.responseHeaders {
		headers[k] = v
	}

	return envelope.GatewayResponse{StatusCode: status, Headers: headers, Body: body}
}

func marshalErrorResponse(final orcherrors.OrchestrateError) envelope.GatewayResponse {
	body, status := final.GatewayResponse()
	headers := map[string]string{"Content-Type": defaultContentType}
	for k, v := range corsHeaders {
		headers[k] = v
	}
	return envelope.GatewayResponse{StatusCode: status, Headers: headers, Body: string(body)}
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}
