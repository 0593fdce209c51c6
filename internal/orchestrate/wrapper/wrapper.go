// Package wrapper implements the Wrapper Pipeline: the entry/exit state
// machine every handler runs (spec §4.5).
package wrapper

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	db "orchestrate/runtime/internal/infrastructure/db"
	"orchestrate/runtime/internal/infrastructure/logger"
	"orchestrate/runtime/internal/infrastructure/telemetry/metrics"
	"orchestrate/runtime/internal/infrastructure/telemetry/tracer"
	"orchestrate/runtime/internal/pkg/arn"
	"orchestrate/runtime/internal/pkg/uid"
	"orchestrate/runtime/internal/orchestrate/envelope"
	"orchestrate/runtime/internal/orchestrate/handlerctx"
	"orchestrate/runtime/internal/orchestrate/matcher"
	"orchestrate/runtime/internal/orchestrate/platform"
	"orchestrate/runtime/internal/orchestrate/sequence"
)

// HandlerFunc is the shape of a user handler (spec §4.5: "a user handler
// fn(request, ctx)").
type HandlerFunc func(ctx context.Context, request map[string]any, hctx *handlerctx.Context) (any, error)

// PlatformHandler is what a user handler becomes once wrapped: a raw
// event in, a response or gateway error response out.
type PlatformHandler func(ctx context.Context, event []byte) (any, error)

// Options bundles every collaborator the wrapper needs to build a
// Context and drive continuation/tracker/error-cascade behavior.
type Options struct {
	Logger        logger.Logger
	SecretFetcher platform.SecretFetcher
	Database      func() db.Database
	Invoker       platform.Invoker
	Matcher       *matcher.Matcher
	ARNExpander   *arn.Expander

	// Tracer and Metrics, if set, wrap every pipeline stage transition in
	// its own span and emit a per-stage counter plus a per-invocation
	// timing (DOMAIN STACK: per-invocation span + metric emission around
	// each wrapper stage). Nil disables instrumentation, same as the
	// no-op implementations cmd/localgw wires when telemetry is off.
	Tracer  tracer.Tracer
	Metrics metrics.Metrics

	// FunctionName identifies this handler for AWSContext and for
	// ServerlessError's classification-prefix rewrite (spec §4.5.1 step 1).
	FunctionName string

	// SequenceTrackerARN, if set, is invoked with a SequenceTrackerStatus
	// payload after continuation (spec §4.5 step 6). Empty disables it.
	SequenceTrackerARN string

	// DefaultErrorCode is used when the matcher's default policy type is
	// "default" (spec §4.5.1 step 3).
	DefaultErrorCode string

	// RemainingTime reports milliseconds left in the invocation budget,
	// surfaced on HandlerContext.AWSContext (spec §3). Optional.
	RemainingTime func() int64
}

// Wrap turns a user HandlerFunc into a PlatformHandler (spec §4.5).
func Wrap(fn HandlerFunc, opts Options) PlatformHandler {
	builder := handlerctx.NewBuilder(opts.Logger, opts.SecretFetcher, opts.Database, opts.Matcher)

	return func(ctx context.Context, event []byte) (any, error) {
		r := newRun("", uid.NewUUID())
		defer func() {
			r.finishStageSpan()
			if opts.Metrics != nil {
				opts.Metrics.Timing("wrapper.invocation", time.Since(r.startedAt), []string{"function:" + opts.FunctionName})
			}
		}()

		ctx = advanceStage(ctx, opts, r, StageUnboxing)
		unboxed, err := envelope.Unbox(event)
		if err != nil {
			return nil, fmt.Errorf("wrapper: %s: %w", r.stage, err)
		}

		r.correlationID = correlationID(unboxed.Headers)
		unboxed.Headers = withHeader(unboxed.Headers, HeaderCorrelationID, r.correlationID)

		ctx = advanceStage(ctx, opts, r, StagePrep)
		maskSecretHeaders(opts.Logger, unboxed.Headers)
		aws := handlerctx.AWSContext{
			FunctionName:  opts.FunctionName,
			RequestID:     r.requestID,
			RemainingTime: opts.RemainingTime,
		}
		hooks := handlerctx.Hooks(
			func(seq *sequence.Sequence) { r.newSequence = seq },
			func(target string, payload []byte) ([]byte, error) { return opts.Invoker.Invoke(expand(opts, target), payload) },
			func(code int) { r.successStatusCode = code },
			func(ct string) { r.contentType = ct },
			func(key, value string) { r.responseHeaders[key] = value },
		)
		hctx := handlerctx.Build(ctx, builder, unboxed, aws, hooks)

		ctx = advanceStage(ctx, opts, r, StageRunningFn)
		result, fnErr := fn(ctx, unboxed.Request, hctx)
		if fnErr != nil {
			return runCascade(ctx, opts, r, unboxed, fnErr)
		}
		ctx = advanceStage(ctx, opts, r, StageFnComplete)

		if unboxed.Sequence != nil && unboxed.Sequence.IsSequence() && !unboxed.Sequence.IsDone() {
			ctx = advanceStage(ctx, opts, r, StageInvokeNext)
			if err := invokeNextStep(opts, r, unboxed.Sequence, result); err != nil {
				return runCascade(ctx, opts, r, unboxed, err)
			}
		}

		if r.newSequence != nil {
			ctx = advanceStage(ctx, opts, r, StageSequenceStarting)
			if _, err := r.newSequence.Start(opts.Invoker, toRequestMap(result), boxSequence(opts, r)); err != nil {
				return runCascade(ctx, opts, r, unboxed, err)
			}
		}

		if opts.SequenceTrackerARN != "" && unboxed.Sequence != nil && unboxed.Sequence.IsSequence() {
			ctx = advanceStage(ctx, opts, r, StageSequenceTrackerStarting)
			notifyTracker(opts, r, unboxed.Sequence)
		}

		ctx = advanceStage(ctx, opts, r, StageReturningValues)
		return marshalResponse(unboxed, r, result), nil
	}
}

// advanceStage closes the previous stage's span, records the new stage,
// and — when Tracer/Metrics are configured — opens a span and emits a
// counter for it (spec DOMAIN STACK: per-invocation span + metric
// emission around each wrapper stage). Returns the context the new span
// (if any) attached itself to, so downstream calls carry it forward.
func advanceStage(ctx context.Context, opts Options, r *run, stage Stage) context.Context {
	r.finishStageSpan()
	r.stage = stage

	if opts.Metrics != nil {
		opts.Metrics.Incr("wrapper.stage", []string{"stage:" + string(stage), "function:" + opts.FunctionName})
	}
	if opts.Tracer == nil {
		return ctx
	}

	span, spanCtx := opts.Tracer.StartSpan(ctx, "wrapper."+string(stage))
	span.SetTag("function_name", opts.FunctionName)
	if r.correlationID != "" {
		span.SetTag("correlation_id", r.correlationID)
	}
	r.stageSpan = span
	return spanCtx
}

func expand(opts Options, target string) string {
	if opts.ARNExpander == nil {
		return target
	}
	return opts.ARNExpander.Expand(target)
}

func correlationID(headers map[string]string) string {
	if id, ok := headers[HeaderCorrelationID]; ok && id != "" {
		return id
	}
	return uid.NewUUID()
}

func withHeader(headers map[string]string, key, value string) map[string]string {
	if headers == nil {
		headers = map[string]string{}
	}
	headers[key] = value
	return headers
}

// maskSecretHeaders logs, at debug level, that an Authorization header is
// present, with its value written as "***". It registers nothing with the
// logger's masking hook; values are redacted only by that hook's own
// sensitive-key and sensitive-token rules (internal/pkg/utils).
func maskSecretHeaders(log logger.Logger, headers map[string]string) {
	if _, ok := headers["Authorization"]; ok {
		log.WithField("authorization", "***").Debug("masked secret header")
	}
}

// invokeNextStep implements spec §4.5 step 4: finalize the active step,
// resolve the next one, box it and invoke it.
func invokeNextStep(opts Options, r *run, seq *sequence.Sequence, currentFnResult any) error {
	targetARN, err := seq.Next(currentFnResult, map[string]any{})
	if err != nil {
		return err
	}
	payload, err := envelope.Box(activeStepBody(seq), seq, outboundHeaders(r))
	if err != nil {
		return err
	}
	_, err = opts.Invoker.Invoke(expand(opts, targetARN), payload)
	return err
}

// boxSequence adapts envelope.Box into the callback shape sequence.Start
// expects, keeping sequence free of an import on envelope (see
// DESIGN.md's cyclic-dependency resolution).
func boxSequence(opts Options, r *run) func(seq *sequence.Sequence, request map[string]any) ([]byte, error) {
	return func(seq *sequence.Sequence, request map[string]any) ([]byte, error) {
		return envelope.Box(activeStepBody(seq), seq, outboundHeaders(r))
	}
}

// outboundHeaders is the header mapping boxed into a downstream envelope:
// the handler's registered headers plus this invocation's correlation id.
func outboundHeaders(r *run) map[string]string {
	headers := make(map[string]string, len(r.responseHeaders)+1)
	for k, v := range r.responseHeaders {
		headers[k] = v
	}
	headers[HeaderCorrelationID] = r.correlationID
	return headers
}

func activeStepBody(seq *sequence.Sequence) map[string]any {
	if active := seq.ActiveFn(); active != nil {
		return active.Params
	}
	return nil
}

func toRequestMap(result any) map[string]any {
	if m, ok := result.(map[string]any); ok {
		return m
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]any{}
	}
	return m
}

// notifyTracker implements spec §4.5 step 6: tracker invocation failures
// never fail the primary handler, so errors are swallowed after logging.
func notifyTracker(opts Options, r *run, seq *sequence.Sequence) {
	completed := seq.Completed()
	payload, err := json.Marshal(map[string]any{
		"status": map[string]any{
			"correlationId": r.correlationID,
			"total":         len(seq.Steps()),
			"current":       len(completed),
			"currentFn":     opts.FunctionName,
			"status":        "running",
		},
	})
	if err != nil {
		return
	}
	if _, err := opts.Invoker.Invoke(opts.SequenceTrackerARN, payload); err != nil {
		opts.Logger.WithField("error", err.Error()).Warn("wrapper: sequence tracker notification failed")
	}
}
