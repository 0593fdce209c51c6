// Package handlerctx implements Context Assembly: building the immutable
// per-invocation HandlerContext a user handler runs against (spec §3
// HandlerContext, §4.7).
package handlerctx

import (
	"context"
	"encoding/json"

	db "orchestrate/runtime/internal/infrastructure/db"
	"orchestrate/runtime/internal/infrastructure/logger"
	"orchestrate/runtime/internal/orchestrate/envelope"
	"orchestrate/runtime/internal/orchestrate/matcher"
	"orchestrate/runtime/internal/orchestrate/platform"
	"orchestrate/runtime/internal/orchestrate/sequence"
)

// AWSContext carries the platform invocation identity spec §3 lists as
// part of HandlerContext: "the function's AWS context fields (name,
// request id, remaining time)".
type AWSContext struct {
	FunctionName  string
	RequestID     string
	RemainingTime func() (millis int64)
}

// Context is the immutable per-invocation record supplied to a user
// handler (spec §3 HandlerContext). Every field is set once by Build
// and never mutated afterwards; the setter methods below record their
// effect on the enclosing *wrapper.run instead of on Context itself, so
// Context genuinely stays immutable across the handler call.
type Context struct {
	Log         logger.Logger
	AWSContext  AWSContext
	Sequence    *sequence.Sequence
	Gateway     *envelope.GatewayRequest
	Headers     map[string]string
	Query       map[string]string
	Claims      map[string]any
	Database    func() db.Database
	Matcher     *matcher.Matcher

	fetchSecret          func(ctx context.Context, path string) (map[string]any, error)
	registerSequence     func(seq *sequence.Sequence)
	invokeNext           func(arn string, payload []byte) ([]byte, error)
	setSuccessStatusCode func(code int)
	setContentType       func(contentType string)
	appendHeader         func(key, value string)
}

// FetchSecret resolves a secret by path through the configured SecretFetcher.
func (c *Context) FetchSecret(ctx context.Context, path string) (map[string]any, error) {
	return c.fetchSecret(ctx, path)
}

// RegisterSequence lets a conductor handler register a brand-new sequence
// to be started after the current invocation's own continuation, if any
// (spec §4.5 step 5).
func (c *Context) RegisterSequence(seq *sequence.Sequence) { c.registerSequence(seq) }

// InvokeNext invokes another function directly, bypassing sequence
// progression — used by error handlers that forward to an ARN+params pair.
func (c *Context) InvokeNext(arn string, payload []byte) ([]byte, error) {
	return c.invokeNext(arn, payload)
}

// SetSuccessStatusCode overrides the default gateway response status code.
func (c *Context) SetSuccessStatusCode(code int) { c.setSuccessStatusCode(code) }

// SetContentType overrides the default gateway response content-type header.
func (c *Context) SetContentType(contentType string) { c.setContentType(contentType) }

// AppendHeader adds a header to the eventual gateway response.
func (c *Context) AppendHeader(key, value string) { c.appendHeader(key, value) }

// Builder is constructed once per process from the wrapper's collaborator
// set and produces a fresh Context per invocation (spec §4.7).
type Builder struct {
	Logger        logger.Logger
	SecretFetcher platform.SecretFetcher
	Database      func() db.Database
	Matcher       *matcher.Matcher
}

// NewBuilder wires a Builder from its collaborators.
func NewBuilder(log logger.Logger, fetcher platform.SecretFetcher, dbFactory func() db.Database, m *matcher.Matcher) *Builder {
	return &Builder{Logger: log, SecretFetcher: fetcher, Database: dbFactory, Matcher: m}
}

// hooks bundles the mutation callbacks a wrapper.run supplies so Context's
// setter methods can record their effect on the run instead of on Context
// itself (spec §9 "module-level mutable state" resolved into run fields).
type hooks struct {
	registerSequence     func(seq *sequence.Sequence)
	invokeNext           func(arn string, payload []byte) ([]byte, error)
	setSuccessStatusCode func(code int)
	setContentType       func(contentType string)
	appendHeader         func(key, value string)
}

// Build assembles a Context for one invocation (spec §4.5 step 2 "prep").
func Build(ctx context.Context, b *Builder, unboxed envelope.Unboxed, aws AWSContext, h hooks) *Context {
	claims := decodeClaims(unboxed.Gateway)

	log := b.Logger.WithContext(ctx).
		WithField("correlation_id", unboxed.Headers["X-Correlation-Id"]).
		WithField("function_name", aws.FunctionName)

	var query map[string]string
	if unboxed.Gateway != nil {
		query = unboxed.Gateway.QueryStringParameters
	}

	return &Context{
		Log:        log,
		AWSContext: aws,
		Sequence:   unboxed.Sequence,
		Gateway:    unboxed.Gateway,
		Headers:    unboxed.Headers,
		Query:      query,
		Claims:     claims,
		Database:   b.Database,
		Matcher:    b.Matcher,

		fetchSecret:          b.SecretFetcher.FetchSecret,
		registerSequence:     h.registerSequence,
		invokeNext:           h.invokeNext,
		setSuccessStatusCode: h.setSuccessStatusCode,
		setContentType:       h.setContentType,
		appendHeader:         h.appendHeader,
	}
}

// Hooks constructs the hooks bundle Build needs; exported so the wrapper
// package (the only caller outside this package) can supply its run's
// closures without this package reaching into wrapper's internals.
func Hooks(
	registerSequence func(seq *sequence.Sequence),
	invokeNext func(arn string, payload []byte) ([]byte, error),
	setSuccessStatusCode func(code int),
	setContentType func(contentType string),
	appendHeader func(key, value string),
) hooks {
	return hooks{
		registerSequence:     registerSequence,
		invokeNext:           invokeNext,
		setSuccessStatusCode: setSuccessStatusCode,
		setContentType:       setContentType,
		appendHeader:         appendHeader,
	}
}

// decodeClaims extracts the upstream authorizer's pre-decoded custom
// claims (spec §4.5 step 2), defaulting to an empty mapping.
func decodeClaims(gw *envelope.GatewayRequest) map[string]any {
	claims := map[string]any{}
	if gw == nil || len(gw.RequestContext.Authorizer.CustomClaims) == 0 {
		return claims
	}
	if err := json.Unmarshal(gw.RequestContext.Authorizer.CustomClaims, &claims); err != nil {
		return map[string]any{}
	}
	return claims
}
