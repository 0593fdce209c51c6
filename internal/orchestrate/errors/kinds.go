package errors

import "encoding/json"

// HandledError is raised when the Error Matcher recognized the inner error
// but could not resolve it locally. It carries the matched expectation's
// configured status code.
type HandledError struct {
	Base
	Original error
}

func NewHandled(code string, httpStatus int, original error) *HandledError {
	msg := code
	if original != nil {
		msg = original.Error()
	}
	return &HandledError{
		Base:     newBase(code, msg, httpStatus, TypeHandled, original),
		Original: original,
	}
}

// UnhandledError is raised when no matcher expectation matched; it carries
// the default error code configured on the Error Matcher's default policy.
type UnhandledError struct {
	Base
	Original error
}

func NewUnhandled(defaultCode string, original error) *UnhandledError {
	msg := defaultCode
	if original != nil {
		msg = original.Error()
	}
	return &UnhandledError{
		Base:     newBase(defaultCode, msg, 500, TypeUnhandled, original),
		Original: original,
	}
}

// ServerlessError is a thin, user-constructible error with a
// caller-specified code and classification. It passes through the cascade
// unchanged; the wrapper only enriches it with FunctionName, CorrelationID
// and AWSRequestID (§4.3, §4.5.1 step 1).
type ServerlessError struct {
	Base
	Classification string
	FunctionName   string
}

func NewServerless(httpStatus int, message, classification string) *ServerlessError {
	return &ServerlessError{
		Base:           newBase(classification, message, httpStatus, TypeServerless, nil),
		Classification: classification,
	}
}

// Enrich fills in the invocation identity and rewrites the classification
// prefix with the function name that ultimately surfaced the error, per
// §4.5.1 step 1 ("functionName", "correlationId", "awsRequestId", and
// rewrite its classification prefix").
func (e *ServerlessError) Enrich(functionName, correlationID, requestID string) {
	e.FunctionName = functionName
	e.withIdentity(requestID, correlationID)
	e.Classification = functionName + "/" + e.Classification
}

// RethrowError preserves an already-typed error's code/name/type/stack/
// httpStatus for re-emission, avoiding nested error wrapping when the
// cascade itself fails on an already-typed error (§4.5.1, §7).
type RethrowError struct {
	Base
	Original OrchestrateError
}

func NewRethrow(original OrchestrateError) *RethrowError {
	r := &RethrowError{
		Base:     newBase(original.Code(), original.Error(), original.HttpStatus(), TypeRethrow, original),
		Original: original,
	}
	r.stack = original.Stack()
	r.withIdentity(original.RequestID(), original.CorrelationID())
	return r
}

// ErrorWithinError carries both an outer failure (from an error handler
// itself) and its inner cause — raised when the cascade fails on an
// untyped error (§4.5.1, §7).
type ErrorWithinError struct {
	Base
	Outer error
	Inner error
}

func NewErrorWithinError(outer, inner error) *ErrorWithinError {
	return &ErrorWithinError{
		Base:  newBase("ERROR_WITHIN_ERROR", outer.Error(), 500, TypeErrorWithinError, outer),
		Outer: outer,
		Inner: inner,
	}
}

// CallDepthExceededError would be raised when a function's self-invocation
// count exceeds the configured limit. Nothing in this runtime raises it
// yet — validateCallDepth is a deliberately unimplemented extension point
// (spec §9(i)); the type exists so a future caller has somewhere to land.
type CallDepthExceededError struct {
	Base
	MaxSelfCall int
}

func NewCallDepthExceeded(functionName string, maxSelfCall int) *CallDepthExceededError {
	return &CallDepthExceededError{
		Base:        newBase("CALL_DEPTH_EXCEEDED", functionName+" exceeded max self-invocation count", 508, TypeCallDepth, nil),
		MaxSelfCall: maxSelfCall,
	}
}

// GatewayResponse implementations — shared rendering per §4.5.1/§7.

func render(e OrchestrateError) ([]byte, int) {
	body, _ := json.Marshal(gatewayBody{
		ErrorType:     string(e.Type()),
		ErrorMessage:  e.Error(),
		Code:          e.Code(),
		CorrelationID: e.CorrelationID(),
		RequestID:     e.RequestID(),
		Stage:         e.Stage(),
	})
	return body, e.HttpStatus()
}

func (e *HandledError) GatewayResponse() ([]byte, int)       { return render(e) }
func (e *UnhandledError) GatewayResponse() ([]byte, int)     { return render(e) }
func (e *ServerlessError) GatewayResponse() ([]byte, int)    { return render(e) }
func (e *RethrowError) GatewayResponse() ([]byte, int)       { return render(e) }
func (e *ErrorWithinError) GatewayResponse() ([]byte, int)   { return render(e) }
func (e *CallDepthExceededError) GatewayResponse() ([]byte, int) { return render(e) }

var (
	_ OrchestrateError = (*HandledError)(nil)
	_ OrchestrateError = (*UnhandledError)(nil)
	_ OrchestrateError = (*ServerlessError)(nil)
	_ OrchestrateError = (*RethrowError)(nil)
	_ OrchestrateError = (*ErrorWithinError)(nil)
	_ OrchestrateError = (*CallDepthExceededError)(nil)
)

// WithIdentity is the exported entry point used by the wrapper pipeline to
// stamp requestID/correlationID onto any taxonomy member before it is
// surfaced (§4.3: every kind carries requestId/correlationId).
func WithIdentity(e OrchestrateError, requestID, correlationID string) {
	switch v := e.(type) {
	case *HandledError:
		v.withIdentity(requestID, correlationID)
	case *UnhandledError:
		v.withIdentity(requestID, correlationID)
	case *ServerlessError:
		v.withIdentity(requestID, correlationID)
	case *RethrowError:
		v.withIdentity(requestID, correlationID)
	case *ErrorWithinError:
		v.withIdentity(requestID, correlationID)
	case *CallDepthExceededError:
		v.withIdentity(requestID, correlationID)
	}
}

// WithStage stamps the wrapper pipeline stage active when an error
// ultimately surfaced, so a gateway error response or a rethrown error
// names where the failure happened (spec §4.5).
func WithStage(e OrchestrateError, stage string) {
	switch v := e.(type) {
	case *HandledError:
		v.withStage(stage)
	case *UnhandledError:
		v.withStage(stage)
	case *ServerlessError:
		v.withStage(stage)
	case *RethrowError:
		v.withStage(stage)
	case *ErrorWithinError:
		v.withStage(stage)
	case *CallDepthExceededError:
		v.withStage(stage)
	}
}

// Default error codes used when the default policy is "default" (§4.5.1 step 3).
const DefaultUnhandledCode = "UNHANDLED_ERROR"
