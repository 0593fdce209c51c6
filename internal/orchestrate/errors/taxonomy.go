// Package errors implements the orchestration runtime's typed error
// taxonomy: every failure that can cross a handler boundary is one of a
// small closed set of kinds, each carrying enough metadata to be surfaced
// either as a gateway HTTP response or rethrown for the platform's own
// retry/DLQ handling.
package errors

import (
	"fmt"
	"runtime"
)

// Type is the taxonomy tag carried by every OrchestrateError.
type Type string

const (
	TypeHandled          Type = "handled-error"
	TypeUnhandled        Type = "unhandled-error"
	TypeDefaultError     Type = "default-error"
	TypeRethrow          Type = "rethrow-error"
	TypeErrorWithinError Type = "error-within-error"
	TypeServerless       Type = "serverless-error"
	TypeCallDepth        Type = "call-depth-exceeded"
)

// OrchestrateError is implemented by every taxonomy member.
type OrchestrateError interface {
	error
	Name() string
	Code() string
	HttpStatus() int
	Type() Type
	RequestID() string
	CorrelationID() string
	Stack() string
	// Stage names the wrapper pipeline stage active when this error was
	// raised or surfaced (spec §4.5 "recording the current state into a
	// local progress variable so error messages can name where we
	// failed"), set by the wrapper via WithStage. Empty until then.
	Stage() string
	// GatewayResponse renders the error as the wire-format gateway error
	// body described in spec §4.5.1/§7.
	GatewayResponse() (body []byte, statusCode int)
}

// Base is embedded by every concrete taxonomy member. It is deliberately
// not exported as a standalone error type — callers always see one of the
// named kinds below, never a bare Base.
type Base struct {
	code          string
	message       string
	httpStatus    int
	typeTag       Type
	requestID     string
	correlationID string
	stack         string
	cause         error
	stage         string
}

func newBase(code, message string, httpStatus int, typeTag Type, cause error) Base {
	return Base{
		code:       code,
		message:    message,
		httpStatus: httpStatus,
		typeTag:    typeTag,
		cause:      cause,
		stack:      captureStack(),
	}
}

func captureStack() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

func (b *Base) Error() string {
	if b.message != "" {
		return b.message
	}
	if b.cause != nil {
		return b.cause.Error()
	}
	return b.code
}

func (b *Base) Unwrap() error        { return b.cause }
func (b *Base) Name() string         { return fmt.Sprintf("aws-orchestrate/%s", b.code) }
func (b *Base) Code() string         { return b.code }
func (b *Base) HttpStatus() int      { return b.httpStatus }
func (b *Base) Type() Type           { return b.typeTag }
func (b *Base) RequestID() string    { return b.requestID }
func (b *Base) CorrelationID() string { return b.correlationID }
func (b *Base) Stack() string        { return b.stack }
func (b *Base) Stage() string        { return b.stage }

func (b *Base) withIdentity(requestID, correlationID string) {
	b.requestID = requestID
	b.correlationID = correlationID
}

func (b *Base) withStage(stage string) {
	b.stage = stage
}

type gatewayBody struct {
	ErrorType     string `json:"errorType"`
	ErrorMessage  string `json:"errorMessage"`
	Code          string `json:"code"`
	CorrelationID string `json:"correlationId"`
	RequestID     string `json:"requestId"`
	Stage         string `json:"stage,omitempty"`
	Stack         string `json:"stack,omitempty"`
}
