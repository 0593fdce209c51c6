package errors_test

import (
	"errors"
	"testing"

	orcherrors "orchestrate/runtime/internal/orchestrate/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandledError_CarriesConfiguredCode(t *testing.T) {
	original := errors.New("boom")
	err := orcherrors.NewHandled("ORDER_NOT_FOUND", 404, original)

	assert.Equal(t, "ORDER_NOT_FOUND", err.Code())
	assert.Equal(t, 404, err.HttpStatus())
	assert.Equal(t, orcherrors.TypeHandled, err.Type())
	assert.Equal(t, "boom", err.Error())
	assert.Equal(t, original, err.Unwrap())
}

func TestUnhandledError_DefaultsTo500(t *testing.T) {
	err := orcherrors.NewUnhandled("UNHANDLED_ERROR", errors.New("whatever"))
	assert.Equal(t, 500, err.HttpStatus())
	assert.Equal(t, orcherrors.TypeUnhandled, err.Type())
}

func TestServerlessError_EnrichRewritesClassificationPrefix(t *testing.T) {
	err := orcherrors.NewServerless(400, "bad input", "VALIDATION")
	err.Enrich("create-order", "corr-1", "req-1")

	assert.Equal(t, "create-order/VALIDATION", err.Classification)
	assert.Equal(t, "create-order", err.FunctionName)
	assert.Equal(t, "corr-1", err.CorrelationID())
	assert.Equal(t, "req-1", err.RequestID())
}

func TestRethrowError_PreservesOriginalIdentity(t *testing.T) {
	original := orcherrors.NewHandled("X", 409, errors.New("conflict"))
	orcherrors.WithIdentity(original, "req-9", "corr-9")

	rethrown := orcherrors.NewRethrow(original)
	assert.Equal(t, original.Code(), rethrown.Code())
	assert.Equal(t, original.HttpStatus(), rethrown.HttpStatus())
	assert.Equal(t, "req-9", rethrown.RequestID())
	assert.Equal(t, "corr-9", rethrown.CorrelationID())
}

func TestErrorWithinError_WrapsBothFailures(t *testing.T) {
	outer := errors.New("handler itself failed")
	inner := errors.New("original cause")
	err := orcherrors.NewErrorWithinError(outer, inner)

	assert.Equal(t, outer, err.Outer)
	assert.Equal(t, inner, err.Inner)
	assert.Equal(t, orcherrors.TypeErrorWithinError, err.Type())
}

func TestWithIdentity_StampsEveryTaxonomyMember(t *testing.T) {
	members := []orcherrors.OrchestrateError{
		orcherrors.NewHandled("A", 400, nil),
		orcherrors.NewUnhandled("B", nil),
		orcherrors.NewServerless(500, "x", "C"),
		orcherrors.NewErrorWithinError(errors.New("o"), errors.New("i")),
		orcherrors.NewCallDepthExceeded("fn", 3),
	}
	for _, m := range members {
		orcherrors.WithIdentity(m, "req", "corr")
		assert.Equal(t, "req", m.RequestID())
		assert.Equal(t, "corr", m.CorrelationID())
	}
}

func TestGatewayResponse_RendersErrorBody(t *testing.T) {
	err := orcherrors.NewHandled("NOT_FOUND", 404, errors.New("missing"))
	orcherrors.WithIdentity(err, "req-1", "corr-1")
	orcherrors.WithStage(err, "running-fn")

	body, status := err.GatewayResponse()
	require.NotEmpty(t, body)
	assert.Equal(t, 404, status)
	assert.Contains(t, string(body), "NOT_FOUND")
	assert.Contains(t, string(body), "corr-1")
	assert.Contains(t, string(body), "running-fn")
	assert.Equal(t, "running-fn", err.Stage())
}

func TestWithStage_StampsEveryTaxonomyMember(t *testing.T) {
	members := []orcherrors.OrchestrateError{
		orcherrors.NewHandled("A", 400, nil),
		orcherrors.NewUnhandled("B", nil),
		orcherrors.NewServerless(500, "x", "C"),
		orcherrors.NewErrorWithinError(errors.New("o"), errors.New("i")),
		orcherrors.NewCallDepthExceeded("fn", 3),
	}
	for _, m := range members {
		orcherrors.WithStage(m, "invoke-next")
		assert.Equal(t, "invoke-next", m.Stage())
	}
}
