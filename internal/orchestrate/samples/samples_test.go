package samples_test

import (
	"context"
	"encoding/json"
	"testing"

	"orchestrate/runtime/internal/infrastructure/logger"
	"orchestrate/runtime/internal/orchestrate/envelope"
	orcherrors "orchestrate/runtime/internal/orchestrate/errors"
	"orchestrate/runtime/internal/orchestrate/handlerctx"
	"orchestrate/runtime/internal/orchestrate/matcher"
	"orchestrate/runtime/internal/orchestrate/platform"
	"orchestrate/runtime/internal/orchestrate/samples"
	"orchestrate/runtime/internal/orchestrate/wrapper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOrder_RejectsNonPositiveAmount(t *testing.T) {
	_, err := samples.ValidateOrder(context.Background(), map[string]any{"amount": 0}, &handlerctx.Context{})

	require.Error(t, err)
	he, ok := err.(*orcherrors.HandledError)
	require.True(t, ok)
	assert.Equal(t, "INVALID_ORDER", he.Code())
	assert.Equal(t, 400, he.HttpStatus())
}

func TestValidateOrder_RejectsMissingAmount(t *testing.T) {
	_, err := samples.ValidateOrder(context.Background(), map[string]any{}, &handlerctx.Context{})
	assert.Error(t, err)
}

func TestChargeOrder_DeclinesAboveThreshold(t *testing.T) {
	_, err := samples.ChargeOrder(context.Background(), map[string]any{"amount": 20000.0}, nil)
	assert.Error(t, err)
}

func TestChargeOrder_AcceptsWithinThreshold(t *testing.T) {
	result, err := samples.ChargeOrder(context.Background(), map[string]any{"amount": 100.0}, nil)
	require.NoError(t, err)

	m, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 100.0, m["charged"])
}

// Drives the conductor→new-sequence flow end to end: ValidateOrder's
// success path registers a sequence, and the wrapper must start it by
// invoking chargeOrder as the first step.
func TestValidateOrder_SucceedsAndStartsChargeSequence(t *testing.T) {
	samples.RegisterChargeFailedHandler()

	invoker := platform.NewLocalInvoker()
	var chargedPayload []byte
	invoker.Register(samples.FnChargeOrder, func(payload []byte) ([]byte, error) {
		chargedPayload = payload
		return []byte(`{}`), nil
	})

	opts := wrapper.Options{
		Logger:           logger.NewNoOpLogger(),
		SecretFetcher:    platform.EnvSecretFetcher{},
		Invoker:          invoker,
		Matcher:          matcher.New("UNHANDLED_ERROR"),
		FunctionName:     samples.FnValidateOrder,
		DefaultErrorCode: "UNHANDLED_ERROR",
	}
	handler := wrapper.Wrap(samples.ValidateOrder, opts)

	event, err := json.Marshal(map[string]any{"amount": 250.0})
	require.NoError(t, err)

	_, err = handler(context.Background(), event)
	require.NoError(t, err)

	require.NotEmpty(t, chargedPayload)
	downstream, err := envelope.Unbox(chargedPayload)
	require.NoError(t, err)
	require.True(t, downstream.Sequence.IsSequence())
	active := downstream.Sequence.ActiveFn()
	require.NotNil(t, active)
	assert.Equal(t, samples.FnChargeOrder, active.ARN)
	assert.Equal(t, 250.0, active.Params["amount"])
}

func TestNotifyOrder_AlwaysSucceeds(t *testing.T) {
	result, err := samples.NotifyOrder(context.Background(), map[string]any{}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"notified": true}, result)
}
