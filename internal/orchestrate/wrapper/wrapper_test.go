package wrapper_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"orchestrate/runtime/internal/infrastructure/logger"
	"orchestrate/runtime/internal/orchestrate/envelope"
	orcherrors "orchestrate/runtime/internal/orchestrate/errors"
	"orchestrate/runtime/internal/orchestrate/handlerctx"
	"orchestrate/runtime/internal/orchestrate/matcher"
	"orchestrate/runtime/internal/orchestrate/platform"
	"orchestrate/runtime/internal/orchestrate/sequence"
	"orchestrate/runtime/internal/orchestrate/wrapper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseOptions() wrapper.Options {
	return wrapper.Options{
		Logger:           logger.NewNoOpLogger(),
		SecretFetcher:    platform.EnvSecretFetcher{},
		Database:         nil,
		Invoker:          platform.NewLocalInvoker(),
		Matcher:          matcher.New("UNHANDLED_ERROR"),
		FunctionName:     "myHandlerFunction",
		DefaultErrorCode: "UNHANDLED_ERROR",
	}
}

// S1: bare passthrough, no sequence.
func TestWrapper_BarePassthrough(t *testing.T) {
	handler := wrapper.Wrap(func(ctx context.Context, request map[string]any, hctx *handlerctx.Context) (any, error) {
		n, _ := request["n"].(float64)
		return map[string]any{"n": n + 1}, nil
	}, baseOptions())

	event, _ := json.Marshal(map[string]any{"n": 2})
	result, err := handler(context.Background(), event)
	require.NoError(t, err)

	m, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(3), m["n"])
}

// S2: gateway-proxy success marshals a {statusCode, headers, body} response.
func TestWrapper_GatewayProxySuccess(t *testing.T) {
	handler := wrapper.Wrap(func(ctx context.Context, request map[string]any, hctx *handlerctx.Context) (any, error) {
		return map[string]any{"ok": true}, nil
	}, baseOptions())

	event, _ := json.Marshal(map[string]any{
		"headers": map[string]string{"X-Correlation-Id": "c-1"},
		"body":    `{"n":2}`,
	})
	result, err := handler(context.Background(), event)
	require.NoError(t, err)

	resp, ok := result.(envelope.GatewayResponse)
	require.True(t, ok)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])
	assert.JSONEq(t, `{"ok":true}`, resp.Body)
}

// S3: sequence continuation invokes exactly the next step's ARN, with the
// prior step completed and its response recorded.
func TestWrapper_SequenceContinuation(t *testing.T) {
	invoker := platform.NewLocalInvoker()
	var invokedARN string
	var invokedPayload []byte
	invoker.Register("step-c", func(payload []byte) ([]byte, error) {
		invokedARN = "step-c"
		invokedPayload = payload
		return []byte(`{}`), nil
	})

	seq := sequence.New()
	seq.Add("step-a", nil)
	seq.Add("step-b", nil)
	seq.Add("step-c", nil)
	// Drive A to completed and B to active, as the scenario requires.
	seq.ActiveFn()
	_, err := seq.Next(map[string]any{"v": 1}, map[string]any{})
	require.NoError(t, err)

	data, err := seq.Serialize()
	require.NoError(t, err)
	boxed, err := envelope.Box(map[string]any{}, mustDeserialize(t, data), map[string]string{})
	require.NoError(t, err)

	opts := baseOptions()
	opts.Invoker = invoker

	handler := wrapper.Wrap(func(ctx context.Context, request map[string]any, hctx *handlerctx.Context) (any, error) {
		return map[string]any{"v": 2}, nil
	}, opts)

	_, err = handler(context.Background(), boxed)
	require.NoError(t, err)

	assert.Equal(t, "step-c", invokedARN)
	require.NotEmpty(t, invokedPayload)

	downstream, err := envelope.Unbox(invokedPayload)
	require.NoError(t, err)
	require.True(t, downstream.Sequence.IsSequence())
	completed := downstream.Sequence.Completed()
	require.Len(t, completed, 2)
	active := downstream.Sequence.ActiveFn()
	require.NotNil(t, active)
	assert.Equal(t, "step-c", active.ARN)
}

func mustDeserialize(t *testing.T, data []byte) *sequence.Sequence {
	t.Helper()
	seq, err := sequence.Deserialize(data)
	require.NoError(t, err)
	return seq
}

// S4: a thrown ServerlessError on a non-gateway event passes through the
// cascade enriched, rather than being caught by the matcher/default policy.
func TestWrapper_ServerlessErrorPassthrough(t *testing.T) {
	opts := baseOptions()
	handler := wrapper.Wrap(func(ctx context.Context, request map[string]any, hctx *handlerctx.Context) (any, error) {
		return nil, orcherrors.NewServerless(403, "nope", "auth")
	}, opts)

	event, _ := json.Marshal(map[string]any{"n": 1})
	_, err := handler(context.Background(), event)
	require.Error(t, err)

	se, ok := err.(*orcherrors.ServerlessError)
	require.True(t, ok)
	assert.Equal(t, "myHandlerFunction", se.FunctionName)
	assert.Equal(t, "myHandlerFunction/auth", se.Classification)
	assert.NotEmpty(t, se.CorrelationID())
	assert.NotEmpty(t, se.RequestID())
}

type codedError struct{ code string }

func (e codedError) Error() string { return e.code }

// S5: a matched-then-forwarded disposition invokes the forwarding target
// and resolves to an empty success response.
func TestWrapper_MatchedThenForwarded(t *testing.T) {
	invoker := platform.NewLocalInvoker()
	var forwarded bool
	invoker.Register("reporter", func(payload []byte) ([]byte, error) {
		forwarded = true
		return []byte(`{}`), nil
	})

	m := matcher.New("UNHANDLED_ERROR")
	m.Add(func(err error) bool {
		var ce codedError
		return errors.As(err, &ce) && ce.code == "X"
	}, "500", matcher.Disposition{ForwardTo: "reporter"})

	opts := baseOptions()
	opts.Invoker = invoker
	opts.Matcher = m

	handler := wrapper.Wrap(func(ctx context.Context, request map[string]any, hctx *handlerctx.Context) (any, error) {
		return nil, codedError{code: "X"}
	}, opts)

	event, _ := json.Marshal(map[string]any{
		"headers": map[string]string{},
		"body":    "{}",
	})
	result, err := handler(context.Background(), event)
	require.NoError(t, err)
	assert.True(t, forwarded)

	resp, ok := result.(envelope.GatewayResponse)
	require.True(t, ok)
	assert.Equal(t, 204, resp.StatusCode)
}

// Conductor handlers register a brand-new sequence via
// hctx.RegisterSequence; the wrapper must start it (invoking its first
// step) once the handler returns, even though no sequence was active on
// the inbound event (spec §4.5 step 5).
func TestWrapper_ConductorRegistersNewSequence(t *testing.T) {
	invoker := platform.NewLocalInvoker()
	var invoked bool
	invoker.Register("step-x", func(payload []byte) ([]byte, error) {
		invoked = true
		return []byte(`{}`), nil
	})

	opts := baseOptions()
	opts.Invoker = invoker

	handler := wrapper.Wrap(func(ctx context.Context, request map[string]any, hctx *handlerctx.Context) (any, error) {
		seq := sequence.New()
		seq.Add("step-x", map[string]any{"amount": 10})
		hctx.RegisterSequence(seq)
		return map[string]any{"validated": true}, nil
	}, opts)

	event, _ := json.Marshal(map[string]any{"n": 1})
	_, err := handler(context.Background(), event)
	require.NoError(t, err)
	assert.True(t, invoked)
}

// Once a sequence is active on the inbound event, the wrapper notifies
// the configured tracker ARN after invoking the next step (spec §4.5
// step 6); failures there must never surface to the caller.
func TestWrapper_NotifiesSequenceTracker(t *testing.T) {
	invoker := platform.NewLocalInvoker()
	invoker.Register("step-c", func(payload []byte) ([]byte, error) { return []byte(`{}`), nil })

	var trackerPayload []byte
	invoker.Register("sequenceTracker", func(payload []byte) ([]byte, error) {
		trackerPayload = payload
		return []byte(`{}`), nil
	})

	seq := sequence.New()
	seq.Add("step-a", nil)
	seq.Add("step-b", nil)
	seq.Add("step-c", nil)
	seq.ActiveFn()
	_, err := seq.Next(map[string]any{"v": 1}, map[string]any{})
	require.NoError(t, err)

	data, err := seq.Serialize()
	require.NoError(t, err)
	boxed, err := envelope.Box(map[string]any{}, mustDeserialize(t, data), map[string]string{})
	require.NoError(t, err)

	opts := baseOptions()
	opts.Invoker = invoker
	opts.SequenceTrackerARN = "sequenceTracker"

	handler := wrapper.Wrap(func(ctx context.Context, request map[string]any, hctx *handlerctx.Context) (any, error) {
		return map[string]any{"v": 2}, nil
	}, opts)

	_, err = handler(context.Background(), boxed)
	require.NoError(t, err)

	require.NotEmpty(t, trackerPayload)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(trackerPayload, &decoded))
	status, ok := decoded["status"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "running", status["status"])
}

// S6: an unknown error with a handler-fn default policy returning true
// resolves to an empty 204 gateway response.
func TestWrapper_DefaultHandlerFnResolves(t *testing.T) {
	m := matcher.New("UNHANDLED_ERROR")
	m.SetDefaultPolicy(matcher.DefaultPolicy{
		Type: matcher.PolicyHandlerFn,
		Code: "UNHANDLED_ERROR",
		HandlerFn: func(err error) (bool, error) {
			return true, nil
		},
	})

	opts := baseOptions()
	opts.Matcher = m

	handler := wrapper.Wrap(func(ctx context.Context, request map[string]any, hctx *handlerctx.Context) (any, error) {
		return nil, errors.New("boom")
	}, opts)

	event, _ := json.Marshal(map[string]any{
		"headers": map[string]string{},
		"body":    "{}",
	})
	result, err := handler(context.Background(), event)
	require.NoError(t, err)

	resp, ok := result.(envelope.GatewayResponse)
	require.True(t, ok)
	assert.Equal(t, 204, resp.StatusCode)
	assert.Empty(t, resp.Body)
}
