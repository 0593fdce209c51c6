package envelope_test

import (
	"encoding/json"
	"testing"

	"orchestrate/runtime/internal/orchestrate/envelope"
	"orchestrate/runtime/internal/orchestrate/sequence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnbox_GatewayProxyShape(t *testing.T) {
	event, err := json.Marshal(map[string]any{
		"headers": map[string]string{"X-Correlation-Id": "corr-1"},
		"body":    `{"name":"alice"}`,
	})
	require.NoError(t, err)

	unboxed, err := envelope.Unbox(event)
	require.NoError(t, err)

	assert.Equal(t, "alice", unboxed.Request["name"])
	assert.Equal(t, "corr-1", unboxed.Headers["X-Correlation-Id"])
	assert.NotNil(t, unboxed.Gateway)
	assert.False(t, unboxed.Sequence.IsSequence())
}

func TestUnbox_BareShapeIngestsSequenceProperty(t *testing.T) {
	event, err := json.Marshal(map[string]any{
		"name": "bob",
		"_sequence": []map[string]any{
			{"arn": "step-one", "params": map[string]any{}, "type": "task", "status": "assigned"},
		},
	})
	require.NoError(t, err)

	unboxed, err := envelope.Unbox(event)
	require.NoError(t, err)

	assert.Equal(t, "bob", unboxed.Request["name"])
	_, hasSequenceKey := unboxed.Request["_sequence"]
	assert.False(t, hasSequenceKey, "_sequence is stripped from the request once ingested")
	assert.True(t, unboxed.Sequence.IsSequence())
	assert.Nil(t, unboxed.Gateway)
}

func TestBoxUnbox_RoundTrip(t *testing.T) {
	seq := sequence.New()
	seq.Add("next-fn", map[string]any{"k": "v"})

	boxed, err := envelope.Box(map[string]any{"hello": "world"}, seq, map[string]string{"X-Correlation-Id": "corr-2"})
	require.NoError(t, err)

	unboxed, err := envelope.Unbox(boxed)
	require.NoError(t, err)

	assert.Equal(t, "world", unboxed.Request["hello"])
	assert.Equal(t, "corr-2", unboxed.Headers["X-Correlation-Id"])
	assert.True(t, unboxed.Sequence.IsSequence())
	assert.Nil(t, unboxed.Gateway)
}

// Property test (spec §8): exactly one of the three event shapes is
// recognized for any given event — gateway and orchestrated are mutually
// exclusive, and a bare event never has a Gateway populated.
func TestUnbox_ShapeRecognitionIsExclusive(t *testing.T) {
	gatewayEvent, _ := json.Marshal(map[string]any{
		"headers": map[string]string{},
		"body":    "{}",
	})
	gwUnboxed, err := envelope.Unbox(gatewayEvent)
	require.NoError(t, err)
	assert.NotNil(t, gwUnboxed.Gateway)

	seq := sequence.New()
	orchestratedEvent, _ := envelope.Box(map[string]any{}, seq, map[string]string{})
	orchUnboxed, err := envelope.Unbox(orchestratedEvent)
	require.NoError(t, err)
	assert.Nil(t, orchUnboxed.Gateway)

	bareEvent, _ := json.Marshal(map[string]any{"k": "v"})
	bareUnboxed, err := envelope.Unbox(bareEvent)
	require.NoError(t, err)
	assert.Nil(t, bareUnboxed.Gateway)
	assert.False(t, bareUnboxed.Sequence.IsSequence())
}

func TestUnbox_MalformedEventSynthesizesEmptySequence(t *testing.T) {
	unboxed, err := envelope.Unbox([]byte("not json"))
	require.NoError(t, err)
	assert.NotNil(t, unboxed.Sequence)
	assert.False(t, unboxed.Sequence.IsSequence())
	assert.Empty(t, unboxed.Request)
}
