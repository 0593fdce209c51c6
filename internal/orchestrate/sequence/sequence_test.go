package sequence_test

import (
	"testing"

	"orchestrate/runtime/internal/orchestrate/sequence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

func buildTwoStepSequence() *sequence.Sequence {
	seq := sequence.New()
	seq.Add("step-one", map[string]any{"static": "value"})
	seq.Add("step-two", map[string]any{"ref": sequence.DynamicRef{Lookup: "step-one.id"}})
	return seq
}

// ============================================================================
// TEST CASES
// ============================================================================

func TestSequence_AddAndLazyAdvance(t *testing.T) {
	seq := buildTwoStepSequence()

	assert.True(t, seq.IsSequence())
	assert.False(t, seq.IsDone())
	assert.Len(t, seq.Remaining(), 2)

	active := seq.ActiveFn()
	require.NotNil(t, active)
	assert.Equal(t, "step-one", active.ARN)
	assert.Equal(t, sequence.StatusActive, active.Status)
}

func TestSequence_NextFinalizesAndResolves(t *testing.T) {
	seq := buildTwoStepSequence()
	seq.ActiveFn() // promote step-one to active

	targetARN, err := seq.Next(map[string]any{"id": "abc123"}, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "step-two", targetARN)

	completed := seq.Completed()
	require.Len(t, completed, 1)
	assert.Equal(t, sequence.StatusCompleted, completed[0].Status)

	active := seq.ActiveFn()
	require.NotNil(t, active)
	assert.Equal(t, "abc123", active.Params["ref"])
}

func TestSequence_NextFailsWithNoRemainingSteps(t *testing.T) {
	seq := sequence.New()
	seq.Add("only-step", nil)
	seq.ActiveFn()

	_, err := seq.Next(map[string]any{}, map[string]any{})
	require.Error(t, err, "no assigned step remains after the only step finishes")
}

func TestSequence_OnConditionSkipsWhenPredicateFalse(t *testing.T) {
	sequence.RegisterPredicate("always-false", func(responses sequence.Responses, args map[string]any) bool {
		return false
	})

	seq := sequence.New()
	seq.Add("first", nil)
	seq.OnCondition("always-false", nil, "conditional", nil)
	seq.Add("last", nil)
	seq.ActiveFn()

	targetARN, err := seq.Next(map[string]any{}, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "last", targetARN, "conditional step should be skipped, landing on the following step")

	var skipped int
	for _, step := range seq.Steps() {
		if step.Status == sequence.StatusSkipped {
			skipped++
		}
	}
	assert.Equal(t, 1, skipped)
}

func TestSequence_OnErrorRequiresPriorStep(t *testing.T) {
	seq := sequence.New()
	err := seq.OnError(sequence.ErrorHandler{ForwardARN: "dlq"})
	assert.Error(t, err)
}

// Property test (spec §8 property 1): serialize then deserialize yields
// an equivalent Sequence with the same step list and responses map.
func TestSequence_SerializeDeserializeRoundTrip(t *testing.T) {
	seq := buildTwoStepSequence()
	seq.ActiveFn()
	_, err := seq.Next(map[string]any{"id": "xyz"}, map[string]any{})
	require.NoError(t, err)

	data, err := seq.Serialize()
	require.NoError(t, err)

	restored, err := sequence.Deserialize(data)
	require.NoError(t, err)

	assert.Equal(t, seq.IsSequence(), restored.IsSequence())
	assert.Equal(t, len(seq.Steps()), len(restored.Steps()))
	assert.Equal(t, seq.ResponsesMap(), restored.ResponsesMap())
	for i, step := range seq.Steps() {
		assert.Equal(t, step.ARN, restored.Steps()[i].ARN)
		assert.Equal(t, step.Status, restored.Steps()[i].Status)
	}
}

// Property test (spec §8): the multiset of statuses is always
// {completed}* . {active}? . ({assigned}|{skipped})* in step order.
func TestSequence_StatusCountInvariant(t *testing.T) {
	seq := sequence.New()
	seq.Add("a", nil)
	seq.Add("b", nil)
	seq.Add("c", nil)
	seq.ActiveFn()
	_, err := seq.Next(map[string]any{}, map[string]any{})
	require.NoError(t, err)

	seenActive := false
	for _, step := range seq.Steps() {
		switch step.Status {
		case sequence.StatusCompleted:
			assert.False(t, seenActive, "no completed step may follow an active one")
		case sequence.StatusActive:
			assert.False(t, seenActive, "at most one active step may exist")
			seenActive = true
		}
	}
}

func TestSequence_IngestStepsFailsWhenAlreadyPopulated(t *testing.T) {
	seq := buildTwoStepSequence()
	err := seq.IngestSteps(map[string]any{}, []*sequence.Step{{ARN: "x"}})
	assert.Error(t, err)
}
