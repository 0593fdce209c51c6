package matcher_test

import (
	"errors"
	"testing"

	"orchestrate/runtime/internal/orchestrate/matcher"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notFoundError struct{}

func (notFoundError) Error() string { return "not found" }

func TestMatcher_FirstMatchingExpectationWins(t *testing.T) {
	m := matcher.New("UNHANDLED_ERROR")
	m.Add(func(err error) bool { return true }, "CATCH_ALL")
	m.Add(func(err error) bool {
		var nf notFoundError
		return errors.As(err, &nf)
	}, "NOT_FOUND")

	code, _, ok := m.Match(notFoundError{})
	require.True(t, ok)
	assert.Equal(t, "CATCH_ALL", code, "the first registered expectation matches, even though a later one is more specific")
}

func TestMatcher_NoMatchFallsThroughToDefault(t *testing.T) {
	m := matcher.New("UNHANDLED_ERROR")
	m.Add(func(err error) bool { return false }, "NEVER")

	_, _, ok := m.Match(errors.New("whatever"))
	assert.False(t, ok)
	assert.Equal(t, matcher.PolicyDefault, m.DefaultPolicy().Type)
	assert.Equal(t, "UNHANDLED_ERROR", m.DefaultPolicy().Code)
}

func TestMatcher_DispositionVariants(t *testing.T) {
	unset := matcher.Disposition{}
	assert.True(t, unset.IsWrapRethrow())
	assert.False(t, unset.IsCallback())
	assert.False(t, unset.IsForward())

	forward := matcher.Disposition{ForwardTo: "dlq-fn"}
	assert.True(t, forward.IsForward())
	assert.False(t, forward.IsWrapRethrow())

	cb := matcher.Disposition{Callback: func(err error) (bool, error) { return true, nil }}
	assert.True(t, cb.IsCallback())
	assert.False(t, cb.IsWrapRethrow())
}

func TestMatcher_SetDefaultPolicyOverrides(t *testing.T) {
	m := matcher.New("UNHANDLED_ERROR")
	m.SetDefaultPolicy(matcher.DefaultPolicy{Type: matcher.PolicyErrorForward, ForwardToARN: "error-sink"})

	dp := m.DefaultPolicy()
	assert.Equal(t, matcher.PolicyErrorForward, dp.Type)
	assert.Equal(t, "error-sink", dp.ForwardToARN)
}
