// Package sequence implements the Sequence Model: the serializable plan
// describing a chain of function invocations, its dynamic-parameter
// resolution, and its progression state machine.
package sequence

import "fmt"

// FunctionType tags what role a step plays in the plan. Fan-out/fan-in are
// named per spec §3 but nothing in this runtime schedules them yet (the
// source's own fanOut feature was a TODO stub — see spec §9(i)).
type FunctionType string

const (
	FunctionTypeTask   FunctionType = "task"
	FunctionTypeFanOut FunctionType = "fan-out"
	FunctionTypeFanIn  FunctionType = "fan-in"
	FunctionTypeOther  FunctionType = "other"
)

// Status is a step's progression state. The ordered set is
// assigned -> active -> completed, with a side branch active -> skipped
// taken when a conditional predicate evaluates false (§4.2.2).
type Status string

const (
	StatusAssigned  Status = "assigned"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
)

// ErrorHandler attached to a step via onError (§4.2). Exactly one of
// Forward or Callback is set; Callback keys a function registered with
// RegisterHandler (see registry.go) — never raw source code (§4.1, §9).
type ErrorHandler struct {
	ForwardARN    string
	ForwardParams map[string]any
	CallbackKey   string
	CallbackArgs  map[string]any
}

// Condition attached to a step via onCondition. PredicateKey names a
// function registered with RegisterPredicate.
type Condition struct {
	PredicateKey string
	Args         map[string]any
}

// Step represents one planned invocation (§3 SequenceStep).
type Step struct {
	ARN          string         `json:"arn"`
	Params       map[string]any `json:"params"`
	Type         FunctionType   `json:"type"`
	Status       Status         `json:"status"`
	Condition    *Condition     `json:"condition,omitempty"`
	OnErrorSpec  *ErrorHandler  `json:"onError,omitempty"`
}

// advance enforces the monotonic transition invariant of §4.2.2: a step's
// status only ever moves forward through assigned -> active ->
// (completed|skipped). Any other transition is a programmer error in this
// package, not a caller-recoverable condition, so it panics rather than
// returning an error — mirroring how GormBaseRepository trusts its own
// internal invariants and only validates at the boundary.
func (s *Step) advance(next Status) {
	valid := map[Status][]Status{
		StatusAssigned:  {StatusActive},
		StatusActive:    {StatusCompleted, StatusSkipped},
		StatusCompleted: {},
		StatusSkipped:   {},
	}
	for _, ok := range valid[s.Status] {
		if ok == next {
			s.Status = next
			return
		}
	}
	panic(fmt.Sprintf("sequence: invalid step transition %s -> %s for %s", s.Status, next, s.ARN))
}
