package sequence

import (
	"encoding/json"
	"fmt"
)

// Invoker is the invocation-transport collaborator a Sequence needs to
// actually dispatch a step (§1: out of scope, interface only). Satisfied
// locally by internal/orchestrate/platform.LocalInvoker for the sample
// handlers in cmd/localgw.
type Invoker interface {
	Invoke(arn string, payload []byte) (response []byte, err error)
}

// Sequence owns an ordered list of Steps and the completed-step responses
// map (§3 Sequence).
type Sequence struct {
	steps     []*Step
	responses Responses
}

// New returns an empty Sequence, as built by a conductor handler.
func New() *Sequence {
	return &Sequence{responses: Responses{}}
}

// IsSequence reports whether this Sequence has at least one step.
func (s *Sequence) IsSequence() bool { return len(s.steps) > 0 }

// IsDone reports whether no assigned step remains.
func (s *Sequence) IsDone() bool {
	for _, st := range s.steps {
		if st.Status == StatusAssigned {
			return false
		}
	}
	return true
}

// Remaining returns the steps still in status assigned.
func (s *Sequence) Remaining() []*Step {
	var out []*Step
	for _, st := range s.steps {
		if st.Status == StatusAssigned {
			out = append(out, st)
		}
	}
	return out
}

// Completed returns the steps in status completed, in step order.
func (s *Sequence) Completed() []*Step {
	var out []*Step
	for _, st := range s.steps {
		if st.Status == StatusCompleted {
			out = append(out, st)
		}
	}
	return out
}

// ActiveFn returns the current active step. Observing it when there is no
// active step but there are assigned ones promotes the first assigned step
// to active as a side effect — the intentional lazy-advance of §4.2.2.
func (s *Sequence) ActiveFn() *Step {
	for _, st := range s.steps {
		if st.Status == StatusActive {
			return st
		}
	}
	for _, st := range s.steps {
		if st.Status == StatusAssigned {
			st.advance(StatusActive)
			return st
		}
	}
	return nil
}

// NextFn returns the first assigned step without promoting it (read-only
// peek, unlike ActiveFn's lazy-advance).
func (s *Sequence) NextFn() *Step {
	for _, st := range s.steps {
		if st.Status == StatusAssigned {
			return st
		}
	}
	return nil
}

// Add appends a new task step (§4.2 add).
func (s *Sequence) Add(arn string, params map[string]any, fnType ...FunctionType) *Step {
	t := FunctionTypeTask
	if len(fnType) > 0 {
		t = fnType[0]
	}
	step := &Step{ARN: arn, Params: params, Type: t, Status: StatusAssigned}
	s.steps = append(s.steps, step)
	return step
}

// OnCondition appends a conditional step (§4.2 onCondition). At activation
// time the predicate is evaluated with the current responses map; if
// false, the step transitions directly to skipped.
func (s *Sequence) OnCondition(predicateKey string, args map[string]any, arn string, params map[string]any) *Step {
	step := s.Add(arn, params)
	step.Condition = &Condition{PredicateKey: predicateKey, Args: args}
	return step
}

// OnError attaches error-handling to the most recently added step (§4.2
// onError — "the active step at runtime").
func (s *Sequence) OnError(h ErrorHandler) error {
	if len(s.steps) == 0 {
		return fmt.Errorf("sequence: onError called with no steps added yet")
	}
	s.steps[len(s.steps)-1].OnErrorSpec = &h
	return nil
}

// evaluateCondition resolves a step's Condition against the current
// responses map, skipping the step if the predicate is false or unknown.
// Returns true if the step should be skipped.
func (s *Sequence) evaluateCondition(step *Step) bool {
	if step.Condition == nil {
		return false
	}
	fn, ok := lookupPredicate(step.Condition.PredicateKey)
	if !ok {
		return true
	}
	return !fn(s.responses, step.Condition.Args)
}

// Next finalizes the active step (marking it completed and recording its
// response), promotes the first assigned step to active, resolves its
// params in place, and returns the target ARN ready for invocation (§4.2
// next). The caller is responsible for boxing the sequence into an
// envelope (internal/orchestrate/envelope.Box) before invoking targetARN —
// kept out of this package so sequence does not import envelope (see
// DESIGN.md's cyclic-dependency resolution).
func (s *Sequence) Next(currentFnResponse any, request map[string]any) (targetARN string, err error) {
	if active := s.currentActive(); active != nil {
		active.advance(StatusCompleted)
		s.responses[active.ARN] = currentFnResponse
	}

	for {
		next := s.promoteNextAssigned()
		if next == nil {
			return "", fmt.Errorf("sequence: next called with no assigned step remaining")
		}
		if s.evaluateCondition(next) {
			next.advance(StatusSkipped)
			continue
		}
		resolved, rerr := ResolveParams(next.Params, s.responses, request)
		if rerr != nil {
			return "", rerr
		}
		next.Params = resolved
		return next.ARN, nil
	}
}

func (s *Sequence) currentActive() *Step {
	for _, st := range s.steps {
		if st.Status == StatusActive {
			return st
		}
	}
	return nil
}

func (s *Sequence) promoteNextAssigned() *Step {
	for _, st := range s.steps {
		if st.Status == StatusAssigned {
			st.advance(StatusActive)
			return st
		}
	}
	return nil
}

// Start is sugar over Next({}) on a freshly built Sequence: it resolves
// the first step, asks box to serialize this sequence into an invocable
// payload, and invokes it, returning the platform invocation response
// (§4.2 start).
func (s *Sequence) Start(invoker Invoker, request map[string]any, box func(seq *Sequence, request map[string]any) ([]byte, error)) ([]byte, error) {
	arn, err := s.Next(map[string]any{}, request)
	if err != nil {
		return nil, err
	}
	payload, err := box(s, request)
	if err != nil {
		return nil, err
	}
	return invoker.Invoke(arn, payload)
}

// IngestSteps replaces the step list on a freshly-built Sequence; merges
// prior conductor-set params of the new active step with the incoming
// request (incoming wins on key collision) — §4.2 ingestSteps.
func (s *Sequence) IngestSteps(currentRequest map[string]any, steps []*Step) error {
	if len(s.steps) > 0 {
		return fmt.Errorf("sequence: ingestSteps called on a sequence that already has steps")
	}
	s.steps = steps
	if active := s.currentActive(); active != nil {
		merged := make(map[string]any, len(active.Params)+len(currentRequest))
		for k, v := range active.Params {
			merged[k] = v
		}
		for k, v := range currentRequest {
			merged[k] = v
		}
		active.Params = merged
	}
	return nil
}

// serialForm is the wire shape of a Sequence (§4.2 serialize/deserialize).
type serialForm struct {
	IsSequence bool       `json:"isSequence"`
	Steps      []*Step    `json:"steps"`
	Responses  Responses  `json:"responses"`
}

// Serialize renders the Sequence to its wire form.
func (s *Sequence) Serialize() ([]byte, error) {
	return json.Marshal(serialForm{
		IsSequence: s.IsSequence(),
		Steps:      s.steps,
		Responses:  s.responses,
	})
}

// Deserialize reconstructs a Sequence from its wire form. Round-tripping
// Serialize then Deserialize yields an equivalent Sequence (§3 invariant,
// §8 property 1).
func Deserialize(data []byte) (*Sequence, error) {
	var sf serialForm
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("sequence: deserialize: %w", err)
	}
	responses := sf.Responses
	if responses == nil {
		responses = Responses{}
	}
	return &Sequence{steps: sf.Steps, responses: responses}, nil
}

// Steps exposes the step slice for read-only inspection (tests, tracker).
func (s *Sequence) Steps() []*Step { return s.steps }

// ResponsesMap exposes the accumulated responses map for read-only inspection.
func (s *Sequence) ResponsesMap() Responses { return s.responses }
