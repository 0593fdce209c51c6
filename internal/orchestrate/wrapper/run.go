package wrapper

import (
	"time"

	"orchestrate/runtime/internal/infrastructure/telemetry/tracer"
	"orchestrate/runtime/internal/orchestrate/sequence"
)

// run holds the per-invocation mutable state the source kept at module
// level (spec §5 "module-level mutable state... implementations must
// reset it at handler entry to avoid cross-invocation bleed"). Go has no
// equivalent of a reused module scope between invocations, so this is
// simply a struct built fresh at the top of every call instead — see
// DESIGN.md's open-question resolution on module-level state.
type run struct {
	stage             Stage
	correlationID     string
	requestID         string
	newSequence       *sequence.Sequence
	successStatusCode int
	contentType       string
	responseHeaders   map[string]string

	startedAt time.Time
	stageSpan tracer.Span
}

func newRun(correlationID, requestID string) *run {
	return &run{
		stage:           StageInitializing,
		correlationID:   correlationID,
		requestID:       requestID,
		responseHeaders: map[string]string{},
		startedAt:       time.Now(),
	}
}

// finishStageSpan closes whatever stage span is currently open. Safe to
// call repeatedly, and a no-op when tracing is disabled (stageSpan stays
// nil throughout).
func (r *run) finishStageSpan() {
	if r.stageSpan != nil {
		r.stageSpan.Finish()
		r.stageSpan = nil
	}
}
