package wrapper

// Stage names the ordered progress states a wrapped handler passes
// through (spec §4.5), recorded on the invocation's *run so any failure
// can name where it happened.
type Stage string

const (
	StageInitializing          Stage = "initializing"
	StageUnboxing              Stage = "unboxing"
	StagePrep                  Stage = "prep"
	StageRunningFn             Stage = "running-fn"
	StageFnComplete            Stage = "fn-complete"
	StageInvokeNext            Stage = "invoke-next"
	StageSequenceStarting      Stage = "sequence-starting"
	StageSequenceTrackerStarting Stage = "sequence-tracker-starting"
	StageReturningValues       Stage = "returning-values"
)
