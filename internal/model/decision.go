package model

import "time"

type DecisionKind string

const (
	DecisionCopy        DecisionKind = "COPY"
	DecisionDelete      DecisionKind = "DELETE"
	DecisionSkipDeleted DecisionKind = "SKIP_DELETED"
	DecisionSkipSafety  DecisionKind = "SKIP_SAFETY"
)

// SyncDecision is the outcome of reconciling one change event. Src is only
// set for copies; Target is the path that was written, deleted or skipped.
type SyncDecision struct {
	Kind   DecisionKind
	Src    string
	Target string
	Err    error
	At     time.Time
}

func (d SyncDecision) Failed() bool {
	return d.Err != nil
}
