package engine

import (
	"github.com/bianoble/depsync/internal/inspect"
	"github.com/bianoble/depsync/internal/revision"
)

// Step is the write a decision requires.
type Step int

const (
	StepNone Step = iota
	StepClone
	StepUpdate
)

// Decision is the verdict of the decision table for one dependency.
type Decision struct {
	Step Step
	// Action is the outcome once Step has succeeded; for StepNone it is final.
	Action Action
	Reason string
}

// Decide applies the reconciliation table. It is a pure function of the local
// state, the relation to the desired revision and the policy. The relation is
// ignored unless state is a valid, clean working copy.
func Decide(state inspect.State, rel revision.Relation, policy Policy) Decision {
	switch {
	case !state.Exists:
		return Decision{Step: StepClone, Action: ActionCloned, Reason: "path does not exist"}
	case state.Corrupted:
		return Decision{Action: ActionFailedConflict, Reason: "working copy is corrupted"}
	case !state.Valid && state.Empty:
		return Decision{Step: StepClone, Action: ActionCloned, Reason: "directory is empty"}
	case !state.Valid:
		return Decision{Action: ActionFailedConflict, Reason: "path exists and is not a working copy"}
	case state.HasUncommittedChanges:
		return Decision{Action: ActionFailedConflict, Reason: "working copy has uncommitted changes"}
	}

	switch rel {
	case revision.Identical:
		return Decision{Action: ActionNoOp, Reason: "already at desired revision"}
	case revision.FastForwardable:
		if policy != PolicyAuto {
			return Decision{Action: ActionLeftStale, Reason: "behind desired revision; policy is manual"}
		}
		if state.HasUntrackedConflictingFiles {
			return Decision{Action: ActionFailedConflict, Reason: "untracked files would be overwritten"}
		}
		return Decision{Step: StepUpdate, Action: ActionUpdated, Reason: "fast-forward to desired revision"}
	case revision.Diverged:
		return Decision{Action: ActionFailedConflict, Reason: "history has diverged from desired revision"}
	}
	return Decision{Action: ActionFailedTransport, Reason: "desired revision could not be related to the working copy"}
}

// errorKind returns the error kind a failing decision carries.
func (d Decision) errorKind() ErrorKind {
	if d.Action == ActionFailedConflict {
		return KindConflict
	}
	return KindTransport
}
