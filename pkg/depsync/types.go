package depsync

import (
	"github.com/bianoble/depsync/internal/engine"
	"github.com/bianoble/depsync/internal/revision"
)

// Type aliases re-export engine types as the public API.

type Descriptor = engine.Descriptor
type Policy = engine.Policy
type Action = engine.Action
type Outcome = engine.Outcome
type RunResult = engine.RunResult
type Event = engine.Event
type Stage = engine.Stage
type Relation = revision.Relation

const (
	PolicyManual = engine.PolicyManual
	PolicyAuto   = engine.PolicyAuto
)

const (
	ActionNoOp            = engine.ActionNoOp
	ActionCloned          = engine.ActionCloned
	ActionUpdated         = engine.ActionUpdated
	ActionLeftStale       = engine.ActionLeftStale
	ActionFailedConflict  = engine.ActionFailedConflict
	ActionFailedTransport = engine.ActionFailedTransport
	ActionFailedIO        = engine.ActionFailedIO
)

// ParsePolicy parses an update policy name.
func ParsePolicy(s string) (Policy, error) {
	return engine.ParsePolicy(s)
}
