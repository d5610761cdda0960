package engine

import "github.com/bianoble/depsync/internal/revision"

// Outcome holds the result of reconciling one dependency.
type Outcome struct {
	Name     string
	Path     string
	Action   Action
	Relation revision.Relation

	// DesiredRevision is the commit the revision spec resolved to; empty when
	// resolution was not needed or failed.
	DesiredRevision string
	// DesiredRef is the branch or tag the revision spec resolved through.
	DesiredRef string
	// FinalRevision is the commit checked out when the outcome was produced.
	FinalRevision string

	Message string
	Err     error

	// Planned is set on outcomes produced by Plan; Action is what Ensure
	// would do.
	Planned bool
}

// Label returns Name, or Path when the dependency is unnamed.
func (o Outcome) Label() string {
	return label(o.Name, o.Path)
}

// RunResult holds the outcomes of a Runner run in input order.
type RunResult struct {
	Outcomes []Outcome
	// Stopped is set when a failure ended the run early.
	Stopped bool
	// Canceled is set when the context ended the run early.
	Canceled bool
}

// Failed returns the failed outcomes.
func (r RunResult) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Action.Failed() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Counts tallies outcomes by action.
func (r RunResult) Counts() map[Action]int {
	counts := make(map[Action]int)
	for _, o := range r.Outcomes {
		counts[o.Action]++
	}
	return counts
}

// Stage identifies a step of a reconciliation for progress events.
type Stage string

const (
	StageInspect Stage = "inspect"
	StageResolve Stage = "resolve"
	StageClone   Stage = "clone"
	StageUpdate  Stage = "update"
	StageVerify  Stage = "verify"
)

// Event reports progress of a reconciliation.
type Event struct {
	Name    string
	Path    string
	Stage   Stage
	Message string
}

// Label returns Name, or Path when the dependency is unnamed.
func (e Event) Label() string {
	return label(e.Name, e.Path)
}

func label(name, path string) string {
	if name != "" {
		return name
	}
	return path
}
