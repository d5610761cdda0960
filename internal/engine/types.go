package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Policy says what to do when a working copy can be fast-forwarded.
type Policy string

const (
	// PolicyManual leaves a stale working copy alone and reports it.
	PolicyManual Policy = "manual"
	// PolicyAuto fast-forwards a clean stale working copy.
	PolicyAuto Policy = "auto"
)

// ParsePolicy accepts "manual", "auto" and the empty string, which means manual.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "manual":
		return PolicyManual, nil
	case "auto", "autoupdate", "auto-update":
		return PolicyAuto, nil
	}
	return "", fmt.Errorf("unknown update policy %q (must be manual or auto)", s)
}

// Descriptor names one dependency: where it comes from, where it lives, and
// which revision it should be at.
type Descriptor struct {
	Name     string
	Source   string
	Path     string
	Revision string // tag, branch, commit, semver constraint, or "" for latest
	Policy   Policy
}

// Validate checks that the descriptor can be reconciled.
func (d Descriptor) Validate() error {
	var errs []error
	if strings.TrimSpace(d.Source) == "" {
		errs = append(errs, errors.New("source is required"))
	}
	if strings.TrimSpace(d.Path) == "" {
		errs = append(errs, errors.New("path is required"))
	}
	switch d.Policy {
	case PolicyManual, PolicyAuto, "":
	default:
		errs = append(errs, fmt.Errorf("unknown update policy %q", d.Policy))
	}
	return errors.Join(errs...)
}

// Action is the result of reconciling one dependency.
type Action string

const (
	ActionNoOp            Action = "noop"
	ActionCloned          Action = "cloned"
	ActionUpdated         Action = "updated"
	ActionLeftStale       Action = "left-stale"
	ActionFailedConflict  Action = "failed-conflict"
	ActionFailedTransport Action = "failed-transport"
	ActionFailedIO        Action = "failed-io"
)

// Failed reports whether the action is a failure.
func (a Action) Failed() bool {
	switch a {
	case ActionFailedConflict, ActionFailedTransport, ActionFailedIO:
		return true
	}
	return false
}
