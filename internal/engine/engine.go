// Package engine reconciles dependency working copies with their desired
// revisions. It inspects local state, resolves and relates the desired
// revision, decides on the minimal safe action and carries it out.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/bianoble/depsync/internal/inspect"
	"github.com/bianoble/depsync/internal/revision"
	"github.com/bianoble/depsync/internal/sandbox"
	"github.com/bianoble/depsync/internal/transport"
)

// Engine reconciles dependencies. The zero value is not usable; Transport
// must be set. An Engine is safe for concurrent use: calls for the same path
// are serialized.
type Engine struct {
	Transport transport.Transport

	// StagingDir holds clones while they are built. Empty means next to the
	// target, which keeps the final move on one filesystem.
	StagingDir string

	// Notify, when set, receives progress events. With a parallel Runner it is
	// called from several goroutines.
	Notify func(Event)

	locks pathLocks
}

// Ensure brings the working copy at d.Path to d.Revision if that can be done
// safely, and reports what happened. It never returns a partially applied
// outcome: clones are built aside and moved into place, and updates are
// fast-forwards of clean working copies only.
func (e *Engine) Ensure(ctx context.Context, d Descriptor) Outcome {
	return e.reconcile(ctx, d, true)
}

// Plan reports what Ensure would do without writing to the working copy.
func (e *Engine) Plan(ctx context.Context, d Descriptor) Outcome {
	return e.reconcile(ctx, d, false)
}

func (e *Engine) reconcile(ctx context.Context, d Descriptor, apply bool) Outcome {
	out := Outcome{Name: d.Name, Path: d.Path, Planned: !apply}

	if err := d.Validate(); err != nil {
		return failed(out, &Error{Kind: KindConflict, Path: d.Path, Err: fmt.Errorf("invalid descriptor: %w", err)})
	}
	// A symlinked dependency directory is worked on through its target, so
	// placing a clone fills the directory instead of replacing the link.
	path, err := sandbox.CanonicalPath(d.Path)
	if err != nil {
		return failed(out, &Error{Kind: KindIO, Path: d.Path, Err: err})
	}

	// Held through post-condition verification.
	release := e.locks.lock(path)
	defer release()

	inspector := &inspect.Inspector{Transport: e.Transport}
	comparator := &revision.Comparator{Transport: e.Transport}
	spec := revision.ParseSpec(d.Revision)

	e.notify(d, StageInspect, path)
	state, err := inspector.Inspect(ctx, path)
	if err != nil {
		return failed(out, &Error{Kind: errorKindOf(err), Path: d.Path, Err: err})
	}
	out.FinalRevision = state.CurrentRevision

	var (
		target transport.Target
		cause  error
	)
	switch {
	case state.Valid && state.HasUncommittedChanges:
		// Local edits are never touched, so the working copy is not
		// classified; resolving only asks the remote.
		e.notify(d, StageResolve, spec.String())
		target, cause = comparator.Resolve(ctx, d.Source, spec)
	case state.Valid:
		e.notify(d, StageResolve, spec.String())
		comparison, err := comparator.Compare(ctx, d.Source, path, state.CurrentRevision, spec)
		out.Relation = comparison.Relation
		target, cause = comparison.Target, comparison.Err
		if err != nil {
			return failed(out, &Error{Kind: KindTransport, Path: d.Path, Expected: spec.String(), Err: err})
		}
		if comparison.Relation == revision.FastForwardable && d.Policy == PolicyAuto && len(state.Untracked) > 0 {
			hits, err := e.Transport.Collisions(ctx, path, target.Commit, state.Untracked)
			if err != nil {
				return failed(out, &Error{Kind: KindTransport, Path: d.Path, Err: fmt.Errorf("checking untracked files: %w", err)})
			}
			state.HasUntrackedConflictingFiles = len(hits) > 0
			if len(hits) > 0 {
				cause = fmt.Errorf("untracked files collide with %s: %v", target, hits)
			}
		}
	case !state.Exists || state.Empty:
		e.notify(d, StageResolve, spec.String())
		target, err = comparator.Resolve(ctx, d.Source, spec)
		if err != nil {
			out.Relation = revision.Unknown
			return failed(out, &Error{Kind: KindTransport, Path: d.Path, Expected: spec.String(), Err: err})
		}
		out.Relation = revision.RemoteOnly
	default:
		cause = state.Problem
	}

	decision := Decide(state, out.Relation, d.Policy)
	out.Action = decision.Action
	out.Message = decision.Reason
	out.DesiredRevision = target.Commit
	out.DesiredRef = target.Ref

	if decision.Action.Failed() {
		reason := errors.New(decision.Reason)
		if cause != nil {
			reason = fmt.Errorf("%s: %w", decision.Reason, cause)
		}
		if state.HasUncommittedChanges {
			reason = fmt.Errorf("%s: %v", decision.Reason, state.Modified)
		}
		out.Err = &Error{
			Kind:     decision.errorKind(),
			Path:     d.Path,
			Expected: describeTarget(target, spec),
			Actual:   transport.ShortCommit(state.CurrentRevision),
			Err:      reason,
		}
		return out
	}
	if !apply || decision.Step == StepNone {
		return out
	}

	switch decision.Step {
	case StepClone:
		e.notify(d, StageClone, target.String())
		err = e.clone(ctx, d.Source, path, target)
	case StepUpdate:
		e.notify(d, StageUpdate, target.String())
		err = e.update(ctx, path, target)
	}
	if err != nil {
		out.Message = ""
		return failed(out, withPath(err, d.Path))
	}

	e.notify(d, StageVerify, path)
	final, err := e.verify(ctx, path, target)
	out.FinalRevision = final
	if err != nil {
		return failed(out, withPath(err, d.Path))
	}
	return out
}

// clone builds a working copy in a staging directory and moves it to path.
func (e *Engine) clone(ctx context.Context, source, path string, target transport.Target) error {
	undo, err := sandbox.MkdirParents(path)
	if err != nil {
		return &Error{Kind: KindIO, Err: err}
	}
	placed := false
	defer func() {
		if !placed {
			undo()
		}
	}()

	if e.StagingDir != "" {
		if err := os.MkdirAll(e.StagingDir, 0755); err != nil {
			return &Error{Kind: KindIO, Err: fmt.Errorf("creating staging root: %w", err)}
		}
	}
	staging := sandbox.StagingPath(e.StagingDir, path)
	// Runs after the transport call has returned, so git has exited.
	defer os.RemoveAll(staging)

	if err := e.Transport.Clone(ctx, source, staging, target); err != nil {
		return &Error{Kind: KindTransport, Err: err}
	}
	if _, err := e.verify(ctx, staging, target); err != nil {
		return err
	}
	if err := sandbox.Place(staging, path); err != nil {
		return &Error{Kind: KindIO, Err: err}
	}
	placed = true
	return nil
}

func (e *Engine) update(ctx context.Context, path string, target transport.Target) error {
	if err := e.Transport.FetchAndCheckout(ctx, path, target); err != nil {
		return &Error{Kind: KindTransport, Err: err}
	}
	return nil
}

// verify re-inspects dir and checks it is a working copy at target. It
// returns the commit found.
func (e *Engine) verify(ctx context.Context, dir string, target transport.Target) (string, error) {
	inspector := &inspect.Inspector{Transport: e.Transport}
	state, err := inspector.Inspect(ctx, dir)
	if err != nil {
		return "", &Error{Kind: errorKindOf(err), Err: fmt.Errorf("verifying: %w", err)}
	}
	if !state.Valid {
		return state.CurrentRevision, &Error{
			Kind:     KindInvariant,
			Expected: target.String(),
			Actual:   "no valid working copy",
			Err:      state.Problem,
		}
	}
	if !revision.SameCommit(state.CurrentRevision, target.Commit) {
		return state.CurrentRevision, &Error{
			Kind:     KindInvariant,
			Expected: target.String(),
			Actual:   transport.ShortCommit(state.CurrentRevision),
		}
	}
	return state.CurrentRevision, nil
}

func (e *Engine) notify(d Descriptor, stage Stage, msg string) {
	if e.Notify != nil {
		e.Notify(Event{Name: d.Name, Path: d.Path, Stage: stage, Message: msg})
	}
}

func failed(out Outcome, err *Error) Outcome {
	out.Action = failureAction(err.Kind)
	out.Err = err
	return out
}

// withPath returns err as an *Error carrying path.
func withPath(err error, path string) *Error {
	var ee *Error
	if !errors.As(err, &ee) {
		ee = &Error{Kind: errorKindOf(err), Err: err}
	}
	if ee.Path == "" {
		ee.Path = path
	}
	return ee
}

// errorKindOf classifies errors that did not come from the engine itself.
func errorKindOf(err error) ErrorKind {
	if transport.IsError(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindTransport
	}
	return KindIO
}

func describeTarget(target transport.Target, spec revision.Spec) string {
	if target.Commit != "" {
		return target.String()
	}
	return spec.String()
}
