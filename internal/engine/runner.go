package engine

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Ensurer reconciles a single dependency. *Engine implements it.
type Ensurer interface {
	Ensure(ctx context.Context, d Descriptor) Outcome
}

// Planner adapts e so that a Runner produces plans instead of applying them.
func Planner(e *Engine) Ensurer {
	return planner{e}
}

type planner struct{ e *Engine }

func (p planner) Ensure(ctx context.Context, d Descriptor) Outcome {
	return p.e.Plan(ctx, d)
}

// RunOptions configures a Runner run.
type RunOptions struct {
	// StopOnFirstError prevents further descriptors from starting once one
	// has failed. Descriptors already running are allowed to finish.
	StopOnFirstError bool
	// Parallelism bounds how many descriptors are reconciled at once.
	// Values below 2 mean sequential.
	Parallelism int
	// OnOutcome, when set, is called as each descriptor finishes. With
	// Parallelism above 1 it is called from several goroutines.
	OnOutcome func(Outcome)
}

// Runner reconciles a set of dependencies.
type Runner struct {
	Engine Ensurer
}

// Run reconciles descriptors and returns the outcomes of those that were
// started, in input order. One failure never affects the others unless
// StopOnFirstError is set. Cancelling ctx stops new descriptors from starting;
// completed work is kept.
func (r *Runner) Run(ctx context.Context, descriptors []Descriptor, opts RunOptions) RunResult {
	limit := opts.Parallelism
	if limit < 1 {
		limit = 1
	}

	results := make([]*Outcome, len(descriptors))
	var stopped atomic.Bool

	// A failure never cancels siblings that are already running.
	var g errgroup.Group
	g.SetLimit(limit)
	for i, d := range descriptors {
		if ctx.Err() != nil || stopped.Load() {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil || stopped.Load() {
				return nil
			}
			o := r.Engine.Ensure(ctx, d)
			results[i] = &o
			if opts.StopOnFirstError && o.Action.Failed() {
				stopped.Store(true)
			}
			if opts.OnOutcome != nil {
				opts.OnOutcome(o)
			}
			return nil
		})
	}
	_ = g.Wait()

	res := RunResult{Stopped: stopped.Load()}
	for _, o := range results {
		if o == nil {
			if ctx.Err() != nil {
				res.Canceled = true
			}
			continue
		}
		res.Outcomes = append(res.Outcomes, *o)
	}
	return res
}
