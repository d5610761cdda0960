// Package depsync provides the public Go library API for depsync.
//
// depsync keeps local working copies of source dependencies at the
// revisions a project asks for, without ever discarding local work.
//
// # Basic Usage
//
//	client, err := depsync.New(depsync.Options{Timeout: 5 * time.Minute})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	out := client.Ensure(ctx, depsync.Descriptor{
//	    Source:   "https://github.com/example/lib.git",
//	    Path:     "third_party/lib",
//	    Revision: "^1.2",
//	    Policy:   depsync.PolicyAuto,
//	})
//	if out.Action.Failed() {
//	    log.Printf("%s: %v", out.Path, out.Err)
//	}
package depsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/fortify/retry"

	"github.com/bianoble/depsync/internal/engine"
	"github.com/bianoble/depsync/internal/transport"
)

// DefaultRetryDelay is the initial backoff between retries.
const DefaultRetryDelay = time.Second

// Options configures a depsync client.
type Options struct {
	// Timeout bounds each git operation. Zero means no limit.
	Timeout time.Duration

	// Retries is how many extra attempts a dependency gets after a transport
	// or I/O failure. Conflicts are never retried.
	Retries int

	// RetryDelay is the initial backoff between attempts. It doubles on each
	// retry. Zero means DefaultRetryDelay.
	RetryDelay time.Duration

	// StagingDir holds clones while they are built. Empty means next to the
	// target path.
	StagingDir string

	// Notify receives progress events. It may be called concurrently.
	Notify func(Event)
}

// Client reconciles dependencies. It is safe for concurrent use.
type Client struct {
	engine  *engine.Engine
	retries int
	delay   time.Duration
}

// New creates a Client backed by the git command line.
func New(opts Options) (*Client, error) {
	g, err := transport.NewGit()
	if err != nil {
		return nil, fmt.Errorf("initializing git transport: %w", err)
	}
	return NewWithTransport(transport.WithTimeout(g, opts.Timeout), opts), nil
}

// NewWithTransport creates a Client that uses t for all repository access.
// opts.Timeout is ignored; wrap t with the desired deadline instead.
func NewWithTransport(t transport.Transport, opts Options) *Client {
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	return &Client{
		engine: &engine.Engine{
			Transport:  t,
			StagingDir: opts.StagingDir,
			Notify:     opts.Notify,
		},
		retries: max(opts.Retries, 0),
		delay:   delay,
	}
}

// errRetryable marks an attempt whose outcome may succeed if repeated.
var errRetryable = errors.New("retryable failure")

// Ensure reconciles one dependency. Transport and I/O failures are retried
// up to Options.Retries times; the last attempt's outcome is returned.
func (c *Client) Ensure(ctx context.Context, d Descriptor) Outcome {
	if c.retries == 0 {
		return c.engine.Ensure(ctx, d)
	}

	r := retry.New[Outcome](retry.Config{
		MaxAttempts:   c.retries + 1,
		InitialDelay:  c.delay,
		BackoffPolicy: retry.BackoffExponential,
	})
	var last Outcome
	_, _ = r.Do(ctx, func(ctx context.Context) (Outcome, error) {
		last = c.engine.Ensure(ctx, d)
		if retryable(last.Action) {
			return last, errRetryable
		}
		return last, nil
	})
	return last
}

func retryable(a Action) bool {
	return a == ActionFailedTransport || a == ActionFailedIO
}

// Plan reports what Ensure would do for d without changing anything.
func (c *Client) Plan(ctx context.Context, d Descriptor) Outcome {
	return c.engine.Plan(ctx, d)
}

// EnsureOptions configures a multi-dependency run.
type EnsureOptions struct {
	StopOnFirstError bool
	Parallelism      int
	// OnOutcome is called as each dependency finishes. It may be called
	// concurrently.
	OnOutcome func(Outcome)
}

// EnsureAll reconciles every descriptor. Outcomes are reported in input
// order for each descriptor that was started.
func (c *Client) EnsureAll(ctx context.Context, ds []Descriptor, opts EnsureOptions) RunResult {
	r := &engine.Runner{Engine: c}
	return r.Run(ctx, ds, engine.RunOptions{
		StopOnFirstError: opts.StopOnFirstError,
		Parallelism:      opts.Parallelism,
		OnOutcome:        opts.OnOutcome,
	})
}

// PlanAll plans every descriptor. Plans never stop early on failure.
func (c *Client) PlanAll(ctx context.Context, ds []Descriptor, opts EnsureOptions) RunResult {
	r := &engine.Runner{Engine: engine.Planner(c.engine)}
	return r.Run(ctx, ds, engine.RunOptions{
		Parallelism: opts.Parallelism,
		OnOutcome:   opts.OnOutcome,
	})
}
