package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bianoble/depsync/internal/engine"
	"github.com/bianoble/depsync/internal/manifest"
	"github.com/bianoble/depsync/internal/report"
	"github.com/bianoble/depsync/internal/ui"
	"github.com/bianoble/depsync/pkg/depsync"
)

// Run flags shared by commands that reconcile or plan.
var (
	runStopOnFirstError bool
	runParallel         int
	runTimeout          time.Duration
	runRetries          int
)

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&runStopOnFirstError, "stop-on-first-error", false, "start no further dependencies after a failure")
	cmd.Flags().IntVar(&runParallel, "parallel", manifest.DefaultParallelism, "number of dependencies to process at once")
	cmd.Flags().DurationVar(&runTimeout, "timeout", manifest.DefaultTimeout, "limit for each git operation (0 disables)")
	cmd.Flags().IntVar(&runRetries, "retries", 0, "extra attempts after a transport or I/O failure")
}

// runSettings is the effective configuration of a run: manifest options
// overridden by explicitly set flags.
type runSettings struct {
	stopOnFirstError bool
	parallelism      int
	timeout          time.Duration
	retries          int
	stagingDir       string
}

func settingsFrom(cmd *cobra.Command, o manifest.Options, root string) (runSettings, error) {
	timeout, err := o.TimeoutOrDefault()
	if err != nil {
		return runSettings{}, fmt.Errorf("invalid timeout %q: %w", o.Timeout, err)
	}
	s := runSettings{
		stopOnFirstError: o.StopOnFirstErrorOrDefault(),
		parallelism:      o.ParallelismOrDefault(),
		timeout:          timeout,
		retries:          o.RetriesOrDefault(),
		stagingDir:       o.StagingDir,
	}
	if s.stagingDir != "" && !filepath.IsAbs(s.stagingDir) {
		s.stagingDir = filepath.Join(root, s.stagingDir)
	}

	flags := cmd.Flags()
	if flags.Changed("stop-on-first-error") {
		s.stopOnFirstError = runStopOnFirstError
	}
	if flags.Changed("parallel") {
		s.parallelism = runParallel
	}
	if flags.Changed("timeout") {
		s.timeout = runTimeout
	}
	if flags.Changed("retries") {
		s.retries = runRetries
	}
	if s.parallelism < 1 {
		return runSettings{}, fmt.Errorf("--parallel must be at least 1, got %d", s.parallelism)
	}
	if s.retries < 0 {
		return runSettings{}, fmt.Errorf("--retries must not be negative, got %d", s.retries)
	}
	if s.timeout < 0 {
		return runSettings{}, fmt.Errorf("--timeout must not be negative, got %s", s.timeout)
	}
	return s, nil
}

// loadManifest discovers, merges and validates the manifest layers.
func loadManifest() (*manifest.Manifest, error) {
	m, layers, err := manifest.LoadLayered(manifest.DiscoverOptions{
		ProjectPath: configPath,
		NoInherit:   noInherit || manifest.EnvNoInherit(),
	})
	if err != nil {
		return nil, fmt.Errorf("loading manifest %s: %w", configPath, err)
	}
	for _, l := range layers {
		if l.Loaded {
			detail("manifest (%s): %s", l.Level, l.Path)
		}
	}
	return m, nil
}

// projectRoot returns the directory containing the manifest file.
func projectRoot() (string, error) {
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return "", fmt.Errorf("resolving manifest path: %w", err)
	}
	return filepath.Dir(abs), nil
}

// newClient builds a library client for s. Stage events are printed in
// verbose mode.
func newClient(s runSettings, progress *ui.Progress) (*depsync.Client, error) {
	opts := depsync.Options{
		Timeout:    s.timeout,
		Retries:    s.retries,
		StagingDir: s.stagingDir,
	}
	if verbose && progress != nil {
		opts.Notify = progress.Event
	}
	return depsync.New(opts)
}

func newStyler() *ui.Styler {
	return ui.NewStyler(os.Stdout, noColor)
}

// summaryOrder lists actions in the order a summary line reports them.
var summaryOrder = []engine.Action{
	engine.ActionCloned,
	engine.ActionUpdated,
	engine.ActionNoOp,
	engine.ActionLeftStale,
	engine.ActionFailedConflict,
	engine.ActionFailedTransport,
	engine.ActionFailedIO,
}

// summarize returns e.g. "1 cloned, 2 noop" for the actions present in res.
func summarize(res engine.RunResult) string {
	counts := res.Counts()
	var parts []string
	for _, a := range summaryOrder {
		if n := counts[a]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, a))
		}
	}
	if len(parts) == 0 {
		return "nothing to do"
	}
	return strings.Join(parts, ", ")
}

// writeReport saves the run report unless --report is empty.
func writeReport(root string, res engine.RunResult, ds []engine.Descriptor) error {
	if reportPath == "" {
		return nil
	}
	path := reportPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	if err := report.Save(path, report.FromResult(res, ds, time.Now())); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	detail("report: %s", path)
	return nil
}

// showOutcomes prints the outcome table unless quiet, then each failure.
func showOutcomes(res engine.RunResult) {
	if !quiet && len(res.Outcomes) > 0 {
		ui.RenderOutcomes(os.Stdout, res.Outcomes, newStyler())
	}
	for _, o := range res.Failed() {
		errorf("%s: %v", o.Label(), o.Err)
	}
}

// info prints a line unless quiet mode is active.
func info(format string, args ...any) {
	if !quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// detail prints a line only in verbose mode.
func detail(format string, args ...any) {
	if verbose {
		fmt.Printf("  "+format+"\n", args...)
	}
}

// errorf prints an error message to stderr.
func errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
