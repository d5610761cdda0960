package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bianoble/depsync/internal/engine"
	"github.com/bianoble/depsync/internal/ui"
	"github.com/bianoble/depsync/pkg/depsync"
)

var ensureDryRun bool

var ensureCmd = &cobra.Command{
	Use:   "ensure [name...]",
	Short: "Bring dependencies to their desired revisions",
	Long: `Clones missing dependencies and fast-forwards those whose policy is auto.
Working copies with local changes, diverged history or untracked files that
would be overwritten are left untouched and reported as conflicts.

With no arguments every dependency in the manifest is processed. A report of
the run is written next to the manifest unless --report is empty.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadManifest()
		if err != nil {
			return err
		}
		root, err := projectRoot()
		if err != nil {
			return err
		}
		ds, err := m.Descriptors(root, args)
		if err != nil {
			return err
		}
		settings, err := settingsFrom(cmd, m.Options, root)
		if err != nil {
			return err
		}

		styler := newStyler()
		progress := ui.NewProgress(os.Stdout, styler, len(ds))
		client, err := newClient(settings, progress)
		if err != nil {
			return err
		}

		opts := depsync.EnsureOptions{
			StopOnFirstError: settings.stopOnFirstError,
			Parallelism:      settings.parallelism,
		}
		if verbose {
			opts.OnOutcome = progress.Done
		}

		var res engine.RunResult
		if ensureDryRun {
			info("Dry run, no working copies will be changed.")
			res = client.PlanAll(cmd.Context(), ds, opts)
		} else {
			res = client.EnsureAll(cmd.Context(), ds, opts)
			if err := writeReport(root, res, ds); err != nil {
				return err
			}
		}

		showOutcomes(res)
		info("")
		info("Ensure complete: %s.", summarize(res))

		switch {
		case res.Canceled:
			return errors.New("interrupted before all dependencies were processed")
		case res.Stopped:
			info("Stopped after the first failure; %d of %d dependencies processed.", len(res.Outcomes), len(ds))
		}
		if failed := res.Failed(); len(failed) > 0 {
			return fmt.Errorf("%d dependency(ies) failed", len(failed))
		}
		return nil
	},
}

func init() {
	addRunFlags(ensureCmd)
	ensureCmd.Flags().BoolVar(&ensureDryRun, "dry-run", false, "show what would change without touching working copies")
	rootCmd.AddCommand(ensureCmd)
}
