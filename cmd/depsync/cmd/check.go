package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bianoble/depsync/internal/engine"
	"github.com/bianoble/depsync/pkg/depsync"
)

var checkCmd = &cobra.Command{
	Use:   "check [name...]",
	Short: "Verify that every dependency is at its desired revision",
	Long: `Plans every dependency and fails unless all of them are already at their
desired revision. Exit 0 if everything matches; exit non-zero otherwise.
Suitable for CI pipelines.`,
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
		client, err := newClient(settings, nil)
		if err != nil {
			return err
		}

		res := client.PlanAll(cmd.Context(), ds, depsync.EnsureOptions{Parallelism: settings.parallelism})
		if res.Canceled {
			return errors.New("interrupted before all dependencies were checked")
		}

		var pending []engine.Outcome
		for _, o := range res.Outcomes {
			if o.Action != engine.ActionNoOp {
				pending = append(pending, o)
			}
		}
		if len(pending) == 0 {
			info("All dependencies are at their desired revisions.")
			return nil
		}

		for _, o := range pending {
			info("  %-16s %s", o.Action, o.Label())
			detail("desired: %s", o.DesiredRevision)
			detail("current: %s", o.FinalRevision)
			if o.Err != nil {
				detail("error:   %v", o.Err)
			}
		}
		return fmt.Errorf("check failed: %d dependency(ies) not at desired revision", len(pending))
	},
}

func init() {
	addRunFlags(checkCmd)
	rootCmd.AddCommand(checkCmd)
}
