package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bianoble/depsync/internal/engine"
	"github.com/bianoble/depsync/internal/manifest"
	"github.com/bianoble/depsync/internal/ui"
	"github.com/bianoble/depsync/pkg/depsync"
)

var (
	getRevision string
	getPolicy   string
)

var getCmd = &cobra.Command{
	Use:   "get <source> <path>",
	Short: "Ensure a single dependency without a manifest",
	Long: `Brings the working copy at <path> to the desired revision of <source>,
applying the same safety rules as 'ensure'. No manifest is read and no report
is written.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		policy, err := engine.ParsePolicy(getPolicy)
		if err != nil {
			return err
		}
		path, err := filepath.Abs(args[1])
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}
		settings, err := settingsFrom(cmd, manifest.Options{}, filepath.Dir(path))
		if err != nil {
			return err
		}

		progress := ui.NewProgress(cmd.OutOrStdout(), newStyler(), 1)
		client, err := newClient(settings, progress)
		if err != nil {
			return err
		}

		d := depsync.Descriptor{
			Source:   args[0],
			Path:     path,
			Revision: getRevision,
			Policy:   policy,
		}
		out := client.Ensure(cmd.Context(), d)
		showOutcomes(engine.RunResult{Outcomes: []engine.Outcome{out}})
		if out.Action.Failed() {
			return fmt.Errorf("%s: %s", args[1], out.Action)
		}
		return nil
	},
}

func init() {
	addRunFlags(getCmd)
	getCmd.Flags().StringVar(&getRevision, "revision", "", "branch, tag, commit or semver constraint (default: remote HEAD)")
	getCmd.Flags().StringVar(&getPolicy, "policy", string(engine.PolicyManual), "update policy: manual or auto")
	rootCmd.AddCommand(getCmd)
}
