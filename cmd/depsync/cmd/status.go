package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bianoble/depsync/pkg/depsync"
)

var statusCmd = &cobra.Command{
	Use:   "status [name...]",
	Short: "Show how each dependency relates to its desired revision",
	Long: `Inspects every working copy, resolves its desired revision and shows the
action 'ensure' would take. Nothing is written.`,
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
		if len(res.Outcomes) == 0 {
			info("No dependencies defined.")
			return nil
		}
		showOutcomes(res)
		return nil
	},
}

func init() {
	addRunFlags(statusCmd)
	rootCmd.AddCommand(statusCmd)
}
