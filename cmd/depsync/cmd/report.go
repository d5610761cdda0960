package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bianoble/depsync/internal/report"
	"github.com/bianoble/depsync/internal/ui"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the report of the last ensure run",
	RunE: func(cmd *cobra.Command, args []string) error {
		if reportPath == "" {
			return fmt.Errorf("no report path configured")
		}
		path := reportPath
		if !filepath.IsAbs(path) {
			root, err := projectRoot()
			if err != nil {
				return err
			}
			path = filepath.Join(root, path)
		}

		r, err := report.Load(path)
		if errors.Is(err, os.ErrNotExist) {
			info("No report found at %s. Run 'depsync ensure' first.", path)
			return nil
		}
		if err != nil {
			return fmt.Errorf("loading report %s: %w", path, err)
		}

		info("Generated %s", r.GeneratedAt.Local().Format("2006-01-02 15:04:05"))
		ui.RenderReport(os.Stdout, r, newStyler())
		if r.Stopped {
			info("The run stopped after its first failure.")
		}
		if r.Canceled {
			info("The run was interrupted.")
		}
		if failed := r.Failed(); len(failed) > 0 {
			return fmt.Errorf("%d dependency(ies) failed in the last run", len(failed))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
