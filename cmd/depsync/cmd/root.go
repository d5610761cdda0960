package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bianoble/depsync/internal/manifest"
	"github.com/bianoble/depsync/internal/report"
)

// Build-time variables set via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	configPath string
	reportPath string
	verbose    bool
	quiet      bool
	noColor    bool
	noInherit  bool
)

var rootCmd = &cobra.Command{
	Use:   "depsync",
	Short: "Keep source dependencies at their desired revisions",
	Long: `depsync keeps local working copies of external repositories at the
revisions a project asks for. It clones what is missing, fast-forwards what is
behind when allowed, and never overwrites local changes or diverged history.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("depsync %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", manifest.FileName, "path to manifest file")
	rootCmd.PersistentFlags().StringVar(&reportPath, "report", report.FileName, "path to run report, relative to the project root (empty disables)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "detailed output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "minimal output (errors only)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&noInherit, "no-inherit", false, "ignore system and user manifests")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command. An interrupt stops new dependencies from
// starting; work already in progress is allowed to finish or roll back.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
