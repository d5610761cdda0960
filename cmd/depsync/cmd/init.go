package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initForce bool

// initTemplate is the default depsync.yaml scaffold.
const initTemplate = `# depsync manifest
version: 1

# options:
#   stop_on_first_error: false
#   parallelism: 4            # dependencies processed at once
#   timeout: 5m               # limit for each git operation, 0 disables
#   retries: 0                # extra attempts after transport failures
#   staging_dir: .depsync     # where clones are built before moving into place

dependencies:
  # Pin a tag. Working copies that fall behind are reported, not updated.
  - name: example
    source: https://github.com/your-org/example.git
    path: third_party/example
    revision: v1.0.0

  # Follow a semver range and fast-forward automatically.
  # - name: tools
  #   source: https://github.com/your-org/tools.git
  #   path: third_party/tools
  #   revision: ^2.1
  #   policy: auto

  # Track the remote's default branch.
  # - name: docs
  #   source: ../docs.git
  #   path: third_party/docs
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter depsync.yaml manifest",
	Long: `Creates a depsync.yaml file in the current directory with a commented
example dependency and the available options.

Use --force to overwrite an existing manifest.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath := configPath
		if !filepath.IsAbs(outPath) {
			abs, err := filepath.Abs(outPath)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			outPath = abs
		}

		if !initForce {
			if _, err := os.Stat(outPath); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", outPath)
			}
		}

		if err := os.WriteFile(outPath, []byte(initTemplate), 0644); err != nil {
			return fmt.Errorf("writing manifest: %w", err)
		}

		info("Created %s", outPath)
		info("")
		info("Next steps:")
		info("  1. Edit the file to list your dependencies")
		info("  2. Run 'depsync status' to see what would change")
		info("  3. Run 'depsync ensure' to clone and update them")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing manifest")
	rootCmd.AddCommand(initCmd)
}
