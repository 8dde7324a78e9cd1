package cmd

import (
	"fmt"
	"os"

	"github.com/abdul-hamid-achik/quartz/packages/core/workspace"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a new quartz workspace",
	Long: `Initialize a new quartz workspace in the given directory (default: the
current directory).

This creates a .quartz directory holding:
  - config.toml          - Workspace configuration
  - endpoints/           - The endpoint tree
  - contexts/default     - The default context
  - env/default          - The default environment and its cookie jar
  - user/                - Selection state and request history

Examples:
  quartz init
  quartz init ./my-api`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{skipWorkspace: "true"},
	RunE:        initCommand,
}

func initCommand(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	root, err := workspace.Init(dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Initialized quartz workspace in %s\n", root)
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'quartz create <handle> --url <url>' to add an endpoint.\n")
	return nil
}
