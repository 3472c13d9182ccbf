package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/citegraph/internal/config"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new citegraph repository",
	Long: `Initialize a new citegraph repository in the current directory.

Creates:
  .citegraph/
  ├── documents.jsonl  # Empty file
  ├── config.json      # Default config
  └── cache/           # SQLite index (gitignored)`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	root, exitCode := getStartingDirectory()
	if exitCode != 0 {
		os.Exit(exitCode)
	}

	if config.IsRepository(root) {
		exitWithError(ExitError, "directory already contains a citegraph repository")
	}
	if _, err := config.Init(root); err != nil {
		exitWithError(ExitError, "%v", err)
	}

	// The index is derived data; keep it out of version control.
	gitignore := config.CitegraphPath(root) + "/.gitignore"
	if err := os.WriteFile(gitignore, []byte(config.CacheDir+"/\n"), 0644); err != nil {
		exitWithError(ExitError, "writing .gitignore: %v", err)
	}

	if humanOutput {
		fmt.Printf("Initialized citegraph repository in %s\n", config.CitegraphPath(root))
	} else {
		outputJSON(StatusResponse{Status: "initialized", Path: config.CitegraphPath(root)})
	}
	return nil
}
