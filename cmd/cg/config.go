package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/citegraph/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set repository configuration values",
	Long: `Get or set repository configuration values.

Usage:
  cg config                        # Show all config
  cg config context_window         # Get specific value
  cg config orphan_policy drop     # Set value

Keys:
  context_window     Characters of context on each side of a match
  orphan_policy      keep or drop citation keys with no reference
  min_inline_length  Minimum length of an inline equation
  fingerprint        Content hash (sha256 or blake2b)
  pdf_max_pages      Pages of text to extract (0 for all)
  viewer             Document viewer (system, skim, zathura, evince, okular)

Service settings (Crossref, Redis, Neo4j, anystyle) live in
~/.config/cg/config.yml or the environment.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)

	switch len(args) {
	case 0:
		if humanOutput {
			for _, k := range config.Keys() {
				v, _ := cfg.Get(k)
				fmt.Printf("%-18s %s\n", k+":", v)
			}
		} else {
			outputJSON(cfg)
		}

	case 1:
		v, err := cfg.Get(args[0])
		if err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}
		if humanOutput {
			fmt.Println(v)
		} else {
			outputJSON(map[string]string{args[0]: v})
		}

	case 2:
		if err := cfg.Set(args[0], args[1]); err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}
		if err := cfg.Save(repoRoot); err != nil {
			exitWithError(ExitError, "saving config: %v", err)
		}
		if humanOutput {
			fmt.Printf("Set %s = %s\n", args[0], args[1])
		} else {
			outputJSON(UpdateResponse{Status: "updated", Key: args[0], Value: args[1]})
		}
	}
	return nil
}
