package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/citegraph/internal/pdf"
)

var openDryRun bool

func init() {
	openCmd.Flags().BoolVar(&openDryRun, "dry-run", false, "Print the viewer command instead of running it")
	rootCmd.AddCommand(openCmd)
}

var openCmd = &cobra.Command{
	Use:   "open <fingerprint|path|doi>...",
	Short: "Open documents in the configured viewer",
	Long: `Open stored documents in the viewer named by the "viewer" config key
(system, skim, zathura, evince or okular).

Examples:
  cg open 10.1234/abcd.5678
  cg open papers/smith2020.pdf papers/jones2021.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOpen,
}

// OpenResult reports one opened document.
type OpenResult struct {
	Key     string `json:"key"`
	Path    string `json:"path"`
	Command string `json:"command,omitempty"`
}

func runOpen(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	opener := pdf.NewOpener(repoRoot, cfg.Viewer)

	// Resolve everything before starting any viewer.
	var results []OpenResult
	for _, key := range args {
		doc, err := lookupDocument(cmd.Context(), db, repoRoot, key)
		if err != nil {
			exitWithError(ExitDataError, "document not found: %s", key)
		}
		full, err := opener.ResolvePath(doc.FilePath)
		if err != nil {
			exitWithError(ExitDataError, "%v", err)
		}
		results = append(results, OpenResult{Key: key, Path: full})
	}

	for i := range results {
		if openDryRun {
			c, err := opener.Command(results[i].Path)
			if err != nil {
				exitWithError(ExitError, "%v", err)
			}
			results[i].Command = c.String()
			continue
		}
		if err := opener.Open(results[i].Path); err != nil {
			exitWithError(ExitError, "opening %s: %v", results[i].Path, err)
		}
	}

	if humanOutput {
		for _, r := range results {
			if r.Command != "" {
				fmt.Println(r.Command)
			} else {
				fmt.Printf("Opened %s\n", r.Path)
			}
		}
	} else {
		outputJSON(results)
	}
	return nil
}
