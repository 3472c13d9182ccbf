package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/citegraph/internal/config"
	"github.com/matsen/citegraph/internal/conflict"
	"github.com/matsen/citegraph/internal/storage"
)

var resolveDryRun bool

func init() {
	resolveCmd.Flags().BoolVar(&resolveDryRun, "dry-run", false, "Report decisions without writing")
	rootCmd.AddCommand(resolveCmd)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve git merge conflicts in documents.jsonl",
	Long: `Resolve git merge conflicts in documents.jsonl.

Records on both sides of a conflict are matched by fingerprint. Each pair
keeps the more complete record, preferring ours on a tie; records on one
side only are kept. The search index is rebuilt afterwards.`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

// ResolveResponse is the JSON output of resolve.
type ResolveResponse struct {
	Status    string              `json:"status"`
	Documents int                 `json:"documents"`
	Decisions []conflict.Decision `json:"decisions"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	path := config.DocumentsPath(repoRoot)

	f, err := os.Open(path)
	if err != nil {
		exitWithError(ExitDataError, "opening %s: %v", path, err)
	}
	parsed, err := conflict.Parse(f)
	f.Close()
	if err != nil {
		exitWithError(ExitDataError, "parsing %s: %v", path, err)
	}

	if !parsed.HasConflicts() {
		if humanOutput {
			fmt.Println("No conflicts found")
		} else {
			outputJSON(ResolveResponse{Status: "clean", Decisions: []conflict.Decision{}})
		}
		return nil
	}

	docs, decisions := conflict.Resolve(parsed)
	resp := ResolveResponse{Status: "resolved", Documents: len(docs), Decisions: decisions}
	if resolveDryRun {
		resp.Status = "dry_run"
	} else {
		if err := storage.WriteAll(path, docs); err != nil {
			exitWithError(ExitError, "writing %s: %v", path, err)
		}
		db := mustOpenDatabase(repoRoot)
		defer db.Close()
		if _, err := db.RebuildFromJSONL(path); err != nil {
			exitWithError(ExitDataError, "rebuilding index: %v", err)
		}
	}

	if humanOutput {
		for _, d := range decisions {
			line := fmt.Sprintf("%-12s %s", d.Action, d.FilePath)
			if d.Reason != "" {
				line += "  (" + d.Reason + ")"
			}
			fmt.Println(line)
		}
		fmt.Printf("%d documents after resolution\n", resp.Documents)
	} else {
		outputJSON(resp)
	}
	return nil
}
