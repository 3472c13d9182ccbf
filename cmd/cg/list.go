package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	listLimit       int
	listNeedsReview bool
)

func init() {
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", DefaultSearchLimit, "Maximum results to return (0 for all)")
	listCmd.Flags().BoolVar(&listNeedsReview, "needs-review", false, "Only documents flagged for review")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	Long: `List stored documents ordered by file path.

A document needs review when its citations fail format or linking
validation or its pipeline run recorded errors.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	list := db.ListAll
	if listNeedsReview {
		list = db.ListNeedsReview
	}
	docs, err := list(listLimit)
	if err != nil {
		exitWithError(ExitError, "listing documents: %v", err)
	}
	results := summarize(docs)

	if humanOutput {
		if len(results) == 0 {
			fmt.Println("No documents")
			return nil
		}
		for i, d := range results {
			printDocSummary(i+1, d)
		}
	} else {
		outputJSON(SearchResponse{Count: len(results), Results: results})
	}
	return nil
}
