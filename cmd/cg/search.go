package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchLimit int

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", DefaultSearchLimit, "Maximum results to return")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over titles, abstracts, authors and references",
	Long: `Search the document index. Matches titles, abstracts, author names and
the titles of cited references.

Example:
  cg search "graph neural"
  cg search smith -n 5 --human`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

// SearchResponse is the JSON output of search and list.
type SearchResponse struct {
	Query   string            `json:"query,omitempty"`
	Count   int               `json:"count"`
	Results []DocumentSummary `json:"results"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	query := strings.Join(args, " ")
	docs, err := db.Search(query, searchLimit)
	if err != nil {
		exitWithError(ExitError, "searching: %v", err)
	}

	results := summarize(docs)
	if humanOutput {
		if len(results) == 0 {
			fmt.Println("No matching documents")
			return nil
		}
		fmt.Printf("Found %d documents:\n\n", len(results))
		for i, d := range results {
			printDocSummary(i+1, d)
		}
	} else {
		outputJSON(SearchResponse{Query: query, Count: len(results), Results: results})
	}
	return nil
}
