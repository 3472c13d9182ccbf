package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/matsen/citegraph/internal/bibparse"
	"github.com/matsen/citegraph/internal/citation"
	"github.com/matsen/citegraph/internal/graph"
	"github.com/matsen/citegraph/internal/logging"
	"github.com/matsen/citegraph/internal/reference"
)

var (
	citationsWindow int
	citationsPolicy string
)

func init() {
	citationsCmd.Flags().IntVar(&citationsWindow, "window", 40, "Context characters on each side of a citation")
	citationsCmd.Flags().StringVar(&citationsPolicy, "orphans", "keep", "Orphan policy (keep or drop)")
	rootCmd.AddCommand(citationsCmd)
}

var citationsCmd = &cobra.Command{
	Use:   "citations <file.md>",
	Short: "Link the citations in a markdown file to its reference list",
	Long: `Parse the References section of a markdown or text file, find every
in-text citation and link it to a reference. No repository is needed and
nothing is stored.

Example:
  cg citations paper.md --human`,
	Args: cobra.ExactArgs(1),
	RunE: runCitations,
}

// CitationsResponse is the JSON output of citations.
type CitationsResponse struct {
	citation.LinkResult
	References []reference.Reference `json:"references"`
	Edges      []graph.KeyCount      `json:"edges"`
	Errors     []string              `json:"errors"`
}

func runCitations(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		exitWithError(ExitError, "reading %s: %v", args[0], err)
	}
	policy, err := citation.ParseOrphanPolicy(citationsPolicy)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	text := string(data)

	refs, err := bibparse.NewLocal().Parse(context.Background(), text)
	if err != nil {
		logger.Warn("no references parsed", logging.String("path", args[0]), logging.Err(err))
		refs = nil
	}
	refs = reference.AssignKeys(refs)

	res := citation.NewExtractor(citationsWindow, policy).Extract(text, refs)
	resp := CitationsResponse{
		LinkResult: res,
		References: refs,
		Edges:      graph.Build(args[0], res.Citations).Counts(),
		Errors:     []string{},
	}
	for _, e := range res.Errors {
		resp.Errors = append(resp.Errors, e.Error())
	}

	if humanOutput {
		printCitations(resp)
	} else {
		outputJSON(resp)
	}
	return nil
}

func printCitations(r CitationsResponse) {
	fmt.Printf("%d references, %d citations\n\n", len(r.References), r.Total)
	for _, c := range r.Citations {
		mark := " "
		if !c.Linked {
			mark = "!"
		} else if c.LowConfidence {
			mark = "?"
		}
		fmt.Printf("%s %-20s %-14s %v\n", mark, truncateString(c.Text, 20), c.Style, c.Keys)
		if c.Context != "" {
			fmt.Printf("    %s\n", truncateString(c.Context, ContextMaxLen))
		}
	}
	if len(r.Edges) > 0 {
		edges := append([]graph.KeyCount(nil), r.Edges...)
		sort.SliceStable(edges, func(i, j int) bool { return edges[i].Count > edges[j].Count })
		fmt.Println("\nCited most:")
		for i, e := range edges {
			if i == 10 {
				break
			}
			fmt.Printf("  %-12s %d\n", e.Key, e.Count)
		}
	}
	if len(r.Orphans) > 0 {
		fmt.Printf("\nOrphans: %v\n", r.Orphans)
	}
	for _, e := range r.Errors {
		fmt.Printf("error: %s\n", e)
	}
}
