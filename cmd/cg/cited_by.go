package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/citegraph/internal/config"
	"github.com/matsen/citegraph/internal/graph"
	"github.com/matsen/citegraph/internal/graphstore"
	"github.com/matsen/citegraph/internal/metadata"
	"github.com/matsen/citegraph/internal/pdf"
	"github.com/matsen/citegraph/internal/storage"
)

var citedByLocal bool

func init() {
	citedByCmd.Flags().BoolVar(&citedByLocal, "local", false, "Scan documents.jsonl instead of querying Neo4j")
	rootCmd.AddCommand(citedByCmd)
}

var citedByCmd = &cobra.Command{
	Use:   "cited-by <doi>",
	Short: "List stored documents that cite a work",
	Long: `List the stored documents whose references resolve to a DOI, with how
many in-text citations point at it.

The Neo4j graph is queried when configured; otherwise, or with --local,
documents.jsonl is scanned.

Example:
  cg cited-by 10.1234/abcd.5678`,
	Args: cobra.ExactArgs(1),
	RunE: runCitedBy,
}

// CitedByResponse is the JSON output of cited-by.
type CitedByResponse struct {
	DOI    string              `json:"doi"`
	Source string              `json:"source"`
	Citers []graphstore.Citer `json:"citers"`
}

func runCitedBy(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	global := mustLoadGlobalConfig()
	doi := strings.ToLower(pdf.NormalizeDOI(args[0]))

	resp := CitedByResponse{DOI: doi}
	if global.Neo4jURI != "" && !citedByLocal {
		ctx := cmd.Context()
		sink, err := graphstore.New(ctx, graphstore.Config{
			URI:      global.Neo4jURI,
			Username: global.Neo4jUser,
			Password: global.Neo4jPassword,
			Database: global.Neo4jDatabase,
		}, logger.Named("neo4j"))
		if err != nil {
			exitWithError(ExitError, "connecting to neo4j: %v", err)
		}
		defer sink.Close(ctx)

		resp.Source = graphstore.SinkName
		resp.Citers, err = sink.CitedBy(ctx, doi)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
	} else {
		docs, err := storage.ReadAll(config.DocumentsPath(repoRoot))
		if err != nil {
			exitWithError(ExitDataError, "reading documents: %v", err)
		}
		resp.Source = storage.StoreName
		resp.Citers = localCiters(docs, doi)
	}
	if resp.Citers == nil {
		resp.Citers = []graphstore.Citer{}
	}

	if humanOutput {
		if len(resp.Citers) == 0 {
			fmt.Printf("No stored documents cite %s\n", doi)
			return nil
		}
		for _, c := range resp.Citers {
			fmt.Printf("%4d  %s  %s\n", c.Count, c.Fingerprint[:min(12, len(c.Fingerprint))], truncateString(orDash(c.Title), SearchTitleMaxLen))
		}
	} else {
		outputJSON(resp)
	}
	return nil
}

// localCiters finds documents with a reference resolving to doi and counts
// their citations of it, most cited first.
func localCiters(docs []metadata.DocumentMetadata, doi string) []graphstore.Citer {
	var out []graphstore.Citer
	for _, d := range docs {
		var keys []string
		for _, r := range d.References {
			if r.DOI != "" && strings.EqualFold(pdf.NormalizeDOI(r.DOI), doi) {
				keys = append(keys, r.Key)
			}
		}
		if len(keys) == 0 {
			continue
		}
		g := graph.Build(d.Fingerprint, d.Citations)
		count := 0
		for _, k := range keys {
			count += g.Frequency(k)
		}
		out = append(out, graphstore.Citer{Fingerprint: d.Fingerprint, Title: d.Title, Count: count})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}
