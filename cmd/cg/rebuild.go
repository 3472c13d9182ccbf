package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/citegraph/internal/config"
	"github.com/matsen/citegraph/internal/graphstore"
	"github.com/matsen/citegraph/internal/logging"
	"github.com/matsen/citegraph/internal/storage"
)

var rebuildGraph bool

func init() {
	rebuildCmd.Flags().BoolVar(&rebuildGraph, "graph", false, "Also replay every record into the configured Neo4j database")
	rootCmd.AddCommand(rebuildCmd)
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the search index from documents.jsonl",
	Long: `Rebuild the SQLite search index from the JSONL source file.

Use this after pulling changes from git or if the index becomes corrupted.
With --graph, every record is also written to Neo4j, replacing its
citation edges.`,
	Args: cobra.NoArgs,
	RunE: runRebuild,
}

// RebuildResult is the response for the rebuild command.
type RebuildResult struct {
	Status    string `json:"status"`
	Documents int    `json:"documents"`
	Graphed   int    `json:"graphed,omitempty"`
}

func runRebuild(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	n, err := db.RebuildFromJSONL(config.DocumentsPath(repoRoot))
	if err != nil {
		exitWithError(ExitDataError, "rebuilding index: %v", err)
	}
	res := RebuildResult{Status: "rebuilt", Documents: n}

	if rebuildGraph {
		res.Graphed = replayGraph(cmd, repoRoot)
	}

	if humanOutput {
		fmt.Printf("Rebuilt index with %d documents\n", res.Documents)
		if rebuildGraph {
			fmt.Printf("Wrote %d documents to Neo4j\n", res.Graphed)
		}
	} else {
		outputJSON(res)
	}
	return nil
}

func replayGraph(cmd *cobra.Command, repoRoot string) int {
	global := mustLoadGlobalConfig()
	if global.Neo4jURI == "" {
		exitWithError(ExitConfigError, "neo4j_uri is not configured (set %s or add it to the global config)", config.EnvNeo4jURI)
	}
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

	docs, err := storage.ReadAll(config.DocumentsPath(repoRoot))
	if err != nil {
		exitWithError(ExitDataError, "reading documents: %v", err)
	}
	n := 0
	for _, d := range docs {
		if err := sink.Upsert(ctx, d); err != nil {
			logger.Warn("graph upsert failed", logging.String("fingerprint", d.Fingerprint), logging.Err(err))
			continue
		}
		n++
	}
	return n
}
