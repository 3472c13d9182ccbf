package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/citegraph/internal/metadata"
	"github.com/matsen/citegraph/internal/pdf"
	"github.com/matsen/citegraph/internal/storage"
)

func init() {
	rootCmd.AddCommand(getCmd)
}

var getCmd = &cobra.Command{
	Use:   "get <fingerprint|path|doi>",
	Short: "Get a single document record",
	Long: `Get a document record by fingerprint, file path or identifier.

Example:
  cg get papers/smith2020.pdf
  cg get 10.1234/abcd.5678`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	doc, err := lookupDocument(cmd.Context(), db, repoRoot, args[0])
	if errors.Is(err, metadata.ErrNotFound) {
		exitWithError(ExitDataError, "document not found: %s", args[0])
	}
	if err != nil {
		exitWithError(ExitError, "getting document: %v", err)
	}

	if humanOutput {
		printDocDetail(*doc)
	} else {
		outputJSON(doc)
	}
	return nil
}

// lookupDocument tries key as a fingerprint, then as a file path, then as
// a DOI or arXiv identifier.
func lookupDocument(ctx context.Context, db *storage.DB, repoRoot, key string) (*metadata.DocumentMetadata, error) {
	doc, err := db.Get(ctx, key)
	if !errors.Is(err, metadata.ErrNotFound) {
		return doc, err
	}

	paths := []string{key}
	if rel := repoRelative(repoRoot, key); rel != key {
		paths = append(paths, rel)
	}
	for _, p := range paths {
		doc, err = db.GetByPath(p)
		if !errors.Is(err, metadata.ErrNotFound) {
			return doc, err
		}
	}

	id := pdf.NormalizeDOI(key)
	if !strings.HasPrefix(id, "10.") {
		id = pdf.NormalizeArXiv(key)
	}
	return db.GetByIdentifier(id)
}

func printDocDetail(d metadata.DocumentMetadata) {
	fmt.Println(d.FilePath)
	fmt.Println(strings.Repeat("═", DetailTitleMaxLen))
	fmt.Println()

	fmt.Printf("Title:       %s\n", orDash(d.Title))
	if len(d.Authors) > 0 {
		fmt.Printf("Authors:     %s\n", formatAuthorsShort(d.Authors, 6))
	}
	if d.Year > 0 {
		fmt.Printf("Year:        %d\n", d.Year)
	}
	if d.Venue != "" {
		fmt.Printf("Venue:       %s\n", d.Venue)
	}
	if d.Identifier != "" {
		fmt.Printf("Identifier:  %s (%s via %s)\n", d.Identifier, d.IdentifierType, d.IdentifierMethod)
	}
	fmt.Printf("Fingerprint: %s\n", d.Fingerprint)
	fmt.Println()

	fmt.Printf("References:  %d\n", len(d.References))
	fmt.Printf("Citations:   %d (%d unique keys)\n", len(d.Citations), len(d.Linking.UniqueKeys))
	fmt.Printf("Equations:   %d\n", len(d.Equations))
	if len(d.Linking.Orphans) > 0 {
		fmt.Printf("Orphans:     %s\n", strings.Join(d.Linking.Orphans, ", "))
	}
	if d.NeedsReview {
		fmt.Println("\nNeeds review")
	}
	for _, e := range d.Errors {
		fmt.Printf("  - %s\n", e)
	}
}
