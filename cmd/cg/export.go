package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/citegraph/internal/export"
)

var (
	exportAppend string
	exportCited  bool
)

func init() {
	exportCmd.Flags().StringVar(&exportAppend, "append", "", "Append entries not already present to this .bib file")
	exportCmd.Flags().BoolVar(&exportCited, "cited-only", false, "Only references cited in the text")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export <fingerprint|path|doi>",
	Short: "Export a document's references as BibTeX",
	Long: `Write a stored document's reference list as BibTeX, keyed by author-year
slug where available.

With --append, entries already in the target file (by DOI or key) are
skipped and the rest are appended.

Example:
  cg export papers/smith2020.pdf > smith2020.bib
  cg export 10.1234/abcd.5678 --append refs.bib`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

// ExportResponse reports an --append run.
type ExportResponse struct {
	Path     string `json:"path"`
	Appended int    `json:"appended"`
	Skipped  int    `json:"skipped"`
}

func runExport(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	doc, err := lookupDocument(cmd.Context(), db, repoRoot, args[0])
	if err != nil {
		exitWithError(ExitDataError, "document not found: %s", args[0])
	}

	refs := doc.References
	if exportCited {
		cited := make(map[string]bool)
		for _, k := range doc.Linking.UniqueKeys {
			cited[k] = true
		}
		refs = refs[:0:0]
		for _, r := range doc.References {
			if cited[r.Key] {
				refs = append(refs, r)
			}
		}
	}

	if exportAppend == "" {
		fmt.Print(export.ToBibTeXList(refs))
		return nil
	}

	idx, err := export.ReadBibIndex(exportAppend)
	if err != nil {
		exitWithError(ExitError, "reading %s: %v", exportAppend, err)
	}
	missing := idx.Missing(refs)
	if len(missing) > 0 {
		if err := export.AppendToBibFile(exportAppend, export.ToBibTeXList(missing)); err != nil {
			exitWithError(ExitError, "writing %s: %v", exportAppend, err)
		}
	}

	resp := ExportResponse{Path: exportAppend, Appended: len(missing), Skipped: len(refs) - len(missing)}
	if humanOutput {
		fmt.Printf("Appended %d entries to %s (%d already present)\n", resp.Appended, resp.Path, resp.Skipped)
	} else {
		outputJSON(resp)
	}
	return nil
}
