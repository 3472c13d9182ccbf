package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/matsen/citegraph/internal/metadata"
	"github.com/matsen/citegraph/internal/reference"
)

// Constants for output formatting.
const (
	DefaultSearchLimit = 50 // Default limit for search/list commands

	SearchTitleMaxLen = 70 // Used in search result summaries
	DetailTitleMaxLen = 70 // Used in get command detail view
	ContextMaxLen     = 60 // Used for citation context in citations output
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError writes an error message to stderr and returns the exit code.
func outputError(code int, format string, args ...interface{}) int {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	return code
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	logger.Sync()
	os.Exit(code)
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// UpdateResponse is the response for config set commands.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DocumentSummary is the short form of a record used in listings.
type DocumentSummary struct {
	Fingerprint string             `json:"fingerprint"`
	FilePath    string             `json:"file_path"`
	Identifier  string             `json:"identifier,omitempty"`
	Title       string             `json:"title"`
	Authors     []reference.Author `json:"authors"`
	Year        int                `json:"year,omitempty"`
	NeedsReview bool               `json:"needs_review"`
}

func summarize(docs []metadata.DocumentMetadata) []DocumentSummary {
	out := make([]DocumentSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, DocumentSummary{
			Fingerprint: d.Fingerprint,
			FilePath:    d.FilePath,
			Identifier:  d.Identifier,
			Title:       d.Title,
			Authors:     d.Authors,
			Year:        d.Year,
			NeedsReview: d.NeedsReview,
		})
	}
	return out
}

func printDocSummary(num int, d DocumentSummary) {
	fmt.Printf("[%d] %s\n", num, d.FilePath)
	fmt.Printf("    %s\n", truncateString(orDash(d.Title), SearchTitleMaxLen))
	if len(d.Authors) > 0 {
		fmt.Printf("    %s\n", formatAuthorsShort(d.Authors, 3))
	}
	if d.Year > 0 {
		fmt.Printf("    (%d)\n", d.Year)
	}
	if d.NeedsReview {
		fmt.Println("    needs review")
	}
	fmt.Println()
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// formatAuthorsShort formats up to max authors as "Last F, Last F et al.".
func formatAuthorsShort(authors []reference.Author, max int) string {
	var names []string
	for i, a := range authors {
		if i >= max {
			names = append(names, "et al.")
			break
		}
		if a.First != "" {
			names = append(names, a.Last+" "+string(a.First[0]))
		} else {
			names = append(names, a.Last)
		}
	}
	return strings.Join(names, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// outputJSONLine writes a value as a single line of JSON to stdout.
func outputJSONLine(v interface{}) error {
	return json.NewEncoder(os.Stdout).Encode(v)
}
