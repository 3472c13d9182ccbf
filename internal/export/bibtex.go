// Package export renders a document's reference list as BibTeX.
package export

import (
	"fmt"
	"strings"

	"github.com/matsen/citegraph/internal/reference"
)

// CiteKey returns the key an entry is written under: the author-year slug
// when there is one, otherwise the positional key.
func CiteKey(ref reference.Reference) string {
	if ref.Slug != "" {
		return ref.Slug
	}
	return ref.Key
}

// ToBibTeX converts a reference to a BibTeX entry.
func ToBibTeX(ref reference.Reference) string {
	entryType := determineEntryType(ref)
	var b strings.Builder

	fmt.Fprintf(&b, "@%s{%s,\n", entryType, CiteKey(ref))

	if len(ref.Authors) > 0 {
		fmt.Fprintf(&b, "  author = {%s},\n", formatAuthors(ref.Authors))
	}
	if ref.Title != "" {
		fmt.Fprintf(&b, "  title = {%s},\n", escapeLatex(ref.Title))
	}

	if ref.Venue != "" {
		fieldName := "journal"
		switch entryType {
		case "inproceedings":
			fieldName = "booktitle"
		case "misc":
			fieldName = "howpublished"
		}
		fmt.Fprintf(&b, "  %s = {%s},\n", fieldName, escapeLatex(ref.Venue))
	}

	if ref.Year > 0 {
		fmt.Fprintf(&b, "  year = {%d},\n", ref.Year)
	}
	if ref.DOI != "" {
		fmt.Fprintf(&b, "  doi = {%s},\n", ref.DOI)
	}
	if ref.ArXivID != "" {
		fmt.Fprintf(&b, "  eprint = {%s},\n", ref.ArXivID)
		b.WriteString("  archivePrefix = {arXiv},\n")
	}
	// Entries with nothing parsed keep the raw string so no citation is lost.
	if ref.Title == "" && ref.RawText != "" {
		fmt.Fprintf(&b, "  note = {%s},\n", escapeLatex(ref.RawText))
	}

	b.WriteString("}\n")
	return b.String()
}

// ToBibTeXList converts references to BibTeX, skipping any whose key was
// already written.
func ToBibTeXList(refs []reference.Reference) string {
	seen := make(map[string]bool)
	var entries []string
	for _, ref := range refs {
		key := CiteKey(ref)
		if seen[key] {
			continue
		}
		seen[key] = true
		entries = append(entries, ToBibTeX(ref))
	}
	return strings.Join(entries, "\n")
}

func determineEntryType(ref reference.Reference) string {
	venue := strings.ToLower(ref.Venue)

	if strings.Contains(venue, "arxiv") ||
		strings.Contains(venue, "biorxiv") ||
		strings.Contains(venue, "medrxiv") {
		return "article"
	}

	if strings.Contains(venue, "proceedings") ||
		strings.Contains(venue, "proc.") ||
		strings.Contains(venue, "conference") ||
		strings.Contains(venue, "workshop") ||
		strings.Contains(venue, "symposium") {
		return "inproceedings"
	}

	if venue == "" && ref.ArXivID == "" {
		return "misc"
	}
	return "article"
}

// formatAuthors formats authors in BibTeX style: "Last, First and Last, First"
func formatAuthors(authors []reference.Author) string {
	var formatted []string
	for _, a := range authors {
		if a.First != "" {
			formatted = append(formatted, fmt.Sprintf("%s, %s", a.Last, a.First))
		} else {
			formatted = append(formatted, a.Last)
		}
	}
	return strings.Join(formatted, " and ")
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	// & first, before other escapes that might produce &
	replacer := strings.NewReplacer(
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
