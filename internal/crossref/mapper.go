package crossref

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/matsen/citegraph/internal/metadata"
	"github.com/matsen/citegraph/internal/reference"
)

// SourceName identifies Crossref output in records.
const SourceName = "crossref"

var (
	markupPattern = regexp.MustCompile(`<[^>]+>`)
	spacePattern  = regexp.MustCompile(`\s+`)
	yearPattern   = regexp.MustCompile(`\b(1[89]\d{2}|20\d{2})`)
)

// MapWork converts a Crossref work into document metadata.
func MapWork(w Work) metadata.Bibliographic {
	md := metadata.Bibliographic{
		Title:    first(w.Title),
		Authors:  mapAuthors(w.Author),
		Abstract: stripMarkup(w.Abstract),
		Year:     workYear(w),
		Venue:    first(w.ContainerTitle),
		Source:   SourceName,
	}
	return md
}

// MapReferences converts the deposited reference list, keeping its order.
// Keys are left empty for reference.AssignKeys.
func MapReferences(w Work) []reference.Reference {
	refs := make([]reference.Reference, 0, len(w.Reference))
	for _, e := range w.Reference {
		refs = append(refs, mapRefEntry(e))
	}
	return refs
}

func mapRefEntry(e WorkRefEntry) reference.Reference {
	ref := reference.Reference{
		Title:   firstNonEmpty(e.ArticleTitle, e.VolumeTitle, e.SeriesTitle),
		Venue:   e.JournalTitle,
		DOI:     e.DOI,
		Year:    parseYear(e.Year),
		RawText: strings.TrimSpace(e.Unstructured),
		Source:  SourceName,
	}
	if e.Author != "" {
		ref.Authors = []reference.Author{reference.ParseAuthor(e.Author)}
	}
	if ref.Year == 0 && ref.RawText != "" {
		ref.Year = parseYear(ref.RawText)
	}
	return ref
}

func mapAuthors(in []WorkAuthor) []reference.Author {
	authors := make([]reference.Author, 0, len(in))
	for _, a := range in {
		switch {
		case a.Family != "":
			authors = append(authors, reference.Author{First: a.Given, Last: a.Family})
		case a.Name != "":
			authors = append(authors, reference.Author{Last: a.Name})
		}
	}
	return authors
}

func workYear(w Work) int {
	for _, d := range []DateParts{w.Issued, w.PublishedPrint, w.Published} {
		if y := d.Year(); y > 0 {
			return y
		}
	}
	return 0
}

// parseYear returns the first plausible year in s, so "2022a" gives 2022.
func parseYear(s string) int {
	m := yearPattern.FindString(s)
	if m == "" {
		return 0
	}
	y, _ := strconv.Atoi(m)
	return y
}

// stripMarkup removes JATS tags from Crossref abstracts.
func stripMarkup(s string) string {
	s = markupPattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}

func first(list []string) string {
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	return first(values)
}
