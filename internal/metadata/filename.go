package metadata

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/matsen/citegraph/internal/reference"
)

var authorSplit = regexp.MustCompile(`,\s*|\s+and\s+`)

// FromFilename parses names like "Smith et al. - 2020 - Deep Models.pdf".
// Names without that shape give the bare stem as title. Returns nil for an
// empty path.
func FromFilename(path string) *Bibliographic {
	if path == "" {
		return nil
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	stem = strings.TrimSuffix(stem, "-annotated")
	if stem == "" {
		return nil
	}

	parts := strings.Split(stem, " - ")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 3 {
		return &Bibliographic{Title: stem, Source: "filename"}
	}

	b := &Bibliographic{
		Title:  strings.Join(parts[2:], " - "),
		Source: "filename",
	}
	if y, err := strconv.Atoi(parts[1]); err == nil {
		b.Year = y
	}

	authors := parts[0]
	if name, ok := strings.CutSuffix(authors, " et al."); ok {
		b.Authors = []reference.Author{reference.ParseAuthor(name)}
		return b
	}
	for _, name := range authorSplit.Split(authors, -1) {
		if name = strings.TrimSpace(name); name != "" {
			b.Authors = append(b.Authors, reference.ParseAuthor(name))
		}
	}
	return b
}
