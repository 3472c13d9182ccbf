package export

import (
	"bufio"
	"os"
	"regexp"
	"strings"

	"github.com/matsen/citegraph/internal/reference"
)

var (
	entryStartRe = regexp.MustCompile(`@\w+\{([^,]+),`)
	doiFieldRe   = regexp.MustCompile(`(?i)^\s*doi\s*=\s*[\{"]([^\}"]+)[\}"]`)
)

// BibIndex records the entries already present in a .bib file.
type BibIndex struct {
	Keys map[string]bool
	// DOIs maps lowercased DOIs to citation keys.
	DOIs map[string]string
}

// NewBibIndex creates an empty index.
func NewBibIndex() *BibIndex {
	return &BibIndex{
		Keys: make(map[string]bool),
		DOIs: make(map[string]string),
	}
}

// Has reports whether ref is already in the file, matching by DOI and then
// by citation key.
func (idx *BibIndex) Has(ref reference.Reference) bool {
	if ref.DOI != "" {
		if _, ok := idx.DOIs[normalizeDOI(ref.DOI)]; ok {
			return true
		}
	}
	return idx.Keys[CiteKey(ref)]
}

// Missing returns the references not yet in the file.
func (idx *BibIndex) Missing(refs []reference.Reference) []reference.Reference {
	var out []reference.Reference
	for _, r := range refs {
		if !idx.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

// ReadBibIndex indexes an existing .bib file. A missing file yields an
// empty index.
func ReadBibIndex(path string) (*BibIndex, error) {
	idx := NewBibIndex()

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var currentKey string
	for scanner.Scan() {
		line := scanner.Text()
		if m := entryStartRe.FindStringSubmatch(line); m != nil {
			currentKey = strings.TrimSpace(m[1])
			idx.Keys[currentKey] = true
		}
		if m := doiFieldRe.FindStringSubmatch(line); m != nil && currentKey != "" {
			if doi := normalizeDOI(m[1]); doi != "" {
				idx.DOIs[doi] = currentKey
			}
		}
	}
	return idx, scanner.Err()
}

func normalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	for _, p := range []string{"https://doi.org/", "http://doi.org/", "doi.org/", "DOI:", "doi:"} {
		doi = strings.TrimPrefix(doi, p)
	}
	return strings.ToLower(doi)
}

// AppendToBibFile appends BibTeX content to a file, creating it if needed.
func AppendToBibFile(path, content string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.WriteString("\n" + content)
	return err
}
