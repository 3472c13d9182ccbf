package pdf

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/matsen/citegraph/internal/metadata"
)

// Identifier detection methods.
const (
	MethodTextScan = "text-scan"
	MethodFilename = "filename"
)

// DefaultHeadBytes bounds how much leading text is scanned for identifiers.
const DefaultHeadBytes = 12000

// DOI pattern: 10.XXXX/... where XXXX is 4+ digits
// More specific: 10.\d{4,9}/[-._;()/:A-Z0-9]+
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// New-style arXiv ids (2106.15928v2) must carry an arXiv prefix in running
// text; bare numbers of that shape are too common to trust.
var (
	arxivPattern    = regexp.MustCompile(`(?i)arxiv(?:\.org/(?:abs|pdf)/|:\s*|\s+)(\d{4}\.\d{4,5})(?:v\d+)?`)
	arxivOldPattern = regexp.MustCompile(`(?i)arxiv(?:\.org/(?:abs|pdf)/|:\s*)([a-z\-]+(?:\.[a-z]{2})?/\d{7})(?:v\d+)?`)
	arxivBare       = regexp.MustCompile(`^(\d{4}\.\d{4,5})(?:v\d+)?$`)
	referencesHead  = regexp.MustCompile(`(?im)^\s*(?:#+\s*)?(?:\d+\.?\s*)?(references|bibliography|works cited)\s*$`)
)

// Resolver finds a DOI or arXiv identifier in the leading text of a
// document, then in its file name.
type Resolver struct {
	HeadBytes int
}

// NewResolver returns a resolver scanning the default amount of text.
func NewResolver() *Resolver {
	return &Resolver{HeadBytes: DefaultHeadBytes}
}

// Resolve returns nil, nil when no identifier is found.
func (r *Resolver) Resolve(ctx context.Context, path, text string) (*metadata.Identifier, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	head := leadingText(text, r.HeadBytes)
	if doi := FindDOI(head); doi != "" {
		return &metadata.Identifier{Value: doi, Type: metadata.IdentifierDOI, Method: MethodTextScan}, nil
	}
	if id := findArXiv(head); id != "" {
		return &metadata.Identifier{Value: id, Type: metadata.IdentifierArXiv, Method: MethodTextScan}, nil
	}
	if id := fromFilename(path); id != nil {
		return id, nil
	}
	return nil, nil
}

// leadingText cuts text at the reference section so cited DOIs are not
// mistaken for the document's own, then caps it at limit bytes.
func leadingText(text string, limit int) string {
	if loc := referencesHead.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}
	if limit > 0 && len(text) > limit {
		text = text[:limit]
	}
	return text
}

func fromFilename(path string) *metadata.Identifier {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if m := arxivBare.FindStringSubmatch(stem); m != nil {
		return &metadata.Identifier{Value: m[1], Type: metadata.IdentifierArXiv, Method: MethodFilename}
	}
	if id := findArXiv(stem); id != "" {
		return &metadata.Identifier{Value: id, Type: metadata.IdentifierArXiv, Method: MethodFilename}
	}
	// DOIs cannot contain a path separator in a file name; "_" usually stands in.
	if strings.HasPrefix(stem, "10.") {
		if doi := FindDOI(strings.Replace(stem, "_", "/", 1)); doi != "" {
			return &metadata.Identifier{Value: doi, Type: metadata.IdentifierDOI, Method: MethodFilename}
		}
	}
	return nil
}

// FindDOI returns the first valid DOI in text, or "".
func FindDOI(text string) string {
	matches := doiPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return ""
	}

	// Clean up matches and return the first valid one
	for _, match := range matches {
		// Remove trailing punctuation
		match = strings.TrimRight(match, ".,;:)")
		// Validate it looks like a real DOI
		if isValidDOI(match) {
			return match
		}
	}

	return ""
}

// findArXiv finds an arXiv identifier in text, without prefix or version.
func findArXiv(text string) string {
	if m := arxivPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := arxivOldPattern.FindStringSubmatch(text); m != nil {
		return strings.ToLower(m[1])
	}
	return ""
}

// NormalizeArXiv strips an "arXiv:" or URL prefix and any version suffix.
func NormalizeArXiv(id string) string {
	id = strings.TrimSpace(id)
	if m := findArXiv(id); m != "" {
		return m
	}
	if m := arxivBare.FindStringSubmatch(id); m != nil {
		return m[1]
	}
	return id
}

// NormalizeDOI strips resolver URL and "doi:" prefixes.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi:", "DOI:"} {
		if strings.HasPrefix(doi, prefix) {
			return strings.TrimPrefix(doi, prefix)
		}
	}
	return doi
}

// isValidDOI performs basic validation on a DOI.
func isValidDOI(doi string) bool {
	if len(doi) < 10 {
		return false
	}
	// Must start with 10. and have something after the /
	if !strings.HasPrefix(doi, "10.") {
		return false
	}
	slashIdx := strings.Index(doi, "/")
	if slashIdx == -1 || slashIdx >= len(doi)-1 {
		return false
	}
	return true
}
