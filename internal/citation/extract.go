package citation

import (
	"sort"

	"github.com/matsen/citegraph/internal/match"
	"github.com/matsen/citegraph/internal/reference"
)

// Extractor runs matching, normalization and linking over a document.
type Extractor struct {
	Scanner *match.Scanner
	Policy  OrphanPolicy
}

// NewExtractor returns an extractor with the given context window and policy.
func NewExtractor(window int, policy OrphanPolicy) *Extractor {
	return &Extractor{Scanner: match.NewScanner(window), Policy: policy}
}

// Extract finds, normalizes and links every citation in markdown. Malformed
// markers are reported as PatternErrors and make the format invalid; they do
// not stop the remaining markers from being processed. Errors are ordered by
// offset.
func (e *Extractor) Extract(markdown string, refs []reference.Reference) LinkResult {
	return e.Link(e.Scanner.Scan(markdown).Citations, refs)
}

// Link normalizes already-scanned citation matches and links them.
func (e *Extractor) Link(matches []match.Match, refs []reference.Reference) LinkResult {
	var (
		cands    []Candidate
		patternE []error
	)
	for _, m := range matches {
		c, err := Normalize(m)
		if err != nil {
			patternE = append(patternE, err)
			continue
		}
		cands = append(cands, c)
	}

	res := Link(cands, refs, e.Policy)
	if len(patternE) > 0 {
		res.FormatValid = false
		res.Errors = append(patternE, res.Errors...)
		sort.SliceStable(res.Errors, func(i, j int) bool {
			return errorOffset(res.Errors[i]) < errorOffset(res.Errors[j])
		})
	}
	return res
}

func errorOffset(err error) int {
	switch e := err.(type) {
	case *PatternError:
		return e.Offset
	case *LinkingError:
		return e.Offset
	}
	return 0
}
