package citation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/matsen/citegraph/internal/reference"
)

// OrphanPolicy decides what happens to keys with no matching reference.
type OrphanPolicy string

const (
	// KeepOrphans leaves unresolved keys in Citation.Keys and lists them in
	// Citation.Orphans.
	KeepOrphans OrphanPolicy = "keep"
	// DropOrphans removes unresolved keys from Citation.Keys but still lists
	// them in Citation.Orphans.
	DropOrphans OrphanPolicy = "drop"
)

// ParseOrphanPolicy parses a policy name. The empty string selects KeepOrphans.
func ParseOrphanPolicy(s string) (OrphanPolicy, error) {
	switch OrphanPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", KeepOrphans:
		return KeepOrphans, nil
	case DropOrphans:
		return DropOrphans, nil
	}
	return "", fmt.Errorf("unknown orphan policy %q (want keep or drop)", s)
}

// Report summarizes citation quality for a document.
type Report struct {
	// FormatValid is false when any marker failed normalization.
	FormatValid bool `json:"format_valid"`
	// LinkingValid is true only when every cited key has a reference.
	LinkingValid bool          `json:"linking_valid"`
	UniqueKeys   []string      `json:"unique_keys"`
	Orphans      []string      `json:"orphans"`
	TypeCounts   map[Style]int `json:"type_counts"`
	Total        int           `json:"total"`
}

// LinkResult is the output of Link.
type LinkResult struct {
	Report
	Citations []Citation `json:"citations"`
	Errors    []error    `json:"-"`
}

// Index returns every key the references can be linked by.
func Index(refs []reference.Reference) map[string]bool {
	idx := make(map[string]bool, 2*len(refs))
	for _, r := range reference.AssignKeys(refs) {
		for _, k := range r.Keys() {
			idx[k] = true
		}
	}
	return idx
}

// Link resolves each candidate against refs by exact key match. Citations
// with unresolved keys are kept; each unresolved key occurrence adds a
// LinkingError and makes the document's linking invalid.
func Link(cands []Candidate, refs []reference.Reference, policy OrphanPolicy) LinkResult {
	idx := Index(refs)
	res := LinkResult{Citations: make([]Citation, 0, len(cands))}

	for _, cand := range cands {
		c := Citation{
			Text:           cand.Match.Text,
			Style:          cand.Style,
			Context:        cand.Match.Context.Before + cand.Match.Text + cand.Match.Context.After,
			Normalized:     cand.Normalized,
			LowConfidence:  cand.LowConfidence,
			ConfidenceNote: cand.ConfidenceNote,
			Start:          cand.Match.Start,
			End:            cand.Match.End,
			Keys:           []string{},
		}
		for _, k := range cand.Keys {
			if idx[k] {
				c.Keys = append(c.Keys, k)
				c.Linked = true
				continue
			}
			c.Orphans = append(c.Orphans, k)
			if policy != DropOrphans {
				c.Keys = append(c.Keys, k)
			}
			res.Errors = append(res.Errors, &LinkingError{Key: k, Text: c.Text, Offset: c.Start})
		}
		res.Citations = append(res.Citations, c)
	}

	res.Report = summarize(res.Citations, idx)
	return res
}

// Summarize recomputes the report from finished citations, so stored records
// can be checked without the original candidates.
func Summarize(citations []Citation, refs []reference.Reference) Report {
	return summarize(citations, Index(refs))
}

func summarize(citations []Citation, idx map[string]bool) Report {
	rep := Report{
		FormatValid:  true,
		LinkingValid: true,
		UniqueKeys:   []string{},
		Orphans:      []string{},
		TypeCounts:   map[Style]int{StyleNumeric: 0, StyleAuthorYear: 0},
		Total:        len(citations),
	}

	unique := make(map[string]bool)
	orphans := make(map[string]bool)
	for _, c := range citations {
		rep.TypeCounts[c.Style]++
		for _, k := range c.Keys {
			unique[k] = true
			if !idx[k] {
				orphans[k] = true
			}
		}
		for _, k := range c.Orphans {
			unique[k] = true
			orphans[k] = true
		}
	}

	for k := range unique {
		rep.UniqueKeys = append(rep.UniqueKeys, k)
	}
	for k := range orphans {
		rep.Orphans = append(rep.Orphans, k)
	}
	SortKeys(rep.UniqueKeys)
	SortKeys(rep.Orphans)
	rep.LinkingValid = len(rep.Orphans) == 0
	return rep
}

// SortKeys orders keys with positional keys first, by number, then the
// remaining keys lexically.
func SortKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		ni, iok := positional(keys[i])
		nj, jok := positional(keys[j])
		switch {
		case iok && jok:
			return ni < nj
		case iok != jok:
			return iok
		}
		return keys[i] < keys[j]
	})
}

func positional(key string) (int, bool) {
	rest, ok := strings.CutPrefix(key, reference.NumericPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	return n, err == nil
}
