package conflict

import (
	"fmt"
	"reflect"

	"github.com/matsen/citegraph/internal/metadata"
)

// Completeness weights (higher = more important)
const (
	weightIdentifier = 8
	weightTitle      = 4
	weightAuthors    = 4
	weightYear       = 2
	weightReference  = 1
	weightCitation   = 1
	weightEquation   = 1
	weightStep       = 2
	penaltyError     = 3
)

// Completeness scores a record; higher means more of the pipeline
// succeeded for it.
func Completeness(doc metadata.DocumentMetadata) int {
	score := 0
	if doc.Identifier != "" {
		score += weightIdentifier
	}
	if doc.Title != "" {
		score += weightTitle
	}
	if len(doc.Authors) > 0 {
		score += weightAuthors
	}
	if doc.Year != 0 {
		score += weightYear
	}
	score += weightReference * len(doc.References)
	score += weightCitation * len(doc.Citations)
	score += weightEquation * len(doc.Equations)
	score += weightStep * len(doc.Processing.StepsCompleted)
	score -= penaltyError * len(doc.Errors)
	return score
}

// Choose picks between two records for one fingerprint. Ties keep ours.
func Choose(ours, theirs metadata.DocumentMetadata) (metadata.DocumentMetadata, Decision) {
	d := Decision{Fingerprint: ours.Fingerprint, FilePath: ours.FilePath}
	if reflect.DeepEqual(ours, theirs) {
		d.Action = ActionIdentical
		return ours, d
	}
	o, t := Completeness(ours), Completeness(theirs)
	if t > o {
		d.Action = ActionKeepTheirs
		d.Reason = fmt.Sprintf("theirs more complete (%d vs %d)", t, o)
		d.FilePath = theirs.FilePath
		return theirs, d
	}
	d.Action = ActionKeepOurs
	d.Reason = fmt.Sprintf("ours at least as complete (%d vs %d)", o, t)
	return ours, d
}

// ResolveRegion resolves one conflict region. Ours order is kept, with
// records only in theirs appended in their order.
func ResolveRegion(r Region) ([]metadata.DocumentMetadata, []Decision) {
	theirs := make(map[string]metadata.DocumentMetadata, len(r.Theirs))
	for _, d := range r.Theirs {
		theirs[d.Fingerprint] = d
	}

	var out []metadata.DocumentMetadata
	var decisions []Decision
	matched := make(map[string]bool)
	for _, o := range r.Ours {
		t, ok := theirs[o.Fingerprint]
		if !ok {
			out = append(out, o)
			decisions = append(decisions, Decision{Fingerprint: o.Fingerprint, FilePath: o.FilePath, Action: ActionAddOurs})
			continue
		}
		matched[o.Fingerprint] = true
		doc, d := Choose(o, t)
		out = append(out, doc)
		decisions = append(decisions, d)
	}
	for _, t := range r.Theirs {
		if matched[t.Fingerprint] {
			continue
		}
		out = append(out, t)
		decisions = append(decisions, Decision{Fingerprint: t.Fingerprint, FilePath: t.FilePath, Action: ActionAddTheirs})
	}
	return out, decisions
}

// Resolve flattens a parsed file into one record per fingerprint. A
// fingerprint repeated across segments keeps its first position and the
// more complete record.
func Resolve(p *ParseResult) ([]metadata.DocumentMetadata, []Decision) {
	var docs []metadata.DocumentMetadata
	var decisions []Decision
	pos := make(map[string]int)

	add := func(d metadata.DocumentMetadata) {
		i, ok := pos[d.Fingerprint]
		if !ok {
			pos[d.Fingerprint] = len(docs)
			docs = append(docs, d)
			return
		}
		docs[i], _ = Choose(docs[i], d)
	}

	for _, s := range p.Segments {
		if s.Region == nil {
			for _, d := range s.Clean {
				add(d)
			}
			continue
		}
		resolved, ds := ResolveRegion(*s.Region)
		decisions = append(decisions, ds...)
		for _, d := range resolved {
			add(d)
		}
	}
	return docs, decisions
}
