// Package citation turns raw citation markers into reference keys and links
// them against a document's bibliography.
package citation

import "github.com/matsen/citegraph/internal/match"

// Style is the citation style tag.
type Style string

const (
	StyleNumeric    Style = "numeric"
	StyleAuthorYear Style = "author-year"
)

// Citation is one in-text occurrence of a reference marker.
type Citation struct {
	Text       string   `json:"text"`
	Style      Style    `json:"style"`
	Context    string   `json:"context"`
	Keys       []string `json:"keys"`
	Normalized string   `json:"normalized"`

	// Orphans lists keys that have no reference. Under KeepOrphans they also
	// remain in Keys.
	Orphans []string `json:"orphans,omitempty"`
	Linked  bool     `json:"linked"`

	LowConfidence  bool   `json:"low_confidence,omitempty"`
	ConfidenceNote string `json:"confidence_note,omitempty"`

	Start int `json:"start"`
	End   int `json:"end"`
}

// Candidate is a normalized marker not yet linked to references.
type Candidate struct {
	Match          match.Match
	Style          Style
	Keys           []string
	Normalized     string
	LowConfidence  bool
	ConfidenceNote string
}
