// Package metadata defines the consolidated per-document record and the
// merge that builds it from partial stage outputs.
package metadata

import (
	"github.com/matsen/citegraph/internal/citation"
	"github.com/matsen/citegraph/internal/equation"
	"github.com/matsen/citegraph/internal/reference"
)

// SchemaVersion is the version of the DocumentMetadata JSON layout.
const SchemaVersion = "1.0.0"

// Identifier types.
const (
	IdentifierDOI   = "doi"
	IdentifierArXiv = "arxiv"
)

// Identifier is the output of identifier resolution.
type Identifier struct {
	Value  string `json:"identifier"`
	Type   string `json:"identifier_type"` // doi or arxiv
	Method string `json:"method"`          // text-scan, filename, ...
}

// Bibliographic is document-level metadata from a lookup service.
type Bibliographic struct {
	Title    string             `json:"title,omitempty"`
	Authors  []reference.Author `json:"authors,omitempty"`
	Abstract string             `json:"abstract,omitempty"`
	Year     int                `json:"year,omitempty"`
	Venue    string             `json:"venue,omitempty"`
	Source   string             `json:"source,omitempty"` // crossref, arxiv, filename
}

// Processing records which steps contributed to a record.
type Processing struct {
	StepsCompleted    []string          `json:"steps_completed"`
	ExtractionMethods map[string]string `json:"extraction_methods"`
}

// DocumentMetadata is the canonical aggregate for one content fingerprint.
// It holds no wall-clock values, so merging identical inputs always yields
// byte-identical JSON.
type DocumentMetadata struct {
	SchemaVersion string `json:"schema_version"`

	// Identity
	FilePath    string `json:"file_path"`
	Fingerprint string `json:"fingerprint"`

	Identifier       string `json:"identifier,omitempty"`
	IdentifierType   string `json:"identifier_type,omitempty"`
	IdentifierMethod string `json:"identifier_method,omitempty"`

	// Bibliographic metadata
	Title    string             `json:"title"`
	Authors  []reference.Author `json:"authors"`
	Abstract string             `json:"abstract,omitempty"`
	Year     int                `json:"year,omitempty"`
	Venue    string             `json:"venue,omitempty"`

	// Content
	References []reference.Reference `json:"references"`
	Citations  []citation.Citation   `json:"citations"`
	Equations  []equation.Equation   `json:"equations"`

	// Derived from Citations and References on every merge.
	Linking     citation.Report `json:"linking"`
	NeedsReview bool            `json:"needs_review"`

	Processing Processing `json:"processing"`
	Errors     []string   `json:"errors"`
}

// New returns an empty record for a fingerprint.
func New(path, fingerprint string) DocumentMetadata {
	return DocumentMetadata{
		SchemaVersion: SchemaVersion,
		FilePath:      path,
		Fingerprint:   fingerprint,
		Authors:       []reference.Author{},
		References:    []reference.Reference{},
		Citations:     []citation.Citation{},
		Equations:     []equation.Equation{},
		Linking: citation.Report{
			FormatValid:  true,
			LinkingValid: true,
			UniqueKeys:   []string{},
			Orphans:      []string{},
			TypeCounts:   map[citation.Style]int{citation.StyleNumeric: 0, citation.StyleAuthorYear: 0},
		},
		Processing: Processing{
			StepsCompleted:    []string{},
			ExtractionMethods: map[string]string{},
		},
		Errors: []string{},
	}
}

// Clone returns a deep copy of m.
func (m DocumentMetadata) Clone() DocumentMetadata {
	out := m
	out.Authors = append([]reference.Author{}, m.Authors...)
	out.References = append([]reference.Reference{}, m.References...)
	out.Citations = append([]citation.Citation{}, m.Citations...)
	out.Equations = append([]equation.Equation{}, m.Equations...)
	out.Errors = append([]string{}, m.Errors...)
	out.Processing.StepsCompleted = append([]string{}, m.Processing.StepsCompleted...)
	out.Processing.ExtractionMethods = make(map[string]string, len(m.Processing.ExtractionMethods))
	for k, v := range m.Processing.ExtractionMethods {
		out.Processing.ExtractionMethods[k] = v
	}
	out.Linking.UniqueKeys = append([]string{}, m.Linking.UniqueKeys...)
	out.Linking.Orphans = append([]string{}, m.Linking.Orphans...)
	out.Linking.TypeCounts = make(map[citation.Style]int, len(m.Linking.TypeCounts))
	for k, v := range m.Linking.TypeCounts {
		out.Linking.TypeCounts[k] = v
	}
	return out
}
