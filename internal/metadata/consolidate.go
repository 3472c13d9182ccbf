package metadata

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/matsen/citegraph/internal/citation"
	"github.com/matsen/citegraph/internal/equation"
	"github.com/matsen/citegraph/internal/reference"
)

// Input holds the partial outputs to merge. Nil or empty fields are absent
// and leave the record unchanged.
type Input struct {
	FilePath    string
	Fingerprint string

	Identifier *Identifier
	Metadata   *Bibliographic

	// Lists replace the stored list wholesale when non-empty.
	References []reference.Reference
	Citations  []citation.Citation
	Equations  []equation.Equation

	// FormatValid is the citation format validity from extraction, if run.
	FormatValid *bool

	Steps   []string          // stage names that succeeded
	Methods map[string]string // concern -> method, e.g. references -> crossref
	Errors  []string
}

// Consolidate merges in onto existing, which may be nil or belong to another
// fingerprint, in which case a fresh record is started.
//
// Scalar fields overlay: a non-empty input value wins, and replacing a
// different non-empty value yields a ConsolidationConflict that is both
// returned and appended to the record's errors. Errors are append-only and
// exact duplicates are dropped, so merging the same input twice gives the
// same record.
func Consolidate(existing *DocumentMetadata, in Input) (DocumentMetadata, []error) {
	var doc DocumentMetadata
	if existing != nil && (in.Fingerprint == "" || existing.Fingerprint == in.Fingerprint) {
		doc = existing.Clone()
	} else {
		doc = New(in.FilePath, in.Fingerprint)
	}
	if doc.SchemaVersion == "" {
		doc.SchemaVersion = SchemaVersion
	}

	m := &merger{fingerprint: doc.Fingerprint}
	m.set("file_path", &doc.FilePath, in.FilePath)

	if id := in.Identifier; id != nil && id.Value != "" {
		m.set("identifier", &doc.Identifier, id.Value)
		m.set("identifier_type", &doc.IdentifierType, id.Type)
		m.set("identifier_method", &doc.IdentifierMethod, id.Method)
		if id.Method != "" {
			doc.Processing.ExtractionMethods["identifier"] = id.Method
		}
	}

	if md := in.Metadata; md != nil {
		// Filename-derived values are placeholders; real metadata replaces
		// them without a conflict.
		m.soft = doc.Processing.ExtractionMethods["metadata"] == "filename"
		m.set("title", &doc.Title, md.Title)
		m.set("abstract", &doc.Abstract, md.Abstract)
		m.set("venue", &doc.Venue, md.Venue)
		m.setYear(&doc.Year, md.Year)
		m.setAuthors(&doc.Authors, md.Authors)
		m.soft = false
		if md.Source != "" {
			doc.Processing.ExtractionMethods["metadata"] = md.Source
		}
	}

	if len(in.References) > 0 {
		doc.References = append([]reference.Reference{}, in.References...)
	}
	if len(in.Citations) > 0 {
		doc.Citations = append([]citation.Citation{}, in.Citations...)
	}
	if len(in.Equations) > 0 {
		doc.Equations = append([]equation.Equation{}, in.Equations...)
	}
	if in.FormatValid != nil {
		doc.Linking.FormatValid = *in.FormatValid
	}

	if doc.Title == "" {
		if fb := FromFilename(doc.FilePath); fb != nil {
			doc.Title = fb.Title
			if len(doc.Authors) == 0 {
				doc.Authors = fb.Authors
			}
			if doc.Year == 0 {
				doc.Year = fb.Year
			}
			doc.Processing.ExtractionMethods["metadata"] = "filename"
		}
	}

	for _, s := range in.Steps {
		doc.Processing.StepsCompleted = appendUnique(doc.Processing.StepsCompleted, s)
	}
	for k, v := range in.Methods {
		doc.Processing.ExtractionMethods[k] = v
	}

	for _, e := range in.Errors {
		doc.Errors = appendUnique(doc.Errors, e)
	}
	for _, c := range m.conflicts {
		doc.Errors = appendUnique(doc.Errors, c.Error())
	}

	formatValid := doc.Linking.FormatValid
	doc.Linking = citation.Summarize(doc.Citations, doc.References)
	doc.Linking.FormatValid = formatValid
	doc.NeedsReview = !doc.Linking.LinkingValid

	return doc, m.conflicts
}

// merger overlays scalar fields and collects conflicts.
type merger struct {
	fingerprint string
	soft        bool
	conflicts   []error
}

func (m *merger) set(field string, dst *string, v string) {
	if v == "" || *dst == v {
		return
	}
	if *dst != "" && !m.soft {
		m.conflict(field, *dst, v)
	}
	*dst = v
}

func (m *merger) setYear(dst *int, v int) {
	if v == 0 || *dst == v {
		return
	}
	if *dst != 0 && !m.soft {
		m.conflict("year", strconv.Itoa(*dst), strconv.Itoa(v))
	}
	*dst = v
}

func (m *merger) setAuthors(dst *[]reference.Author, v []reference.Author) {
	if len(v) == 0 {
		return
	}
	old, next := authorList(*dst), authorList(v)
	if old == next {
		return
	}
	if old != "" && !m.soft {
		m.conflict("authors", old, next)
	}
	*dst = append([]reference.Author{}, v...)
}

func (m *merger) conflict(field, old, next string) {
	m.conflicts = append(m.conflicts, &ConsolidationConflict{
		Fingerprint: m.fingerprint,
		Field:       field,
		Old:         old,
		New:         next,
	})
}

func authorList(authors []reference.Author) string {
	names := make([]string, len(authors))
	for i, a := range authors {
		names[i] = a.FullName()
	}
	return strings.Join(names, "; ")
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

// Repository looks up the stored record for a fingerprint. Implementations
// return ErrNotFound when there is none.
type Repository interface {
	Get(ctx context.Context, fingerprint string) (*DocumentMetadata, error)
}

// Consolidator merges inputs onto the stored record for their fingerprint.
type Consolidator struct {
	repo Repository
}

// NewConsolidator returns a consolidator backed by repo. A nil repo always
// starts from an empty record.
func NewConsolidator(repo Repository) *Consolidator {
	return &Consolidator{repo: repo}
}

// Consolidate loads the existing record, if any, and merges in onto it.
// The returned error is non-nil only when the input is unusable or the
// repository fails; conflicts are returned separately.
func (c *Consolidator) Consolidate(ctx context.Context, in Input) (DocumentMetadata, []error, error) {
	if in.Fingerprint == "" {
		return DocumentMetadata{}, nil, ErrNoFingerprint
	}

	var existing *DocumentMetadata
	if c.repo != nil {
		doc, err := c.repo.Get(ctx, in.Fingerprint)
		if err != nil && !IsNotFound(err) {
			return DocumentMetadata{}, nil, fmt.Errorf("loading %s: %w", in.Fingerprint, err)
		}
		existing = doc
	}

	doc, conflicts := Consolidate(existing, in)
	return doc, conflicts, nil
}
