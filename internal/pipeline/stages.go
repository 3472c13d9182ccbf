package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/matsen/citegraph/internal/citation"
	"github.com/matsen/citegraph/internal/equation"
	"github.com/matsen/citegraph/internal/logging"
	"github.com/matsen/citegraph/internal/metadata"
	"github.com/matsen/citegraph/internal/metrics"
	"github.com/matsen/citegraph/internal/reference"
)

// Stage names.
const (
	StageTextExtraction      = "text_extraction"
	StageIdentifierDetection = "identifier_detection"
	StageMetadataRetrieval   = "metadata_retrieval"
	StageReferenceExtraction = "reference_extraction"
	StageCitationExtraction  = "citation_extraction"
	StageEquationExtraction  = "equation_extraction"
	StageConsolidation       = "consolidation"
	StageStorage             = "storage"
)

// TextExtractor converts a document into text, markdown and a fingerprint.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (*Text, error)
}

// IdentifierResolver finds a DOI or arXiv identifier. A nil identifier with
// a nil error means none was found.
type IdentifierResolver interface {
	Resolve(ctx context.Context, path, text string) (*metadata.Identifier, error)
}

// MetadataLookup fetches document-level metadata for an identifier.
type MetadataLookup interface {
	Metadata(ctx context.Context, id metadata.Identifier) (*metadata.Bibliographic, error)
}

// ReferenceLookup fetches the ordered reference list for an identifier.
type ReferenceLookup interface {
	Name() string
	References(ctx context.Context, id metadata.Identifier) ([]reference.Reference, error)
}

// ReferenceParser extracts references from raw text. Its output is less
// reliable than a lookup.
type ReferenceParser interface {
	Name() string
	Parse(ctx context.Context, text string) ([]reference.Reference, error)
}

// Consolidator merges stage outputs into the stored record.
type Consolidator interface {
	Consolidate(ctx context.Context, in metadata.Input) (metadata.DocumentMetadata, []error, error)
}

// Store accepts finalized records keyed by fingerprint.
type Store interface {
	Name() string
	Upsert(ctx context.Context, doc metadata.DocumentMetadata) error
}

type stageBase struct {
	name      string
	requires  []Field
	mandatory bool
}

func (b stageBase) Name() string      { return b.name }
func (b stageBase) Requires() []Field { return b.requires }
func (b stageBase) Mandatory() bool   { return b.mandatory }

// TextExtraction is the only mandatory stage.
type TextExtraction struct {
	stageBase
	extractor TextExtractor
}

// NewTextExtraction returns the text extraction stage.
func NewTextExtraction(e TextExtractor) *TextExtraction {
	return &TextExtraction{
		stageBase: stageBase{name: StageTextExtraction, mandatory: true},
		extractor: e,
	}
}

func (st *TextExtraction) Run(ctx context.Context, s State) StageResult {
	t, err := st.extractor.Extract(ctx, s.Path)
	if err != nil {
		return Failed(&ExtractionError{Stage: st.name, Path: s.Path, Err: err})
	}
	if t == nil || (strings.TrimSpace(t.Text) == "" && strings.TrimSpace(t.Markdown) == "") {
		return Failed(&ExtractionError{Stage: st.name, Path: s.Path, Err: ErrEmptyResult})
	}
	if t.Fingerprint == "" {
		return Failed(&ExtractionError{Stage: st.name, Path: s.Path, Err: errors.New("no content fingerprint")})
	}

	out := *t
	if out.Markdown == "" {
		out.Markdown = out.Text
	}
	if out.Text == "" {
		out.Text = out.Markdown
	}
	return Succeeded(State{Text: &out, Methods: map[string]string{"text": out.Method}})
}

// IdentifierDetection resolves a DOI or arXiv identifier.
type IdentifierDetection struct {
	stageBase
	resolver IdentifierResolver
}

// NewIdentifierDetection returns the identifier detection stage.
func NewIdentifierDetection(r IdentifierResolver) *IdentifierDetection {
	return &IdentifierDetection{
		stageBase: stageBase{name: StageIdentifierDetection, requires: []Field{FieldText}},
		resolver:  r,
	}
}

func (st *IdentifierDetection) Run(ctx context.Context, s State) StageResult {
	id, err := st.resolver.Resolve(ctx, s.Path, s.Text.Text)
	if err != nil {
		return Failed(&ExtractionError{Stage: st.name, Path: s.Path, Err: err})
	}
	if id == nil || id.Value == "" {
		return Skipped("no identifier found")
	}
	return Succeeded(State{Identifier: id, Methods: map[string]string{"identifier": id.Method}})
}

// MetadataRetrieval looks up document metadata by identifier.
type MetadataRetrieval struct {
	stageBase
	lookup MetadataLookup
}

// NewMetadataRetrieval returns the metadata retrieval stage.
func NewMetadataRetrieval(l MetadataLookup) *MetadataRetrieval {
	return &MetadataRetrieval{
		stageBase: stageBase{name: StageMetadataRetrieval, requires: []Field{FieldIdentifier}},
		lookup:    l,
	}
}

func (st *MetadataRetrieval) Run(ctx context.Context, s State) StageResult {
	md, err := st.lookup.Metadata(ctx, *s.Identifier)
	if err != nil {
		return Failed(&ExtractionError{Stage: st.name, Path: s.Path, Err: err})
	}
	if md == nil {
		return Skipped("no metadata for " + s.Identifier.Value)
	}
	return Succeeded(State{Bibliographic: md, Methods: map[string]string{"metadata": md.Source}})
}

// ReferenceExtraction asks the lookup service for the reference list and
// falls back to local parsers when the lookup fails or has nothing.
type ReferenceExtraction struct {
	stageBase
	lookup    ReferenceLookup
	fallbacks []ReferenceParser
	logger    logging.Logger
}

// NewReferenceExtraction returns the reference extraction stage. lookup may
// be nil; fallbacks are tried in order.
func NewReferenceExtraction(lookup ReferenceLookup, fallbacks []ReferenceParser, logger logging.Logger) *ReferenceExtraction {
	if logger == nil {
		logger = logging.Nop()
	}
	return &ReferenceExtraction{
		stageBase: stageBase{name: StageReferenceExtraction, requires: []Field{FieldText}},
		lookup:    lookup,
		fallbacks: fallbacks,
		logger:    logger,
	}
}

func (st *ReferenceExtraction) Run(ctx context.Context, s State) StageResult {
	var errs []error

	if st.lookup != nil && s.Identifier != nil {
		refs, err := st.lookup.References(ctx, *s.Identifier)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", st.lookup.Name(), err))
			st.logger.Warn("reference lookup failed, trying fallback",
				logging.String("identifier", s.Identifier.Value), logging.Err(err))
		case len(refs) == 0:
			st.logger.Debug("reference lookup returned nothing, trying fallback",
				logging.String("identifier", s.Identifier.Value))
		default:
			return st.done(refs, st.lookup.Name())
		}
	}

	for _, p := range st.fallbacks {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		refs, err := p.Parse(ctx, s.Text.Text)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			st.logger.Debug("reference parser failed", logging.String("parser", p.Name()), logging.Err(err))
			continue
		}
		return st.done(refs, p.Name())
	}

	if len(errs) == 0 {
		errs = append(errs, errors.New("no reference source available"))
	}
	return Failed(&ExtractionError{Stage: st.name, Path: s.Path, Err: errors.Join(errs...)})
}

func (st *ReferenceExtraction) done(refs []reference.Reference, method string) StageResult {
	return Succeeded(State{
		References: &References{List: reference.AssignKeys(refs), Method: method},
		Methods:    map[string]string{"references": method},
	})
}

// CitationExtraction finds citation markers and links them to references.
// When reference extraction produced nothing, markers are still recorded but
// every key stays unlinked and the per-key linking errors are not reported.
type CitationExtraction struct {
	stageBase
	extractor *citation.Extractor
	metrics   *metrics.Metrics
}

// NewCitationExtraction returns the citation extraction stage.
func NewCitationExtraction(e *citation.Extractor, m *metrics.Metrics) *CitationExtraction {
	return &CitationExtraction{
		stageBase: stageBase{name: StageCitationExtraction, requires: []Field{FieldText}},
		extractor: e,
		metrics:   m,
	}
}

func (st *CitationExtraction) Run(_ context.Context, s State) StageResult {
	var refs []reference.Reference
	if s.References != nil {
		refs = s.References.List
	}
	res := st.extractor.Extract(s.Text.Markdown, refs)

	errs := res.Errors
	if s.References == nil {
		errs = nil
		for _, err := range res.Errors {
			if !citation.IsLinkingError(err) {
				errs = append(errs, err)
			}
		}
	}

	byStyle := make(map[string]int, len(res.TypeCounts))
	for style, n := range res.TypeCounts {
		byStyle[string(style)] = n
	}
	st.metrics.RecordCitations(byStyle, len(res.Orphans))

	return Succeeded(State{
		Citations: &Citations{List: res.Citations, Report: res.Report},
		Errors:    errs,
	})
}

// EquationExtraction finds and classifies equations. It never fails.
type EquationExtraction struct {
	stageBase
	opts equation.Options
}

// NewEquationExtraction returns the equation extraction stage.
func NewEquationExtraction(opts equation.Options) *EquationExtraction {
	return &EquationExtraction{
		stageBase: stageBase{name: StageEquationExtraction, requires: []Field{FieldText}},
		opts:      opts,
	}
}

func (st *EquationExtraction) Run(_ context.Context, s State) StageResult {
	return Succeeded(State{Equations: &Equations{List: equation.ExtractAll(s.Text.Markdown, st.opts)}})
}

// Consolidation merges everything gathered so far into one record.
type Consolidation struct {
	stageBase
	consolidator Consolidator
}

// NewConsolidation returns the consolidation stage.
func NewConsolidation(c Consolidator) *Consolidation {
	return &Consolidation{
		stageBase:    stageBase{name: StageConsolidation, requires: []Field{FieldText}},
		consolidator: c,
	}
}

func (st *Consolidation) Run(ctx context.Context, s State) StageResult {
	in := metadata.Input{
		FilePath:    s.Path,
		Fingerprint: s.Text.Fingerprint,
		Identifier:  s.Identifier,
		Metadata:    s.Bibliographic,
		Steps:       s.Steps,
		Methods:     s.Methods,
		Errors:      s.ErrorStrings(),
	}
	if s.References != nil {
		in.References = s.References.List
	}
	if s.Citations != nil {
		in.Citations = s.Citations.List
		valid := s.Citations.Report.FormatValid
		in.FormatValid = &valid
	}
	if s.Equations != nil {
		in.Equations = s.Equations.List
	}

	doc, conflicts, err := st.consolidator.Consolidate(ctx, in)
	if err != nil {
		return Failed(err)
	}
	return Succeeded(State{Record: &doc, Errors: conflicts})
}

// Storage writes the record to every store. The first store is the primary:
// its failure fails the stage. Failures of the others are recorded as
// non-fatal errors.
type Storage struct {
	stageBase
	stores  []Store
	metrics *metrics.Metrics
}

// NewStorage returns the storage stage.
func NewStorage(m *metrics.Metrics, primary Store, others ...Store) *Storage {
	return &Storage{
		stageBase: stageBase{name: StageStorage, requires: []Field{FieldRecord}},
		stores:    append([]Store{primary}, others...),
		metrics:   m,
	}
}

func (st *Storage) Run(ctx context.Context, s State) StageResult {
	var warnings []error
	for i, store := range st.stores {
		if err := store.Upsert(ctx, *s.Record); err != nil {
			err = fmt.Errorf("%s: %w", store.Name(), err)
			if i == 0 {
				return Failed(err)
			}
			warnings = append(warnings, &StageError{Stage: st.name, Err: err})
			continue
		}
		if i == 0 {
			st.metrics.RecordStored()
		}
	}
	return Succeeded(State{Stored: true, Errors: warnings})
}

// Deps holds the collaborators for the standard stage list.
type Deps struct {
	Text        TextExtractor
	Identifiers IdentifierResolver
	Metadata    MetadataLookup
	References  ReferenceLookup
	Fallbacks   []ReferenceParser
	Citations   *citation.Extractor
	Equations   equation.Options
	Consolidate Consolidator
	Store       Store
	Sinks       []Store
	Logger      logging.Logger
	Metrics     *metrics.Metrics
}

// DefaultStages returns the standard stage list in dependency order. Stages
// whose collaborator is nil are left out.
func DefaultStages(d Deps) []Stage {
	stages := []Stage{NewTextExtraction(d.Text)}
	if d.Identifiers != nil {
		stages = append(stages, NewIdentifierDetection(d.Identifiers))
	}
	if d.Metadata != nil {
		stages = append(stages, NewMetadataRetrieval(d.Metadata))
	}
	stages = append(stages, NewReferenceExtraction(d.References, d.Fallbacks, d.Logger))
	if d.Citations != nil {
		stages = append(stages, NewCitationExtraction(d.Citations, d.Metrics))
	}
	stages = append(stages,
		NewEquationExtraction(d.Equations),
		NewConsolidation(d.Consolidate),
	)
	if d.Store != nil {
		stages = append(stages, NewStorage(d.Metrics, d.Store, d.Sinks...))
	}
	return stages
}
