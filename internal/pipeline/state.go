package pipeline

import (
	"github.com/matsen/citegraph/internal/citation"
	"github.com/matsen/citegraph/internal/equation"
	"github.com/matsen/citegraph/internal/metadata"
	"github.com/matsen/citegraph/internal/reference"
)

// Field names a piece of State a stage can require.
type Field string

const (
	FieldText          Field = "text"
	FieldIdentifier    Field = "identifier"
	FieldBibliographic Field = "bibliographic"
	FieldReferences    Field = "references"
	FieldCitations     Field = "citations"
	FieldEquations     Field = "equations"
	FieldRecord        Field = "record"
)

// Text is the output of text extraction.
type Text struct {
	Text        string
	Markdown    string
	Fingerprint string
	Method      string // pdf, markdown, plain
}

// References is the output of reference extraction.
type References struct {
	List   []reference.Reference
	Method string // crossref, local, anystyle
}

// Citations is the output of citation extraction.
type Citations struct {
	List   []citation.Citation
	Report citation.Report
}

// Equations is the output of equation extraction.
type Equations struct {
	List []equation.Equation
}

// State is the typed accumulator passed from stage to stage. A field is
// present when it is non-nil. Stages never modify the State they receive;
// they return a delta that the coordinator merges into a new value.
type State struct {
	Path string

	Text          *Text
	Identifier    *metadata.Identifier
	Bibliographic *metadata.Bibliographic
	References    *References
	Citations     *Citations
	Equations     *Equations
	Record        *metadata.DocumentMetadata

	// Stored is set once a record has been written.
	Stored bool

	// Steps lists the stages that succeeded, in order.
	Steps []string
	// Methods records how each concern was produced.
	Methods map[string]string
	// Errors holds non-fatal errors in order of occurrence.
	Errors []error
}

// Has reports whether f is present.
func (s State) Has(f Field) bool {
	switch f {
	case FieldText:
		return s.Text != nil
	case FieldIdentifier:
		return s.Identifier != nil
	case FieldBibliographic:
		return s.Bibliographic != nil
	case FieldReferences:
		return s.References != nil
	case FieldCitations:
		return s.Citations != nil
	case FieldEquations:
		return s.Equations != nil
	case FieldRecord:
		return s.Record != nil
	}
	return false
}

// Missing returns the fields of want that are absent.
func (s State) Missing(want []Field) []Field {
	var out []Field
	for _, f := range want {
		if !s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Merge returns a new State with the present fields of d laid over s.
// Steps, Methods and Errors are appended rather than replaced.
func (s State) Merge(d State) State {
	out := s
	if d.Path != "" {
		out.Path = d.Path
	}
	if d.Text != nil {
		out.Text = d.Text
	}
	if d.Identifier != nil {
		out.Identifier = d.Identifier
	}
	if d.Bibliographic != nil {
		out.Bibliographic = d.Bibliographic
	}
	if d.References != nil {
		out.References = d.References
	}
	if d.Citations != nil {
		out.Citations = d.Citations
	}
	if d.Equations != nil {
		out.Equations = d.Equations
	}
	if d.Record != nil {
		out.Record = d.Record
	}
	out.Stored = s.Stored || d.Stored

	out.Steps = append(append([]string{}, s.Steps...), d.Steps...)
	out.Errors = append(append([]error{}, s.Errors...), d.Errors...)
	out.Methods = make(map[string]string, len(s.Methods)+len(d.Methods))
	for k, v := range s.Methods {
		out.Methods[k] = v
	}
	for k, v := range d.Methods {
		out.Methods[k] = v
	}
	return out
}

// withError returns a copy of s with err appended.
func (s State) withError(err error) State {
	return s.Merge(State{Errors: []error{err}})
}

// withStep returns a copy of s with a completed stage name appended.
func (s State) withStep(name string) State {
	return s.Merge(State{Steps: []string{name}})
}

// ErrorStrings renders Errors in order.
func (s State) ErrorStrings() []string {
	out := make([]string, len(s.Errors))
	for i, err := range s.Errors {
		out[i] = err.Error()
	}
	return out
}
