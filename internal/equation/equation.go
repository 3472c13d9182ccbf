// Package equation classifies equation spans found by the matcher.
package equation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/matsen/citegraph/internal/match"
)

// Type is the equation-type tag.
type Type string

const (
	TypeInline  Type = "inline"
	TypeDisplay Type = "display"

	// Reserved; never assigned by Classify.
	TypeDefinition Type = "definition"
	TypeTheorem    Type = "theorem"
)

// Equation is one classified equation span.
type Equation struct {
	Content  string   `json:"content"`
	Type     Type     `json:"type"`
	Context  string   `json:"context"`
	Symbols  []Symbol `json:"symbols"`
	Label    string   `json:"label,omitempty"`
	Numbered bool     `json:"numbered,omitempty"`
	Env      string   `json:"env,omitempty"`

	Line  int `json:"line,omitempty"`
	Start int `json:"start"`
	End   int `json:"end"`
}

var labelPattern = regexp.MustCompile(`\\label\{([^}]+)\}`)

// Classify tags a span by its pattern class and extracts its symbols.
// It never fails; spans without recognized symbols get an empty set.
func Classify(m match.Match) Equation {
	content := m.Inner
	var label string
	if sub := labelPattern.FindStringSubmatch(content); sub != nil {
		label = sub[1]
		content = labelPattern.ReplaceAllString(content, "")
	}
	content = strings.TrimSpace(content)

	eq := Equation{
		Content: content,
		Type:    TypeInline,
		Context: m.Context.Before + m.Text + m.Context.After,
		Symbols: Symbols(content),
		Label:   label,
		Env:     m.Env,
		Start:   m.Start,
		End:     m.End,
	}
	if m.Class.IsDisplay() {
		eq.Type = TypeDisplay
	}
	if m.Env != "" && !strings.HasSuffix(m.Env, "*") {
		eq.Numbered = true
	}
	return eq
}

// Options controls ExtractAll.
type Options struct {
	// Window is the context window in runes. Zero selects the matcher default.
	Window int
	// MinInlineLength drops inline equations whose content has fewer runes.
	MinInlineLength int
}

// ExtractAll scans markdown and classifies every equation span in order.
func ExtractAll(markdown string, opts Options) []Equation {
	spans := match.NewScanner(opts.Window).Scan(markdown).Equations
	return FromMatches(markdown, spans, opts.MinInlineLength)
}

// FromMatches classifies spans already found in markdown.
func FromMatches(markdown string, spans []match.Match, minInline int) []Equation {
	out := make([]Equation, 0, len(spans))
	line, pos := 1, 0
	for _, m := range spans {
		eq := Classify(m)
		if eq.Type == TypeInline && utf8.RuneCountInString(eq.Content) < minInline {
			continue
		}
		line += strings.Count(markdown[pos:m.Start], "\n")
		pos = m.Start
		eq.Line = line
		out = append(out, eq)
	}
	return out
}
