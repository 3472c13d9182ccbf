// Package match finds citation markers and equation spans in markdown.
//
// Equations are claimed first, in precedence order ($$, \[, environments,
// then $). Claimed bytes are masked before the next pattern runs, so a later
// pattern can never re-match text an earlier one took and citations never
// match inside math. Offsets always refer to the unmasked input.
package match

import (
	"sort"
	"unicode"
	"unicode/utf8"
)

// DefaultContextWindow is the number of runes captured on each side of a match.
const DefaultContextWindow = 40

// mask replaces claimed bytes so later patterns cannot reuse their
// delimiters. Whether a byte is claimed is tracked separately, so input that
// already contains mask bytes still matches.
const mask = 0

// Context is the text immediately surrounding a match, captured verbatim.
type Context struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// String joins the window around a placeholder for the match itself.
func (c Context) String() string {
	return c.Before + "..." + c.After
}

// AuthorYear holds the fragments of an author-year citation marker.
type AuthorYear struct {
	First  string // first author surname as written
	Second string // second author surname for two-author forms
	EtAl   bool
	Year   string
	Suffix string // disambiguation letter, e.g. "a" in 2022a
}

// Match is one citation marker or equation span.
type Match struct {
	Text    string  `json:"text"`
	Inner   string  `json:"inner,omitempty"` // content between delimiters
	Start   int     `json:"start"`           // byte offset, inclusive
	End     int     `json:"end"`             // byte offset, exclusive
	Class   Class   `json:"class"`
	Env     string  `json:"env,omitempty"` // LaTeX environment, e.g. align*
	Context Context `json:"context"`

	AuthorYear *AuthorYear `json:"-"`
}

// Result holds both match sequences, each ordered by offset.
type Result struct {
	Citations []Match
	Equations []Match
}

// Scanner finds matches with a configurable context window.
type Scanner struct {
	Window int
}

// NewScanner returns a scanner with the given context window. A
// non-positive window selects DefaultContextWindow.
func NewScanner(window int) *Scanner {
	if window <= 0 {
		window = DefaultContextWindow
	}
	return &Scanner{Window: window}
}

// Scan runs the default scanner over markdown.
func Scan(markdown string) Result {
	return NewScanner(DefaultContextWindow).Scan(markdown)
}

// Scan returns every equation span and citation marker in markdown. It never
// fails; input without matches yields empty slices.
func (s *Scanner) Scan(markdown string) Result {
	ws := newWorkspace(markdown)
	res := Result{
		Equations: s.claim(ws, equationPatterns),
	}
	res.Citations = s.claim(ws, citationPatterns)
	return res
}

// workspace is the masked copy of the input plus the set of claimed bytes.
type workspace struct {
	text  string
	buf   []byte
	taken []bool
}

func newWorkspace(text string) *workspace {
	return &workspace{text: text, buf: []byte(text), taken: make([]bool, len(text))}
}

func (w *workspace) free(start, end int) bool {
	for i := start; i < end; i++ {
		if w.taken[i] {
			return false
		}
	}
	return true
}

func (w *workspace) take(start, end int) {
	for i := start; i < end; i++ {
		w.buf[i] = mask
		w.taken[i] = true
	}
}

// claim applies patterns in order, masking each pattern's matches before the
// next pattern runs.
func (s *Scanner) claim(ws *workspace, patterns []pattern) []Match {
	text := ws.text
	out := []Match{}
	for _, p := range patterns {
		var found []Match
		for _, loc := range p.re.FindAllSubmatchIndex(ws.buf, -1) {
			start, end := loc[0], loc[1]
			if !ws.free(start, end) {
				continue
			}
			if p.wordStart && start > 0 {
				if r, _ := utf8.DecodeLastRuneInString(text[:start]); unicode.IsLetter(r) || unicode.IsDigit(r) {
					continue
				}
			}
			m := Match{
				Text:    text[start:end],
				Start:   start,
				End:     end,
				Class:   p.class,
				Env:     p.env,
				Context: s.window(text, start, end),
			}
			if p.class.IsAuthorYear() {
				m.AuthorYear = authorYear(text, loc)
				if labelWords[m.AuthorYear.First] && m.AuthorYear.Second == "" {
					continue
				}
			} else {
				m.Inner = group(text, loc, 1)
			}
			found = append(found, m)
		}
		for _, m := range found {
			ws.take(m.Start, m.End)
		}
		out = append(out, found...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

func authorYear(text string, loc []int) *AuthorYear {
	return &AuthorYear{
		First:  group(text, loc, 1),
		EtAl:   group(text, loc, 2) != "",
		Second: group(text, loc, 3),
		Year:   group(text, loc, 4),
		Suffix: group(text, loc, 5),
	}
}

func group(text string, loc []int, n int) string {
	if 2*n+1 >= len(loc) || loc[2*n] < 0 {
		return ""
	}
	return text[loc[2*n]:loc[2*n+1]]
}

// window captures up to s.Window runes on each side of [start, end).
func (s *Scanner) window(text string, start, end int) Context {
	before := start
	for n := 0; n < s.Window && before > 0; n++ {
		_, size := utf8.DecodeLastRuneInString(text[:before])
		before -= size
	}
	after := end
	for n := 0; n < s.Window && after < len(text); n++ {
		_, size := utf8.DecodeRuneInString(text[after:])
		after += size
	}
	return Context{Before: text[before:start], After: text[end:after]}
}
