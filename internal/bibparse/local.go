package bibparse

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/matsen/citegraph/internal/pdf"
	"github.com/matsen/citegraph/internal/reference"
)

// LocalName identifies locally parsed references in records.
const LocalName = "local"

var (
	doiTextRe    = regexp.MustCompile(`(?i)(?:https?://(?:dx\.)?doi\.org/|doi:\s*)?10\.\d{4,9}/\S+`)
	parenYearRe  = regexp.MustCompile(`\(\s*((?:19|20)\d{2})[a-z]?\s*\)\.?`)
	yearRe       = regexp.MustCompile(`\b((?:19|20)\d{2})[a-z]?\b`)
	quotedRe     = regexp.MustCompile(`[“"]([^”"]{3,})[”"]`)
	initialRe    = regexp.MustCompile(`\b([A-Z])\.`)
	initialsRe   = regexp.MustCompile(`^(?:[A-Z]\.?[\s-]*){1,4}$`)
	bareInitials = regexp.MustCompile(`^[A-Z]{1,3}$`)
	venuePrefix  = regexp.MustCompile(`(?i)^[,.\s]*(?:in:?\s+)?`)

	// Vancouver author blocks ("Smith JK, Lee M.") end in a bare initial,
	// which sentence splitting would otherwise protect.
	vancouverRe = regexp.MustCompile(`^((?:\p{Lu}[\p{L}'\-]+(?: \p{Lu}[\p{L}'\-]+)* [A-Z]{1,3}, )*\p{Lu}[\p{L}'\-]+(?: \p{Lu}[\p{L}'\-]+)* [A-Z]{1,3})(?:,? et al)?\.\s+(.+)$`)
)

// abbreviations are protected from sentence splitting.
var abbreviations = []string{"et al.", "e.g.", "i.e.", "Proc.", "Vol.", "vol.", "pp.", "No.", "no.", "Conf.", "Int.", "Trans.", "Rev.", "Lett."}

// Local parses the References section of a document's text.
type Local struct{}

// NewLocal returns the heuristic parser.
func NewLocal() *Local { return &Local{} }

// Name identifies the parser as a reference source.
func (*Local) Name() string { return LocalName }

// Parse returns the document's references in bibliography order. Numbered
// entries carry their positional key; unnumbered ones are left for
// reference.AssignKeys.
func (*Local) Parse(ctx context.Context, text string) ([]reference.Reference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lines := Section(text)
	if lines == nil {
		return nil, ErrNoSection
	}
	entries := splitEntries(lines)
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}

	refs := make([]reference.Reference, 0, len(entries))
	for _, e := range entries {
		ref := ParseEntry(e.text)
		if e.number > 0 {
			ref.Key = reference.NumericKey(e.number)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// ParseEntry extracts fields from one bibliography entry. It recognizes
// quoted titles (IEEE), a parenthesized year after the authors (APA) and
// Vancouver author lists; otherwise it splits authors, title and venue at
// sentence boundaries.
func ParseEntry(raw string) reference.Reference {
	raw = strings.TrimSpace(raw)
	ref := reference.Reference{
		RawText: raw,
		DOI:     pdf.FindDOI(raw),
		Source:  LocalName,
	}

	body := strings.TrimSpace(doiTextRe.ReplaceAllString(raw, ""))

	var authors, title, venue string
	if m := quotedRe.FindStringSubmatchIndex(body); m != nil {
		authors = body[:m[0]]
		title = body[m[2]:m[3]]
		venue = body[m[1]:]
	} else if loc := parenYearRe.FindStringSubmatchIndex(body); loc != nil && loc[0] > 0 {
		ref.Year, _ = strconv.Atoi(body[loc[2]:loc[3]])
		authors = body[:loc[0]]
		parts := splitOnPeriods(body[loc[1]:])
		if len(parts) > 0 {
			title = parts[0]
		}
		if len(parts) > 1 {
			venue = parts[1]
		}
	} else if m := vancouverRe.FindStringSubmatch(body); m != nil {
		authors = m[1]
		parts := splitOnPeriods(m[2])
		if len(parts) > 0 {
			title = parts[0]
		}
		if len(parts) > 1 {
			venue = parts[1]
		}
	} else {
		parts := splitOnPeriods(body)
		switch len(parts) {
		case 0:
		case 1:
			title = parts[0]
		case 2:
			authors, title = parts[0], parts[1]
		default:
			authors, title, venue = parts[0], parts[1], parts[2]
		}
	}

	if ref.Year == 0 {
		if m := yearRe.FindStringSubmatch(body); m != nil {
			ref.Year, _ = strconv.Atoi(m[1])
		}
	}
	ref.Authors = parseAuthors(authors)
	ref.Title = strings.Trim(strings.TrimSpace(title), ",.;:")
	ref.Venue = cleanVenue(venue)
	return ref
}

// splitOnPeriods splits an entry into sentences at ". ", without splitting
// on common abbreviations or single-letter initials.
func splitOnPeriods(text string) []string {
	safe := text
	for _, abbr := range abbreviations {
		safe = strings.ReplaceAll(safe, abbr, strings.ReplaceAll(abbr, ".", "\x00"))
	}
	// Protect single-letter initials: "A." → "A\x00"
	safe = initialRe.ReplaceAllString(safe, "${1}\x00")

	var result []string
	for _, p := range strings.Split(safe, ". ") {
		p = strings.ReplaceAll(p, "\x00", ".")
		p = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(p), "."))
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// parseAuthors splits an author block such as "Smith, J., & Jones, K." or
// "J. Smith and K. Jones" into authors.
func parseAuthors(block string) []reference.Author {
	block = strings.TrimSpace(block)
	block = strings.TrimSuffix(block, "et al.")
	block = strings.TrimSpace(strings.TrimSuffix(block, "et al"))
	if block == "" {
		return nil
	}

	block = strings.NewReplacer(" and ", ",", " & ", ",", "&", ",", ";", ",").Replace(block)

	var authors []reference.Author
	for _, tok := range strings.Split(block, ",") {
		tok = strings.Trim(strings.TrimSpace(tok), ".")
		if tok == "" || strings.EqualFold(tok, "et al") || strings.EqualFold(tok, "and") {
			continue
		}
		if initialsRe.MatchString(tok+".") && len(authors) > 0 && authors[len(authors)-1].First == "" {
			authors[len(authors)-1].First = initialsWithDots(tok)
			continue
		}
		authors = append(authors, parseName(tok))
	}
	return authors
}

// parseName handles "J. Smith", "Smith" and Vancouver-style "Smith JK".
func parseName(name string) reference.Author {
	fields := strings.Fields(name)
	if len(fields) >= 2 && bareInitials.MatchString(fields[len(fields)-1]) {
		return reference.Author{
			First: fields[len(fields)-1],
			Last:  strings.Join(fields[:len(fields)-1], " "),
		}
	}
	a := reference.ParseAuthor(name)
	if a.First != "" && !strings.HasSuffix(a.First, ".") && len(a.First) == 1 {
		a.First += "."
	}
	return a
}

func initialsWithDots(tok string) string {
	if strings.HasSuffix(tok, ".") {
		return tok
	}
	return tok + "."
}

func cleanVenue(s string) string {
	s = venuePrefix.ReplaceAllString(strings.TrimSpace(s), "")
	s = yearRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, "., ;:")
	return strings.TrimSpace(s)
}
