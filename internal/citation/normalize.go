package citation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/matsen/citegraph/internal/match"
	"github.com/matsen/citegraph/internal/reference"
)

// MaxRangeSpan bounds range expansion; [1-9999] is not a citation.
const MaxRangeSpan = 500

var numericToken = regexp.MustCompile(`\d+|[-\x{2013}\x{2014}]|[,;]`)

// Guards that make a bare parenthetical number unlikely to be a citation.
var lowConfidenceSuffixes = []struct {
	suffix string
	note   string
}{
	{"pp.", "preceded by a page marker"},
	{"p.", "preceded by a page marker"},
	{"vol.", "preceded by a volume marker"},
	{"no.", "preceded by an issue marker"},
	{"eq.", "preceded by an equation reference"},
	{"equation", "preceded by an equation reference"},
	{"fig.", "preceded by a figure reference"},
	{"figure", "preceded by a figure reference"},
	{"table", "preceded by a table reference"},
	{":", "preceded by a colon, as in volume:issue"},
}

// Normalize maps a raw citation match to its reference keys. It is pure:
// the same match always yields the same candidate.
func Normalize(m match.Match) (Candidate, error) {
	switch {
	case m.Class.IsNumeric():
		return normalizeNumeric(m)
	case m.Class.IsAuthorYear():
		return normalizeAuthorYear(m)
	default:
		return Candidate{}, &PatternError{Text: m.Text, Offset: m.Start, Reason: "not a citation pattern: " + string(m.Class)}
	}
}

func normalizeNumeric(m match.Match) (Candidate, error) {
	nums, reason := expandNumbers(m.Inner)
	if reason != "" {
		return Candidate{}, &PatternError{Text: m.Text, Offset: m.Start, Reason: reason}
	}

	keys := make([]string, len(nums))
	parts := make([]string, len(nums))
	for i, n := range nums {
		keys[i] = reference.NumericKey(n)
		parts[i] = strconv.Itoa(n)
	}

	c := Candidate{
		Match:      m,
		Style:      StyleNumeric,
		Keys:       keys,
		Normalized: strings.Join(parts, ","),
	}
	if m.Class == match.ClassParenNumeric {
		c.LowConfidence = true
		c.ConfidenceNote = confidenceNote(m, nums)
	}
	return c, nil
}

// expandNumbers parses "1, 2, 5-7" into [1 2 5 6 7]. Ranges expand in
// ascending order, lists keep input order and repeated numbers are dropped.
// A non-empty reason means the marker is malformed.
func expandNumbers(inner string) ([]int, string) {
	tokens := numericToken.FindAllString(inner, -1)
	if len(tokens) == 0 {
		return nil, "no numbers in marker"
	}

	var nums []int
	seen := make(map[int]bool)
	add := func(n int) {
		if !seen[n] {
			seen[n] = true
			nums = append(nums, n)
		}
	}

	for i := 0; i < len(tokens); {
		lo, err := strconv.Atoi(tokens[i])
		if err != nil {
			return nil, "expected a number, got " + strconv.Quote(tokens[i])
		}
		i++

		if i < len(tokens) && isDash(tokens[i]) {
			if i+1 >= len(tokens) {
				return nil, "range has no upper bound"
			}
			hi, err := strconv.Atoi(tokens[i+1])
			if err != nil {
				return nil, "range has no upper bound"
			}
			i += 2
			if i < len(tokens) && isDash(tokens[i]) {
				return nil, "chained range"
			}
			if hi < lo {
				return nil, "descending range " + strconv.Itoa(lo) + "-" + strconv.Itoa(hi)
			}
			if hi-lo > MaxRangeSpan {
				return nil, "range spans more than " + strconv.Itoa(MaxRangeSpan) + " references"
			}
			for n := lo; n <= hi; n++ {
				add(n)
			}
		} else {
			add(lo)
		}

		if i < len(tokens) && (tokens[i] == "," || tokens[i] == ";") {
			i++
			if i >= len(tokens) {
				return nil, "trailing separator"
			}
		}
	}
	return nums, ""
}

func isDash(tok string) bool {
	return tok == "-" || tok == "–" || tok == "—"
}

// confidenceNote explains why a bare parenthetical number is ambiguous.
func confidenceNote(m match.Match, nums []int) string {
	before := strings.ToLower(strings.TrimSpace(m.Context.Before))
	for _, g := range lowConfidenceSuffixes {
		if strings.HasSuffix(before, g.suffix) {
			return g.note
		}
	}
	if before != "" {
		last := before[len(before)-1]
		if last >= '0' && last <= '9' || last == ',' {
			return "follows a number, possibly a page range"
		}
	}
	if strings.ContainsAny(m.Inner, "-–—") {
		return "range in parentheses, possibly pages"
	}
	return "bare parenthetical number"
}

func normalizeAuthorYear(m match.Match) (Candidate, error) {
	ay := m.AuthorYear
	if ay == nil || ay.First == "" || ay.Year == "" {
		return Candidate{}, &PatternError{Text: m.Text, Offset: m.Start, Reason: "missing author or year"}
	}
	if reference.SlugName(ay.First) == "" {
		return Candidate{}, &PatternError{Text: m.Text, Offset: m.Start, Reason: "author has no letters"}
	}

	slug := reference.AuthorYearSlug(ay.First, ay.Second, ay.EtAl, ay.Year, ay.Suffix)
	return Candidate{
		Match:      m,
		Style:      StyleAuthorYear,
		Keys:       []string{slug},
		Normalized: slug,
	}, nil
}
