package match

import "regexp"

// Class identifies the pattern that produced a match.
type Class string

// Equation classes, in precedence order.
const (
	ClassDisplayDollar  Class = "display_dollar"  // $$...$$
	ClassDisplayBracket Class = "display_bracket" // \[...\]
	ClassEquationEnv    Class = "equation_env"    // \begin{equation}
	ClassAlignEnv       Class = "align_env"       // \begin{align}
	ClassEqnarrayEnv    Class = "eqnarray_env"    // \begin{eqnarray}
	ClassInlineDollar   Class = "inline_dollar"   // $...$
)

// Citation classes, in precedence order.
const (
	ClassBracketNumeric      Class = "bracket_numeric"       // [1,2], [1-3]
	ClassParenAuthorYear     Class = "paren_author_year"     // (Liu et al., 2022a)
	ClassNarrativeAuthorYear Class = "narrative_author_year" // Liu et al. (2022a)
	ClassParenNumeric        Class = "paren_numeric"         // (3)
)

// IsDisplay reports whether the class is a display-math form.
func (c Class) IsDisplay() bool {
	switch c {
	case ClassDisplayDollar, ClassDisplayBracket, ClassEquationEnv, ClassAlignEnv, ClassEqnarrayEnv:
		return true
	}
	return false
}

// IsNumeric reports whether the class is a numeric citation form.
func (c Class) IsNumeric() bool {
	return c == ClassBracketNumeric || c == ClassParenNumeric
}

// IsAuthorYear reports whether the class is an author-year citation form.
func (c Class) IsAuthorYear() bool {
	return c == ClassParenAuthorYear || c == ClassNarrativeAuthorYear
}

// pattern pairs a compiled expression with the class it reports.
// For numeric and equation patterns group 1 is the inner content; the
// author-year groups are listed next to the authors and year fragments.
type pattern struct {
	class Class
	env   string // LaTeX environment name, starred form included
	re    *regexp.Regexp
	// wordStart rejects matches that begin inside a word.
	wordStart bool
}

// RE2 has no backreferences, so each environment and its starred form
// get their own expression.
func envPattern(class Class, env string) pattern {
	q := regexp.QuoteMeta(env)
	return pattern{
		class: class,
		env:   env,
		re:    regexp.MustCompile(`(?s)\\begin\{` + q + `\}(.*?)\\end\{` + q + `\}`),
	}
}

var equationPatterns = []pattern{
	{class: ClassDisplayDollar, re: regexp.MustCompile(`(?s)\$\$(.+?)\$\$`)},
	{class: ClassDisplayBracket, re: regexp.MustCompile(`(?s)\\\[(.+?)\\\]`)},
	envPattern(ClassEquationEnv, "equation"),
	envPattern(ClassEquationEnv, "equation*"),
	envPattern(ClassAlignEnv, "align"),
	envPattern(ClassAlignEnv, "align*"),
	envPattern(ClassEqnarrayEnv, "eqnarray"),
	envPattern(ClassEqnarrayEnv, "eqnarray*"),
	{class: ClassInlineDollar, re: regexp.MustCompile(`\$([^$\n]+?)\$`)},
}

const (
	// Numbers are capped at three digits so years like [2019] are not citations.
	num = `\d{1,3}`
	// A separator is a comma/semicolon/dash with optional spaces, or plain spaces.
	sep     = `(?:\s*[,;\x{2013}\x{2014}-]\s*|\s+)`
	numList = num + `(?:` + sep + num + `)*`

	surname = `\p{Lu}[\p{L}'\x{2019}-]+`
	// Groups: first surname, et al., second surname.
	authors = `(` + surname + `)(\s+et\s+al\.?)?(?:\s+(?:and|&)\s+(` + surname + `))?`
	// Groups: year, letter suffix. Accepts 2022a and 2022, a.
	year = `(\d{4})(?:,?\s*([a-z]))?`
)

var citationPatterns = []pattern{
	{class: ClassBracketNumeric, re: regexp.MustCompile(`\[\s*(` + numList + `)\s*\]`)},
	{class: ClassParenAuthorYear, re: regexp.MustCompile(`\(` + authors + `,\s*` + year + `\)`)},
	{class: ClassNarrativeAuthorYear, re: regexp.MustCompile(authors + `\s*\(` + year + `\)`), wordStart: true},
	{class: ClassParenNumeric, re: regexp.MustCompile(`\((` + numList + `)\)`)},
}

// labelWords are capitalized words that precede a parenthesized year without
// naming an author, as in "Table (2020)".
var labelWords = map[string]bool{
	"Algorithm": true,
	"Appendix":  true,
	"Chapter":   true,
	"Eq":        true,
	"Equation":  true,
	"Fig":       true,
	"Figure":    true,
	"Lemma":     true,
	"Part":      true,
	"Sec":       true,
	"Section":   true,
	"Table":     true,
	"Theorem":   true,
}
