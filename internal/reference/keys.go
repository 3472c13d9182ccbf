package reference

import (
	"strconv"
	"strings"
	"unicode"
)

// NumericPrefix is the prefix of positional reference keys.
const NumericPrefix = "ref_"

// NumericKey returns the positional key for a bibliography number.
func NumericKey(n int) string {
	return NumericPrefix + strconv.Itoa(n)
}

// SlugName lowercases a surname and drops everything that is not a letter
// or digit, so "O'Neil" and "ONeil" produce the same slug.
func SlugName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// AuthorYearSlug builds the author-year key shared by in-text citations and
// bibliography entries:
//
//	smith_2020          one author
//	smith_and_jones_2020 two authors
//	smith_et_al_2020    three or more authors, or "et al." in the text
//
// suffix is the disambiguation letter ("a" in 2022a) and may be empty.
func AuthorYearSlug(first, second string, etAl bool, year, suffix string) string {
	parts := []string{SlugName(first)}
	switch {
	case etAl:
		parts = append(parts, "et", "al")
	case second != "":
		parts = append(parts, "and", SlugName(second))
	}
	parts = append(parts, year+strings.ToLower(suffix))
	return strings.Join(parts, "_")
}

// slugFor derives the author-year slug of a reference, or "" if the
// reference lacks an author or a year.
func slugFor(r Reference) string {
	if len(r.Authors) == 0 || r.Year == 0 {
		return ""
	}
	first := r.Authors[0].Surname()
	if SlugName(first) == "" {
		return ""
	}
	year := strconv.Itoa(r.Year)
	switch len(r.Authors) {
	case 1:
		return AuthorYearSlug(first, "", false, year, "")
	case 2:
		return AuthorYearSlug(first, r.Authors[1].Surname(), false, year, "")
	default:
		return AuthorYearSlug(first, "", true, year, "")
	}
}

// AssignKeys returns a copy of refs with positional keys and author-year
// slugs filled in. Existing keys are kept; missing ones become ref_<i+1>.
// Slugs shared by several entries get letter suffixes in list order
// (liu_et_al_2022a, liu_et_al_2022b), matching how authors disambiguate
// same-year works in the text.
func AssignKeys(refs []Reference) []Reference {
	out := make([]Reference, len(refs))
	copy(out, refs)

	counts := make(map[string]int)
	for i := range out {
		if out[i].Key == "" {
			out[i].Key = NumericKey(i + 1)
		}
		if out[i].Slug == "" {
			out[i].Slug = slugFor(out[i])
		}
		if out[i].Slug != "" {
			counts[out[i].Slug]++
		}
	}

	seen := make(map[string]int)
	for i := range out {
		base := out[i].Slug
		if base == "" || counts[base] < 2 {
			continue
		}
		out[i].Slug = base + string(rune('a'+seen[base]%26))
		seen[base]++
	}
	return out
}
