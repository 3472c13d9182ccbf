package reference

import "strings"

// Author represents a paper author.
type Author struct {
	First string `json:"first,omitempty"` // First/given name(s)
	Last  string `json:"last"`            // Last/family name
}

// Common name suffixes to keep with the last name.
var nameSuffixes = map[string]bool{
	"jr":   true,
	"jr.":  true,
	"sr":   true,
	"sr.":  true,
	"ii":   true,
	"iii":  true,
	"iv":   true,
	"phd":  true,
	"ph.d": true,
	"md":   true,
	"m.d":  true,
}

// FullName formats the author as "First Last".
func (a Author) FullName() string {
	if a.First != "" {
		return a.First + " " + a.Last
	}
	return a.Last
}

// ParseAuthor splits a display name into first and last name.
// Accepts "First Last" and "Last, First" forms and keeps suffixes
// (Jr, III, PhD) with the last name.
//
// Known limitations:
// - Multi-part surnames (von Neumann, van der Waals) split incorrectly
// - Middle names are included in the first name
func ParseAuthor(name string) Author {
	name = strings.TrimSpace(name)
	if name == "" {
		return Author{}
	}

	if last, first, ok := strings.Cut(name, ","); ok {
		first = strings.TrimSpace(first)
		if first != "" && !nameSuffixes[strings.ToLower(first)] {
			return Author{First: first, Last: strings.TrimSpace(last)}
		}
		name = strings.TrimSpace(last) + " " + first
	}

	parts := strings.Fields(name)
	if len(parts) == 1 {
		return Author{Last: parts[0]}
	}

	lastPart := strings.ToLower(parts[len(parts)-1])
	if nameSuffixes[lastPart] && len(parts) > 2 {
		return Author{
			First: strings.Join(parts[:len(parts)-2], " "),
			Last:  parts[len(parts)-2] + " " + parts[len(parts)-1],
		}
	}
	return Author{
		First: strings.Join(parts[:len(parts)-1], " "),
		Last:  parts[len(parts)-1],
	}
}

// Surname returns the family name without any trailing suffix.
func (a Author) Surname() string {
	parts := strings.Fields(a.Last)
	if len(parts) > 1 && nameSuffixes[strings.ToLower(parts[len(parts)-1])] {
		return strings.Join(parts[:len(parts)-1], " ")
	}
	return a.Last
}
