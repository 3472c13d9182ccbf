// Package bibparse extracts reference lists from document text when no
// lookup service has one. Local parses the References section with
// heuristics; Anystyle delegates to the anystyle CLI.
package bibparse

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrNoSection indicates the text has no References heading.
	ErrNoSection = errors.New("no references section found")

	// ErrNoEntries indicates a References section with nothing parseable in it.
	ErrNoEntries = errors.New("references section has no entries")
)

var (
	// A references heading is either a markdown heading or a bare line, as
	// PDF text has no markup. Section numbers and bold markers are allowed.
	sectionHeadRe  = regexp.MustCompile(`(?i)^(?:#{1,6}\s*)?(?:\*\*)?(?:[0-9IVX]+\.?\s+)?(references|bibliography|works cited|literature cited)(?:\*\*)?:?$`)
	markdownHeadRe = regexp.MustCompile(`^#{1,6}\s+\S`)
	bareStopRe     = regexp.MustCompile(`^(?:(?:[0-9]+|[IVX]+|[A-Z])\.?\s+)?(?i:appendix|appendices|supplementary (?:material|information)|acknowledge?ments?)\b.{0,40}$`)

	numberedEntryRe = regexp.MustCompile(`^\s*(?:\[(\d{1,3})\]|(\d{1,3})\.)\s+(.*)$`)
	bulletEntryRe   = regexp.MustCompile(`^\s*[-*+]\s+(.*)$`)
)

// Section returns the lines of the last References section in text, or
// nil when there is none.
func Section(text string) []string {
	lines := strings.Split(text, "\n")

	start := -1
	for i, line := range lines {
		if sectionHeadRe.MatchString(strings.TrimSpace(line)) {
			start = i + 1
		}
	}
	if start < 0 {
		return nil
	}

	var out []string
	for _, line := range lines[start:] {
		trimmed := strings.TrimSpace(line)
		if markdownHeadRe.MatchString(trimmed) || bareStopRe.MatchString(trimmed) {
			break
		}
		out = append(out, line)
	}
	return out
}

// rawEntry is one bibliography entry before field parsing.
type rawEntry struct {
	number int // 0 when the list is not numbered
	text   string
}

// splitEntries groups section lines into entries. Numbered and bulleted
// lists start an entry per marker with continuation lines appended;
// otherwise blank lines separate entries, or each line is one entry when
// there are no blank lines.
func splitEntries(lines []string) []rawEntry {
	numbered, bulleted := false, false
	for _, line := range lines {
		if numberedEntryRe.MatchString(line) {
			numbered = true
			break
		}
		if bulletEntryRe.MatchString(line) {
			bulleted = true
		}
	}

	var entries []rawEntry
	appendTo := func(s string) {
		last := &entries[len(entries)-1]
		last.text = joinLine(last.text, s)
	}

	switch {
	case numbered:
		for _, line := range lines {
			if m := numberedEntryRe.FindStringSubmatch(line); m != nil {
				n := atoi(m[1] + m[2])
				entries = append(entries, rawEntry{number: n, text: strings.TrimSpace(m[3])})
				continue
			}
			if s := strings.TrimSpace(line); s != "" && len(entries) > 0 {
				appendTo(s)
			}
		}
	case bulleted:
		for _, line := range lines {
			if m := bulletEntryRe.FindStringSubmatch(line); m != nil {
				entries = append(entries, rawEntry{text: strings.TrimSpace(m[1])})
				continue
			}
			if s := strings.TrimSpace(line); s != "" && len(entries) > 0 {
				appendTo(s)
			}
		}
	case hasBlankSeparators(lines):
		inEntry := false
		for _, line := range lines {
			s := strings.TrimSpace(line)
			if s == "" {
				inEntry = false
				continue
			}
			if inEntry {
				appendTo(s)
				continue
			}
			entries = append(entries, rawEntry{text: s})
			inEntry = true
		}
	default:
		for _, line := range lines {
			if s := strings.TrimSpace(line); s != "" {
				entries = append(entries, rawEntry{text: s})
			}
		}
	}
	return entries
}

// hasBlankSeparators reports whether a blank line separates two non-blank
// lines.
func hasBlankSeparators(lines []string) bool {
	seenText, seenBlank := false, false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			seenBlank = seenText
			continue
		}
		if seenBlank {
			return true
		}
		seenText = true
	}
	return false
}

// joinLine appends a wrapped line, rejoining words hyphenated at the break.
func joinLine(text, next string) string {
	if strings.HasSuffix(text, "-") && !strings.HasSuffix(text, " -") {
		return text[:len(text)-1] + next
	}
	return text + " " + next
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
