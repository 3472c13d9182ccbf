package bibparse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/matsen/citegraph/internal/reference"
)

// AnystyleName identifies anystyle output in records.
const AnystyleName = "anystyle"

// runFunc runs a command and returns its stdout.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// Anystyle parses the References section with the anystyle CLI, one entry
// per line.
type Anystyle struct {
	path string
	run  runFunc
}

// NewAnystyle returns a parser that runs the binary at path. It fails when
// the binary cannot be found.
func NewAnystyle(path string) (*Anystyle, error) {
	if path == "" {
		path = "anystyle"
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("anystyle not available: %w", err)
	}
	return &Anystyle{path: resolved, run: execRun}, nil
}

// Name identifies the parser as a reference source.
func (*Anystyle) Name() string { return AnystyleName }

type anystyleItem struct {
	Author []struct {
		Family string `json:"family"`
		Given  string `json:"given"`
	} `json:"author"`
	Title          []string `json:"title"`
	Date           []string `json:"date"`
	ContainerTitle []string `json:"container-title"`
	Journal        []string `json:"journal"`
	DOI            []string `json:"doi"`
	CitationNumber []string `json:"citation-number"`
}

// Parse writes the section's entries to a temporary file and parses
// anystyle's JSON output.
func (a *Anystyle) Parse(ctx context.Context, text string) ([]reference.Reference, error) {
	lines := Section(text)
	if lines == nil {
		return nil, ErrNoSection
	}
	entries := splitEntries(lines)
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}

	f, err := os.CreateTemp("", "cg-refs-*.txt")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(f.Name())

	var buf strings.Builder
	for _, e := range entries {
		buf.WriteString(e.text)
		buf.WriteString("\n")
	}
	if _, err := f.WriteString(buf.String()); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("closing temp file: %w", err)
	}

	out, err := a.run(ctx, a.path, "-f", "json", "--stdout", "parse", f.Name())
	if err != nil {
		return nil, err
	}

	var items []anystyleItem
	if err := json.Unmarshal(out, &items); err != nil {
		return nil, fmt.Errorf("parsing anystyle output: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrNoEntries
	}

	refs := make([]reference.Reference, 0, len(items))
	for i, it := range items {
		ref := mapAnystyle(it)
		if i < len(entries) {
			ref.RawText = entries[i].text
			if entries[i].number > 0 {
				ref.Key = reference.NumericKey(entries[i].number)
			}
		}
		if ref.Key == "" && len(it.CitationNumber) > 0 {
			if n, err := strconv.Atoi(strings.Trim(it.CitationNumber[0], "[]. ")); err == nil && n > 0 {
				ref.Key = reference.NumericKey(n)
			}
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func mapAnystyle(it anystyleItem) reference.Reference {
	ref := reference.Reference{
		Title:  firstOf(it.Title),
		Venue:  firstOf(it.ContainerTitle),
		DOI:    firstOf(it.DOI),
		Source: AnystyleName,
	}
	if ref.Venue == "" {
		ref.Venue = firstOf(it.Journal)
	}
	if m := yearRe.FindStringSubmatch(firstOf(it.Date)); m != nil {
		ref.Year, _ = strconv.Atoi(m[1])
	}
	for _, au := range it.Author {
		if au.Family == "" {
			continue
		}
		ref.Authors = append(ref.Authors, reference.Author{First: au.Given, Last: au.Family})
	}
	return ref
}

func firstOf(list []string) string {
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}
