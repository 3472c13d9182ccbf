package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matsen/citegraph/internal/reference"
)

func TestToBibTeX_BasicArticle(t *testing.T) {
	ref := reference.Reference{
		Key:   "ref_1",
		Slug:  "smith_and_doe_2026",
		DOI:   "10.1234/test",
		Title: "Test Paper Title",
		Authors: []reference.Author{
			{First: "John", Last: "Smith"},
			{First: "Jane", Last: "Doe"},
		},
		Venue: "Nature",
		Year:  2026,
	}

	got := ToBibTeX(ref)

	for _, want := range []string{
		"@article{smith_and_doe_2026,",
		`author = {Smith, John and Doe, Jane}`,
		`title = {Test Paper Title}`,
		`journal = {Nature}`,
		`year = {2026}`,
		`doi = {10.1234/test}`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("ToBibTeX() missing %q, got:\n%s", want, got)
		}
	}
	if !strings.HasSuffix(got, "}\n") {
		t.Errorf("ToBibTeX() should end with }\\n, got:\n%s", got)
	}
}

func TestToBibTeX_Inproceedings(t *testing.T) {
	ref := reference.Reference{
		Key:   "ref_2",
		Title: "Conference Paper",
		Venue: "Proceedings of NeurIPS",
		Year:  2024,
	}

	got := ToBibTeX(ref)
	if !strings.HasPrefix(got, "@inproceedings{ref_2,") {
		t.Errorf("ToBibTeX() should be inproceedings keyed ref_2, got:\n%s", got)
	}
	if !strings.Contains(got, `booktitle = {Proceedings of NeurIPS}`) {
		t.Errorf("ToBibTeX() should use booktitle, got:\n%s", got)
	}
}

func TestDetermineEntryType(t *testing.T) {
	tests := []struct {
		venue string
		arxiv string
		want  string
	}{
		{"Nature", "", "article"},
		{"arXiv preprint", "", "article"},
		{"bioRxiv", "", "article"},
		{"Proceedings of ICML", "", "inproceedings"},
		{"Proc. ACL", "", "inproceedings"},
		{"Workshop on Graphs", "", "inproceedings"},
		{"", "2106.15928", "article"},
		{"", "", "misc"},
	}

	for _, tt := range tests {
		t.Run(tt.venue+tt.arxiv, func(t *testing.T) {
			got := determineEntryType(reference.Reference{Venue: tt.venue, ArXivID: tt.arxiv})
			if got != tt.want {
				t.Errorf("determineEntryType(%q) = %q, want %q", tt.venue, got, tt.want)
			}
		})
	}
}

func TestFormatAuthors(t *testing.T) {
	tests := []struct {
		name    string
		authors []reference.Author
		want    string
	}{
		{"single", []reference.Author{{First: "J.", Last: "Smith"}}, "Smith, J."},
		{"two", []reference.Author{{First: "J.", Last: "Smith"}, {First: "K", Last: "Jones"}}, "Smith, J. and Jones, K"},
		{"last only", []reference.Author{{Last: "Consortium"}}, "Consortium"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatAuthors(tt.authors); got != tt.want {
				t.Errorf("formatAuthors() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEscapeLatex(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"A & B", `A \& B`},
		{"50% off", `50\% off`},
		{"$x$", `\$x\$`},
		{"a_b", `a\_b`},
		{"{x}", `\{x\}`},
		{"~", `\textasciitilde{}`},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		if got := escapeLatex(tt.in); got != tt.want {
			t.Errorf("escapeLatex(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToBibTeX_OptionalFields(t *testing.T) {
	got := ToBibTeX(reference.Reference{Key: "ref_3", RawText: "Unparsed & odd"})

	if strings.Contains(got, "year =") || strings.Contains(got, "doi =") || strings.Contains(got, "title =") {
		t.Errorf("ToBibTeX() should omit empty fields, got:\n%s", got)
	}
	if !strings.Contains(got, `note = {Unparsed \& odd}`) {
		t.Errorf("ToBibTeX() should keep raw text as a note, got:\n%s", got)
	}
}

func TestToBibTeX_ArXiv(t *testing.T) {
	got := ToBibTeX(reference.Reference{Key: "ref_4", Title: "Preprint", ArXivID: "2106.15928"})
	if !strings.Contains(got, "eprint = {2106.15928}") || !strings.Contains(got, "archivePrefix = {arXiv}") {
		t.Errorf("ToBibTeX() missing eprint fields, got:\n%s", got)
	}
}

func TestToBibTeXList(t *testing.T) {
	refs := []reference.Reference{
		{Key: "ref_1", Slug: "smith_2020", Title: "One"},
		{Key: "ref_2", Title: "Two"},
		{Key: "ref_3", Slug: "smith_2020", Title: "Duplicate slug"},
	}

	got := ToBibTeXList(refs)
	if strings.Count(got, "@") != 2 {
		t.Errorf("ToBibTeXList() should write 2 entries, got:\n%s", got)
	}
	if strings.Contains(got, "Duplicate slug") {
		t.Errorf("ToBibTeXList() should skip repeated keys, got:\n%s", got)
	}
	if ToBibTeXList(nil) != "" {
		t.Error("ToBibTeXList(nil) should be empty")
	}
}

func TestReadBibIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.bib")
	content := `@article{smith_2020,
  title = {One},
  doi = {https://doi.org/10.1234/ABC},
}

@misc{jones_2021,
  title = {Two},
}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	idx, err := ReadBibIndex(path)
	if err != nil {
		t.Fatalf("ReadBibIndex() error = %v", err)
	}
	if !idx.Keys["smith_2020"] || !idx.Keys["jones_2021"] {
		t.Errorf("Keys = %v", idx.Keys)
	}
	if idx.DOIs["10.1234/abc"] != "smith_2020" {
		t.Errorf("DOIs = %v", idx.DOIs)
	}

	refs := []reference.Reference{
		{Key: "ref_1", DOI: "10.1234/abc"},
		{Key: "ref_2", Slug: "jones_2021"},
		{Key: "ref_3", Slug: "lee_2022"},
	}
	missing := idx.Missing(refs)
	if len(missing) != 1 || missing[0].Key != "ref_3" {
		t.Errorf("Missing() = %+v, want only ref_3", missing)
	}
}

func TestReadBibIndex_MissingFile(t *testing.T) {
	idx, err := ReadBibIndex(filepath.Join(t.TempDir(), "none.bib"))
	if err != nil {
		t.Fatalf("ReadBibIndex() error = %v", err)
	}
	if len(idx.Keys) != 0 {
		t.Errorf("Keys = %v, want empty", idx.Keys)
	}
}

func TestAppendToBibFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bib")
	if err := AppendToBibFile(path, "@misc{a,\n}\n"); err != nil {
		t.Fatal(err)
	}
	if err := AppendToBibFile(path, "@misc{b,\n}\n"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(data), "@misc") != 2 {
		t.Errorf("file = %q", data)
	}
}
