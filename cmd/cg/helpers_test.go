package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/matsen/citegraph/internal/citation"
	"github.com/matsen/citegraph/internal/metadata"
	"github.com/matsen/citegraph/internal/pipeline"
	"github.com/matsen/citegraph/internal/reference"
)

func TestComplete(t *testing.T) {
	tests := []struct {
		name string
		r    pipeline.Result
		want bool
	}{
		{"all succeeded", pipeline.Result{Status: pipeline.RunCompleted, Stages: []pipeline.StageStatus{{Status: pipeline.StatusSucceeded}, {Status: pipeline.StatusSkipped}}}, true},
		{"failed stage", pipeline.Result{Status: pipeline.RunCompleted, Stages: []pipeline.StageStatus{{Status: pipeline.StatusFailed}}}, false},
		{"aborted", pipeline.Result{Status: pipeline.RunAborted}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := complete(tt.r); got != tt.want {
				t.Errorf("complete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCollectDocuments(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.md", "notes.docx", ".hidden/c.pdf", "sub/d.txt"} {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := collectDocuments([]string{dir})
	if err != nil {
		t.Fatalf("collectDocuments() error = %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.md"),
		filepath.Join(dir, "b.pdf"),
		filepath.Join(dir, "sub/d.txt"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("collectDocuments() = %v, want %v", got, want)
	}

	if _, err := collectDocuments([]string{filepath.Join(dir, "missing.pdf")}); err == nil {
		t.Error("collectDocuments() expected error for missing path")
	}
}

func TestRepoRelative(t *testing.T) {
	root := t.TempDir()
	outside := filepath.Join(filepath.Dir(root), "elsewhere", "x.pdf")

	tests := []struct {
		path string
		want string
	}{
		{filepath.Join(root, "papers", "a.pdf"), filepath.Join("papers", "a.pdf")},
		{outside, outside},
	}
	for _, tt := range tests {
		if got := repoRelative(root, tt.path); got != tt.want {
			t.Errorf("repoRelative(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestSettled(t *testing.T) {
	now := time.Now()
	pending := map[string]time.Time{
		"b.pdf": now.Add(-3 * time.Second),
		"a.pdf": now.Add(-5 * time.Second),
		"c.pdf": now.Add(-500 * time.Millisecond),
	}

	got := settled(pending, now, 2*time.Second)
	if !reflect.DeepEqual(got, []string{"a.pdf", "b.pdf"}) {
		t.Errorf("settled() = %v", got)
	}
	if len(pending) != 1 {
		t.Errorf("pending = %v, want only c.pdf", pending)
	}
}

func TestLocalCiters(t *testing.T) {
	cites := func(keys ...string) []citation.Citation {
		var out []citation.Citation
		for _, k := range keys {
			out = append(out, citation.Citation{Keys: []string{k}, Linked: true})
		}
		return out
	}

	one := metadata.New("one.pdf", "fp1")
	one.Title = "One"
	one.References = []reference.Reference{{Key: "ref_1", DOI: "10.1234/Target"}, {Key: "ref_2", DOI: "10.1/other"}}
	one.Citations = cites("ref_1", "ref_2")

	two := metadata.New("two.pdf", "fp2")
	two.Title = "Two"
	two.References = []reference.Reference{{Key: "ref_3", DOI: "https://doi.org/10.1234/target"}}
	two.Citations = cites("ref_3", "ref_3", "ref_3")

	three := metadata.New("three.pdf", "fp3")
	three.References = []reference.Reference{{Key: "ref_1"}}

	got := localCiters([]metadata.DocumentMetadata{one, two, three}, "10.1234/target")
	if len(got) != 2 {
		t.Fatalf("localCiters() = %+v, want 2 citers", got)
	}
	if got[0].Fingerprint != "fp2" || got[0].Count != 3 {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1].Fingerprint != "fp1" || got[1].Count != 1 {
		t.Errorf("got[1] = %+v", got[1])
	}
}

func TestFormatAuthorsShort(t *testing.T) {
	authors := []reference.Author{{First: "Jane", Last: "Smith"}, {Last: "Jones"}, {First: "K.", Last: "Lee"}}
	if got := formatAuthorsShort(authors, 2); got != "Smith J, Jones, et al." {
		t.Errorf("formatAuthorsShort() = %q", got)
	}
	if got := truncateString("abcdefghij", 8); got != "abcde..." {
		t.Errorf("truncateString() = %q", got)
	}
}
