package graph

import (
	"reflect"
	"testing"

	"github.com/matsen/citegraph/internal/citation"
	"github.com/matsen/citegraph/internal/reference"
)

func sampleCitations() []citation.Citation {
	return []citation.Citation{
		{Text: "[1]", Keys: []string{"ref_1"}, Start: 0},
		{Text: "[1,2]", Keys: []string{"ref_1", "ref_2"}, Start: 10},
		{Text: "[10]", Keys: []string{"ref_10"}, Start: 20},
		{Text: "(Smith, 2020)", Keys: []string{"smith_2020"}, Start: 30},
		{Text: "[7]", Keys: []string{}, Orphans: []string{"ref_7"}, Start: 40},
	}
}

func TestBuild_Frequency(t *testing.T) {
	g := Build("sha256:abc", sampleCitations())

	tests := []struct {
		key  string
		want int
	}{
		{"ref_1", 2},
		{"ref_2", 1},
		{"ref_10", 1},
		{"smith_2020", 1},
		{"ref_7", 0},
		{"missing", 0},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := g.Frequency(tt.key); got != tt.want {
				t.Errorf("Frequency(%q) = %d, want %d", tt.key, got, tt.want)
			}
		})
	}

	if len(g.Edges()) != 5 {
		t.Errorf("got %d edges, want 5", len(g.Edges()))
	}
	if g.Source() != "sha256:abc" {
		t.Errorf("Source() = %q", g.Source())
	}
}

func TestBuild_Keys(t *testing.T) {
	g := Build("doc", sampleCitations())
	want := []string{"ref_1", "ref_2", "ref_10", "smith_2020"}
	if got := g.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}

	counts := g.Counts()
	if counts[0] != (KeyCount{Key: "ref_1", Count: 2}) {
		t.Errorf("Counts()[0] = %+v", counts[0])
	}
}

// Edge count to each key must equal the number of citations whose key set
// contains that key, however often the graph is rebuilt.
func TestBuild_CountConsistency(t *testing.T) {
	cits := citation.NewExtractor(0, citation.KeepOrphans).Extract(
		"[1] [1-3] [2,5] (Jones, 2021) [3]",
		[]reference.Reference{{Key: "ref_1"}, {Key: "ref_2"}, {Key: "ref_3"}},
	).Citations

	first := Build("doc", cits)
	second := Build("doc", cits)

	for _, k := range first.Keys() {
		want := 0
		for _, c := range cits {
			for _, ck := range c.Keys {
				if ck == k {
					want++
				}
			}
		}
		if first.Frequency(k) != want {
			t.Errorf("Frequency(%q) = %d, want %d", k, first.Frequency(k), want)
		}
		if second.Frequency(k) != first.Frequency(k) {
			t.Errorf("rebuild changed Frequency(%q)", k)
		}
	}
}

func TestDetectOrphans(t *testing.T) {
	g := Build("doc", []citation.Citation{
		{Text: "[1]", Keys: []string{"ref_1"}},
		{Text: "[39]", Keys: []string{"ref_39"}},
		{Text: "[39]", Keys: []string{"ref_39"}},
	})

	orphaned, valid := g.DetectOrphans(map[string]bool{"ref_1": true})

	if len(orphaned) != 1 {
		t.Fatalf("got %d orphans, want 1", len(orphaned))
	}
	want := OrphanedEdgeInfo{SourceID: "doc", TargetID: "ref_39", Count: 2, Reason: "missing_target"}
	if orphaned[0] != want {
		t.Errorf("orphan = %+v, want %+v", orphaned[0], want)
	}
	if len(valid) != 1 || valid[0].TargetID != "ref_1" {
		t.Errorf("valid = %+v", valid)
	}
}

func TestFindRepeated(t *testing.T) {
	g := Build("doc", sampleCitations())
	got := g.FindRepeated()
	if !reflect.DeepEqual(got, map[string]int{"ref_1": 2}) {
		t.Errorf("FindRepeated() = %v", got)
	}
}

func TestBuild_Empty(t *testing.T) {
	g := Build("doc", nil)
	if len(g.Edges()) != 0 || len(g.Keys()) != 0 {
		t.Errorf("empty graph has edges %v keys %v", g.Edges(), g.Keys())
	}
	orphaned, valid := g.DetectOrphans(nil)
	if orphaned != nil || valid != nil {
		t.Errorf("DetectOrphans on empty graph = %v, %v", orphaned, valid)
	}
}
