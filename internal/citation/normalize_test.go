package citation

import (
	"errors"
	"reflect"
	"testing"

	"github.com/matsen/citegraph/internal/match"
)

func TestNormalize_Numeric(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		wantKeys       []string
		wantNormalized string
	}{
		{"single", "[7]", []string{"ref_7"}, "7"},
		{"range", "[1-3]", []string{"ref_1", "ref_2", "ref_3"}, "1,2,3"},
		{"list keeps order", "[4,19,32]", []string{"ref_4", "ref_19", "ref_32"}, "4,19,32"},
		{"list with spaces", "[21, 39]", []string{"ref_21", "ref_39"}, "21,39"},
		{"space separated", "[1 2]", []string{"ref_1", "ref_2"}, "1,2"},
		{"list and range", "[2, 5-7]", []string{"ref_2", "ref_5", "ref_6", "ref_7"}, "2,5,6,7"},
		{"en dash", "[3–4]", []string{"ref_3", "ref_4"}, "3,4"},
		{"duplicates dropped", "[3,3,1]", []string{"ref_3", "ref_1"}, "3,1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := onlyCitation(t, tt.input)
			got, err := Normalize(m)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if got.Style != StyleNumeric {
				t.Errorf("Style = %q", got.Style)
			}
			if !reflect.DeepEqual(got.Keys, tt.wantKeys) {
				t.Errorf("Keys = %v, want %v", got.Keys, tt.wantKeys)
			}
			if got.Normalized != tt.wantNormalized {
				t.Errorf("Normalized = %q, want %q", got.Normalized, tt.wantNormalized)
			}
			if got.LowConfidence {
				t.Error("bracket citation flagged low confidence")
			}
		})
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	m := onlyCitation(t, "see [9, 1-2]")
	a, errA := Normalize(m)
	b, errB := Normalize(m)
	if errA != nil || errB != nil {
		t.Fatalf("errors: %v, %v", errA, errB)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Normalize not deterministic: %+v vs %+v", a, b)
	}
}

func TestNormalize_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"descending range", "[5-3]"},
		{"chained range", "[1-2-3]"},
		{"oversized range", "[1-999]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := onlyCitation(t, tt.input)
			_, err := Normalize(m)
			if err == nil {
				t.Fatal("expected error")
			}
			if !IsPatternError(err) {
				t.Errorf("error %v is not a PatternError", err)
			}
			if !errors.Is(err, ErrMalformedMarker) {
				t.Errorf("error %v does not wrap ErrMalformedMarker", err)
			}
		})
	}
}

func TestNormalize_AuthorYear(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"(Liu et al., 2022a)", "liu_et_al_2022a"},
		{"(Liu et al., 2022b)", "liu_et_al_2022b"},
		{"Liu et al. (2022, a)", "liu_et_al_2022a"},
		{"(Jones, 2022)", "jones_2022"},
		{"Smith and Jones (2020)", "smith_and_jones_2020"},
		{"(O'Neil, 2019)", "oneil_2019"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Normalize(onlyCitation(t, tt.input))
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if got.Style != StyleAuthorYear {
				t.Errorf("Style = %q", got.Style)
			}
			if got.Normalized != tt.want || len(got.Keys) != 1 || got.Keys[0] != tt.want {
				t.Errorf("got %q %v, want %q", got.Normalized, got.Keys, tt.want)
			}
		})
	}
}

func TestNormalize_BareNumericLowConfidence(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantNote string
	}{
		{"plain", "as shown in (3).", "bare parenthetical number"},
		{"page marker", "Nature 12, pp. (98)", "preceded by a page marker"},
		{"volume issue", "vol 4: (12)", "preceded by a colon, as in volume:issue"},
		{"page range", "pages (98-102)", "range in parentheses, possibly pages"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(onlyCitation(t, tt.input))
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if !got.LowConfidence {
				t.Error("LowConfidence = false, want true")
			}
			if got.ConfidenceNote != tt.wantNote {
				t.Errorf("ConfidenceNote = %q, want %q", got.ConfidenceNote, tt.wantNote)
			}
		})
	}
}

func TestNormalize_NotACitation(t *testing.T) {
	_, err := Normalize(match.Match{Text: "$x$", Class: match.ClassInlineDollar})
	if !IsPatternError(err) {
		t.Errorf("expected PatternError, got %v", err)
	}
}

func onlyCitation(t *testing.T, text string) match.Match {
	t.Helper()
	got := match.Scan(text).Citations
	if len(got) != 1 {
		t.Fatalf("Scan(%q) found %d citations, want 1", text, len(got))
	}
	return got[0]
}
