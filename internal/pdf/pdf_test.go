package pdf

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matsen/citegraph/internal/metadata"
)

func TestFindDOI(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"resolver url", "Published at https://doi.org/10.1234/abcd.5678.\n", "10.1234/abcd.5678"},
		{"prefixed", "doi:10.1038/nature12373, 2013", "10.1038/nature12373"},
		{"trailing paren", "(see 10.1101/2020.01.01.123456)", "10.1101/2020.01.01.123456"},
		{"too short registrant", "10.12/abc", ""},
		{"none", "no identifier here", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindDOI(tt.text); got != tt.want {
				t.Errorf("FindDOI() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFindArXiv(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"arXiv:2106.15928v2 [cs.LG] 3 Jul 2021", "2106.15928"},
		{"https://arxiv.org/abs/2301.12345", "2301.12345"},
		{"arXiv 1905.0001", "1905.0001"},
		{"arXiv:hep-th/9901001v3", "hep-th/9901001"},
		{"figure 2106.15928 shows", ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := findArXiv(tt.text); got != tt.want {
				t.Errorf("findArXiv(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if got := NormalizeArXiv("arXiv:2106.15928v2"); got != "2106.15928" {
		t.Errorf("NormalizeArXiv() = %q", got)
	}
	if got := NormalizeArXiv("2106.15928v2"); got != "2106.15928" {
		t.Errorf("NormalizeArXiv(bare) = %q", got)
	}
	if got := NormalizeDOI("https://doi.org/10.1038/nature12373"); got != "10.1038/nature12373" {
		t.Errorf("NormalizeDOI() = %q", got)
	}
}

func TestResolver_Resolve(t *testing.T) {
	tests := []struct {
		name string
		path string
		text string
		want *metadata.Identifier
	}{
		{
			name: "doi in header",
			path: "/papers/a.pdf",
			text: "A Paper\nhttps://doi.org/10.1234/abcd.5678\nAbstract...",
			want: &metadata.Identifier{Value: "10.1234/abcd.5678", Type: metadata.IdentifierDOI, Method: MethodTextScan},
		},
		{
			name: "doi wins over arxiv",
			path: "/papers/a.pdf",
			text: "arXiv:2106.15928v2\nDOI 10.1234/abcd.5678",
			want: &metadata.Identifier{Value: "10.1234/abcd.5678", Type: metadata.IdentifierDOI, Method: MethodTextScan},
		},
		{
			name: "arxiv in header",
			path: "/papers/a.pdf",
			text: "arXiv:2106.15928v2 [cs.LG] 3 Jul 2021\nTitle",
			want: &metadata.Identifier{Value: "2106.15928", Type: metadata.IdentifierArXiv, Method: MethodTextScan},
		},
		{
			name: "reference section ignored",
			path: "/papers/a.md",
			text: "Intro text.\n\n## References\n[1] Smith. doi:10.1111/xyz12345\n",
			want: nil,
		},
		{
			name: "arxiv file name",
			path: "/papers/2106.15928v1.pdf",
			text: "nothing useful",
			want: &metadata.Identifier{Value: "2106.15928", Type: metadata.IdentifierArXiv, Method: MethodFilename},
		},
		{
			name: "doi file name",
			path: "/papers/10.1038_nature12373.pdf",
			text: "nothing useful",
			want: &metadata.Identifier{Value: "10.1038/nature12373", Type: metadata.IdentifierDOI, Method: MethodFilename},
		},
	}

	r := NewResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(context.Background(), tt.path, tt.text)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("Resolve() = %+v, want %+v", got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("Resolve() = %+v, want %+v", *got, *tt.want)
			}
		})
	}
}

func TestResolver_HeadLimit(t *testing.T) {
	r := &Resolver{HeadBytes: 20}
	text := strings.Repeat("x", 50) + " 10.1234/abcd.5678"
	got, err := r.Resolve(context.Background(), "a.md", text)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("Resolve() = %+v, want nil beyond head limit", got)
	}
}

func TestFingerprint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		algo string
		want string
	}{
		{"", "sha256:ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{AlgoSHA256, "sha256:ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{AlgoBlake2b, "blake2b:bddd813c634239723171ef3fee98579b94964e3bb1cb3e427262c8c068d52319"},
	}
	for _, tt := range tests {
		got, err := Fingerprint(path, tt.algo)
		if err != nil {
			t.Fatalf("Fingerprint(%q) error = %v", tt.algo, err)
		}
		if got != tt.want {
			t.Errorf("Fingerprint(%q) = %q, want %q", tt.algo, got, tt.want)
		}
	}

	if _, err := Fingerprint(path, "md5"); err == nil {
		t.Error("Fingerprint(md5) expected error")
	}
}

func TestExtractor_Extract(t *testing.T) {
	dir := t.TempDir()
	md := filepath.Join(dir, "paper.md")
	txt := filepath.Join(dir, "paper.txt")
	doc := filepath.Join(dir, "paper.docx")
	for _, p := range []string{md, txt, doc} {
		if err := os.WriteFile(p, []byte("We observed [1]."), 0644); err != nil {
			t.Fatal(err)
		}
	}

	e, err := NewExtractor(0, AlgoSHA256)
	if err != nil {
		t.Fatal(err)
	}

	got, err := e.Extract(context.Background(), md)
	if err != nil {
		t.Fatalf("Extract(md) error = %v", err)
	}
	if got.Method != MethodMarkdown || got.Markdown != "We observed [1]." || got.Text != got.Markdown {
		t.Errorf("Extract(md) = %+v", got)
	}
	if !strings.HasPrefix(got.Fingerprint, "sha256:") {
		t.Errorf("Fingerprint = %q", got.Fingerprint)
	}

	got, err = e.Extract(context.Background(), txt)
	if err != nil {
		t.Fatalf("Extract(txt) error = %v", err)
	}
	if got.Method != MethodPlain {
		t.Errorf("Method = %q, want %q", got.Method, MethodPlain)
	}

	if _, err := e.Extract(context.Background(), doc); err == nil {
		t.Error("Extract(docx) expected error")
	}
	if _, err := e.Extract(context.Background(), filepath.Join(dir, "missing.md")); err == nil {
		t.Error("Extract(missing) expected error")
	}
}

func TestNewExtractor_UnknownAlgo(t *testing.T) {
	if _, err := NewExtractor(0, "crc32"); err == nil {
		t.Error("NewExtractor(crc32) expected error")
	}
}

func TestSupported(t *testing.T) {
	for path, want := range map[string]bool{
		"a.pdf": true, "a.PDF": true, "a.md": true, "a.markdown": true,
		"a.txt": true, "a.docx": false, "a": false,
	} {
		if got := Supported(path); got != want {
			t.Errorf("Supported(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestOpener_ResolvePath(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("%PDF"), 0644); err != nil {
		t.Fatal(err)
	}
	o := NewOpener(dir, "")

	got, err := o.ResolvePath("a.pdf")
	if err != nil {
		t.Fatalf("ResolvePath() error = %v", err)
	}
	if got != filepath.Join(dir, "a.pdf") {
		t.Errorf("ResolvePath() = %q", got)
	}
	if _, err := o.ResolvePath("missing.pdf"); err == nil {
		t.Error("ResolvePath(missing) expected error")
	}
	if _, err := o.ResolvePath(""); err == nil {
		t.Error("ResolvePath(empty) expected error")
	}
}
