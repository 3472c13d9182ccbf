package pdf

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/crypto/blake2b"

	"github.com/matsen/citegraph/internal/pipeline"
)

// Fingerprint algorithms.
const (
	AlgoSHA256  = "sha256"
	AlgoBlake2b = "blake2b"
)

// Extraction methods.
const (
	MethodPDF      = "pdf"
	MethodMarkdown = "markdown"
	MethodPlain    = "plain"
)

// Extractor reads documents from disk and fingerprints their bytes.
type Extractor struct {
	// MaxPages limits PDF text extraction; 0 means all pages.
	MaxPages int
	// Algo is the fingerprint algorithm, sha256 when empty.
	Algo string
}

// NewExtractor returns an extractor. An unknown algorithm is an error.
func NewExtractor(maxPages int, algo string) (*Extractor, error) {
	if algo == "" {
		algo = AlgoSHA256
	}
	if _, err := newHash(algo); err != nil {
		return nil, err
	}
	return &Extractor{MaxPages: maxPages, Algo: algo}, nil
}

// Extract returns the document's text and fingerprint. PDFs go through the
// page text extractor; markdown and plain text files are read as they are.
func (e *Extractor) Extract(ctx context.Context, path string) (*pipeline.Text, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fp, err := Fingerprint(path, e.Algo)
	if err != nil {
		return nil, err
	}

	var text, method string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = ExtractText(path, e.MaxPages)
		method = MethodPDF
	case ".md", ".markdown":
		text, err = readFile(path)
		method = MethodMarkdown
	case ".txt":
		text, err = readFile(path)
		method = MethodPlain
	default:
		return nil, fmt.Errorf("unsupported document type: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	return &pipeline.Text{
		Text:        text,
		Markdown:    text,
		Fingerprint: fp,
		Method:      method,
	}, nil
}

// Supported reports whether path has an extension Extract handles.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".md", ".markdown", ".txt":
		return true
	}
	return false
}

// Fingerprint hashes the file's bytes and renders the sum as <algo>:<hex>.
func Fingerprint(path, algo string) (string, error) {
	if algo == "" {
		algo = AlgoSHA256
	}
	h, err := newHash(algo)
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return algo + ":" + hex.EncodeToString(h.Sum(nil)), nil
}

func newHash(algo string) (hash.Hash, error) {
	switch algo {
	case AlgoSHA256:
		return sha256.New(), nil
	case AlgoBlake2b:
		return blake2b.New256(nil)
	default:
		return nil, fmt.Errorf("unknown fingerprint algorithm: %q", algo)
	}
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

// ExtractText extracts all text from the first maxPages pages of a PDF.
func ExtractText(filePath string, maxPages int) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("opening PDF %s: %w", filePath, err)
	}
	defer f.Close()

	return pageText(r, maxPages), nil
}

// ExtractTextReader extracts text from a PDF reader.
func ExtractTextReader(r io.ReaderAt, size int64, maxPages int) (string, error) {
	pdfReader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", err
	}
	return pageText(pdfReader, maxPages), nil
}

func pageText(r *pdf.Reader, maxPages int) string {
	if maxPages <= 0 || maxPages > r.NumPage() {
		maxPages = r.NumPage()
	}

	var builder strings.Builder
	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		// A page that fails to decode is dropped; the rest of the document is still useful.
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}
	return builder.String()
}
