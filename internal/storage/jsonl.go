// Package storage persists consolidated document records. documents.jsonl
// is the source of truth; the SQLite database is a rebuildable search index.
package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matsen/citegraph/internal/metadata"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines.
// A record carries its full reference and citation lists, so lines run long.
const MaxJSONLLineCapacity = 16 * 1024 * 1024

// ReadAll reads all document records from a JSONL file.
func ReadAll(path string) ([]metadata.DocumentMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // Missing file means no records yet
		}
		return nil, fmt.Errorf("opening documents file: %w", err)
	}
	defer f.Close()

	var docs []metadata.DocumentMetadata
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var doc metadata.DocumentMetadata
		if err := json.Unmarshal(line, &doc); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		docs = append(docs, doc)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading documents file: %w", err)
	}

	return docs, nil
}

// WriteAll replaces the file's content with docs. It writes to a temporary
// file in the same directory and renames it into place.
func WriteAll(path string, docs []metadata.DocumentMetadata) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".documents-*.jsonl")
	if err != nil {
		return fmt.Errorf("creating documents file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for i, doc := range docs {
		data, err := json.Marshal(doc)
		if err != nil {
			tmp.Close()
			return fmt.Errorf("encoding document %d: %w", i, err)
		}
		if _, err := w.Write(data); err != nil {
			tmp.Close()
			return fmt.Errorf("writing document %d: %w", i, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			tmp.Close()
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flushing documents file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing documents file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing documents file: %w", err)
	}
	return nil
}

// FindByFingerprint searches for a record by content fingerprint.
func FindByFingerprint(docs []metadata.DocumentMetadata, fingerprint string) (int, bool) {
	if fingerprint == "" {
		return -1, false
	}
	for i, doc := range docs {
		if doc.Fingerprint == fingerprint {
			return i, true
		}
	}
	return -1, false
}

// FindByPath searches for the most recently written record for a file path.
func FindByPath(docs []metadata.DocumentMetadata, path string) (int, bool) {
	for i := len(docs) - 1; i >= 0; i-- {
		if docs[i].FilePath == path {
			return i, true
		}
	}
	return -1, false
}

// FindByIdentifier searches for a record by DOI or arXiv identifier.
func FindByIdentifier(docs []metadata.DocumentMetadata, id string) (int, bool) {
	if id == "" {
		return -1, false
	}
	for i, doc := range docs {
		if doc.Identifier == id {
			return i, true
		}
	}
	return -1, false
}
