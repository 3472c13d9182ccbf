package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/matsen/citegraph/internal/metadata"
)

// StoreName identifies the JSONL store in stage errors.
const StoreName = "jsonl"

// Store keeps one record per fingerprint in a JSONL file and mirrors each
// write into an optional search index. Writes to the same fingerprint
// replace the earlier record.
type Store struct {
	mu    sync.Mutex
	path  string
	index *DB
}

// NewStore returns a store writing to path. index may be nil.
func NewStore(path string, index *DB) *Store {
	return &Store{path: path, index: index}
}

// Name implements pipeline.Store.
func (*Store) Name() string { return StoreName }

// Path returns the JSONL file backing the store.
func (s *Store) Path() string { return s.path }

// Upsert writes doc, replacing any record with the same fingerprint.
func (s *Store) Upsert(ctx context.Context, doc metadata.DocumentMetadata) error {
	if doc.Fingerprint == "" {
		return metadata.ErrNoFingerprint
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := ReadAll(s.path)
	if err != nil {
		return err
	}
	if idx, found := FindByFingerprint(docs, doc.Fingerprint); found {
		docs[idx] = doc
	} else {
		docs = append(docs, doc)
	}
	if err := WriteAll(s.path, docs); err != nil {
		return err
	}

	if s.index != nil {
		if err := s.index.Upsert(ctx, doc); err != nil {
			return fmt.Errorf("updating index: %w", err)
		}
	}
	return nil
}

// Get implements metadata.Repository. It returns metadata.ErrNotFound when
// no record has the fingerprint.
func (s *Store) Get(ctx context.Context, fingerprint string) (*metadata.DocumentMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := ReadAll(s.path)
	if err != nil {
		return nil, err
	}
	idx, found := FindByFingerprint(docs, fingerprint)
	if !found {
		return nil, metadata.ErrNotFound
	}
	doc := docs[idx]
	return &doc, nil
}

// All returns every stored record in file order.
func (s *Store) All() ([]metadata.DocumentMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ReadAll(s.path)
}
