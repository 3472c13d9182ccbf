package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/matsen/citegraph/internal/metadata"
	"github.com/matsen/citegraph/internal/reference"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite search index.
type DB struct {
	db *sql.DB
}

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS docs (
			fingerprint TEXT PRIMARY KEY,
			file_path TEXT NOT NULL,
			identifier TEXT,
			title TEXT,
			year INTEGER,
			needs_review INTEGER NOT NULL DEFAULT 0,
			record_json TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_docs_path ON docs(file_path);
		CREATE INDEX IF NOT EXISTS idx_docs_identifier ON docs(identifier) WHERE identifier IS NOT NULL AND identifier != '';

		-- Standalone full-text table; rows are replaced with their document.
		CREATE VIRTUAL TABLE IF NOT EXISTS docs_fts USING fts5(
			fingerprint,
			title,
			abstract,
			authors_text,
			references_text,
			year
		);
	`

	_, err := db.Exec(schema)
	return err
}

// RebuildFromJSONL clears the database and rebuilds it from a JSONL file.
func (d *DB) RebuildFromJSONL(jsonlPath string) (int, error) {
	docs, err := ReadAll(jsonlPath)
	if err != nil {
		return 0, fmt.Errorf("reading JSONL: %w", err)
	}

	ctx := context.Background()
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM docs"); err != nil {
		return 0, fmt.Errorf("clearing docs table: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM docs_fts"); err != nil {
		return 0, fmt.Errorf("clearing docs_fts table: %w", err)
	}

	for _, doc := range docs {
		if err := insertDoc(ctx, tx, doc); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing rebuild: %w", err)
	}
	return len(docs), nil
}

// Upsert replaces the indexed row for doc's fingerprint.
func (d *DB) Upsert(ctx context.Context, doc metadata.DocumentMetadata) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting upsert: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM docs WHERE fingerprint = ?", doc.Fingerprint); err != nil {
		return fmt.Errorf("deleting %s: %w", doc.Fingerprint, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM docs_fts WHERE fingerprint = ?", doc.Fingerprint); err != nil {
		return fmt.Errorf("deleting fts for %s: %w", doc.Fingerprint, err)
	}
	if err := insertDoc(ctx, tx, doc); err != nil {
		return err
	}
	return tx.Commit()
}

func insertDoc(ctx context.Context, tx *sql.Tx, doc metadata.DocumentMetadata) error {
	record, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", doc.Fingerprint, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO docs (fingerprint, file_path, identifier, title, year, needs_review, record_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.Fingerprint, doc.FilePath, nullableStringValue(doc.Identifier),
		nullableStringValue(doc.Title), doc.Year, doc.NeedsReview, string(record),
	)
	if err != nil {
		return fmt.Errorf("inserting doc %s: %w", doc.Fingerprint, err)
	}

	year := ""
	if doc.Year > 0 {
		year = strconv.Itoa(doc.Year)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO docs_fts (fingerprint, title, abstract, authors_text, references_text, year)
		VALUES (?, ?, ?, ?, ?, ?)`,
		doc.Fingerprint, doc.Title, doc.Abstract,
		formatAuthorsText(doc.Authors), formatReferencesText(doc.References), year,
	)
	if err != nil {
		return fmt.Errorf("inserting fts for %s: %w", doc.Fingerprint, err)
	}
	return nil
}

// formatAuthorsText creates a searchable text representation of authors.
func formatAuthorsText(authors []reference.Author) string {
	var names []string
	for _, a := range authors {
		names = append(names, a.FullName())
	}
	return strings.Join(names, ", ")
}

// formatReferencesText indexes cited titles and authors so documents can be
// found by what they cite.
func formatReferencesText(refs []reference.Reference) string {
	var parts []string
	for _, r := range refs {
		if r.Title != "" {
			parts = append(parts, r.Title)
		}
		if len(r.Authors) > 0 {
			parts = append(parts, formatAuthorsText(r.Authors))
		}
	}
	return strings.Join(parts, "; ")
}

// Get implements metadata.Repository.
func (d *DB) Get(ctx context.Context, fingerprint string) (*metadata.DocumentMetadata, error) {
	row := d.db.QueryRowContext(ctx, `SELECT record_json FROM docs WHERE fingerprint = ?`, fingerprint)
	return scanRecord(row)
}

// GetByPath retrieves the record for a file path.
func (d *DB) GetByPath(path string) (*metadata.DocumentMetadata, error) {
	row := d.db.QueryRow(`SELECT record_json FROM docs WHERE file_path = ? ORDER BY rowid DESC LIMIT 1`, path)
	return scanRecord(row)
}

// GetByIdentifier retrieves the record for a DOI or arXiv identifier.
func (d *DB) GetByIdentifier(id string) (*metadata.DocumentMetadata, error) {
	row := d.db.QueryRow(`SELECT record_json FROM docs WHERE identifier = ? LIMIT 1`, id)
	return scanRecord(row)
}

// Search performs a full-text search over titles, abstracts, authors and
// cited references.
func (d *DB) Search(query string, limit int) ([]metadata.DocumentMetadata, error) {
	ftsQuery := prepareFTSQuery(query)
	if ftsQuery == "" {
		return nil, nil
	}

	rows, err := d.db.Query(`
		SELECT record_json
		FROM docs
		WHERE fingerprint IN (SELECT fingerprint FROM docs_fts WHERE docs_fts MATCH ?)
		ORDER BY title
		LIMIT ?`, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListNeedsReview returns records whose linking is not valid.
func (d *DB) ListNeedsReview(limit int) ([]metadata.DocumentMetadata, error) {
	query := `SELECT record_json FROM docs WHERE needs_review = 1 ORDER BY file_path`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing records for review: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListAll returns all records, optionally limited.
func (d *DB) ListAll(limit int) ([]metadata.DocumentMetadata, error) {
	query := `SELECT record_json FROM docs ORDER BY file_path`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing docs: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Count returns the total number of indexed records.
func (d *DB) Count() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM docs").Scan(&count)
	return count, err
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*metadata.DocumentMetadata, error) {
	var record string
	if err := s.Scan(&record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, metadata.ErrNotFound
		}
		return nil, err
	}

	var doc metadata.DocumentMetadata
	if err := json.Unmarshal([]byte(record), &doc); err != nil {
		return nil, fmt.Errorf("parsing record JSON: %w", err)
	}
	return &doc, nil
}

func scanRecords(rows *sql.Rows) ([]metadata.DocumentMetadata, error) {
	var docs []metadata.DocumentMetadata
	for rows.Next() {
		doc, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// nullableStringValue converts a string to sql.NullString, treating empty as NULL.
func nullableStringValue(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// prepareFTSQuery escapes special characters for FTS5 queries.
func prepareFTSQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	// If query contains special chars, quote it
	if strings.ContainsAny(query, "\"*+-:(){}[]^~./") {
		query = strings.ReplaceAll(query, "\"", "\"\"")
		return "\"" + query + "\""
	}

	return query
}
