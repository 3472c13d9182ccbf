package graphstore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/matsen/citegraph/internal/graph"
	"github.com/matsen/citegraph/internal/logging"
	"github.com/matsen/citegraph/internal/metadata"
)

// SinkName identifies the Neo4j sink in stage errors.
const SinkName = "neo4j"

const (
	upsertDocumentCypher = `
		MERGE (d:Document {fingerprint: $fingerprint})
		SET d.file_path = $file_path, d.title = $title, d.identifier = $identifier,
		    d.year = $year, d.needs_review = $needs_review
		WITH d
		OPTIONAL MATCH (d)-[c:CITES]->()
		DELETE c`

	upsertReferencesCypher = `
		UNWIND $refs AS row
		MERGE (r:Reference {document: $fingerprint, key: row.key})
		SET r.slug = row.slug, r.title = row.title, r.year = row.year, r.doi = row.doi
		WITH r, row
		WHERE row.doi <> ''
		MERGE (w:Work {doi: row.doi})
		MERGE (r)-[:RESOLVES_TO]->(w)`

	upsertEdgesCypher = `
		MATCH (d:Document {fingerprint: $fingerprint})
		UNWIND $edges AS row
		MERGE (r:Reference {document: $fingerprint, key: row.key})
		MERGE (d)-[c:CITES]->(r)
		SET c.count = row.count`

	citedByCypher = `
		MATCH (d:Document)-[c:CITES]->(:Reference)-[:RESOLVES_TO]->(:Work {doi: $doi})
		RETURN d.fingerprint AS fingerprint, d.title AS title, c.count AS count
		ORDER BY count DESC, fingerprint`
)

// Sink writes citation graphs to Neo4j. Each write replaces the document's
// outgoing CITES edges, so repeated writes of one record converge.
type Sink struct {
	driver   driver
	database string
	logger   logging.Logger
	once     sync.Once
}

// New connects to Neo4j and verifies connectivity.
func New(ctx context.Context, cfg Config, logger logging.Logger) (*Sink, error) {
	d, err := openDriver(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Nop()
	}
	logger.Info("connected to neo4j", logging.String("uri", cfg.URI), logging.String("database", cfg.Database))
	return newSink(d, cfg.Database, logger), nil
}

func newSink(d driver, database string, logger logging.Logger) *Sink {
	if database == "" {
		database = "neo4j"
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Sink{driver: d, database: database, logger: logger}
}

// Name implements pipeline.Store.
func (*Sink) Name() string { return SinkName }

func (s *Sink) session(ctx context.Context, mode neo4j.AccessMode) session {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database, AccessMode: mode})
}

// Upsert writes doc's node, its references and one CITES edge per cited
// key carrying the citation count.
func (s *Sink) Upsert(ctx context.Context, doc metadata.DocumentMetadata) error {
	if doc.Fingerprint == "" {
		return metadata.ErrNoFingerprint
	}

	refs := make([]map[string]any, 0, len(doc.References))
	for _, r := range doc.References {
		refs = append(refs, map[string]any{
			"key":   r.Key,
			"slug":  r.Slug,
			"title": r.Title,
			"year":  int64(r.Year),
			"doi":   strings.ToLower(r.DOI),
		})
	}

	g := graph.Build(doc.Fingerprint, doc.Citations)
	counts := g.Counts()
	edges := make([]map[string]any, 0, len(counts))
	for _, kc := range counts {
		edges = append(edges, map[string]any{"key": kc.Key, "count": int64(kc.Count)})
	}

	sess := s.session(ctx, neo4j.AccessModeWrite)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx transaction) (any, error) {
		if err := run(ctx, tx, upsertDocumentCypher, map[string]any{
			"fingerprint":  doc.Fingerprint,
			"file_path":    doc.FilePath,
			"title":        doc.Title,
			"identifier":   doc.Identifier,
			"year":         int64(doc.Year),
			"needs_review": doc.NeedsReview,
		}); err != nil {
			return nil, err
		}
		if len(refs) > 0 {
			if err := run(ctx, tx, upsertReferencesCypher, map[string]any{
				"fingerprint": doc.Fingerprint,
				"refs":        refs,
			}); err != nil {
				return nil, err
			}
		}
		if len(edges) > 0 {
			if err := run(ctx, tx, upsertEdgesCypher, map[string]any{
				"fingerprint": doc.Fingerprint,
				"edges":       edges,
			}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		s.logger.Error("neo4j write failed", logging.String("fingerprint", doc.Fingerprint), logging.Err(err))
		return fmt.Errorf("writing graph for %s: %w", doc.Fingerprint, err)
	}

	s.logger.Debug("graph written",
		logging.String("fingerprint", doc.Fingerprint),
		logging.Int("references", len(refs)),
		logging.Int("edges", len(edges)),
	)
	return nil
}

func run(ctx context.Context, tx transaction, cypher string, params map[string]any) error {
	res, err := tx.Run(ctx, cypher, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}

// Citer is a document citing a work, with how often it cites it.
type Citer struct {
	Fingerprint string `json:"fingerprint"`
	Title       string `json:"title"`
	Count       int    `json:"count"`
}

// CitedBy returns the documents whose references resolve to doi.
func (s *Sink) CitedBy(ctx context.Context, doi string) ([]Citer, error) {
	sess := s.session(ctx, neo4j.AccessModeRead)
	defer sess.Close(ctx)

	out, err := sess.ExecuteRead(ctx, func(tx transaction) (any, error) {
		res, err := tx.Run(ctx, citedByCypher, map[string]any{"doi": strings.ToLower(doi)})
		if err != nil {
			return nil, err
		}
		var citers []Citer
		for res.Next(ctx) {
			citers = append(citers, toCiter(res.Record()))
		}
		return citers, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("querying citers of %s: %w", doi, err)
	}
	citers, _ := out.([]Citer)
	return citers, nil
}

func toCiter(rec *neo4j.Record) Citer {
	var c Citer
	if v, ok := rec.Get("fingerprint"); ok {
		c.Fingerprint, _ = v.(string)
	}
	if v, ok := rec.Get("title"); ok {
		c.Title, _ = v.(string)
	}
	if v, ok := rec.Get("count"); ok {
		if n, ok := v.(int64); ok {
			c.Count = int(n)
		}
	}
	return c
}

// Close releases the driver.
func (s *Sink) Close(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		err = s.driver.Close(ctx)
	})
	return err
}
