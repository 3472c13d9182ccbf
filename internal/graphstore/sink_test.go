package graphstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/citegraph/internal/citation"
	"github.com/matsen/citegraph/internal/metadata"
	"github.com/matsen/citegraph/internal/reference"
)

type call struct {
	cypher string
	params map[string]any
}

type fakeResult struct {
	records []*neo4j.Record
	pos     int
}

func (r *fakeResult) Next(context.Context) bool {
	if r.pos < len(r.records) {
		r.pos++
		return true
	}
	return false
}
func (r *fakeResult) Record() *neo4j.Record { return r.records[r.pos-1] }
func (r *fakeResult) Err() error            { return nil }
func (r *fakeResult) Consume(context.Context) (neo4j.ResultSummary, error) {
	return nil, nil
}

type fakeTx struct {
	calls   *[]call
	failOn  string
	records []*neo4j.Record
}

func (t *fakeTx) Run(_ context.Context, cypher string, params map[string]any) (result, error) {
	*t.calls = append(*t.calls, call{cypher: cypher, params: params})
	if t.failOn != "" && strings.Contains(cypher, t.failOn) {
		return nil, errors.New("neo4j unavailable")
	}
	return &fakeResult{records: t.records}, nil
}

type fakeSession struct {
	d *fakeDriver
}

func (s *fakeSession) ExecuteRead(_ context.Context, work func(transaction) (any, error)) (any, error) {
	s.d.reads++
	return work(&fakeTx{calls: &s.d.calls, failOn: s.d.failOn, records: s.d.records})
}

func (s *fakeSession) ExecuteWrite(_ context.Context, work func(transaction) (any, error)) (any, error) {
	s.d.writes++
	return work(&fakeTx{calls: &s.d.calls, failOn: s.d.failOn, records: s.d.records})
}

func (s *fakeSession) Close(context.Context) error {
	s.d.closedSessions++
	return nil
}

type fakeDriver struct {
	calls          []call
	failOn         string
	records        []*neo4j.Record
	configs        []neo4j.SessionConfig
	reads, writes  int
	closedSessions int
	closed         int
}

func (d *fakeDriver) VerifyConnectivity(context.Context) error { return nil }
func (d *fakeDriver) NewSession(_ context.Context, cfg neo4j.SessionConfig) session {
	d.configs = append(d.configs, cfg)
	return &fakeSession{d: d}
}
func (d *fakeDriver) Close(context.Context) error {
	d.closed++
	return nil
}

func sampleDoc() metadata.DocumentMetadata {
	doc := metadata.New("papers/a.pdf", "sha256:abc")
	doc.Title = "A Study"
	doc.References = []reference.Reference{
		{Key: "ref_1", Slug: "smith_2020", Title: "Prior", Year: 2020, DOI: "10.1234/prior"},
		{Key: "ref_2", Title: "Other"},
	}
	doc.Citations = []citation.Citation{
		{Text: "[1]", Keys: []string{"ref_1"}},
		{Text: "[1,2]", Keys: []string{"ref_1", "ref_2"}},
		{Text: "[5]", Keys: []string{"ref_5"}},
	}
	return doc
}

func TestSink_Upsert(t *testing.T) {
	d := &fakeDriver{}
	s := newSink(d, "", nil)
	assert.Equal(t, SinkName, s.Name())

	require.NoError(t, s.Upsert(context.Background(), sampleDoc()))

	require.Len(t, d.configs, 1)
	assert.Equal(t, "neo4j", d.configs[0].DatabaseName)
	assert.Equal(t, neo4j.AccessModeWrite, d.configs[0].AccessMode)
	assert.Equal(t, 1, d.writes)
	assert.Equal(t, 1, d.closedSessions)

	require.Len(t, d.calls, 3)
	assert.Equal(t, upsertDocumentCypher, d.calls[0].cypher)
	assert.Equal(t, "sha256:abc", d.calls[0].params["fingerprint"])
	assert.Equal(t, "A Study", d.calls[0].params["title"])

	refs := d.calls[1].params["refs"].([]map[string]any)
	require.Len(t, refs, 2)
	assert.Equal(t, "10.1234/prior", refs[0]["doi"])
	assert.Equal(t, int64(2020), refs[0]["year"])

	edges := d.calls[2].params["edges"].([]map[string]any)
	require.Len(t, edges, 3)
	assert.Equal(t, map[string]any{"key": "ref_1", "count": int64(2)}, edges[0])
	assert.Equal(t, map[string]any{"key": "ref_2", "count": int64(1)}, edges[1])
	assert.Equal(t, map[string]any{"key": "ref_5", "count": int64(1)}, edges[2])
}

func TestSink_UpsertWithoutCitations(t *testing.T) {
	d := &fakeDriver{}
	s := newSink(d, "graphs", nil)

	doc := metadata.New("b.pdf", "sha256:b")
	require.NoError(t, s.Upsert(context.Background(), doc))

	require.Len(t, d.calls, 1)
	assert.Equal(t, "graphs", d.configs[0].DatabaseName)
}

func TestSink_UpsertErrors(t *testing.T) {
	s := newSink(&fakeDriver{}, "", nil)
	err := s.Upsert(context.Background(), metadata.New("a.pdf", ""))
	assert.ErrorIs(t, err, metadata.ErrNoFingerprint)

	d := &fakeDriver{failOn: "UNWIND $edges"}
	s = newSink(d, "", nil)
	err = s.Upsert(context.Background(), sampleDoc())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sha256:abc")
	assert.Equal(t, 1, d.closedSessions)
}

func TestSink_CitedBy(t *testing.T) {
	d := &fakeDriver{records: []*neo4j.Record{
		{Keys: []string{"fingerprint", "title", "count"}, Values: []any{"sha256:a", "A Study", int64(3)}},
		{Keys: []string{"fingerprint", "title", "count"}, Values: []any{"sha256:b", nil, int64(1)}},
	}}
	s := newSink(d, "", nil)

	citers, err := s.CitedBy(context.Background(), "10.1234/prior")
	require.NoError(t, err)
	assert.Equal(t, []Citer{
		{Fingerprint: "sha256:a", Title: "A Study", Count: 3},
		{Fingerprint: "sha256:b", Count: 1},
	}, citers)
	assert.Equal(t, 1, d.reads)
	assert.Equal(t, neo4j.AccessModeRead, d.configs[0].AccessMode)
	assert.Equal(t, "10.1234/prior", d.calls[0].params["doi"])
}

func TestSink_CitedByError(t *testing.T) {
	s := newSink(&fakeDriver{failOn: "RESOLVES_TO"}, "", nil)
	_, err := s.CitedBy(context.Background(), "10.1/x")
	assert.Error(t, err)
}

func TestSink_CloseOnce(t *testing.T) {
	d := &fakeDriver{}
	s := newSink(d, "", nil)
	require.NoError(t, s.Close(context.Background()))
	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, 1, d.closed)
}

func TestOpenDriver_RequiresURI(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	assert.Error(t, err)
}
